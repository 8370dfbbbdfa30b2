package engine

// Setting identifies a numeric brush setting.
type Setting int

// Brush settings understood by every engine. CName returns the libmypaint
// name used in brush definition files.
const (
	SettingOpaque Setting = iota
	SettingOpaqueMultiply
	SettingRadiusLogarithmic
	SettingHardness
	SettingDabsPerActualRadius
	SettingColorH
	SettingColorS
	SettingColorV
	SettingEraser
	SettingLockAlpha

	settingCount
)

var settingNames = [settingCount]string{
	SettingOpaque:              "opaque",
	SettingOpaqueMultiply:      "opaque_multiply",
	SettingRadiusLogarithmic:   "radius_logarithmic",
	SettingHardness:            "hardness",
	SettingDabsPerActualRadius: "dabs_per_actual_radius",
	SettingColorH:              "color_h",
	SettingColorS:              "color_s",
	SettingColorV:              "color_v",
	SettingEraser:              "eraser",
	SettingLockAlpha:           "lock_alpha",
}

// defaultValues mirrors the libmypaint defaults for the settings above.
var defaultValues = [settingCount]float64{
	SettingOpaque:              1.0,
	SettingOpaqueMultiply:      0.0,
	SettingRadiusLogarithmic:   2.0,
	SettingHardness:            0.8,
	SettingDabsPerActualRadius: 2.0,
	SettingColorH:              0.0,
	SettingColorS:              0.0,
	SettingColorV:              0.0,
	SettingEraser:              0.0,
	SettingLockAlpha:           0.0,
}

// CName returns the canonical setting name.
func (s Setting) CName() string {
	if s >= 0 && s < settingCount {
		return settingNames[s]
	}
	return ""
}

// String implements fmt.Stringer.
func (s Setting) String() string {
	if n := s.CName(); n != "" {
		return n
	}
	return "unknown"
}

// Default returns the engine-independent default value of s.
func (s Setting) Default() float64 {
	if s >= 0 && s < settingCount {
		return defaultValues[s]
	}
	return 0
}

// SettingFromCName looks up a setting by canonical name.
func SettingFromCName(name string) (Setting, bool) {
	for i, n := range settingNames {
		if n == name {
			return Setting(i), true
		}
	}
	return 0, false
}

// Settings returns every known setting in declaration order.
func Settings() []Setting {
	out := make([]Setting, settingCount)
	for i := range out {
		out[i] = Setting(i)
	}
	return out
}

// validSettingID reports whether a native setting lookup succeeded. The
// native lookup returns -1 through an unsigned enum, so callers convert the
// raw id to a signed C int before asking.
func validSettingID(id int) bool {
	return id >= 0
}
