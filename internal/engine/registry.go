package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registered engine names.
const (
	NameMyPaint = "mypaint"
	NameSoft    = "soft"
)

// Factory creates a new engine instance. A factory may return nil when the
// engine is compiled out.
type Factory func() Engine

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// First available wins.
	priority = []string{NameMyPaint, NameSoft}
)

// Register registers an engine factory under name, replacing any previous one.
// It is typically called from init functions.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes an engine from the registry. Useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of engines whose factories produce an
// engine.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name, f := range factories {
		if f() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a factory is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Default returns the name of the engine Open("") tries first: the first
// compiled-in engine in priority order, then the remaining ones by name.
// Engines are not initialised. It returns "" when nothing is compiled in.
func Default() string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range priority {
		if f, ok := factories[name]; ok && f() != nil {
			return name
		}
	}
	rest := make([]string, 0, len(factories))
	for name := range factories {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		if factories[name]() != nil {
			return name
		}
	}
	return ""
}

// Open creates and initialises the engine registered under name. An empty
// name selects the first initialisable engine in priority order.
func Open(name string) (Engine, error) {
	if name != "" {
		registryMu.RLock()
		f, ok := factories[name]
		registryMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
		}
		e := f()
		if e == nil {
			return nil, fmt.Errorf("%w: %q not compiled in", ErrUnavailable, name)
		}
		if err := e.Init(); err != nil {
			return nil, err
		}
		return e, nil
	}

	registryMu.RLock()
	order := make([]Factory, 0, len(factories))
	for _, n := range priority {
		if f, ok := factories[n]; ok {
			order = append(order, f)
		}
	}
	var rest []string
	for n := range factories {
		if !contains(priority, n) {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	for _, n := range rest {
		order = append(order, factories[n])
	}
	registryMu.RUnlock()

	var lastErr error = ErrNotRegistered
	for _, f := range order {
		e := f()
		if e == nil {
			continue
		}
		if err := e.Init(); err != nil {
			lastErr = err
			continue
		}
		return e, nil
	}
	return nil, lastErr
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
