package warehouse

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Source)
)

// Register adds a source factory to the registry.
// Called by source implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a source factory by name.
func Get(name string) (func(*slog.Logger) Source, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewSource creates a source instance based on config type.
// The logger parameter is passed to the constructor (nil uses discard logger).
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("warehouse type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListSources(),
		}
	}
	return factory(logger), nil
}

// ListSources returns all registered source names (sorted).
func ListSources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a source type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownAdapterError is returned when an unknown warehouse type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q\nAvailable warehouses: %v\nHint: Check your warehouse.type in leapexpose.yaml", e.Type, e.Available)
}
