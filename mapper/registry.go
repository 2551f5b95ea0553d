package mapper

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMapperNotRegistered is returned when a gateway name has no registered
// factory. Callers distinguish it from ErrNotImplemented: the former means
// the gateway is unknown, the latter that a known gateway lacks the
// operation.
var ErrMapperNotRegistered = errors.New("gateway mapper is not registered")

// MapperRegistry manages all gateway response mapper implementations
type MapperRegistry struct {
	mappers map[string]MapperFactory
	mu      sync.RWMutex
}

// NewMapperRegistry creates a new mapper registry
func NewMapperRegistry() *MapperRegistry {
	return &MapperRegistry{
		mappers: make(map[string]MapperFactory),
	}
}

// Register adds a response mapper factory to the registry
func (r *MapperRegistry) Register(name string, factory MapperFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappers[name] = factory
}

// Get retrieves a response mapper factory by gateway name
func (r *MapperRegistry) Get(name string) (MapperFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.mappers[name]
	if !exists {
		return nil, fmt.Errorf("%q: %w", name, ErrMapperNotRegistered)
	}

	return factory, nil
}

// CreateMapper creates a new instance of a gateway response mapper
func (r *MapperRegistry) CreateMapper(name string) (ResponseMapper, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return factory(), nil
}

// GetAvailableMappers returns a list of all registered gateway names
func (r *MapperRegistry) GetAvailableMappers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.mappers))
	for name := range r.mappers {
		names = append(names, name)
	}

	return names
}

// DefaultRegistry is the global default mapper registry
var DefaultRegistry = NewMapperRegistry()

// Register registers a mapper with the default registry
func Register(name string, factory MapperFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get retrieves a mapper factory from the default registry
func Get(name string) (MapperFactory, error) {
	return DefaultRegistry.Get(name)
}

// CreateMapper creates a mapper instance from the default registry
func CreateMapper(name string) (ResponseMapper, error) {
	return DefaultRegistry.CreateMapper(name)
}

// GetAvailableMappers returns the gateway names registered with the default registry
func GetAvailableMappers() []string {
	return DefaultRegistry.GetAvailableMappers()
}
