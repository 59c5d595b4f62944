package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"mongo-testkit/internal/shared/database"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/testkit"
	httpadapter "mongo-testkit/internal/testkit/adapter/http"
	"mongo-testkit/internal/testkit/config"
)

// Container represents a dependency injection container with lifecycle management
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]func() (interface{}, error)

	TestkitModule *testkit.TestkitModule

	Config *config.Config
	Logger logger.Logger
}

// NewContainer creates a new DI container
func NewContainer() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]func() (interface{}, error)),
	}
}

// InitializeTestkit builds the testkit module from cfg and registers it.
func (c *Container) InitializeTestkit(cfg *config.Config) error {
	c.mu.Lock()
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	log := c.Logger
	c.mu.Unlock()

	module, err := testkit.NewTestkitModule(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create testkit module: %w", err)
	}

	c.mu.Lock()
	c.Config = module.Config
	c.TestkitModule = module
	c.mu.Unlock()
	return c.Register(module)
}

// InitializeJanitor connects to MongoDB and registers the run janitor. The
// HTTP handler is built on first resolution.
func (c *Container) InitializeJanitor(ctx context.Context) error {
	module := c.GetTestkitModule()
	if module == nil {
		return fmt.Errorf("testkit module must be initialized before the janitor")
	}

	runs, err := module.RunManager(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run manager: %w", err)
	}
	return c.registerJanitor(runs)
}

func (c *Container) registerJanitor(runs *database.RunManager) error {
	if err := c.Register(runs); err != nil {
		return err
	}
	return c.RegisterFactory(reflect.TypeOf(httpadapter.RunsHandler{}), func() (interface{}, error) {
		runs, err := GetService[*database.RunManager](c)
		if err != nil {
			return nil, err
		}
		return httpadapter.NewRunsHandler(runs, c.Logger), nil
	})
}

// Register registers a service instance
func (c *Container) Register(service interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	serviceType := reflect.TypeOf(service)
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	c.services[serviceType] = service
	return nil
}

// RegisterFactory registers a factory function for a service
func (c *Container) RegisterFactory(serviceType reflect.Type, factory func() (interface{}, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[serviceType] = factory
	return nil
}

// Resolve resolves a service by type
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	c.mu.RLock()

	if service, exists := c.services[serviceType]; exists {
		c.mu.RUnlock()
		return service, nil
	}

	if factory, exists := c.factories[serviceType]; exists {
		c.mu.RUnlock()

		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service: %w", err)
		}

		c.mu.Lock()
		c.services[serviceType] = service
		c.mu.Unlock()

		return service, nil
	}

	c.mu.RUnlock()
	return nil, fmt.Errorf("service of type %v not registered", serviceType)
}

// GetService is a generic helper for resolving services
func GetService[T any](c *Container) (T, error) {
	var zero T
	serviceType := reflect.TypeOf((*T)(nil)).Elem()
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	service, err := c.Resolve(serviceType)
	if err != nil {
		return zero, err
	}

	if typedService, ok := service.(T); ok {
		return typedService, nil
	}

	return zero, fmt.Errorf("service is not of expected type %T", zero)
}

// GetTestkitModule returns the testkit module instance
func (c *Container) GetTestkitModule() *testkit.TestkitModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TestkitModule
}

// GetRunsHandler returns the janitor HTTP handler, or nil before InitializeJanitor
func (c *Container) GetRunsHandler() *httpadapter.RunsHandler {
	handler, err := GetService[*httpadapter.RunsHandler](c)
	if err != nil {
		return nil
	}
	return handler
}

// HealthCheck performs health check on the initialized modules
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.TestkitModule == nil {
		return fmt.Errorf("testkit module not initialized")
	}
	if err := c.TestkitModule.HealthCheck(ctx); err != nil {
		return fmt.Errorf("testkit health check failed: %w", err)
	}
	return nil
}

// Cleanup shuts services down in reverse order of initialization
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.TestkitModule != nil {
		if err := c.TestkitModule.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close testkit module: %w", err))
		}
		c.TestkitModule = nil
	}

	for _, service := range c.services {
		if cleaner, ok := service.(interface{ Cleanup(context.Context) error }); ok {
			if err := cleaner.Cleanup(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to cleanup service: %w", err))
			}
		}
	}

	c.services = make(map[reflect.Type]interface{})
	c.factories = make(map[reflect.Type]func() (interface{}, error))

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Close gracefully shuts down all services in the container
func (c *Container) Close(ctx context.Context) error {
	if c.Logger != nil {
		c.Logger.Info("Closing DI container resources")
	}
	return c.Cleanup(ctx)
}
