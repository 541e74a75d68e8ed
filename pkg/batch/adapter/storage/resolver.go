package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	coreConfig "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// DefaultType is the provider type of a connection whose configuration names none.
const DefaultType = "local"

// ConnectionResolverParams collects the configuration and every contributed provider.
type ConnectionResolverParams struct {
	fx.In
	Config        *coreConfig.Config
	Registrations []Registration `group:"storage.factories"`
}

// ConnectionResolver opens named connections on first use and keeps them until CloseAll.
type ConnectionResolver struct {
	configs   map[string]storageconfig.StorageConfig
	factories map[string]Factory

	mu    sync.Mutex
	conns map[string]StorageConnection
}

func NewConnectionResolver(p ConnectionResolverParams) *ConnectionResolver {
	return NewStaticConnectionResolver(p.Config.Infrastructure.Storage, p.Registrations...)
}

// NewStaticConnectionResolver builds a resolver over explicit configurations.
func NewStaticConnectionResolver(configs map[string]storageconfig.StorageConfig, regs ...Registration) *ConnectionResolver {
	r := &ConnectionResolver{
		configs:   configs,
		factories: make(map[string]Factory, len(regs)),
		conns:     make(map[string]StorageConnection),
	}
	for _, reg := range regs {
		r.factories[reg.Type] = reg.New
	}
	return r
}

// ResolveStorageConnection returns the connection configured under name.
// An empty name resolves the default connection.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	if name == "" {
		name = coreConfig.DefaultStorageName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[name]; ok {
		return conn, nil
	}

	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}
	if cfg.Type == "" {
		cfg.Type = DefaultType
	}
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider registered for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := factory(ctx, name, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage connection '%s' (%s): %w", name, cfg.Type, err)
	}
	r.conns[name] = conn
	logger.Debugf("Opened storage connection '%s' (%s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes every open connection.
func (r *ConnectionResolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result *multierror.Error
	for name, conn := range r.conns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(r.conns, name)
	}
	return result.ErrorOrNil()
}
