// Package storage defines the file store contract flat file and parquet components
// read and write through, and resolves named connections from configuration.
package storage

import (
	"context"
	"errors"
	"io"

	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	coreAdapter "github.com/kangwooc/spring-batch/pkg/batch/core/adapter"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/exception"
)

var (
	// ErrAppendNotSupported is returned by Create when the store cannot append to an object.
	ErrAppendNotSupported = errors.New("append not supported by storage")
	// ErrObjectNotFound is returned by Open and Delete for a missing object.
	ErrObjectNotFound = errors.New("storage object not found")
)

func init() {
	exception.RegisterErrorType("ErrAppendNotSupported", ErrAppendNotSupported)
	exception.RegisterErrorType("ErrObjectNotFound", ErrObjectNotFound)
}

// StorageExecutor performs object operations. Object names use forward slashes.
type StorageExecutor interface {
	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create returns a writer that replaces the object, or appends to it when append is true.
	// The object is complete once the writer is closed.
	Create(ctx context.Context, name string, append bool) (io.WriteCloser, error)
	// List calls fn for every object whose name starts with prefix, in lexical order.
	List(ctx context.Context, prefix string, fn func(name string) error) error
	// Delete removes the object.
	Delete(ctx context.Context, name string) error
	// Exists reports whether the object exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// StorageConnection is a named, configured file store.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// Factory opens a connection of one provider type.
type Factory func(ctx context.Context, name string, cfg storageconfig.StorageConfig) (StorageConnection, error)

// Registration binds a Factory to the provider type it serves.
// Provider packages contribute one to the FactoryGroup.
type Registration struct {
	Type string
	New  Factory
}

// FactoryGroup is the fx value group of storage Registrations.
const FactoryGroup = "storage.factories"
