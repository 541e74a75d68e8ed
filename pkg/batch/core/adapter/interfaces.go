// Package adapter defines what every named external resource connection has in common.
package adapter

// ResourceConnection is a named connection to an external resource such as a database or a file store.
type ResourceConnection interface {
	// Close releases the connection.
	Close() error
	// Type returns the provider type, for example "local" or "mysql".
	Type() string
	// Name returns the configured connection name.
	Name() string
}
