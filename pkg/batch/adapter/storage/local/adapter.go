// Package local provides the local file system implementation of storage.StorageConnection.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// ProviderType is the storage type this package serves.
const ProviderType = "local"

// Registration contributes the local provider to a storage.ConnectionResolver.
var Registration = storage.Registration{
	Type: ProviderType,
	New: func(_ context.Context, name string, cfg storageconfig.StorageConfig) (storage.StorageConnection, error) {
		return NewLocalAdapter(cfg, name)
	},
}

// localAdapter maps object names to files. With a BaseDir every name is resolved
// below it; without one names are plain file paths.
type localAdapter struct {
	cfg  storageconfig.StorageConfig
	name string
}

var _ storage.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates the adapter, creating BaseDir when it does not exist.
func NewLocalAdapter(cfg storageconfig.StorageConfig, name string) (storage.StorageConnection, error) {
	if cfg.BaseDir != "" {
		info, err := os.Stat(cfg.BaseDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
				return nil, fmt.Errorf("local storage adapter '%s': failed to create BaseDir '%s': %w", name, cfg.BaseDir, err)
			}
		case err != nil:
			return nil, fmt.Errorf("local storage adapter '%s': failed to stat BaseDir '%s': %w", name, cfg.BaseDir, err)
		case !info.IsDir():
			return nil, fmt.Errorf("local storage adapter '%s': BaseDir '%s' is not a directory", name, cfg.BaseDir)
		}
	}
	return &localAdapter{cfg: cfg, name: name}, nil
}

func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

func (a *localAdapter) Type() string { return ProviderType }
func (a *localAdapter) Name() string { return a.name }

func (a *localAdapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := a.resolvePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open '%s': %w", p, storage.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", p, err)
	}
	return f, nil
}

func (a *localAdapter) Create(ctx context.Context, name string, append bool) (io.WriteCloser, error) {
	p, err := a.resolvePath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory '%s': %w", filepath.Dir(p), err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file '%s': %w", p, err)
	}
	logger.Debugf("Opened '%s' for writing (append=%t, local adapter '%s').", p, append, a.name)
	return f, nil
}

func (a *localAdapter) List(ctx context.Context, prefix string, fn func(name string) error) error {
	prefix = filepath.ToSlash(prefix)
	dirOnly := strings.HasSuffix(prefix, "/")
	prefix = path.Clean(prefix)
	if prefix == "." {
		prefix = ""
	}
	dir := path.Dir(prefix)
	if dirOnly {
		dir = prefix
		if prefix != "" {
			prefix += "/"
		}
	}

	root, err := a.resolvePath(dir)
	if err != nil {
		return err
	}
	var names []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name, err := a.objectName(p)
		if err != nil {
			return err
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list '%s' with prefix '%s': %w", root, prefix, err)
	}

	sort.Strings(names)
	for _, name := range names {
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

func (a *localAdapter) Delete(ctx context.Context, name string) error {
	p, err := a.resolvePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete '%s': %w", p, storage.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to delete file '%s': %w", p, err)
	}
	logger.Debugf("Deleted '%s' (local adapter '%s').", p, a.name)
	return nil
}

func (a *localAdapter) Exists(ctx context.Context, name string) (bool, error) {
	p, err := a.resolvePath(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat '%s': %w", p, err)
	}
}

// resolvePath maps an object name to a file path that stays below BaseDir.
func (a *localAdapter) resolvePath(name string) (string, error) {
	if a.cfg.BaseDir == "" {
		if name == "" {
			return ".", nil
		}
		return filepath.FromSlash(name), nil
	}

	full := filepath.Join(a.cfg.BaseDir, filepath.FromSlash(name))
	absBase, err := filepath.Abs(a.cfg.BaseDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for BaseDir '%s': %w", a.cfg.BaseDir, err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", full, err)
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("resolved path '%s' is outside of BaseDir '%s'", full, a.cfg.BaseDir)
	}
	return full, nil
}

// objectName is the inverse of resolvePath.
func (a *localAdapter) objectName(p string) (string, error) {
	if a.cfg.BaseDir == "" {
		return filepath.ToSlash(p), nil
	}
	rel, err := filepath.Rel(a.cfg.BaseDir, p)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path for '%s' from '%s': %w", p, a.cfg.BaseDir, err)
	}
	return filepath.ToSlash(rel), nil
}
