// Package ftp provides an FTP implementation of storage.StorageConnection.
// Every operation uses its own control connection, so transfers never interleave.
package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"sort"
	"strings"
	"time"

	goftp "github.com/jlaffaye/ftp"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

const (
	ProviderType   = "ftp"
	defaultTimeout = 10 * time.Second
)

var Registration = storage.Registration{
	Type: ProviderType,
	New: func(_ context.Context, name string, cfg storageconfig.StorageConfig) (storage.StorageConnection, error) {
		return NewFTPAdapter(cfg, name)
	},
}

type ftpAdapter struct {
	cfg  storageconfig.StorageConfig
	name string
	root string
}

var _ storage.StorageConnection = (*ftpAdapter)(nil)

func NewFTPAdapter(cfg storageconfig.StorageConfig, name string) (storage.StorageConnection, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ftp storage adapter '%s': host must be specified", name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	root := "/" + strings.Trim(cfg.Prefix, "/")
	return &ftpAdapter{cfg: cfg, name: name, root: root}, nil
}

func (a *ftpAdapter) Close() error { return nil }
func (a *ftpAdapter) Type() string { return ProviderType }
func (a *ftpAdapter) Name() string { return a.name }

func (a *ftpAdapter) dial(ctx context.Context) (*goftp.ServerConn, error) {
	c, err := goftp.Dial(a.cfg.Host, goftp.DialWithContext(ctx), goftp.DialWithTimeout(a.cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("ftp storage adapter '%s': failed to connect to %s: %w", a.name, a.cfg.Host, err)
	}
	user := a.cfg.User
	if user == "" {
		user = "anonymous"
	}
	if err := c.Login(user, a.cfg.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp storage adapter '%s': login failed: %w", a.name, err)
	}
	return c, nil
}

func (a *ftpAdapter) remote(name string) string {
	return path.Join(a.root, strings.TrimPrefix(name, "/"))
}

func (a *ftpAdapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	c, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.Retr(a.remote(name))
	if err != nil {
		_ = c.Quit()
		return nil, a.wrap("open", name, err)
	}
	return &download{Response: resp, conn: c}, nil
}

// Create rejects append so a restarted writer never duplicates partially transferred data.
func (a *ftpAdapter) Create(ctx context.Context, name string, append bool) (io.WriteCloser, error) {
	if append {
		return nil, fmt.Errorf("ftp object '%s': %w", a.remote(name), storage.ErrAppendNotSupported)
	}
	c, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	target := a.remote(name)
	a.makeParents(c, target)

	pr, pw := io.Pipe()
	u := &upload{PipeWriter: pw, conn: c, done: make(chan error, 1)}
	go func() {
		err := c.Stor(target, pr)
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	logger.Debugf("Uploading '%s' (ftp adapter '%s').", target, a.name)
	return u, nil
}

// makeParents creates the directories leading to target. Existing directories are not an error.
func (a *ftpAdapter) makeParents(c *goftp.ServerConn, target string) {
	dir := path.Dir(target)
	cur := ""
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		_ = c.MakeDir(cur)
	}
}

func (a *ftpAdapter) List(ctx context.Context, prefix string, fn func(name string) error) error {
	c, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Quit()

	full := a.remote(prefix)
	dir := path.Dir(full)
	if strings.HasSuffix(prefix, "/") {
		dir = full
		full += "/"
	}

	var names []string
	w := c.Walk(dir)
	for w.Next() {
		if w.Stat().Type != goftp.EntryTypeFile || !strings.HasPrefix(w.Path(), full) {
			continue
		}
		names = append(names, strings.TrimPrefix(strings.TrimPrefix(w.Path(), a.root), "/"))
	}
	if err := w.Err(); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to list '%s': %w", full, err)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

func (a *ftpAdapter) Delete(ctx context.Context, name string) error {
	c, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Quit()
	if err := c.Delete(a.remote(name)); err != nil {
		return a.wrap("delete", name, err)
	}
	return nil
}

func (a *ftpAdapter) Exists(ctx context.Context, name string) (bool, error) {
	c, err := a.dial(ctx)
	if err != nil {
		return false, err
	}
	defer c.Quit()
	if _, err := c.FileSize(a.remote(name)); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat '%s': %w", a.remote(name), err)
	}
	return true, nil
}

func (a *ftpAdapter) wrap(op, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s '%s': %w", op, a.remote(name), storage.ErrObjectNotFound)
	}
	return fmt.Errorf("failed to %s '%s': %w", op, a.remote(name), err)
}

func isNotFound(err error) bool {
	var perr *textproto.Error
	return errors.As(err, &perr) && perr.Code == goftp.StatusFileUnavailable
}

// download ends the control connection together with the transfer.
type download struct {
	*goftp.Response
	conn *goftp.ServerConn
}

func (d *download) Close() error {
	err := d.Response.Close()
	if qerr := d.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

// upload streams written bytes into a STOR transfer. Close waits for the server to confirm it.
type upload struct {
	*io.PipeWriter
	conn *goftp.ServerConn
	done chan error
}

func (u *upload) Close() error {
	_ = u.PipeWriter.Close()
	err := <-u.done
	if qerr := u.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}
