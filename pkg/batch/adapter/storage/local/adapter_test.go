package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/local"
)

func write(t *testing.T, conn storage.StorageConnection, name, content string, append bool) {
	t.Helper()
	w, err := conn.Create(context.Background(), name, append)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func read(t *testing.T, conn storage.StorageConnection, name string) string {
	t.Helper()
	r, err := conn.Open(context.Background(), name)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestLocalAdapter_CreateOpenAppend(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{Type: "local", BaseDir: base}, "output")
	require.NoError(t, err)
	assert.DirExists(t, base)

	write(t, conn, "notes/death_note_001.txt", "first\n", false)
	write(t, conn, "notes/death_note_001.txt", "second\n", true)
	assert.Equal(t, "first\nsecond\n", read(t, conn, "notes/death_note_001.txt"))

	write(t, conn, "notes/death_note_001.txt", "replaced\n", false)
	assert.Equal(t, "replaced\n", read(t, conn, "notes/death_note_001.txt"))

	ok, err := conn.Exists(context.Background(), "notes/death_note_001.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalAdapter_ListInLexicalOrder(t *testing.T) {
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: base}, "input")
	require.NoError(t, err)
	write(t, conn, "in/normal-failures.csv", "n", false)
	write(t, conn, "in/critical-failures.csv", "c", false)
	write(t, conn, "other/ignored.csv", "x", false)

	var names []string
	require.NoError(t, conn.List(context.Background(), "in/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"in/critical-failures.csv", "in/normal-failures.csv"}, names)

	names = nil
	require.NoError(t, conn.List(context.Background(), "in/crit", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"in/critical-failures.csv"}, names)

	require.NoError(t, conn.List(context.Background(), "missing/", func(string) error {
		t.Fatal("nothing to list")
		return nil
	}))
}

func TestLocalAdapter_MissingObjectAndEscape(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{BaseDir: t.TempDir()}, "input")
	require.NoError(t, err)

	_, err = conn.Open(context.Background(), "absent.csv")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.ErrorIs(t, conn.Delete(context.Background(), "absent.csv"), storage.ErrObjectNotFound)

	_, err = conn.Open(context.Background(), "../../etc/passwd")
	assert.ErrorContains(t, err, "outside of BaseDir")
}

func TestLocalAdapter_WithoutBaseDirUsesPlainPaths(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))

	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{}, "default")
	require.NoError(t, err)
	assert.Equal(t, "hello", read(t, conn, p))
}

func TestConnectionResolver_CachesAndRejectsUnknown(t *testing.T) {
	r := storage.NewStaticConnectionResolver(map[string]storageconfig.StorageConfig{
		"default": {BaseDir: t.TempDir()},
		"remote":  {Type: "sftp"},
	}, local.Registration)
	ctx := context.Background()

	a, err := r.ResolveStorageConnection(ctx, "")
	require.NoError(t, err)
	b, err := r.ResolveStorageConnection(ctx, "default")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, local.ProviderType, a.Type())

	_, err = r.ResolveStorageConnection(ctx, "remote")
	assert.ErrorContains(t, err, "no storage provider registered")
	_, err = r.ResolveStorageConnection(ctx, "nope")
	assert.Error(t, err)
	assert.NoError(t, r.CloseAll())
}
