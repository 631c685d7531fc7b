package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapknit/geocache/pkg/store"
)

func packMemStore(t *testing.T, path string, phrase string, values []uint64) {
	t.Helper()
	mem := store.NewMemStore()
	mem.Set(phrase, store.AllLanguages, values, false)
	require.NoError(t, mem.Pack(path))
}

func TestStoreManagerAcquireReleasePinCounting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	packMemStore(t, path, "main", []uint64{5, 1})

	m, err := NewStoreManager(path, 16, nil)
	require.NoError(t, err)
	defer m.Close()

	disk, err := m.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, m.pins)

	values, err := disk.Get("main", store.AllLanguages)
	require.NoError(t, err)
	require.Equal(t, []uint64{5, 1}, values)

	m.Release()
	require.Equal(t, 0, m.pins)
}

func TestStoreManagerReopenSwapsHandleAndDrainsStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	packMemStore(t, path, "main", []uint64{5})

	m, err := NewStoreManager(path, 16, nil)
	require.NoError(t, err)
	defer m.Close()

	disk, err := m.Acquire()
	require.NoError(t, err)

	// Replace the on-disk store out from under the acquired handle, the
	// way an atomic rename of a freshly packed store would.
	newPath := filepath.Join(dir, "store.db.new")
	packMemStore(t, newPath, "main", []uint64{9, 1})
	require.NoError(t, os.Rename(newPath, path))

	require.NoError(t, m.reopen())

	// The old handle is still usable until its pin drains.
	values, err := disk.Get("main", store.AllLanguages)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, values)

	m.Release()

	fresh, err := m.Acquire()
	require.NoError(t, err)
	values, err = fresh.Get("main", store.AllLanguages)
	require.NoError(t, err)
	require.Equal(t, []uint64{9, 1}, values)
	m.Release()
}
