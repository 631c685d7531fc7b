package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/store"
)

func packTestStore(t *testing.T, path, phrase string, feature uint32) {
	t.Helper()
	mem := store.NewMemStore()
	v := grid.Encode(grid.Cover{Relev: 1, Score: 3, X: 1, Y: 1, FeatureID: feature, MatchesLanguage: true})
	mem.Set(phrase, store.AllLanguages, []uint64{v}, false)
	require.NoError(t, mem.Pack(path))
}

func TestGetCmdPrintsMatchingPosting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	packTestStore(t, path, "main street", 5)

	cmd := newGetCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", path, "main street"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "feature=5")
}

func TestGetCmdReportsEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	packTestStore(t, path, "main street", 5)

	cmd := newGetCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--store", path, "nowhere"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "no postings")
}
