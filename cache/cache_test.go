package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Energy float64
	Coords []float64
	Tag    string
}

func TestDirStoreRoundTrip(t *testing.T) {
	s, err := NewDirStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.False(t, s.Has(0))
	in := &record{Energy: -4.2, Coords: []float64{1, 2, 3}, Tag: "ok"}
	require.NoError(t, s.Put(0, in))
	require.True(t, s.Has(0))
	require.False(t, s.Has(1))

	out := new(record)
	require.NoError(t, s.Load(0, out))
	require.Equal(t, in, out)
}

func TestDirStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(7, &record{Tag: "x"}))

	// Directory per frame, file presence as the completion sentinel.
	_, err = os.Stat(filepath.Join(dir, "00007", "data.gob.zst"))
	require.NoError(t, err)
}

func TestDirStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(0, &record{Tag: "kept"}))

	reopened, err := NewDirStore(dir, nil)
	require.NoError(t, err)
	require.True(t, reopened.Has(0))
	out := new(record)
	require.NoError(t, reopened.Load(0, out))
	require.Equal(t, "kept", out.Tag)
}

func TestDirStoreLoadMissing(t *testing.T) {
	s, err := NewDirStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.Error(t, s.Load(3, new(record)))
}
