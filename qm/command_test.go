package qm

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func runCommand(t *testing.T, c *Calc, prog string, args []string) []*Result {
	t.Helper()
	b := NewCommand(c, prog, args, nil, nil)
	require.NoError(t, b.Setup())
	require.NoError(t, b.Submit())
	results, err := b.Retrieve()
	require.NoError(t, err)
	return results
}

func TestCommandSinglePoint(t *testing.T) {
	requireUnix(t)
	mol := testMol()
	results := runCommand(t, &Calc{Molecule: mol, Directory: t.TempDir()},
		"sh", []string{"-c", "echo energy=-1.25"})
	require.Len(t, results, 1)
	require.False(t, results[0].Errored)
	require.InDelta(t, -1.25, results[0].Energy, 1e-12)
}

func TestCommandFailureIsErroredRecord(t *testing.T) {
	requireUnix(t)
	mol := testMol()
	dir := t.TempDir()
	results := runCommand(t, &Calc{Molecule: mol, Directory: dir},
		"sh", []string{"-c", "exit 3"})
	require.Len(t, results, 1)
	require.True(t, results[0].Errored)

	// The errored record is authoritative: a rerun with a working
	// program still loads it from the cache.
	again := runCommand(t, &Calc{Molecule: mol, Directory: dir},
		"sh", []string{"-c", "echo energy=0"})
	require.True(t, again[0].Errored)
}

func TestCommandMissingEnergyIsErrored(t *testing.T) {
	requireUnix(t)
	results := runCommand(t, &Calc{Molecule: testMol(), Directory: t.TempDir()},
		"sh", []string{"-c", "echo all good"})
	require.True(t, results[0].Errored)
}

func TestCommandOptimizeReadsGeometry(t *testing.T) {
	requireUnix(t)
	mol := testMol()
	// The "program" optimizes by echoing its input geometry back.
	results := runCommand(t,
		&Calc{Molecule: mol, Directory: t.TempDir(), Optimize: true},
		"sh", []string{"-c", "cp input.xyz opt.xyz && echo energy=2.5"})
	require.Len(t, results, 1)
	require.False(t, results[0].Errored)
	require.InDelta(t, 2.5, results[0].Energy, 1e-12)
	r, c := results[0].Coords.Dims()
	require.Equal(t, mol.Len(), r)
	require.Equal(t, 3, c)
}
