package sqlcache

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/corey/mixdown/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(s string) ports.Fingerprint {
	return sha256.Sum256([]byte(s))
}

func TestStore_AddIfAbsent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	added, err := s.AddIfAbsent(fp("a"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddIfAbsent(fp("a"))
	require.NoError(t, err)
	assert.False(t, added)

	added, err = s.AddIfAbsent(fp("b"))
	require.NoError(t, err)
	assert.True(t, added)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_Contains(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddIfAbsent(fp("present"))
	require.NoError(t, err)

	got, err := s.Contains([]ports.Fingerprint{fp("present"), fp("absent")})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.AddIfAbsent(fp("sticky"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	added, err := s2.AddIfAbsent(fp("sticky"))
	require.NoError(t, err)
	assert.False(t, added, "fingerprint from a prior run must still be present")
}

func TestStore_BatchRollover(t *testing.T) {
	// Cross the batch boundary and make sure nothing is lost or doubled.
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	total := batchSize + 100
	for i := 0; i < total; i++ {
		added, err := s.AddIfAbsent(fp(fmt.Sprintf("fp-%d", i)))
		require.NoError(t, err)
		require.True(t, added)
	}
	// Everything is a duplicate on the second pass.
	for i := 0; i < total; i++ {
		added, err := s.AddIfAbsent(fp(fmt.Sprintf("fp-%d", i)))
		require.NoError(t, err)
		require.False(t, added)
	}

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, total, n)
}

func TestStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
