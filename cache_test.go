package fbin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewCache(file)
	require.NoError(t, err)

	u, err := c.Find("ABCD", "opts", 4, 2)
	require.NoError(t, err)
	assert.Nil(t, u)

	want := numberedUnit(42)
	require.NoError(t, c.Add("ABCD", "opts", want))

	u, err = c.Find("ABCD", "opts", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, want, u)

	// Same source with different options or size is a miss
	u, err = c.Find("ABCD", "other", 4, 2)
	require.NoError(t, err)
	assert.Nil(t, u)
	u, err = c.Find("ABCD", "opts", 2, 4)
	require.NoError(t, err)
	assert.Nil(t, u)

	// Replacing keeps a single entry
	require.NoError(t, c.Add("ABCD", "opts", numberedUnit(7)))
	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Close())

	// Entries survive reopening
	c, err = NewCache(file)
	require.NoError(t, err)
	defer c.Close()

	u, err = c.Find("ABCD", "opts", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, numberedUnit(7), u)
}
