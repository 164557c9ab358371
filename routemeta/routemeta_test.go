package routemeta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	m := Meta{
		Handler:     "catalog.GetItem",
		Permissions: []string{"catalog:read"},
		Middleware:  []string{"auth", "ratelimit"},
	}
	data, err := c.Marshal(m)
	require.NoError(t, err)

	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestCodecDeterministic(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	m := Meta{Handler: "h", Permissions: []string{"a", "b"}}
	first, err := c.Marshal(m)
	require.NoError(t, err)
	second, err := c.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCodecOmitsEmptyLists(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	full, err := c.Marshal(Meta{Handler: "h", Permissions: []string{"p"}})
	require.NoError(t, err)
	bare, err := c.Marshal(Meta{Handler: "h"})
	require.NoError(t, err)
	require.Less(t, len(bare), len(full))
}

func TestCodecRejectsGarbage(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)
	_, err = c.Unmarshal([]byte{0xff, 0x00, 0x01})
	require.Error(t, err)
}
