package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReaderRewinds(t *testing.T) {
	const data = "a,b,c\n1,2,3\n"

	r := newProgressReader(strings.NewReader(data), int64(len(data)), io.Discard)

	first, err := io.ReadAll(r)
	require.NoError(t, err)

	pos, err := r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Zero(t, pos)

	second, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
	assert.Equal(t, data, string(second))
}

func TestParseFileID(t *testing.T) {
	id, err := parseFileID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseFileID(bad)
		assert.Error(t, err, bad)
	}
}
