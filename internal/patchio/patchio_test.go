package patchio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressAndOpenRoundTrip(t *testing.T) {
	src := "./test_src_" + t.Name()
	dst := "./test_dst_" + t.Name() + ".gz"
	defer os.Remove(src)
	defer os.Remove(dst)

	payload := []byte("SQLite format 3\x00 pretend patch contents")
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	size, err := Compress(src, dst)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	compressed, err := IsCompressed(dst)
	require.NoError(t, err)
	assert.True(t, compressed)

	path, cleanup, err := Open(dst)
	require.NoError(t, err)
	assert.NotEqual(t, dst, path)

	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpen_PassesThroughUncompressed(t *testing.T) {
	src := "./test_plain_" + t.Name()
	defer os.Remove(src)

	require.NoError(t, os.WriteFile(src, []byte("plain sqlite file"), 0o644))

	path, cleanup, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, src, path)

	// Cleanup must not remove the caller's file.
	cleanup()
	_, err = os.Stat(src)
	require.NoError(t, err)
}

func TestIsCompressed_ShortFile(t *testing.T) {
	src := "./test_short_" + t.Name()
	defer os.Remove(src)

	require.NoError(t, os.WriteFile(src, []byte{0x1f}, 0o644))

	compressed, err := IsCompressed(src)
	require.NoError(t, err)
	assert.False(t, compressed)
}

func TestOpen_StopsInflatingPastLimit(t *testing.T) {
	prev := maxInflatedBytes
	maxInflatedBytes = 1024
	defer func() { maxInflatedBytes = prev }()

	src := "./test_big_" + t.Name()
	dst := "./test_big_" + t.Name() + ".gz"
	defer os.Remove(src)
	defer os.Remove(dst)

	// Highly compressible payload well past the inflation limit.
	require.NoError(t, os.WriteFile(src, make([]byte, 64*1024), 0o644))
	_, err := Compress(src, dst)
	require.NoError(t, err)

	_, _, err = Open(dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inflates beyond")
}

func TestOpen_CorruptStream(t *testing.T) {
	src := "./test_corrupt_" + t.Name()
	defer os.Remove(src)

	require.NoError(t, os.WriteFile(src, append([]byte{0x1f, 0x8b}, []byte("garbage")...), 0o644))

	_, _, err := Open(src)
	assert.Error(t, err)
}
