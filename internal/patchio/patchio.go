// Package patchio reads and writes the patch container format: a SQLite
// database wrapped in a gzip stream. Uncompressed patch files are
// accepted too, which keeps hand-made and debugging patches usable.
package patchio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte header of every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// maxInflatedBytes bounds how far Open inflates a compressed patch. A
// gzip stream can expand a small upload into an arbitrarily large file,
// so the copy stops past this limit instead of filling the disk.
var maxInflatedBytes int64 = 256 * 1024 * 1024 // 256 MB

// Compress gzips the file at src into dst and returns the compressed size
// in bytes. A partial dst is removed on error.
func Compress(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		out.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return 0, fmt.Errorf("failed to finish compressing %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	return info.Size(), nil
}

// IsCompressed sniffs whether the file starts with the gzip magic bytes.
func IsCompressed(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(gzipMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(header, gzipMagic), nil
}

// Open makes a patch readable as a plain SQLite file. A compressed patch
// is inflated into a temporary file which the returned cleanup function
// removes; an uncompressed one is returned as-is with a no-op cleanup.
func Open(path string) (string, func(), error) {
	compressed, err := IsCompressed(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !compressed {
		return path, func() {}, nil
	}

	in, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read gzip header of %s: %w", path, err)
	}
	defer gz.Close()

	tmp, err := os.CreateTemp("", "patch-*.sqlite3")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary patch file: %w", err)
	}
	n, err := io.Copy(tmp, io.LimitReader(gz, maxInflatedBytes+1))
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to inflate %s: %w", path, err)
	}
	if n > maxInflatedBytes {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("patch %s inflates beyond %d bytes", path, maxInflatedBytes)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write temporary patch file: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
