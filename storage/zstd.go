package storage

import (
	"context"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compressed wraps a store with zstd compression at rest. Put rewrites
// artifact paths to the compressed extension; Get is transparent for both
// compressed and plain objects, so a store can be migrated incrementally.
type Compressed struct {
	inner Store
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func NewCompressed(inner Store) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Compressed{inner: inner, enc: enc, dec: dec}, nil
}

func (c *Compressed) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := c.inner.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return data, nil
	}
	return c.dec.DecodeAll(data, nil)
}

func (c *Compressed) Put(ctx context.Context, path string, data []byte) error {
	// Only artifacts are compressed. Other objects (seals) keep their path
	// and bytes, so readers that bypass this wrapper still parse them.
	if !strings.HasSuffix(path, ArtifactExt) {
		return c.inner.Put(ctx, path, data)
	}
	path = strings.TrimSuffix(path, ArtifactExt) + CompressedExt
	return c.inner.Put(ctx, path, c.enc.EncodeAll(data, nil))
}

func (c *Compressed) List(ctx context.Context, prefix string) ([]string, error) {
	return c.inner.List(ctx, prefix)
}
