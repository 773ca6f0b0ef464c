package store

import (
	"context"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// codecs returns the shared encoder and decoder. Both are safe for
// concurrent EncodeAll/DecodeAll.
func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Compressed wraps a KV and zstd-compresses every value. Project documents
// embed the sheet image as base64 text, which compresses well.
type Compressed struct {
	KV
}

// NewCompressed wraps kv.
func NewCompressed(kv KV) *Compressed {
	return &Compressed{KV: kv}
}

func (c *Compressed) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.KV.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_, dec, err := codecs()
	if err != nil {
		return nil, errors.Wrap(err, "zstd init")
	}
	out, err := dec.DecodeAll(data, nil)
	return out, errors.Wrapf(err, "decompress %q", key)
}

func (c *Compressed) Put(ctx context.Context, key string, value []byte) error {
	enc, _, err := codecs()
	if err != nil {
		return errors.Wrap(err, "zstd init")
	}
	return c.KV.Put(ctx, key, enc.EncodeAll(value, nil))
}
