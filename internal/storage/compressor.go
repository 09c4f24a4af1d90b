package storage

import (
	"fmt"

	"datasync/internal/storage/interfaces"
	"datasync/internal/structures"
	"github.com/klauspost/compress/zstd"
)

const (
	defaultCompressionLevel = zstd.SpeedBetterCompression
	// maxSnapshotBytes caps the decoded size of a .json.zst snapshot.
	maxSnapshotBytes = 1 << 30
)

// ZstdCompression packs JSON snapshots. Snapshots are written one category at
// a time, so the encoder and decoder run single threaded.
type ZstdCompression struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	// indented JSON shrinks well below a quarter of its size
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/4)), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	return z.decoder.DecodeAll(val, nil)
}

func (z *ZstdCompression) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

func compressionLevel(name string) (zstd.EncoderLevel, error) {
	if name == "" {
		return defaultCompressionLevel, nil
	}
	ok, level := zstd.EncoderLevelFromString(name)
	if !ok {
		return 0, fmt.Errorf("unknown zstd level %q", name)
	}
	return level, nil
}

// NewZstdCompressor builds the snapshot compressor at storage.compressionLevel
// (fastest, default, better or best).
func NewZstdCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	level, err := compressionLevel(conf.Storage.CompressionLevel)
	if err != nil {
		return nil, err
	}
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxSnapshotBytes),
	)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{encoder: encoder, decoder: decoder}, nil
}
