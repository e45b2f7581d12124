package payloadcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names the compression applied to cached payloads.
type Codec string

// Supported codecs.
const (
	CodecNone Codec = "none"
	CodecZSTD Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// Encoded layout: [codec byte][uncompressed size uint32 LE][data...].
const headerSize = 5

var codecIDs = map[Codec]byte{CodecNone: 0, CodecZSTD: 1, CodecLZ4: 2}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// ParseCodec validates a codec name; empty means zstd.
func ParseCodec(s string) (Codec, error) {
	if s == "" {
		return CodecZSTD, nil
	}
	c := Codec(s)
	if _, ok := codecIDs[c]; !ok {
		return "", fmt.Errorf("unknown codec %q", s)
	}
	return c, nil
}

func encode(c Codec, data []byte) ([]byte, error) {
	var body []byte
	if len(data) == 0 {
		c = CodecNone
	}
	switch c {
	case CodecZSTD:
		enc := getZstdEncoder()
		body = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			// incompressible
			c, body = CodecNone, data
		} else {
			body = buf[:n]
		}
	default:
		c, body = CodecNone, data
	}

	out := make([]byte, headerSize+len(body))
	out[0] = codecIDs[c]
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data))) //nolint:gosec // payloads stay far below 4GiB
	copy(out[headerSize:], body)
	return out, nil
}

func decode(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, errors.New("cached payload too small for header")
	}
	size := binary.LittleEndian.Uint32(data[1:])
	body := data[headerSize:]

	switch data[0] {
	case codecIDs[CodecNone]:
		if uint32(len(body)) != size { //nolint:gosec // bounded by header check
			return nil, errors.New("cached payload size mismatch")
		}
		return body, nil
	case codecIDs[CodecZSTD]:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint32(len(out)) != size { //nolint:gosec // bounded by header check
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case codecIDs[CodecLZ4]:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint32(n) != size { //nolint:gosec // bounded by header check
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown codec id %d", data[0])
	}
}
