package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// CompressionType represents the compression algorithm used
type CompressionType uint8

const (
	CompressionNone   CompressionType = 0
	CompressionLZ4    CompressionType = 1
	CompressionSnappy CompressionType = 2
)

// CompressionTypeFromString maps a config value to a compression type
func CompressionTypeFromString(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "snappy":
		return CompressionSnappy, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// CompressedPage represents a compressed page image with metadata
type CompressedPage struct {
	CompressionType  CompressionType
	UncompressedSize uint16
	CompressedSize   uint16
	CompressedData   []byte
	OriginalChecksum uint32 // CRC32 of the original image
}

// Compressed page layout:
// [0-1]: Magic number (0xC0DE for compressed pages)
// [2]: Compression type (0=none, 1=LZ4, 2=Snappy)
// [3]: Reserved
// [4-5]: Uncompressed size
// [6-7]: Compressed size
// [8-11]: Original checksum (CRC32)
// [12+]: Compressed data

const (
	CompressedPageMagic     = 0xC0DE
	CompressedHeaderSize    = 12
	MinCompressionThreshold = 100 // Minimum bytes saved to use compression
)

// CompressPage compresses a page image using the specified algorithm.
// If compression does not save at least MinCompressionThreshold bytes, the
// image is kept uncompressed.
func CompressPage(data []byte, compressionType CompressionType) (*CompressedPage, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	checksum := crc32.ChecksumIEEE(data)

	var compressed []byte

	switch compressionType {
	case CompressionNone:
		compressed = data

	case CompressionLZ4:
		compressed = make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("LZ4 compression failed: %w", err)
		}
		compressed = compressed[:n]

	case CompressionSnappy:
		compressed = snappy.Encode(nil, data)

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compressionType)
	}

	if compressionType != CompressionNone {
		savings := len(data) - len(compressed)
		if savings < MinCompressionThreshold {
			compressionType = CompressionNone
			compressed = data
		}
	}

	return &CompressedPage{
		CompressionType:  compressionType,
		UncompressedSize: uint16(len(data)),
		CompressedSize:   uint16(len(compressed)),
		CompressedData:   compressed,
		OriginalChecksum: checksum,
	}, nil
}

// DecompressPage restores the original page image and verifies its checksum
func DecompressPage(cp *CompressedPage) ([]byte, error) {
	var decompressed []byte
	var err error

	switch cp.CompressionType {
	case CompressionNone:
		decompressed = cp.CompressedData

	case CompressionLZ4:
		decompressed = make([]byte, cp.UncompressedSize)
		n, err := lz4.UncompressBlock(cp.CompressedData, decompressed)
		if err != nil {
			return nil, fmt.Errorf("LZ4 decompression failed: %w", err)
		}
		if n != int(cp.UncompressedSize) {
			return nil, fmt.Errorf("LZ4 decompression size mismatch: got %d, expected %d", n, cp.UncompressedSize)
		}

	case CompressionSnappy:
		decompressed, err = snappy.Decode(nil, cp.CompressedData)
		if err != nil {
			return nil, fmt.Errorf("snappy decompression failed: %w", err)
		}
		if len(decompressed) != int(cp.UncompressedSize) {
			return nil, fmt.Errorf("snappy decompression size mismatch: got %d, expected %d", len(decompressed), cp.UncompressedSize)
		}

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", cp.CompressionType)
	}

	if checksum := crc32.ChecksumIEEE(decompressed); checksum != cp.OriginalChecksum {
		return nil, fmt.Errorf("checksum mismatch: got %08x, expected %08x", checksum, cp.OriginalChecksum)
	}

	return decompressed, nil
}

// SerializeCompressedPage serializes a compressed page, padded to PageSize so
// on-disk offset math is unchanged.
func SerializeCompressedPage(cp *CompressedPage) ([]byte, error) {
	totalSize := CompressedHeaderSize + len(cp.CompressedData)
	if totalSize > PageSize {
		return nil, fmt.Errorf("compressed page too large: %d bytes (max %d)", totalSize, PageSize)
	}

	buf := make([]byte, PageSize)

	binary.LittleEndian.PutUint16(buf[0:2], CompressedPageMagic)
	buf[2] = uint8(cp.CompressionType)
	buf[3] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[4:6], cp.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[6:8], cp.CompressedSize)
	binary.LittleEndian.PutUint32(buf[8:12], cp.OriginalChecksum)
	copy(buf[CompressedHeaderSize:], cp.CompressedData)

	return buf, nil
}

// DeserializeCompressedPage parses a serialized compressed page
func DeserializeCompressedPage(data []byte) (*CompressedPage, error) {
	if len(data) < CompressedHeaderSize {
		return nil, fmt.Errorf("data too short for compressed page header: %d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint16(data[0:2])
	if magic != CompressedPageMagic {
		return nil, fmt.Errorf("invalid magic number: got %04x, expected %04x", magic, CompressedPageMagic)
	}

	compressionType := CompressionType(data[2])
	uncompressedSize := binary.LittleEndian.Uint16(data[4:6])
	compressedSize := binary.LittleEndian.Uint16(data[6:8])
	checksum := binary.LittleEndian.Uint32(data[8:12])

	if CompressedHeaderSize+int(compressedSize) > len(data) {
		return nil, fmt.Errorf("insufficient data for compressed page: need %d bytes, have %d",
			CompressedHeaderSize+int(compressedSize), len(data))
	}

	compressedData := make([]byte, compressedSize)
	copy(compressedData, data[CompressedHeaderSize:CompressedHeaderSize+int(compressedSize)])

	return &CompressedPage{
		CompressionType:  compressionType,
		UncompressedSize: uncompressedSize,
		CompressedSize:   compressedSize,
		CompressedData:   compressedData,
		OriginalChecksum: checksum,
	}, nil
}

// IsCompressedPage checks whether the data starts with the compression magic
func IsCompressedPage(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return binary.LittleEndian.Uint16(data[0:2]) == CompressedPageMagic
}

// CompressionRatio returns original size / compressed size
func (cp *CompressedPage) CompressionRatio() float64 {
	if cp.CompressedSize == 0 {
		return 1.0
	}
	return float64(cp.UncompressedSize) / float64(cp.CompressedSize)
}

// SpaceSavings returns bytes saved by compression
func (cp *CompressedPage) SpaceSavings() int {
	return int(cp.UncompressedSize) - int(cp.CompressedSize)
}

// CompressPageTransparent compresses a page image and returns its serialized,
// PageSize-padded form.
func CompressPageTransparent(data []byte, compressionType CompressionType) ([]byte, error) {
	cp, err := CompressPage(data, compressionType)
	if err != nil {
		return nil, err
	}
	return SerializeCompressedPage(cp)
}

// DecompressPageTransparent restores a page image, passing uncompressed
// images through unchanged.
func DecompressPageTransparent(data []byte) ([]byte, error) {
	if !IsCompressedPage(data) {
		return data, nil
	}

	cp, err := DeserializeCompressedPage(data)
	if err != nil {
		return nil, err
	}
	return DecompressPage(cp)
}
