package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// The .fzb container is a fixed binary header followed by the CBOR-encoded
// chunk. The header timestamp records when the container was written and is
// deliberately excluded from content comparisons (see EqualIgnoringHeader).

// Container format constants.
const (
	ContainerMagic   = "FZBC"
	ContainerVersion = 1
)

// Header field sizes.
const (
	magicSize     = 4
	versionSize   = 4
	flagsSize     = 4
	timestampSize = 8

	// HeaderSize is the total size of a container header in bytes.
	HeaderSize = magicSize + versionSize + flagsSize + timestampSize
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected FZBC")
	ErrVersionMismatch = errors.New("container version mismatch")
	ErrTruncated       = errors.New("truncated container")
)

// Header is the parsed container header.
type Header struct {
	Magic     string // always "FZBC" on a valid container
	Version   uint32
	Flags     uint32
	Timestamp uint64 // seconds since epoch; volatile, excluded from comparisons
}

// EncodeContainer wraps a chunk in a container with the given timestamp.
func EncodeContainer(c *Chunk, timestamp uint64) ([]byte, error) {
	payload, err := MarshalChunk(c)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize+len(payload))
	copy(buf[0:], ContainerMagic)
	binary.LittleEndian.PutUint32(buf[magicSize:], ContainerVersion)
	binary.LittleEndian.PutUint32(buf[magicSize+versionSize:], 0)
	binary.LittleEndian.PutUint64(buf[magicSize+versionSize+flagsSize:], timestamp)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// ReadHeader parses and validates the container header.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}
	h := &Header{
		Magic:     string(data[0:magicSize]),
		Version:   binary.LittleEndian.Uint32(data[magicSize:]),
		Flags:     binary.LittleEndian.Uint32(data[magicSize+versionSize:]),
		Timestamp: binary.LittleEndian.Uint64(data[magicSize+versionSize+flagsSize:]),
	}
	if h.Magic != ContainerMagic {
		return nil, ErrInvalidMagic
	}
	if h.Version != ContainerVersion {
		return nil, fmt.Errorf("%w: got %d, can decode %d", ErrVersionMismatch, h.Version, ContainerVersion)
	}
	return h, nil
}

// DecodeContainer parses a container and returns its chunk and header.
// The chunk is structurally validated before it is returned.
func DecodeContainer(data []byte) (*Chunk, *Header, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}
	c, err := UnmarshalChunk(data[HeaderSize:])
	if err != nil {
		return nil, nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("bytecode: invalid chunk: %w", err)
	}
	return c, h, nil
}

// Payload returns the CBOR payload of a container, without the header.
func Payload(data []byte) ([]byte, error) {
	if _, err := ReadHeader(data); err != nil {
		return nil, err
	}
	return data[HeaderSize:], nil
}

// EqualIgnoringHeader reports whether two containers carry identical
// payloads. The header (and with it the volatile timestamp) is excluded
// from the comparison.
func EqualIgnoringHeader(a, b []byte) bool {
	pa, err := Payload(a)
	if err != nil {
		return false
	}
	pb, err := Payload(b)
	if err != nil {
		return false
	}
	return bytes.Equal(pa, pb)
}
