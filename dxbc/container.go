// Package dxbc reads and writes DXBC shader containers, the bytecode format
// produced by the Direct3D shader compiler for shader models 4 and 5.
//
// A container is a header followed by tagged chunks:
//
//	"DXBC" checksum[16] version:u32 size:u32 count:u32 offsets:u32[count]
//	chunk: fourcc[4] size:u32 data[size]
//
// The package implements hlsl.Reflector and hlsl.Stripper on top of the
// RDEF and signature chunks; see Service.
package dxbc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidContainer is returned for bytes that are not a well-formed DXBC container.
var ErrInvalidContainer = errors.New("invalid DXBC container")

const (
	magic         = "DXBC"
	headerSize    = 32
	chunkHeader   = 8
	checksumStart = 20
	formatVersion = 1
)

// Well-known chunk tags.
const (
	TagResourceDef   = "RDEF"
	TagInputSig      = "ISGN"
	TagInputSig1     = "ISG1"
	TagOutputSig     = "OSGN"
	TagOutputSig5    = "OSG5"
	TagOutputSig1    = "OSG1"
	TagPatchSig      = "PCSG"
	TagShaderEx      = "SHEX"
	TagShader        = "SHDR"
	TagStatistics    = "STAT"
	TagDebug         = "SDBG"
	TagDebugPDB      = "SPDB"
	TagDebugIL       = "ILDB"
	TagDebugName     = "ILDN"
	TagPrivate       = "PRIV"
	TagFeatureInfo   = "SFI0"
	TagInterfaces    = "IFCE"
	TagEffectLegacy  = "FX10"
	TagShaderHash    = "HASH"
	TagRootSignature = "RTS0"
)

// Chunk is one tagged part of a container.
type Chunk struct {
	Tag  string
	Data []byte
}

// Container is a parsed DXBC blob. Chunk data aliases the parsed input.
type Container struct {
	Checksum [16]byte
	Chunks   []Chunk
}

// Parse splits a DXBC blob into its chunks. The checksum is read but not
// verified; use Verify for that.
func Parse(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidContainer, len(data))
	}
	if string(data[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidContainer, data[0:4])
	}

	size := binary.LittleEndian.Uint32(data[24:28])
	if int64(size) != int64(len(data)) {
		return nil, fmt.Errorf("%w: header size %d, have %d bytes", ErrInvalidContainer, size, len(data))
	}

	count := int(binary.LittleEndian.Uint32(data[28:32]))
	if count > (len(data)-headerSize)/4 {
		return nil, fmt.Errorf("%w: chunk count %d too large", ErrInvalidContainer, count)
	}

	c := &Container{Chunks: make([]Chunk, 0, count)}
	copy(c.Checksum[:], data[4:20])

	for i := 0; i < count; i++ {
		offset := int(binary.LittleEndian.Uint32(data[headerSize+4*i:]))
		if offset < headerSize || offset+chunkHeader > len(data) {
			return nil, fmt.Errorf("%w: chunk %d offset 0x%X out of range", ErrInvalidContainer, i, offset)
		}
		n := int(binary.LittleEndian.Uint32(data[offset+4:]))
		start := offset + chunkHeader
		if n > len(data)-start {
			return nil, fmt.Errorf("%w: chunk %d (%s) size %d exceeds container", ErrInvalidContainer, i, data[offset:offset+4], n)
		}
		c.Chunks = append(c.Chunks, Chunk{
			Tag:  string(data[offset : offset+4]),
			Data: data[start : start+n],
		})
	}

	return c, nil
}

// Chunk returns the first chunk with the given tag.
func (c *Container) Chunk(tag string) (*Chunk, bool) {
	for i := range c.Chunks {
		if c.Chunks[i].Tag == tag {
			return &c.Chunks[i], true
		}
	}
	return nil, false
}

// Remove drops every chunk whose tag is listed and returns how many were removed.
func (c *Container) Remove(tags ...string) int {
	kept := c.Chunks[:0]
	removed := 0
	for _, ch := range c.Chunks {
		if containsTag(tags, ch.Tag) {
			removed++
			continue
		}
		kept = append(kept, ch)
	}
	c.Chunks = kept
	return removed
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Bytes serializes the container and fills in a fresh checksum.
func (c *Container) Bytes() []byte {
	total := headerSize + 4*len(c.Chunks)
	for _, ch := range c.Chunks {
		total += chunkHeader + len(ch.Data)
	}

	buf := make([]byte, 0, total)
	buf = append(buf, magic...)
	buf = append(buf, make([]byte, 16)...)
	buf = binary.LittleEndian.AppendUint32(buf, formatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Chunks)))

	offset := headerSize + 4*len(c.Chunks)
	for _, ch := range c.Chunks {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(offset))
		offset += chunkHeader + len(ch.Data)
	}
	for _, ch := range c.Chunks {
		var tag [4]byte
		copy(tag[:], ch.Tag)
		buf = append(buf, tag[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ch.Data)))
		buf = append(buf, ch.Data...)
	}

	sum := Checksum(buf[checksumStart:])
	copy(buf[4:20], sum[:])
	copy(c.Checksum[:], sum[:])
	return buf
}

// Verify reports whether the checksum stored in a container matches its contents.
func Verify(data []byte) bool {
	if len(data) < headerSize || string(data[0:4]) != magic {
		return false
	}
	sum := Checksum(data[checksumStart:])
	return string(sum[:]) == string(data[4:20])
}
