package dxbc

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/fxc/hlsl"
)

// signatureLayout describes the element record of one signature chunk flavour.
type signatureLayout struct {
	size      int
	hasStream bool
}

var signatureLayouts = map[string]signatureLayout{
	TagInputSig:   {size: 24},
	TagOutputSig:  {size: 24},
	TagPatchSig:   {size: 24},
	TagOutputSig5: {size: 28, hasStream: true},
	TagInputSig1:  {size: 32, hasStream: true},
	TagOutputSig1: {size: 32, hasStream: true},
}

// ParseSignature decodes an input, output or patch signature chunk.
func ParseSignature(ch *Chunk) ([]hlsl.SignatureParameter, error) {
	layout, ok := signatureLayouts[ch.Tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a signature chunk", ErrInvalidContainer, ch.Tag)
	}
	r := reader{data: ch.Data, tag: ch.Tag}

	count := int(r.u32(0))
	first := int(r.u32(4))
	if r.err == nil && (first > len(ch.Data) || count > (len(ch.Data)-first)/layout.size) {
		return nil, fmt.Errorf("%w: %s declares %d elements", ErrInvalidContainer, ch.Tag, count)
	}

	params := make([]hlsl.SignatureParameter, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		at := first + i*layout.size
		var p hlsl.SignatureParameter
		if layout.hasStream {
			p.Stream = r.u32(at)
			at += 4
		}
		p.SemanticName = r.str(r.u32(at))
		p.SemanticIndex = r.u32(at + 4)
		p.SystemValue = r.u32(at + 8)
		p.ComponentType = hlsl.ComponentType(r.u32(at + 12))
		p.Register = r.u32(at + 16)
		p.Mask = r.u8(at + 20)
		p.ReadWriteMask = r.u8(at + 21)
		params = append(params, p)
	}
	if r.err != nil {
		return nil, r.err
	}
	return params, nil
}

// BuildSignature encodes params as an ISGN/OSGN style chunk (24-byte elements).
func BuildSignature(tag string, params []hlsl.SignatureParameter) Chunk {
	const elem = 24
	names := 8 + elem*len(params)

	buf := make([]byte, 0, names+16*len(params))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(params)))
	buf = binary.LittleEndian.AppendUint32(buf, 8)

	var strs []byte
	offsets := make(map[string]uint32, len(params))
	for _, p := range params {
		off, ok := offsets[p.SemanticName]
		if !ok {
			off = uint32(names + len(strs))
			offsets[p.SemanticName] = off
			strs = append(strs, p.SemanticName...)
			strs = append(strs, 0)
		}
		buf = binary.LittleEndian.AppendUint32(buf, off)
		buf = binary.LittleEndian.AppendUint32(buf, p.SemanticIndex)
		buf = binary.LittleEndian.AppendUint32(buf, p.SystemValue)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.ComponentType))
		buf = binary.LittleEndian.AppendUint32(buf, p.Register)
		buf = append(buf, p.Mask, p.ReadWriteMask, 0, 0)
	}
	buf = append(buf, strs...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0xAB)
	}
	return Chunk{Tag: tag, Data: buf}
}

// reader reads little-endian fields at chunk-relative offsets. The first
// out-of-range access sets err; later reads return zero values.
type reader struct {
	data []byte
	tag  string
	err  error
}

func (r *reader) fail(off, n int) bool {
	if r.err != nil {
		return true
	}
	if off < 0 || n > len(r.data) || off > len(r.data)-n {
		r.err = fmt.Errorf("%w: %s read of %d bytes at 0x%X out of range", ErrInvalidContainer, r.tag, n, off)
		return true
	}
	return false
}

func (r *reader) u8(off int) uint8 {
	if r.fail(off, 1) {
		return 0
	}
	return r.data[off]
}

func (r *reader) u16(off int) uint16 {
	if r.fail(off, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(r.data[off:])
}

func (r *reader) u32(off int) uint32 {
	if r.fail(off, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data[off:])
}

func (r *reader) bytes(off, n int) []byte {
	if r.fail(off, n) {
		return nil
	}
	return r.data[off : off+n]
}

// str reads a NUL-terminated string.
func (r *reader) str(off uint32) string {
	start := int(off)
	if r.fail(start, 0) {
		return ""
	}
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			return string(r.data[start:i])
		}
	}
	r.err = fmt.Errorf("%w: %s unterminated string at 0x%X", ErrInvalidContainer, r.tag, start)
	return ""
}
