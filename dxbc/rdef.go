package dxbc

import (
	"github.com/gogpu/fxc/hlsl"
)

// RDEF header offsets.
const (
	rdefCBCount       = 0
	rdefCBOffset      = 4
	rdefBindCount     = 8
	rdefBindOffset    = 12
	rdefMinor         = 16
	rdefMajor         = 17
	rdefCreatorOffset = 24

	cbufferSize    = 24
	bindingSize    = 32
	bindingSize51  = 40
	variableSize   = 24
	variableSize5  = 40
	typeHeaderSize = 16
)

// ResourceDef is the decoded RDEF chunk.
type ResourceDef struct {
	Major, Minor    uint8
	Creator         string
	ConstantBuffers []hlsl.ConstantBufferDesc
	Resources       []hlsl.BoundResource
}

// ParseResourceDef decodes an RDEF chunk.
func ParseResourceDef(ch *Chunk) (*ResourceDef, error) {
	r := reader{data: ch.Data, tag: ch.Tag}
	def := &ResourceDef{
		Major: r.u8(rdefMajor),
		Minor: r.u8(rdefMinor),
	}
	def.Creator = r.str(r.u32(rdefCreatorOffset))

	sm5 := def.Major >= 5
	varSize := variableSize
	if sm5 {
		varSize = variableSize5
	}
	bindSize := bindingSize
	if def.Major > 5 || (def.Major == 5 && def.Minor >= 1) {
		bindSize = bindingSize51
	}

	bindCount := int(r.u32(rdefBindCount))
	bindOffset := int(r.u32(rdefBindOffset))
	if r.err == nil && bindCount > len(ch.Data)/bindSize {
		r.fail(bindOffset, bindCount*bindSize)
	}
	for i := 0; i < bindCount && r.err == nil; i++ {
		at := bindOffset + i*bindSize
		def.Resources = append(def.Resources, hlsl.BoundResource{
			Name:       r.str(r.u32(at)),
			Type:       hlsl.ShaderInputType(r.u32(at + 4)),
			ReturnType: r.u32(at + 8),
			Dimension:  hlsl.ResourceDimension(r.u32(at + 12)),
			NumSamples: r.u32(at + 16),
			BindPoint:  r.u32(at + 20),
			BindCount:  r.u32(at + 24),
			Flags:      r.u32(at + 28),
		})
	}

	cbCount := int(r.u32(rdefCBCount))
	cbOffset := int(r.u32(rdefCBOffset))
	if r.err == nil && cbCount > len(ch.Data)/cbufferSize {
		r.fail(cbOffset, cbCount*cbufferSize)
	}
	for i := 0; i < cbCount && r.err == nil; i++ {
		at := cbOffset + i*cbufferSize
		cb := hlsl.ConstantBufferDesc{
			Name:  r.str(r.u32(at)),
			Size:  r.u32(at + 12),
			Flags: r.u32(at + 16),
			Type:  hlsl.CBufferType(r.u32(at + 20)),
		}
		varCount := int(r.u32(at + 4))
		varOffset := int(r.u32(at + 8))
		if r.err == nil && varCount > len(ch.Data)/varSize {
			r.fail(varOffset, varCount*varSize)
		}
		for j := 0; j < varCount && r.err == nil; j++ {
			cb.Variables = append(cb.Variables, r.variable(varOffset+j*varSize))
		}
		def.ConstantBuffers = append(def.ConstantBuffers, cb)
	}

	if r.err != nil {
		return nil, r.err
	}
	return def, nil
}

func (r *reader) variable(at int) hlsl.VariableDesc {
	v := hlsl.VariableDesc{
		Name:        r.str(r.u32(at)),
		StartOffset: r.u32(at + 4),
		Size:        r.u32(at + 8),
		Flags:       r.u32(at + 12),
	}

	if t := int(r.u32(at + 16)); t != 0 {
		r.fail(t, typeHeaderSize)
		v.Class = hlsl.VariableClass(r.u16(t))
		v.Type = hlsl.VariableType(r.u16(t + 2))
		v.Rows = r.u16(t + 4)
		v.Columns = r.u16(t + 6)
		v.Elements = r.u16(t + 8)
		v.Members = r.u16(t + 10)
	}

	if d := int(r.u32(at + 20)); d != 0 && v.Size > 0 {
		if b := r.bytes(d, int(v.Size)); b != nil {
			v.DefaultValue = append([]byte(nil), b...)
		}
	}
	return v
}
