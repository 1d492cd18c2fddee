package effect

import (
	"bytes"

	"github.com/gogpu/fxc/hlsl"
)

// Shader is a compiled shader stage in the pool.
type Shader struct {
	// Name is "Effect::Entry" for exported shaders, empty otherwise.
	Name  string
	Stage hlsl.Stage
	Level hlsl.FeatureLevel

	// Bytecode has reflection data stripped.
	Bytecode []byte

	// Hash is ComputeHash of Bytecode with debug info and test blobs
	// also stripped.
	Hash uint32

	InputSignature  []SignatureParameter
	OutputSignature []SignatureParameter

	// InputSignatureBlob and InputSignatureHash are set for vertex shaders
	// only, for input layout creation.
	InputSignatureBlob []byte
	InputSignatureHash uint32

	ConstantBuffers []*ConstantBuffer
	Resources       []ResourceParameter
}

// SignatureParameter is one element of a shader input or output signature.
type SignatureParameter struct {
	SemanticName  string
	SemanticIndex uint32
	Register      uint32
	SystemValue   uint32
	ComponentType hlsl.ComponentType
	Mask          uint8
	ReadWriteMask uint8
}

// ConstantBuffer describes the layout of a constant buffer.
type ConstantBuffer struct {
	Name      string
	Size      uint32
	Kind      hlsl.CBufferType
	Slot      uint32
	Variables []Variable
}

// Variable is one constant buffer member.
type Variable struct {
	Name         string
	Offset       uint32
	Size         uint32
	Class        hlsl.VariableClass
	Type         hlsl.VariableType
	Rows         uint16
	Columns      uint16
	Elements     uint16
	DefaultValue []byte
}

// ResourceParameter is a resource bound to a register slot.
type ResourceParameter struct {
	Name      string
	Type      hlsl.ShaderInputType
	Dimension hlsl.ResourceDimension
	Slot      uint32
	Count     uint32
}

// IsSimilar reports whether two shaders are interchangeable: same stage,
// level, bytecode, signatures and parameter layout. Names are ignored.
func (s *Shader) IsSimilar(o *Shader) bool {
	if s.Stage != o.Stage || s.Level != o.Level || s.Hash != o.Hash {
		return false
	}
	if !bytes.Equal(s.Bytecode, o.Bytecode) {
		return false
	}
	if !equalSignatures(s.InputSignature, o.InputSignature) ||
		!equalSignatures(s.OutputSignature, o.OutputSignature) {
		return false
	}
	if len(s.ConstantBuffers) != len(o.ConstantBuffers) || len(s.Resources) != len(o.Resources) {
		return false
	}
	for i := range s.ConstantBuffers {
		if !s.ConstantBuffers[i].equal(o.ConstantBuffers[i]) {
			return false
		}
	}
	for i := range s.Resources {
		if s.Resources[i] != o.Resources[i] {
			return false
		}
	}
	return true
}

func equalSignatures(a, b []SignatureParameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *ConstantBuffer) equal(o *ConstantBuffer) bool {
	if c.Name != o.Name || c.Size != o.Size || c.Kind != o.Kind || c.Slot != o.Slot ||
		len(c.Variables) != len(o.Variables) {
		return false
	}
	for i := range c.Variables {
		a, b := &c.Variables[i], &o.Variables[i]
		if a.Name != b.Name || a.Offset != b.Offset || a.Size != b.Size || a.Class != b.Class ||
			a.Type != b.Type || a.Rows != b.Rows || a.Columns != b.Columns || a.Elements != b.Elements ||
			!bytes.Equal(a.DefaultValue, b.DefaultValue) {
			return false
		}
	}
	return true
}

// FromReflection fills the signatures, constant buffers and resources of s
// from reflected metadata. Constant buffers get their slot from the
// matching cbuffer binding.
func (s *Shader) FromReflection(r *hlsl.Reflection) {
	s.InputSignature = convertSignature(r.Inputs)
	s.OutputSignature = convertSignature(r.Outputs)

	slots := make(map[string]uint32)
	s.Resources = s.Resources[:0]
	for _, res := range r.Resources {
		if res.Type == hlsl.InputCBuffer || res.Type == hlsl.InputTBuffer {
			slots[res.Name] = res.BindPoint
		}
		s.Resources = append(s.Resources, ResourceParameter{
			Name:      res.Name,
			Type:      res.Type,
			Dimension: res.Dimension,
			Slot:      res.BindPoint,
			Count:     res.BindCount,
		})
	}

	s.ConstantBuffers = s.ConstantBuffers[:0]
	for _, cb := range r.ConstantBuffers {
		if cb.Type != hlsl.CBufferConstant && cb.Type != hlsl.CBufferTexture {
			continue
		}
		out := &ConstantBuffer{
			Name: cb.Name,
			Size: cb.Size,
			Kind: cb.Type,
			Slot: slots[cb.Name],
		}
		for _, v := range cb.Variables {
			out.Variables = append(out.Variables, Variable{
				Name:         v.Name,
				Offset:       v.StartOffset,
				Size:         v.Size,
				Class:        v.Class,
				Type:         v.Type,
				Rows:         v.Rows,
				Columns:      v.Columns,
				Elements:     v.Elements,
				DefaultValue: v.DefaultValue,
			})
		}
		s.ConstantBuffers = append(s.ConstantBuffers, out)
	}
}

func convertSignature(in []hlsl.SignatureParameter) []SignatureParameter {
	if len(in) == 0 {
		return nil
	}
	out := make([]SignatureParameter, len(in))
	for i, p := range in {
		out[i] = SignatureParameter{
			SemanticName:  p.SemanticName,
			SemanticIndex: p.SemanticIndex,
			Register:      p.Register,
			SystemValue:   p.SystemValue,
			ComponentType: p.ComponentType,
			Mask:          p.Mask,
			ReadWriteMask: p.ReadWriteMask,
		}
	}
	return out
}
