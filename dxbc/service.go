package dxbc

import (
	"fmt"

	"github.com/gogpu/fxc/hlsl"
)

// Chunks removed by each strip flag.
var stripTags = []struct {
	flag hlsl.StripFlags
	tags []string
}{
	{hlsl.StripReflection, []string{TagResourceDef, TagStatistics}},
	{hlsl.StripDebugInfo, []string{TagDebug, TagDebugPDB, TagDebugIL, TagDebugName}},
	{hlsl.StripTestBlobs, []string{TagPrivate}},
}

// Service reflects and strips DXBC bytecode. The zero value is ready to use.
type Service struct{}

var (
	_ hlsl.Reflector = Service{}
	_ hlsl.Stripper  = Service{}
)

// Reflect extracts signatures and RDEF data from bytecode. Missing chunks
// leave the matching fields empty.
func (Service) Reflect(bytecode []byte) (*hlsl.Reflection, error) {
	c, err := Parse(bytecode)
	if err != nil {
		return nil, reflectError(err)
	}

	refl := &hlsl.Reflection{}
	if ch, ok := c.Chunk(TagResourceDef); ok {
		def, err := ParseResourceDef(ch)
		if err != nil {
			return nil, reflectError(err)
		}
		refl.Creator = def.Creator
		refl.ConstantBuffers = def.ConstantBuffers
		refl.Resources = def.Resources
	}

	if refl.Inputs, err = firstSignature(c, TagInputSig, TagInputSig1); err != nil {
		return nil, reflectError(err)
	}
	if refl.Outputs, err = firstSignature(c, TagOutputSig, TagOutputSig5, TagOutputSig1); err != nil {
		return nil, reflectError(err)
	}
	return refl, nil
}

func firstSignature(c *Container, tags ...string) ([]hlsl.SignatureParameter, error) {
	for _, tag := range tags {
		if ch, ok := c.Chunk(tag); ok {
			return ParseSignature(ch)
		}
	}
	return nil, nil
}

func reflectError(err error) error {
	return &hlsl.Error{Kind: hlsl.ErrReflection, Message: err.Error(), Err: err}
}

// Strip removes the chunks selected by flags and re-signs the container.
func (Service) Strip(bytecode []byte, flags hlsl.StripFlags) ([]byte, error) {
	c, err := Parse(bytecode)
	if err != nil {
		return nil, &hlsl.Error{Kind: hlsl.ErrInvalidBytecode, Message: err.Error(), Err: err}
	}
	var tags []string
	for _, s := range stripTags {
		if flags&s.flag != 0 {
			tags = append(tags, s.tags...)
		}
	}
	c.Remove(tags...)
	return c.Bytes(), nil
}

// InputSignatureBlob returns a container holding only the input signature.
func (Service) InputSignatureBlob(bytecode []byte) ([]byte, error) {
	c, err := Parse(bytecode)
	if err != nil {
		return nil, &hlsl.Error{Kind: hlsl.ErrInvalidBytecode, Message: err.Error(), Err: err}
	}
	for _, tag := range []string{TagInputSig, TagInputSig1} {
		if ch, ok := c.Chunk(tag); ok {
			sig := &Container{Chunks: []Chunk{{Tag: ch.Tag, Data: ch.Data}}}
			return sig.Bytes(), nil
		}
	}
	return nil, &hlsl.Error{
		Kind:    hlsl.ErrInvalidBytecode,
		Message: fmt.Sprintf("bytecode has no %s chunk", TagInputSig),
		Err:     ErrInvalidContainer,
	}
}
