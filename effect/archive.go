package effect

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/fxc/hlsl"
)

// Archive layout, all integers little-endian:
//
//	"TKFX" version:u32
//	shaders:u32 { shader }
//	effects:u32 { effect }
//
// Strings and byte slices are a u32 length followed by the data. Pool order
// is preserved, so identical Data encodes to identical bytes.
const (
	archiveMagic   = "TKFX"
	ArchiveVersion = 1
)

// ErrInvalidArchive is returned by Read for malformed input.
var ErrInvalidArchive = errors.New("invalid effect archive")

// Write encodes data to w.
func Write(w io.Writer, data *Data) error {
	_, err := w.Write(Marshal(data))
	return err
}

// Marshal encodes data to a byte slice.
func Marshal(data *Data) []byte {
	e := &encoder{buf: make([]byte, 0, 256)}
	e.buf = append(e.buf, archiveMagic...)
	e.u32(ArchiveVersion)

	e.u32(uint32(len(data.Shaders)))
	for _, s := range data.Shaders {
		e.shader(s)
	}
	e.u32(uint32(len(data.Effects)))
	for _, fx := range data.Effects {
		e.effect(fx)
	}
	return e.buf
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) f64(v float64) {
	e.u64(math.Float64bits(v))
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) string(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) shader(s *Shader) {
	e.string(s.Name)
	e.u8(uint8(s.Stage))
	e.u32(uint32(s.Level))
	e.bytes(s.Bytecode)
	e.u32(s.Hash)
	e.signature(s.InputSignature)
	e.signature(s.OutputSignature)
	e.bytes(s.InputSignatureBlob)
	e.u32(s.InputSignatureHash)

	e.u32(uint32(len(s.ConstantBuffers)))
	for _, cb := range s.ConstantBuffers {
		e.string(cb.Name)
		e.u32(cb.Size)
		e.u8(uint8(cb.Kind))
		e.u32(cb.Slot)
		e.u32(uint32(len(cb.Variables)))
		for _, v := range cb.Variables {
			e.string(v.Name)
			e.u32(v.Offset)
			e.u32(v.Size)
			e.u8(uint8(v.Class))
			e.u16(uint16(v.Type))
			e.u16(v.Rows)
			e.u16(v.Columns)
			e.u16(v.Elements)
			e.bytes(v.DefaultValue)
		}
	}

	e.u32(uint32(len(s.Resources)))
	for _, r := range s.Resources {
		e.string(r.Name)
		e.u8(uint8(r.Type))
		e.u8(uint8(r.Dimension))
		e.u32(r.Slot)
		e.u32(r.Count)
	}
}

func (e *encoder) signature(params []SignatureParameter) {
	e.u32(uint32(len(params)))
	for _, p := range params {
		e.string(p.SemanticName)
		e.u32(p.SemanticIndex)
		e.u32(p.Register)
		e.u32(p.SystemValue)
		e.u8(uint8(p.ComponentType))
		e.u8(p.Mask)
		e.u8(p.ReadWriteMask)
	}
}

func (e *encoder) effect(fx *Effect) {
	e.string(fx.Name)
	e.bool(fx.ShareConstantBuffers)
	e.u32(uint32(len(fx.Techniques)))
	for _, t := range fx.Techniques {
		e.string(t.Name)
		e.u32(uint32(len(t.Passes)))
		for _, p := range t.Passes {
			e.string(p.Name)
			e.bool(p.IsSubPass)
			for _, link := range p.Pipeline {
				e.u8(uint8(link.Kind))
				e.u32(uint32(link.Index))
			}
			e.u32(uint32(len(p.Attributes)))
			for _, a := range p.Attributes {
				e.string(a.Name)
				e.value(a.Value)
			}
		}
	}
}

func (e *encoder) value(v Value) {
	e.u8(uint8(v.Kind))
	switch v.Kind {
	case KindBool:
		e.bool(v.Bool)
	case KindInt:
		e.u64(uint64(v.Int))
	case KindUInt:
		e.u64(v.UInt)
	case KindFloat:
		e.f64(v.Float)
	case KindString:
		e.string(v.Text)
	case KindFloat2, KindFloat3, KindFloat4:
		for i := 0; i < v.Components(); i++ {
			e.f64(v.Vector[i])
		}
	case KindArray:
		e.u32(uint32(len(v.Items)))
		for _, item := range v.Items {
			e.value(item)
		}
	}
}

// Read decodes an archive written by Write.
func Read(r io.Reader) (*Data, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(buf)
}

// Unmarshal decodes an archive produced by Marshal.
func Unmarshal(buf []byte) (*Data, error) {
	if len(buf) < 8 || string(buf[:4]) != archiveMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidArchive)
	}
	d := &decoder{buf: buf, off: 4}
	if v := d.u32(); v != ArchiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, v)
	}

	data := &Data{}
	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		data.Shaders = append(data.Shaders, d.shader())
	}
	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		data.Effects = append(data.Effects, d.effect())
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidArchive, len(buf)-d.off)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	return data, nil
}

// decoder reads little-endian fields. The first error sticks and every
// later read returns zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = fmt.Errorf("%w: unexpected end of data at offset %d", ErrInvalidArchive, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) f64() float64 { return math.Float64frombits(d.u64()) }
func (d *decoder) bool() bool   { return d.u8() != 0 }

// count reads an element count, rejecting counts larger than the
// remaining input could hold.
func (d *decoder) count() int {
	n := int(d.u32())
	if d.err == nil && n > len(d.buf)-d.off {
		d.err = fmt.Errorf("%w: count %d exceeds remaining data", ErrInvalidArchive, n)
		return 0
	}
	return n
}

func (d *decoder) bytes() []byte {
	n := d.count()
	b := d.take(n)
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func (d *decoder) string() string {
	return string(d.take(d.count()))
}

func (d *decoder) shader() *Shader {
	s := &Shader{
		Name:     d.string(),
		Stage:    hlsl.Stage(d.u8()),
		Level:    hlsl.FeatureLevel(d.u32()),
		Bytecode: d.bytes(),
		Hash:     d.u32(),
	}
	if d.err == nil && int(s.Stage) >= hlsl.StageCount {
		d.err = fmt.Errorf("%w: invalid shader stage %d", ErrInvalidArchive, s.Stage)
	}
	s.InputSignature = d.signature()
	s.OutputSignature = d.signature()
	s.InputSignatureBlob = d.bytes()
	s.InputSignatureHash = d.u32()

	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		cb := &ConstantBuffer{
			Name: d.string(),
			Size: d.u32(),
			Kind: hlsl.CBufferType(d.u8()),
			Slot: d.u32(),
		}
		vars := d.count()
		for j := 0; j < vars && d.err == nil; j++ {
			cb.Variables = append(cb.Variables, Variable{
				Name:         d.string(),
				Offset:       d.u32(),
				Size:         d.u32(),
				Class:        hlsl.VariableClass(d.u8()),
				Type:         hlsl.VariableType(d.u16()),
				Rows:         d.u16(),
				Columns:      d.u16(),
				Elements:     d.u16(),
				DefaultValue: d.bytes(),
			})
		}
		s.ConstantBuffers = append(s.ConstantBuffers, cb)
	}

	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		s.Resources = append(s.Resources, ResourceParameter{
			Name:      d.string(),
			Type:      hlsl.ShaderInputType(d.u8()),
			Dimension: hlsl.ResourceDimension(d.u8()),
			Slot:      d.u32(),
			Count:     d.u32(),
		})
	}
	return s
}

func (d *decoder) signature() []SignatureParameter {
	n := d.count()
	var out []SignatureParameter
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, SignatureParameter{
			SemanticName:  d.string(),
			SemanticIndex: d.u32(),
			Register:      d.u32(),
			SystemValue:   d.u32(),
			ComponentType: hlsl.ComponentType(d.u8()),
			Mask:          d.u8(),
			ReadWriteMask: d.u8(),
		})
	}
	return out
}

func (d *decoder) effect() *Effect {
	fx := &Effect{
		Name:                 d.string(),
		ShareConstantBuffers: d.bool(),
	}
	techniques := d.count()
	for i := 0; i < techniques && d.err == nil; i++ {
		t := &Technique{Name: d.string()}
		passes := d.count()
		for j := 0; j < passes && d.err == nil; j++ {
			p := &Pass{Name: d.string(), IsSubPass: d.bool()}
			for k := range p.Pipeline {
				p.Pipeline[k] = ShaderLink{Kind: LinkKind(d.u8()), Index: int(d.u32())}
				if kind := p.Pipeline[k].Kind; kind > LinkIndex && d.err == nil {
					d.err = fmt.Errorf("%w: unknown shader link kind %d", ErrInvalidArchive, kind)
				}
			}
			attrs := d.count()
			for k := 0; k < attrs && d.err == nil; k++ {
				p.Attributes = append(p.Attributes, Attribute{Name: d.string(), Value: d.value(0)})
			}
			t.Passes = append(t.Passes, p)
		}
		fx.Techniques = append(fx.Techniques, t)
	}
	return fx
}

const maxValueDepth = 32

func (d *decoder) value(depth int) Value {
	if depth > maxValueDepth {
		d.err = fmt.Errorf("%w: attribute value nested too deeply", ErrInvalidArchive)
		return Value{}
	}
	v := Value{Kind: ValueKind(d.u8())}
	switch v.Kind {
	case KindNull:
	case KindBool:
		v.Bool = d.bool()
	case KindInt:
		v.Int = int64(d.u64())
	case KindUInt:
		v.UInt = d.u64()
	case KindFloat:
		v.Float = d.f64()
	case KindString:
		v.Text = d.string()
	case KindFloat2, KindFloat3, KindFloat4:
		for i := 0; i < v.Components(); i++ {
			v.Vector[i] = d.f64()
		}
	case KindArray:
		n := d.count()
		for i := 0; i < n && d.err == nil; i++ {
			v.Items = append(v.Items, d.value(depth+1))
		}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: unknown value kind %d", ErrInvalidArchive, v.Kind)
		}
	}
	return v
}
