package effect

import (
	"strconv"
)

// ShaderPool deduplicates compiled shaders. Two shaders that are similar
// (see Shader.IsSimilar) share one pool index.
type ShaderPool struct {
	shaders []*Shader
	buckets map[string][]int
	keyBuf  []byte // reusable buffer for building bucket keys
}

// NewShaderPool creates an empty pool.
func NewShaderPool() *ShaderPool {
	return &ShaderPool{
		shaders: make([]*Shader, 0, 8),
		buckets: make(map[string][]int, 8),
		keyBuf:  make([]byte, 0, 32),
	}
}

// Add returns the index of a shader similar to s, or appends s and returns
// its new index. reused reports whether an existing entry was returned.
func (p *ShaderPool) Add(s *Shader) (index int, reused bool) {
	key := p.key(s)

	for _, i := range p.buckets[key] {
		if p.shaders[i].IsSimilar(s) {
			return i, true
		}
	}

	index = len(p.shaders)
	p.shaders = append(p.shaders, s)
	p.buckets[key] = append(p.buckets[key], index)
	return index, false
}

// key groups candidate duplicates by stage, level, content hash and size.
func (p *ShaderPool) key(s *Shader) string {
	b := p.keyBuf[:0]
	b = strconv.AppendUint(b, uint64(s.Stage), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Level), 16)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Hash), 16)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(len(s.Bytecode)), 10)
	p.keyBuf = b
	return string(b)
}

// At returns the shader at index.
func (p *ShaderPool) At(index int) (*Shader, bool) {
	if index < 0 || index >= len(p.shaders) {
		return nil, false
	}
	return p.shaders[index], true
}

// All returns the pooled shaders in insertion order.
func (p *ShaderPool) All() []*Shader {
	return p.shaders
}

// Len returns the number of distinct shaders.
func (p *ShaderPool) Len() int {
	return len(p.shaders)
}
