// Package effect defines the compiled effect data model: effects made of
// techniques and passes that reference a deduplicated pool of compiled
// shaders.
package effect

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/fxc/hlsl"
)

// Data is the result of compiling one effect source: the effect and the
// shared shader pool its passes index into.
type Data struct {
	Effects []*Effect
	Shaders []*Shader
}

// Effect is a named set of techniques.
type Effect struct {
	Name                 string
	ShareConstantBuffers bool
	Techniques           []*Technique
}

// Technique returns the technique with the given name.
func (e *Effect) Technique(name string) (*Technique, bool) {
	for _, t := range e.Techniques {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Technique is an ordered list of passes.
type Technique struct {
	Name   string
	Passes []*Pass
}

// Pass returns the pass with the given name.
func (t *Technique) Pass(name string) (*Pass, bool) {
	for _, p := range t.Passes {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Pass binds shader stages and fixed-function state.
type Pass struct {
	Name       string
	IsSubPass  bool
	Pipeline   Pipeline
	Attributes []Attribute
}

// Attribute returns the value of the named attribute. When an attribute is
// assigned more than once the last assignment wins.
func (p *Pass) Attribute(name string) (Value, bool) {
	for i := len(p.Attributes) - 1; i >= 0; i-- {
		if p.Attributes[i].Name == name {
			return p.Attributes[i].Value, true
		}
	}
	return Value{}, false
}

// Attribute is a pass state assignment stored for the runtime.
type Attribute struct {
	Name  string
	Value Value
}

// LinkKind tells how a pipeline stage is bound.
type LinkKind uint8

const (
	// LinkNone means the pass does not mention the stage.
	LinkNone LinkKind = iota
	// LinkNull means the pass explicitly binds no shader.
	LinkNull
	// LinkIndex means the stage uses Data.Shaders[Index].
	LinkIndex
)

func (k LinkKind) String() string {
	switch k {
	case LinkNull:
		return "null"
	case LinkIndex:
		return "index"
	default:
		return "none"
	}
}

// ShaderLink binds a pipeline stage.
type ShaderLink struct {
	Kind  LinkKind
	Index int
}

// NullLink returns the explicit "no shader" link.
func NullLink() ShaderLink { return ShaderLink{Kind: LinkNull} }

// IndexLink returns a link to a shader pool entry.
func IndexLink(i int) ShaderLink { return ShaderLink{Kind: LinkIndex, Index: i} }

// Pipeline holds the shader link of every stage, indexed by hlsl.Stage.
type Pipeline [hlsl.StageCount]ShaderLink

// Set binds a stage.
func (p *Pipeline) Set(stage hlsl.Stage, link ShaderLink) {
	p[stage] = link
}

// Get returns the link of a stage.
func (p *Pipeline) Get(stage hlsl.Stage) ShaderLink {
	return p[stage]
}

// Visibility returns the stages bound to a shader, as a WebGPU stage mask.
// Stages without a WebGPU equivalent are ignored.
func (p *Pipeline) Visibility() gputypes.ShaderStages {
	var stages gputypes.ShaderStages
	for _, stage := range hlsl.Stages {
		if p[stage].Kind == LinkIndex {
			stages |= stage.Visibility()
		}
	}
	return stages
}
