package effect

import (
	"errors"
	"fmt"

	"github.com/gogpu/fxc/hlsl"
)

// ValidationError describes one broken invariant of a Data graph.
type ValidationError struct {
	Effect    string
	Technique string
	Pass      string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("effect %q technique %q pass %q: %s", e.Effect, e.Technique, e.Pass, e.Message)
}

// Validate checks that every pipeline link points into the shader pool and
// that the linked shader was compiled for the stage it is bound to.
func Validate(data *Data) error {
	var errs []error
	for _, fx := range data.Effects {
		for _, t := range fx.Techniques {
			for _, p := range t.Passes {
				for _, stage := range hlsl.Stages {
					link := p.Pipeline[stage]
					if link.Kind != LinkIndex {
						continue
					}
					fail := func(format string, args ...interface{}) {
						errs = append(errs, &ValidationError{
							Effect:    fx.Name,
							Technique: t.Name,
							Pass:      p.Name,
							Message:   fmt.Sprintf(format, args...),
						})
					}
					if link.Index < 0 || link.Index >= len(data.Shaders) {
						fail("%s shader index %d out of range [0,%d)", stage, link.Index, len(data.Shaders))
						continue
					}
					if s := data.Shaders[link.Index]; s.Stage != stage {
						fail("%s slot references %s shader %d", stage, s.Stage, link.Index)
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}
