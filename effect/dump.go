package effect

import (
	"github.com/sanity-io/litter"
)

var dumpOptions = litter.Options{
	HidePrivateFields: true,
	HideZeroValues:    true,
	StripPackageNames: true,
}

// Dump returns a readable multi-line rendering of the data graph.
// Bytecode and signature blobs are left out.
func (d *Data) Dump() string {
	view := *d
	view.Shaders = make([]*Shader, len(d.Shaders))
	for i, s := range d.Shaders {
		c := *s
		c.Bytecode = nil
		c.InputSignatureBlob = nil
		view.Shaders[i] = &c
	}
	return dumpOptions.Sdump(view)
}
