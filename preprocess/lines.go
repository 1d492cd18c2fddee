package preprocess

import (
	"github.com/dlclark/regexp2"

	"github.com/gogpu/fxc/fx"
)

var lineMarker = regexp2.MustCompile(`^(?<head>[ \t]*#[ \t]*line[ \t]+\d+[ \t]+)"(?<file>(?:\\.|[^"\\\n])*)"`, regexp2.Multiline)

// RewriteLineDirectives replaces the file names of `#line N "name"`
// directives with the paths the resolver resolved them to. Names the
// resolver has not seen are left alone.
func RewriteLineDirectives(text string, resolver *Resolver) (string, error) {
	if resolver == nil {
		return text, nil
	}
	return lineMarker.ReplaceFunc(text, func(m regexp2.Match) string {
		requested := fx.Unquote(`"` + m.GroupByName("file").String() + `"`)
		path, ok := resolver.ResolvedPath(requested)
		if !ok {
			return m.String()
		}
		return m.GroupByName("head").String() + quotePath(path)
	}, -1, -1)
}
