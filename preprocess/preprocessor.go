package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gogpu/fxc/fx"
)

// Preprocessor expands macros and includes in effect source. Errors are
// returned as fx.Diagnostics when they carry source positions.
type Preprocessor interface {
	Preprocess(ctx context.Context, source, file string, macros []Macro, resolver *Resolver) (string, error)
}

// DefaultMaxIncludeDepth bounds include nesting, which also stops include cycles.
const DefaultMaxIncludeDepth = 64

const maxExpansions = 1000

// Builtin is a C-style preprocessor supporting #include, object and
// function-like #define, #undef, #if/#ifdef/#ifndef/#elif/#else/#endif,
// #error and #pragma.
//
// The output keeps the line structure of every input file: directives and
// inactive lines become empty lines, and a `#line N "file"` marker is
// emitted whenever the output switches between files. #pragma and #line
// lines are passed through.
type Builtin struct {
	MaxIncludeDepth int
}

// Preprocess implements Preprocessor.
func (b *Builtin) Preprocess(ctx context.Context, source, file string, macros []Macro, resolver *Resolver) (string, error) {
	if resolver == nil {
		resolver = NewResolver(file, nil, nil)
	}
	maxDepth := b.MaxIncludeDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxIncludeDepth
	}

	run := &run{
		ctx:      ctx,
		resolver: resolver,
		maxDepth: maxDepth,
		obj:      make(map[string]string),
		fn:       make(map[string]fnMacro),
	}
	for _, m := range macros {
		run.obj[m.Name] = m.Value
	}

	firstResolverDiag := len(resolver.Diagnostics)
	err := run.file(source, file, 0)

	var diags fx.Diagnostics
	diags.Append(resolver.Diagnostics[firstResolverDiag:])
	diags.Append(run.diags)
	if err != nil {
		return "", err
	}
	if diags.HasErrors() {
		return run.out.String(), diags
	}
	return run.out.String(), nil
}

type fnMacro struct {
	params []string
	body   string
}

// run holds the state of one Preprocess call.
type run struct {
	ctx      context.Context
	resolver *Resolver
	maxDepth int

	obj map[string]string
	fn  map[string]fnMacro

	out   strings.Builder
	diags fx.Diagnostics
}

// cond is one #if group on the conditional stack.
type cond struct {
	active  bool // current branch is emitted
	taken   bool // some branch of the group was taken
	parent  bool // enclosing group is active
	sawElse bool
	span    fx.Span
}

// file preprocesses one source file. depth is the include depth.
func (r *run) file(source, name string, depth int) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	var conds []cond
	active := func() bool {
		return len(conds) == 0 || conds[len(conds)-1].active
	}
	inComment := false

	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		line := lines[i]
		span := fx.Span{File: name, Line: lineNo, Column: 1}

		startsInComment := inComment
		inComment = endsInComment(line, inComment)

		trim := strings.TrimSpace(line)
		if startsInComment || !strings.HasPrefix(trim, "#") {
			if active() {
				expanded, err := r.expand(line, name, lineNo)
				if err != nil {
					r.diags.Errorf(span, "%v", err)
					expanded = line
				}
				r.out.WriteString(expanded)
			}
			r.newline(i, len(lines))
			continue
		}

		// Join continuation lines; each consumed line still yields a newline.
		full := trim
		extra := 0
		for strings.HasSuffix(full, `\`) && i+1 < len(lines) {
			i++
			extra++
			full = strings.TrimSuffix(full, `\`) + " " + strings.TrimSpace(lines[i])
		}
		full = strings.TrimSpace(stripComments(full))

		directive := fx.DirectiveName(full)
		arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(full, "#")), directive))

		switch directive {
		case "if", "ifdef", "ifndef":
			c := cond{parent: active(), span: span}
			if c.parent {
				c.active = r.condition(directive, arg, name, lineNo, span)
				c.taken = c.active
			}
			conds = append(conds, c)

		case "elif":
			if len(conds) == 0 {
				r.diags.Errorf(span, "#elif without #if")
				break
			}
			c := &conds[len(conds)-1]
			if c.sawElse {
				r.diags.Errorf(span, "#elif after #else")
				break
			}
			c.active = false
			if c.parent && !c.taken {
				c.active = r.condition("if", arg, name, lineNo, span)
				c.taken = c.active
			}

		case "else":
			if len(conds) == 0 {
				r.diags.Errorf(span, "#else without #if")
				break
			}
			c := &conds[len(conds)-1]
			if c.sawElse {
				r.diags.Errorf(span, "duplicate #else")
				break
			}
			c.sawElse = true
			c.active = c.parent && !c.taken
			c.taken = true

		case "endif":
			if len(conds) == 0 {
				r.diags.Errorf(span, "#endif without #if")
				break
			}
			conds = conds[:len(conds)-1]

		default:
			if !active() {
				break
			}
			if err := r.directive(directive, arg, full, name, lineNo, depth, span); err != nil {
				return err
			}
		}

		for k := 0; k < extra; k++ {
			r.out.WriteByte('\n')
		}
		r.newline(i, len(lines))
	}

	for _, c := range conds {
		r.diags.Errorf(c.span, "unterminated conditional directive")
	}
	return nil
}

// newline ends output line i unless it is the last line of the file.
func (r *run) newline(i, count int) {
	if i < count-1 {
		r.out.WriteByte('\n')
	}
}

// directive handles the non-conditional directives of an active line.
func (r *run) directive(directive, arg, full, name string, lineNo, depth int, span fx.Span) error {
	switch directive {
	case "include":
		return r.include(arg, name, lineNo, depth, span)

	case "define":
		r.define(arg, span)

	case "undef":
		delete(r.obj, arg)
		delete(r.fn, arg)

	case "error":
		r.diags.Errorf(span, "#error %s", arg)

	case "pragma", "line":
		r.out.WriteString(full)

	case "":
		// Null directive.

	default:
		r.diags.Errorf(span, "unknown preprocessor directive #%s", directive)
	}
	return nil
}

func (r *run) include(arg, name string, lineNo, depth int, span fx.Span) error {
	expanded, err := r.expand(arg, name, lineNo)
	if err == nil {
		arg = strings.TrimSpace(expanded)
	}

	var kind IncludeType
	var target string
	switch {
	case len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"':
		kind, target = IncludeLocal, arg[1:len(arg)-1]
	case len(arg) >= 2 && arg[0] == '<' && arg[len(arg)-1] == '>':
		kind, target = IncludeSystem, arg[1:len(arg)-1]
	default:
		r.diags.Errorf(span, "#include expects \"file\" or <file>, got %q", arg)
		return nil
	}

	if depth+1 > r.maxDepth {
		r.diags.Errorf(span, "#include nested too deeply (limit %d)", r.maxDepth)
		return nil
	}

	rc, err := r.resolver.Open(kind, target, span)
	if err != nil {
		// Open records the diagnostic.
		return nil
	}
	text, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		r.resolver.Close()
		r.diags.Errorf(span, "cannot read include %q: %v", target, err)
		return nil
	}

	path, _ := r.resolver.ResolvedPath(target)
	fmt.Fprintf(&r.out, "#line 1 %s\n", quotePath(path))
	err = r.file(string(text), path, depth+1)
	r.resolver.Close()
	if err != nil {
		return err
	}
	fmt.Fprintf(&r.out, "\n#line %d %s", lineNo+1, quotePath(name))
	return nil
}

// define registers `NAME body` or `NAME(a, b) body`. A parameter list
// only forms when '(' follows the name without whitespace.
func (r *run) define(arg string, span fx.Span) {
	end := 0
	for end < len(arg) && isIdentPart(arg[end]) {
		end++
	}
	name := arg[:end]
	if !isIdentifier(name) {
		r.diags.Errorf(span, "invalid macro name in #define %q", arg)
		return
	}
	rest := arg[end:]

	if strings.HasPrefix(rest, "(") {
		closing := strings.IndexByte(rest, ')')
		if closing < 0 {
			r.diags.Errorf(span, "missing ')' in parameter list of macro %s", name)
			return
		}
		var params []string
		if list := strings.TrimSpace(rest[1:closing]); list != "" {
			for _, p := range strings.Split(list, ",") {
				p = strings.TrimSpace(p)
				if !isIdentifier(p) {
					r.diags.Errorf(span, "invalid parameter %q in macro %s", p, name)
					return
				}
				params = append(params, p)
			}
		}
		delete(r.obj, name)
		r.fn[name] = fnMacro{params: params, body: strings.TrimSpace(rest[closing+1:])}
		return
	}

	delete(r.fn, name)
	r.obj[name] = strings.TrimSpace(rest)
}

// condition evaluates the argument of #if, #ifdef or #ifndef.
func (r *run) condition(directive, arg, name string, lineNo int, span fx.Span) bool {
	switch directive {
	case "ifdef":
		return r.defined(arg)
	case "ifndef":
		return !r.defined(arg)
	}

	expr, err := r.expand(r.replaceDefined(arg), name, lineNo)
	if err != nil {
		r.diags.Errorf(span, "%v", err)
		return false
	}
	v, err := evalCondition(expr)
	if err != nil {
		r.diags.Errorf(span, "#%s: %v", directive, err)
		return false
	}
	return v != 0
}

func (r *run) defined(name string) bool {
	_, obj := r.obj[name]
	_, fn := r.fn[name]
	return obj || fn
}

// replaceDefined substitutes defined(X) and defined X with 1 or 0 before
// macro expansion.
func (r *run) replaceDefined(expr string) string {
	var sb strings.Builder
	for i := 0; i < len(expr); {
		if !isIdentStart(expr[i]) {
			sb.WriteByte(expr[i])
			i++
			continue
		}
		j := i
		for j < len(expr) && isIdentPart(expr[j]) {
			j++
		}
		word := expr[i:j]
		if word != "defined" {
			sb.WriteString(word)
			i = j
			continue
		}

		k := skipSpaces(expr, j)
		paren := k < len(expr) && expr[k] == '('
		if paren {
			k = skipSpaces(expr, k+1)
		}
		start := k
		for k < len(expr) && isIdentPart(expr[k]) {
			k++
		}
		operand := expr[start:k]
		if paren {
			k = skipSpaces(expr, k)
			if k < len(expr) && expr[k] == ')' {
				k++
			}
		}
		if r.defined(operand) {
			sb.WriteString("1")
		} else {
			sb.WriteString("0")
		}
		i = k
	}
	return sb.String()
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

// expand replaces macros in one line. Strings and comments are copied
// unchanged.
func (r *run) expand(line, file string, lineNo int) (string, error) {
	e := expander{run: r, file: file, line: lineNo}
	return e.expand(line)
}

type chunk struct {
	s string
	i int
}

// expander reads from a stack of chunks; macro bodies are pushed on top so
// their expansion is rescanned.
type expander struct {
	run        *run
	file       string
	line       int
	stack      []chunk
	expansions int
}

func (e *expander) expand(line string) (string, error) {
	e.stack = []chunk{{s: line}}
	var sb strings.Builder
	for {
		ch, ok := e.next()
		if !ok {
			return sb.String(), nil
		}
		switch {
		case ch == '"' || ch == '\'':
			sb.WriteByte(ch)
			e.copyQuoted(&sb, ch)
		case ch == '/' && e.peekIs('/'):
			sb.WriteByte(ch)
			e.copyRest(&sb)
		case ch == '/' && e.peekIs('*'):
			sb.WriteByte(ch)
			sb.WriteByte(e.mustNext())
			e.copyBlockComment(&sb)
		case isIdentStart(ch):
			name := e.readIdent(ch)
			if err := e.identifier(&sb, name); err != nil {
				return "", err
			}
		case ch >= '0' && ch <= '9':
			// Keep suffixes like 1.0f or 0x1F from being read as identifiers.
			sb.WriteByte(ch)
			for {
				c, ok := e.peek()
				if !ok || !(isIdentPart(c) || c == '.') {
					break
				}
				sb.WriteByte(e.mustNext())
			}
		default:
			sb.WriteByte(ch)
		}
	}
}

func (e *expander) identifier(sb *strings.Builder, name string) error {
	switch name {
	case "__LINE__":
		sb.WriteString(strconv.Itoa(e.line))
		return nil
	case "__FILE__":
		sb.WriteString(quotePath(e.file))
		return nil
	}

	if m, ok := e.run.fn[name]; ok {
		save := e.snapshot()
		e.skipSpaces()
		if e.peekIs('(') {
			e.next()
			args, ok := e.readArgs()
			if !ok {
				return fmt.Errorf("unterminated argument list for macro %s", name)
			}
			if len(args) == 1 && args[0] == "" && len(m.params) == 0 {
				args = nil
			}
			if len(args) != len(m.params) {
				return fmt.Errorf("macro %s expects %d arguments, got %d", name, len(m.params), len(args))
			}
			return e.push(substitute(m, args))
		}
		e.restore(save)
		sb.WriteString(name)
		return nil
	}

	if v, ok := e.run.obj[name]; ok {
		return e.push(v)
	}
	sb.WriteString(name)
	return nil
}

func (e *expander) push(s string) error {
	e.expansions++
	if e.expansions > maxExpansions {
		return errors.New("recursive macro expansion")
	}
	if s != "" {
		e.stack = append(e.stack, chunk{s: s})
	}
	return nil
}

func (e *expander) next() (byte, bool) {
	for len(e.stack) > 0 {
		top := &e.stack[len(e.stack)-1]
		if top.i >= len(top.s) {
			e.stack = e.stack[:len(e.stack)-1]
			continue
		}
		ch := top.s[top.i]
		top.i++
		return ch, true
	}
	return 0, false
}

func (e *expander) mustNext() byte {
	ch, _ := e.next()
	return ch
}

func (e *expander) peek() (byte, bool) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		c := e.stack[i]
		if c.i < len(c.s) {
			return c.s[c.i], true
		}
	}
	return 0, false
}

func (e *expander) peekIs(b byte) bool {
	ch, ok := e.peek()
	return ok && ch == b
}

func (e *expander) skipSpaces() {
	for e.peekIs(' ') || e.peekIs('\t') {
		e.next()
	}
}

func (e *expander) snapshot() []chunk {
	return append([]chunk(nil), e.stack...)
}

func (e *expander) restore(s []chunk) {
	e.stack = s
}

func (e *expander) readIdent(first byte) string {
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		ch, ok := e.peek()
		if !ok || !isIdentPart(ch) {
			return sb.String()
		}
		sb.WriteByte(e.mustNext())
	}
}

// readArgs reads comma-separated macro arguments up to the matching ')'.
func (e *expander) readArgs() ([]string, bool) {
	var args []string
	var cur strings.Builder
	depth := 1
	for {
		ch, ok := e.next()
		if !ok {
			return nil, false
		}
		switch ch {
		case '"', '\'':
			cur.WriteByte(ch)
			e.copyQuoted(&cur, ch)
		case '(':
			depth++
			cur.WriteByte(ch)
		case ')':
			depth--
			if depth == 0 {
				return append(args, strings.TrimSpace(cur.String())), true
			}
			cur.WriteByte(ch)
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteByte(ch)
		default:
			cur.WriteByte(ch)
		}
	}
}

func (e *expander) copyQuoted(sb *strings.Builder, quote byte) {
	for {
		ch, ok := e.next()
		if !ok {
			return
		}
		sb.WriteByte(ch)
		if ch == '\\' {
			if next, ok := e.next(); ok {
				sb.WriteByte(next)
			}
			continue
		}
		if ch == quote {
			return
		}
	}
}

func (e *expander) copyRest(sb *strings.Builder) {
	for {
		ch, ok := e.next()
		if !ok {
			return
		}
		sb.WriteByte(ch)
	}
}

func (e *expander) copyBlockComment(sb *strings.Builder) {
	for {
		ch, ok := e.next()
		if !ok {
			return
		}
		sb.WriteByte(ch)
		if ch == '*' && e.peekIs('/') {
			sb.WriteByte(e.mustNext())
			return
		}
	}
}

// substitute replaces parameter names in the macro body, handling the
// # stringize and ## paste operators.
func substitute(m fnMacro, args []string) string {
	values := make(map[string]string, len(m.params))
	for i, p := range m.params {
		values[p] = args[i]
	}

	body := m.body
	var sb strings.Builder
	for i := 0; i < len(body); {
		ch := body[i]
		switch {
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(body) && body[j] != ch {
				if body[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(body) {
				j++
			}
			sb.WriteString(body[i:j])
			i = j

		case ch == '#' && i+1 < len(body) && body[i+1] == '#':
			// Paste: drop the operator and the spaces around it.
			out := strings.TrimRight(sb.String(), " \t")
			sb.Reset()
			sb.WriteString(out)
			i = skipSpaces(body, i+2)

		case ch == '#':
			j := skipSpaces(body, i+1)
			k := j
			for k < len(body) && isIdentPart(body[k]) {
				k++
			}
			if v, ok := values[body[j:k]]; ok && k > j {
				sb.WriteString(strconv.Quote(v))
				i = k
				continue
			}
			sb.WriteByte(ch)
			i++

		case isIdentStart(ch):
			j := i + 1
			for j < len(body) && isIdentPart(body[j]) {
				j++
			}
			if v, ok := values[body[i:j]]; ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(body[i:j])
			}
			i = j

		default:
			sb.WriteByte(ch)
			i++
		}
	}
	return sb.String()
}

// endsInComment reports whether a block comment is still open at the end
// of line, given whether one was open at its start.
func endsInComment(line string, open bool) bool {
	for i := 0; i < len(line); i++ {
		if open {
			if line[i] == '*' && i+1 < len(line) && line[i+1] == '/' {
				open = false
				i++
			}
			continue
		}
		switch line[i] {
		case '"':
			for i++; i < len(line) && line[i] != '"'; i++ {
				if line[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(line) {
				if line[i+1] == '/' {
					return false
				}
				if line[i+1] == '*' {
					open = true
					i++
				}
			}
		}
	}
	return open
}

// stripComments removes // and single-line /* */ comments from a directive.
func stripComments(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				j = len(s) - 1
			}
			sb.WriteString(s[i : j+1])
			i = j
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '/':
			return sb.String()
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			sb.WriteByte(' ')
			i += end + 3
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// quotePath formats a path as a string literal for #line and __FILE__.
func quotePath(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(path) + `"`
}
