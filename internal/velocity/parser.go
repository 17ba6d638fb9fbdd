package velocity

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxNesting bounds block and expression nesting so adversarial input
// cannot drive the parser arbitrarily deep.
const maxNesting = 256

var unsupportedDirectives = map[string]bool{
	"include":  true,
	"parse":    true,
	"evaluate": true,
	"define":   true,
}

var wordOperators = map[string]string{
	"and": "&&",
	"or":  "||",
	"eq":  "==",
	"ne":  "!=",
	"lt":  "<",
	"le":  "<=",
	"gt":  ">",
	"ge":  ">=",
}

type parser struct {
	root   string // whole template, used for error positions
	src    string // text being scanned
	base   int    // offset of src within root
	pos    int
	depth  int
	macros map[string]*macroNode

	// condition of the #elseif that ended the last body
	pendingCond expr
}

func newParser(src string) *parser {
	return &parser{root: src, src: src, macros: make(map[string]*macroNode)}
}

func (p *parser) errorf(at int, format string, args ...any) error {
	line, col := position(p.root, p.base+at)
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// position converts a byte offset into a 1-based line and column.
func position(src string, off int) (int, int) {
	if off > len(src) {
		off = len(src)
	}
	before := src[:off]
	line := strings.Count(before, "\n") + 1
	col := utf8.RuneCountInString(before[strings.LastIndexByte(before, '\n')+1:]) + 1
	return line, col
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf(p.pos, "expected %q, found end of input", c)
		}
		return p.errorf(p.pos, "expected %q, found %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) nest(at int) error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorf(at, "nesting deeper than %d levels", maxNesting)
	}
	return nil
}

// parseBody parses statements until the end of input or one of terms.
// It returns the terminator that stopped it, or "" at end of input.
func (p *parser) parseBody(terms ...string) ([]node, string, error) {
	if err := p.nest(p.pos); err != nil {
		return nil, "", err
	}
	defer func() { p.depth-- }()

	var (
		nodes []node
		buf   strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			nodes = append(nodes, &textNode{base: base{p.base + p.pos}, text: buf.String()})
			buf.Reset()
		}
	}

	for p.pos < len(p.src) {
		i := strings.IndexAny(p.src[p.pos:], `\$#`)
		if i < 0 {
			buf.WriteString(p.src[p.pos:])
			p.pos = len(p.src)
			break
		}
		buf.WriteString(p.src[p.pos : p.pos+i])
		p.pos += i

		switch p.src[p.pos] {
		case '\\':
			p.escape(&buf)
		case '$':
			start := p.pos
			ref, quiet, ok, err := p.reference()
			if err != nil {
				return nil, "", err
			}
			if !ok {
				buf.WriteByte('$')
				p.pos = start + 1
				continue
			}
			flush()
			nodes = append(nodes, &referenceNode{
				base:  base{p.base + start},
				ref:   ref,
				quiet: quiet,
				raw:   p.src[start:p.pos],
			})
		case '#':
			n, term, err := p.hash(&buf, terms)
			if err != nil {
				return nil, "", err
			}
			if term != "" {
				flush()
				return nodes, term, nil
			}
			if n != nil {
				flush()
				nodes = append(nodes, n)
			}
		}
	}
	flush()
	return nodes, "", nil
}

// escape handles a run of backslashes. Before $ or # each pair prints one
// backslash and an odd one out makes the next character literal.
func (p *parser) escape(buf *strings.Builder) {
	j := p.pos
	for j < len(p.src) && p.src[j] == '\\' {
		j++
	}
	n := j - p.pos
	if j < len(p.src) && (p.src[j] == '$' || p.src[j] == '#') {
		buf.WriteString(strings.Repeat(`\`, n/2))
		p.pos = j
		if n%2 == 1 {
			buf.WriteByte(p.src[j])
			p.pos++
		}
		return
	}
	buf.WriteString(p.src[p.pos:j])
	p.pos = j
}

// leadingBlank reports whether only spaces and tabs precede off on its
// line, and where that indentation starts.
func (p *parser) leadingBlank(off int) (int, bool) {
	i := off
	for i > 0 && (p.src[i-1] == ' ' || p.src[i-1] == '\t') {
		i--
	}
	return i, i == 0 || p.src[i-1] == '\n'
}

// gobble removes the line a directive sat on when nothing else shares it:
// the indentation before it and the newline after it.
func (p *parser) gobble(start int, buf *strings.Builder) {
	indentStart, blank := p.leadingBlank(start)
	if !blank {
		return
	}
	i := p.pos
	for i < len(p.src) && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}
	switch {
	case i == len(p.src):
	case p.src[i] == '\n':
		i++
	case p.src[i] == '\r' && i+1 < len(p.src) && p.src[i+1] == '\n':
		i += 2
	default:
		return
	}
	p.pos = i
	trimIndent(buf, p.src[indentStart:start])
}

func trimIndent(buf *strings.Builder, indent string) {
	if indent == "" {
		return
	}
	if s := buf.String(); strings.HasSuffix(s, indent) {
		buf.Reset()
		buf.WriteString(s[:len(s)-len(indent)])
	}
}

// hash parses whatever starts at a '#'. It returns a node to append, a
// terminator name when one of terms was found, or neither when the text
// was absorbed into buf.
func (p *parser) hash(buf *strings.Builder, terms []string) (node, string, error) {
	start := p.pos
	rest := p.src[p.pos:]

	switch {
	case strings.HasPrefix(rest, "##"):
		if end := strings.IndexByte(rest, '\n'); end < 0 {
			p.pos = len(p.src)
		} else {
			p.pos += end + 1
		}
		if indentStart, blank := p.leadingBlank(start); blank {
			trimIndent(buf, p.src[indentStart:start])
		}
		return nil, "", nil

	case strings.HasPrefix(rest, "#*"):
		end := strings.Index(rest[2:], "*#")
		if end < 0 {
			return nil, "", p.errorf(start, "unterminated block comment")
		}
		p.pos += 2 + end + 2
		p.gobble(start, buf)
		return nil, "", nil

	case strings.HasPrefix(rest, "#[["):
		end := strings.Index(rest[3:], "]]#")
		if end < 0 {
			return nil, "", p.errorf(start, "unterminated raw block")
		}
		buf.WriteString(rest[3 : 3+end])
		p.pos += 3 + end + 3
		return nil, "", nil
	}

	name, ok := p.directiveName()
	if !ok {
		buf.WriteByte('#')
		p.pos = start + 1
		return nil, "", nil
	}

	switch name {
	case "elseif", "else", "end":
		if !contains(terms, name) {
			return nil, "", p.errorf(start, "unexpected #%s", name)
		}
		if name == "elseif" {
			cond, err := p.parenExpr()
			if err != nil {
				return nil, "", err
			}
			p.pendingCond = cond
		}
		p.gobble(start, buf)
		return nil, name, nil

	case "set":
		n, err := p.parseSet(start)
		if err != nil {
			return nil, "", err
		}
		p.gobble(start, buf)
		return n, "", nil

	case "if":
		return p.parseIf(start, buf)

	case "foreach":
		return p.parseForeach(start, buf)

	case "macro":
		if err := p.parseMacro(start, buf); err != nil {
			return nil, "", err
		}
		return nil, "", nil

	case "break", "stop":
		if p.peek() == '(' {
			if _, err := p.parenExpr(); err != nil {
				return nil, "", err
			}
		}
		p.gobble(start, buf)
		if name == "break" {
			return &breakNode{base{p.base + start}}, "", nil
		}
		return &stopNode{base{p.base + start}}, "", nil
	}

	if unsupportedDirectives[name] {
		return nil, "", p.errorf(start, "#%s is not supported", name)
	}

	if p.peek() == '(' {
		args, err := p.macroArgs()
		if err != nil {
			// "#note(see above)" is prose, not a call
			buf.WriteByte('#')
			p.pos = start + 1
			return nil, "", nil
		}
		return &macroCallNode{
			base: base{p.base + start},
			name: name,
			args: args,
			raw:  p.src[start:p.pos],
		}, "", nil
	}

	// not a directive: plain text such as "#tag"
	buf.WriteByte('#')
	p.pos = start + 1
	return nil, "", nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// directiveName reads "#name" or "#{name}" and leaves p.pos after it.
func (p *parser) directiveName() (string, bool) {
	i := p.pos + 1
	brace := i < len(p.src) && p.src[i] == '{'
	if brace {
		i++
	}
	if i >= len(p.src) || !isIdentStart(p.src[i]) {
		return "", false
	}
	j := i
	for j < len(p.src) && isIdentChar(p.src[j]) {
		j++
	}
	name := p.src[i:j]
	if brace {
		if j >= len(p.src) || p.src[j] != '}' {
			return "", false
		}
		j++
	}
	p.pos = j
	return name, true
}

func (p *parser) parenExpr() (expr, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return x, nil
}

func (p *parser) parseSet(start int) (node, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != '$' {
		return nil, p.errorf(p.pos, "#set needs a reference to assign to")
	}
	target, err := p.exprReference()
	if err != nil {
		return nil, err
	}
	if n := len(target.chain); n > 0 && target.chain[n-1].call {
		return nil, p.errorf(target.chain[n-1].pos-p.base, "cannot assign to a method call")
	}
	if err := p.expect('='); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return &setNode{base: base{p.base + start}, target: target, value: value}, nil
}

func (p *parser) parseIf(start int, buf *strings.Builder) (node, string, error) {
	cond, err := p.parenExpr()
	if err != nil {
		return nil, "", err
	}
	p.gobble(start, buf)

	n := &ifNode{base: base{p.base + start}}
	body, term, err := p.parseBody("elseif", "else", "end")
	if err != nil {
		return nil, "", err
	}
	n.branches = append(n.branches, ifBranch{cond: cond, body: body})

	for term == "elseif" {
		cond := p.pendingCond
		p.pendingCond = nil
		if body, term, err = p.parseBody("elseif", "else", "end"); err != nil {
			return nil, "", err
		}
		n.branches = append(n.branches, ifBranch{cond: cond, body: body})
	}
	if term == "else" {
		if n.elseBody, term, err = p.parseBody("end"); err != nil {
			return nil, "", err
		}
	}
	if term != "end" {
		return nil, "", p.errorf(start, "#if is missing its #end")
	}
	return n, "", nil
}

func (p *parser) parseForeach(start int, buf *strings.Builder) (node, string, error) {
	if err := p.expect('('); err != nil {
		return nil, "", err
	}
	p.skipSpace()
	if p.peek() != '$' || p.pos+1 >= len(p.src) || !isIdentStart(p.src[p.pos+1]) {
		return nil, "", p.errorf(p.pos, "#foreach needs a loop variable")
	}
	p.pos++
	varName := p.ident()

	p.skipSpace()
	if !p.word("in") {
		return nil, "", p.errorf(p.pos, "expected 'in' in #foreach")
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, "", err
	}
	if err := p.expect(')'); err != nil {
		return nil, "", err
	}
	p.gobble(start, buf)

	n := &foreachNode{base: base{p.base + start}, varName: varName, iterable: iterable}
	body, term, err := p.parseBody("else", "end")
	if err != nil {
		return nil, "", err
	}
	n.body = body
	if term == "else" {
		if n.elseBody, term, err = p.parseBody("end"); err != nil {
			return nil, "", err
		}
	}
	if term != "end" {
		return nil, "", p.errorf(start, "#foreach is missing its #end")
	}
	return n, "", nil
}

func (p *parser) parseMacro(start int, buf *strings.Builder) error {
	if err := p.expect('('); err != nil {
		return err
	}
	p.skipSpace()
	if !isIdentStart(p.peek()) {
		return p.errorf(p.pos, "#macro needs a name")
	}
	name := p.ident()
	if unsupportedDirectives[name] || contains([]string{"set", "if", "elseif", "else", "end", "foreach", "break", "stop", "macro"}, name) {
		return p.errorf(start, "cannot define a macro named %q", name)
	}

	var params []string
	for {
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.peek() != '$' || p.pos+1 >= len(p.src) || !isIdentStart(p.src[p.pos+1]) {
			return p.errorf(p.pos, "expected macro parameter or ')'")
		}
		p.pos++
		params = append(params, p.ident())
	}
	p.gobble(start, buf)

	body, term, err := p.parseBody("end")
	if err != nil {
		return err
	}
	if term != "end" {
		return p.errorf(start, "#macro is missing its #end")
	}
	p.macros[name] = &macroNode{base: base{p.base + start}, name: name, params: params, body: body}
	return nil
}

// macroArgs reads "(a b, c)"; arguments are separated by spaces or commas.
func (p *parser) macroArgs() ([]expr, error) {
	p.pos++ // (
	var args []expr
	for {
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case ')':
			p.pos++
			return args, nil
		case 0:
			return nil, p.errorf(p.pos, "unterminated macro call")
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
}

// reference parses a reference in text. ok is false when the '$' does not
// start one, in which case p.pos is unchanged.
func (p *parser) reference() (ref *reference, quiet bool, ok bool, err error) {
	start := p.pos
	i := p.pos + 1
	if i < len(p.src) && p.src[i] == '!' {
		quiet = true
		i++
	}
	brace := i < len(p.src) && p.src[i] == '{'
	if brace {
		i++
	}
	if i >= len(p.src) || !isIdentStart(p.src[i]) {
		return nil, false, false, nil
	}

	p.pos = i
	ref = &reference{pos: p.base + start, name: p.ident()}
	if err := p.chain(ref); err != nil {
		return nil, false, false, err
	}
	if brace {
		if p.peek() != '}' {
			p.pos = start
			return nil, false, false, nil
		}
		p.pos++
	}
	return ref, quiet, true, nil
}

// exprReference parses a reference inside an expression, where anything
// but a well formed reference is an error.
func (p *parser) exprReference() (*reference, error) {
	start := p.pos
	ref, _, ok, err := p.reference()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.errorf(start, "malformed reference")
	}
	return ref, nil
}

func (p *parser) chain(ref *reference) error {
	for p.pos < len(p.src) {
		at := p.pos
		switch c := p.src[p.pos]; {
		case c == '.' && p.pos+1 < len(p.src) && isIdentStart(p.src[p.pos+1]):
			p.pos++
			acc := accessor{pos: p.base + at, name: p.ident()}
			if p.peek() == '(' {
				args, err := p.callArgs()
				if err != nil {
					return err
				}
				acc.call = true
				acc.args = args
			}
			ref.chain = append(ref.chain, acc)

		case c == '[':
			p.pos++
			idx, err := p.parseExpr()
			if err == nil {
				p.skipSpace()
				if p.peek() == ']' {
					p.pos++
					ref.chain = append(ref.chain, accessor{pos: p.base + at, index: idx, isElem: true})
					continue
				}
			}
			// "[" that does not close an index is ordinary text
			p.pos = at
			return nil

		default:
			return nil
		}
	}
	return nil
}

// callArgs reads "(a, b)".
func (p *parser) callArgs() ([]expr, error) {
	open := p.pos
	p.pos++
	var args []expr
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		case 0:
			return nil, p.errorf(open, "unterminated argument list")
		default:
			return nil, p.errorf(p.pos, "expected ',' or ')' in argument list")
		}
	}
}

// word consumes keyword w when it is not the prefix of a longer name.
func (p *parser) word(w string) bool {
	if !strings.HasPrefix(p.src[p.pos:], w) {
		return false
	}
	end := p.pos + len(w)
	if end < len(p.src) && isIdentChar(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

// operator consumes one of ops (symbols or words) and returns its symbolic
// form.
func (p *parser) operator(ops ...string) (string, bool) {
	p.skipSpace()
	for _, op := range ops {
		if isIdentStart(op[0]) {
			if p.word(op) {
				return wordOperators[op], true
			}
			continue
		}
		if strings.HasPrefix(p.src[p.pos:], op) {
			// "!=", "<=" and ">=" are single operators
			if op == "!" && strings.HasPrefix(p.src[p.pos:], "!=") {
				continue
			}
			if (op == "<" || op == ">") && strings.HasPrefix(p.src[p.pos+1:], "=") {
				continue
			}
			p.pos += len(op)
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseExpr() (expr, error) {
	if err := p.nest(p.pos); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	return p.parseBinary(0)
}

var precedence = [][]string{
	{"||", "or"},
	{"&&", "and"},
	{"==", "!=", "eq", "ne"},
	{"<=", ">=", "<", ">", "le", "ge", "lt", "gt"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	l, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		at := p.pos
		op, ok := p.operator(precedence[level]...)
		if !ok {
			p.pos = at
			return l, nil
		}
		r, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		l = &binaryExpr{base: base{p.base + at}, op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (expr, error) {
	p.skipSpace()
	at := p.pos
	if op, ok := p.operator("!", "-", "not"); ok {
		if op == "" {
			op = "!"
		}
		if err := p.nest(at); err != nil {
			return nil, err
		}
		defer func() { p.depth-- }()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{base: base{p.base + at}, op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	p.skipSpace()
	at := p.pos
	c := p.peek()

	switch {
	case c == 0:
		return nil, p.errorf(at, "unexpected end of input in expression")
	case c == '(':
		p.pos++
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return x, nil
	case c == '$':
		ref, err := p.exprReference()
		if err != nil {
			return nil, err
		}
		return &referenceExpr{base: base{p.base + at}, ref: ref}, nil
	case c == '"' || c == '\'':
		return p.stringLiteral()
	case c == '[':
		return p.listOrRange()
	case c == '{':
		return p.mapLiteral()
	case isDigit(c):
		return p.number()
	case isIdentStart(c):
		switch {
		case p.word("true"):
			return &literalExpr{base: base{p.base + at}, value: true}, nil
		case p.word("false"):
			return &literalExpr{base: base{p.base + at}, value: false}, nil
		case p.word("null"):
			return &literalExpr{base: base{p.base + at}, value: nil}, nil
		}
		return nil, p.errorf(at, "unexpected identifier %q", p.ident())
	}
	return nil, p.errorf(at, "unexpected character %q", c)
}

func (p *parser) number() (expr, error) {
	start := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos+1 < len(p.src) && p.src[p.pos] == '.' && isDigit(p.src[p.pos+1]) {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf(start, "invalid number %q", p.src[start:p.pos])
	}
	return &literalExpr{base: base{p.base + start}, value: f}, nil
}

// stringLiteral reads a quoted string. A doubled quote stands for itself.
// Double quoted strings containing $ or # are templates of their own.
func (p *parser) stringLiteral() (expr, error) {
	q := p.src[p.pos]
	start := p.pos
	p.pos++

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "unterminated string")
		}
		c := p.src[p.pos]
		if c == q {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == q {
				b.WriteByte(q)
				p.pos += 2
				continue
			}
			p.pos++
			break
		}
		b.WriteByte(c)
		p.pos++
	}

	s := b.String()
	if q == '\'' || !strings.ContainsAny(s, "$#") {
		return &literalExpr{base: base{p.base + start}, value: s}, nil
	}

	sub := &parser{root: p.root, src: s, base: p.base + start + 1, depth: p.depth, macros: p.macros}
	body, term, err := sub.parseBody()
	if err != nil {
		return nil, err
	}
	if term != "" {
		return nil, p.errorf(start, "unexpected #%s in string", term)
	}
	return &interpolatedExpr{base: base{p.base + start}, body: body}, nil
}

func (p *parser) listOrRange() (expr, error) {
	start := p.pos
	p.pos++
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return &listExpr{base: base{p.base + start}}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "..") {
		p.pos += 2
		to, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return &rangeExpr{base: base{p.base + start}, from: first, to: to}, nil
	}

	items := []expr{first}
	for {
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, x)
		case ']':
			p.pos++
			return &listExpr{base: base{p.base + start}, items: items}, nil
		default:
			return nil, p.errorf(p.pos, "expected ',' or ']' in list")
		}
	}
}

func (p *parser) mapLiteral() (expr, error) {
	start := p.pos
	p.pos++
	m := &mapExpr{base: base{p.base + start}}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return m, nil
	}
	for {
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m.keys = append(m.keys, k)
		m.values = append(m.values, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return m, nil
		default:
			return nil, p.errorf(p.pos, "expected ',' or '}' in map")
		}
	}
}
