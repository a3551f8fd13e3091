// parser.go — recursive-descent parser for the textual IR.
//
// Grammar (whitespace-insensitive, "--" line comments):
//
//	program  := binding+
//	binding  := var "=" lambda
//	lambda   := "{" vars? "}" flag "{" vars? "}" "->" expr
//	flag     := "\u" | "\n"
//	expr     := "let" binds "in" expr
//	          | "letrec" binds "in" expr
//	          | "case" expr "of" "{" alt (";" alt)* "}"
//	          | conid "{" atoms? "}"
//	          | primop "{" atoms? "}"
//	          | var "{" atoms? "}"
//	          | var
//	          | literal
//	binds    := binding (";" binding)*
//	alt      := conid "{" vars? "}" "->" expr
//	          | literal "->" expr
//	          | (var | "_") "->" expr
//
// The parser produces the closed IR sums of syntax.go directly; atoms can
// only be variables or literals, so the atom invariant holds by
// construction. Unterminated constructs at EOF produce a *ParseError with
// Incomplete set, which the REPL uses as a continue-reading probe.
package stg

import "fmt"

// ParseError is a syntax diagnostic with a 1-based location. Incomplete
// marks errors caused purely by running out of input in interactive mode.
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err is a ParseError caused by truncated
// input (REPL continuation probe).
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Incomplete
}

// ParseProgram lexes and parses a complete IR unit.
func ParseProgram(src string) (*Program, error) {
	return parseProgram(src, false)
}

// ParseProgramInteractive is ParseProgram with incomplete-input detection
// for line-at-a-time front ends.
func ParseProgramInteractive(src string) (*Program, error) {
	return parseProgram(src, true)
}

// ParseExpr parses a single expression (REPL input that is not a binding).
func ParseExpr(src string) (Expr, error) {
	return parseExpr(src, false)
}

// ParseExprInteractive is ParseExpr with incomplete-input detection.
func ParseExprInteractive(src string) (Expr, error) {
	return parseExpr(src, true)
}

func parseExpr(src string, interactive bool) (Expr, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, interactive: interactive}
	e, perr := p.expr()
	if perr != nil {
		return nil, perr
	}
	if !p.atEnd() {
		g := p.peek()
		return nil, &ParseError{Line: g.Line, Col: g.Col + 1, Msg: fmt.Sprintf("unexpected %q after expression", g.Lexeme)}
	}
	return e, nil
}

func parseProgram(src string, interactive bool) (*Program, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, interactive: interactive}
	return p.program()
}

//// END_OF_PUBLIC

type parser struct {
	toks        []Token
	i           int
	interactive bool
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) atEnd() bool { return p.peek().Type == EOF }
func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}
func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	g := p.peek()
	if g.Type == EOF {
		return Token{}, &ParseError{Line: g.Line, Col: g.Col + 1, Msg: msg, Incomplete: p.interactive}
	}
	return Token{}, &ParseError{Line: g.Line, Col: g.Col + 1, Msg: msg}
}

func (p *parser) errAt(tok Token, msg string) error {
	return &ParseError{Line: tok.Line, Col: tok.Col + 1, Msg: msg}
}

func tokPos(t Token) Pos { return Pos{Line: t.Line, Col: t.Col + 1} }

// ─────────────────────────────── productions ────────────────────────────────

func (p *parser) program() (*Program, error) {
	prog := &Program{}
	for !p.atEnd() {
		b, err := p.binding()
		if err != nil {
			return nil, err
		}
		prog.Binds = append(prog.Binds, b)
	}
	if len(prog.Binds) == 0 {
		g := p.peek()
		return nil, &ParseError{Line: g.Line, Col: g.Col + 1, Msg: "empty program", Incomplete: p.interactive}
	}
	return prog, nil
}

func (p *parser) binding() (Binding, error) {
	name, err := p.need(ID, "expected binding name")
	if err != nil {
		return Binding{}, err
	}
	if _, err := p.need(ASSIGN, fmt.Sprintf("expected '=' after binding name %q", name.Lexeme)); err != nil {
		return Binding{}, err
	}
	lf, err := p.lambdaForm()
	if err != nil {
		return Binding{}, err
	}
	return Binding{Name: name.Lexeme, LF: lf, Pos: tokPos(name)}, nil
}

func (p *parser) lambdaForm() (*LambdaForm, error) {
	free, err := p.varList("free-variable list")
	if err != nil {
		return nil, err
	}
	var update bool
	switch {
	case p.match(FLAGU):
		update = true
	case p.match(FLAGN):
		update = false
	default:
		_, err := p.need(FLAGU, `expected update flag \u or \n`)
		return nil, err
	}
	params, err := p.varList("parameter list")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ARROW, "expected '->' before lambda body"); err != nil {
		return nil, err
	}
	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &LambdaForm{Free: free, Update: update, Params: params, Body: body}, nil
}

// varList parses "{" (ID ("," ID)*)? "}".
func (p *parser) varList(what string) ([]string, error) {
	if _, err := p.need(LCURLY, fmt.Sprintf("expected '{' opening %s", what)); err != nil {
		return nil, err
	}
	var names []string
	if p.match(RCURLY) {
		return names, nil
	}
	for {
		tok, err := p.need(ID, fmt.Sprintf("expected variable in %s", what))
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Lexeme)
		if p.match(COMMA) {
			continue
		}
		break
	}
	if _, err := p.need(RCURLY, fmt.Sprintf("expected '}' closing %s", what)); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *parser) expr() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case LET, LETREC:
		return p.letExpr()
	case CASE:
		return p.caseExpr()
	case CONID:
		p.i++
		args, err := p.atomList()
		if err != nil {
			return nil, err
		}
		return Con{Tag: tok.Lexeme, Args: args, Pos: tokPos(tok)}, nil
	case PRIMOP:
		p.i++
		args, err := p.atomList()
		if err != nil {
			return nil, err
		}
		return Prim{Op: tok.Lexeme, Args: args, Pos: tokPos(tok)}, nil
	case ID:
		p.i++
		if p.peek().Type == LCURLY {
			args, err := p.atomList()
			if err != nil {
				return nil, err
			}
			return App{Fun: tok.Lexeme, Args: args, Pos: tokPos(tok)}, nil
		}
		return App{Fun: tok.Lexeme, Pos: tokPos(tok)}, nil
	case INTEGER:
		p.i++
		return Lit{Val: tok.Literal.(int64), Pos: tokPos(tok)}, nil
	case EOF:
		return nil, &ParseError{Line: tok.Line, Col: tok.Col + 1, Msg: "expected expression", Incomplete: p.interactive}
	default:
		return nil, p.errAt(tok, fmt.Sprintf("expected expression, found %q", tok.Lexeme))
	}
}

func (p *parser) letExpr() (Expr, error) {
	kw := p.peek()
	rec := kw.Type == LETREC
	p.i++

	var binds []Binding
	for {
		b, err := p.binding()
		if err != nil {
			return nil, err
		}
		binds = append(binds, b)
		if p.match(SEMI) {
			continue
		}
		break
	}
	if _, err := p.need(IN, "expected 'in' after let bindings"); err != nil {
		return nil, err
	}
	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	return Let{Rec: rec, Binds: binds, Body: body, Pos: tokPos(kw)}, nil
}

func (p *parser) caseExpr() (Expr, error) {
	kw := p.peek()
	p.i++

	scrut, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(OF, "expected 'of' after case scrutinee"); err != nil {
		return nil, err
	}
	if _, err := p.need(LCURLY, "expected '{' opening case alternatives"); err != nil {
		return nil, err
	}

	var alts []Alt
	for {
		alt, err := p.alternative()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
		if p.match(SEMI) {
			continue
		}
		break
	}
	if _, err := p.need(RCURLY, "expected '}' closing case alternatives"); err != nil {
		return nil, err
	}
	return Case{Scrut: scrut, Alts: alts, Pos: tokPos(kw)}, nil
}

func (p *parser) alternative() (Alt, error) {
	tok := p.peek()
	switch tok.Type {
	case CONID:
		p.i++
		binds, err := p.varList("constructor pattern")
		if err != nil {
			return Alt{}, err
		}
		body, err := p.altBody()
		if err != nil {
			return Alt{}, err
		}
		return Alt{Con: tok.Lexeme, Binds: binds, Body: body, Pos: tokPos(tok)}, nil

	case INTEGER:
		p.i++
		body, err := p.altBody()
		if err != nil {
			return Alt{}, err
		}
		return Alt{IsLit: true, Lit: tok.Literal.(int64), Body: body, Pos: tokPos(tok)}, nil

	case ID, WILD:
		p.i++
		body, err := p.altBody()
		if err != nil {
			return Alt{}, err
		}
		return Alt{Bind: tok.Lexeme, Body: body, Pos: tokPos(tok)}, nil

	case EOF:
		return Alt{}, &ParseError{Line: tok.Line, Col: tok.Col + 1, Msg: "expected case alternative", Incomplete: p.interactive}
	default:
		return Alt{}, p.errAt(tok, fmt.Sprintf("expected case alternative, found %q", tok.Lexeme))
	}
}

func (p *parser) altBody() (Expr, error) {
	if _, err := p.need(ARROW, "expected '->' after case pattern"); err != nil {
		return nil, err
	}
	return p.expr()
}

// atomList parses "{" (atom ("," atom)*)? "}".
func (p *parser) atomList() ([]Atom, error) {
	if _, err := p.need(LCURLY, "expected '{' opening argument list"); err != nil {
		return nil, err
	}
	var atoms []Atom
	if p.match(RCURLY) {
		return atoms, nil
	}
	for {
		tok := p.peek()
		switch tok.Type {
		case ID:
			p.i++
			atoms = append(atoms, VarAtom{Name: tok.Lexeme, Pos: tokPos(tok)})
		case INTEGER:
			p.i++
			atoms = append(atoms, LitAtom{Val: tok.Literal.(int64)})
		case EOF:
			return nil, &ParseError{Line: tok.Line, Col: tok.Col + 1, Msg: "expected atom", Incomplete: p.interactive}
		default:
			return nil, p.errAt(tok, fmt.Sprintf("expected atom (variable or literal), found %q", tok.Lexeme))
		}
		if p.match(COMMA) {
			continue
		}
		break
	}
	if _, err := p.need(RCURLY, "expected '}' closing argument list"); err != nil {
		return nil, err
	}
	return atoms, nil
}
