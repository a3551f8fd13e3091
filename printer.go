// printer.go — deterministic formatting of programs and results.
//
// FormatProgram is the formatter behind `stg fmt` and the parser tests'
// round-trip oracle: Parse(FormatProgram(p)) reproduces p for every
// syntactically valid program. Result rendering covers the shallow form
// (suspended fields as @addr) and a deep form that forces constructor
// fields through a quiescent machine.
package stg

import (
	"fmt"
	"strconv"
	"strings"
)

/* ---------- programs ---------- */

// FormatProgram renders a program in the canonical layout: one top-level
// binding per paragraph, let/case bodies indented two spaces per level.
func FormatProgram(p *Program) string {
	o := &out{b: &strings.Builder{}}
	for i, b := range p.Binds {
		if i > 0 {
			o.b.WriteString("\n")
		}
		o.binding(b)
		o.b.WriteString("\n")
	}
	return o.b.String()
}

// FormatExpr renders one expression on the canonical layout.
func FormatExpr(e Expr) string {
	o := &out{b: &strings.Builder{}}
	o.expr(e)
	return o.b.String()
}

// FormatValue renders a machine word.
func FormatValue(v Value) string {
	if v.Tag == VInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return fmt.Sprintf("@%d", v.Addr)
}

// FormatResult renders a terminal value shallowly; constructor fields
// that are still suspended show as their addresses.
func FormatResult(r Result) string {
	if r.Kind == ResultInt {
		return strconv.FormatInt(r.Int, 10)
	}
	if len(r.Args) == 0 {
		return r.Tag + " {}"
	}
	parts := make([]string, len(r.Args))
	for i, v := range r.Args {
		parts[i] = FormatValue(v)
	}
	return r.Tag + " {" + strings.Join(parts, ", ") + "}"
}

// FormatResultDeep renders a terminal value, forcing constructor fields
// to WHNF through m (which must be quiescent) down to maxDepth levels.
// Deeper fields render shallowly.
func FormatResultDeep(m *Machine, r Result, maxDepth int) (string, error) {
	return deepResult(m, r, maxDepth)
}

//// END_OF_PUBLIC

/* ---------- small writer with indentation ---------- */

type out struct {
	b     *strings.Builder
	depth int
}

func (o *out) indent()  { o.depth++ }
func (o *out) outdent() { o.depth-- }
func (o *out) newline() {
	o.b.WriteString("\n")
	o.b.WriteString(strings.Repeat("  ", o.depth))
}

func (o *out) binding(b Binding) {
	o.b.WriteString(b.Name)
	o.b.WriteString(" = ")
	o.lambda(b.LF)
}

func (o *out) lambda(lf *LambdaForm) {
	o.varList(lf.Free)
	if lf.Update {
		o.b.WriteString(` \u `)
	} else {
		o.b.WriteString(` \n `)
	}
	o.varList(lf.Params)
	o.b.WriteString(" ->")
	if isCompound(lf.Body) {
		o.indent()
		o.newline()
		o.expr(lf.Body)
		o.outdent()
	} else {
		o.b.WriteString(" ")
		o.expr(lf.Body)
	}
}

func (o *out) varList(names []string) {
	o.b.WriteString("{")
	o.b.WriteString(strings.Join(names, ", "))
	o.b.WriteString("}")
}

func (o *out) expr(e Expr) {
	switch n := e.(type) {
	case Lit:
		o.b.WriteString(strconv.FormatInt(n.Val, 10))

	case App:
		o.b.WriteString(n.Fun)
		if len(n.Args) > 0 {
			o.b.WriteString(" ")
			o.atomList(n.Args)
		}

	case Con:
		o.b.WriteString(n.Tag)
		o.b.WriteString(" ")
		o.atomList(n.Args)

	case Prim:
		o.b.WriteString(n.Op)
		o.b.WriteString(" ")
		o.atomList(n.Args)

	case Let:
		if n.Rec {
			o.b.WriteString("letrec ")
		} else {
			o.b.WriteString("let ")
		}
		o.indent()
		for i, b := range n.Binds {
			if i > 0 {
				o.b.WriteString(";")
				o.newline()
			}
			o.binding(b)
		}
		o.outdent()
		o.newline()
		o.b.WriteString("in ")
		o.expr(n.Body)

	case Case:
		o.b.WriteString("case ")
		o.expr(n.Scrut)
		o.b.WriteString(" of {")
		o.indent()
		for i, alt := range n.Alts {
			if i > 0 {
				o.b.WriteString(";")
			}
			o.newline()
			o.alt(alt)
		}
		o.outdent()
		o.newline()
		o.b.WriteString("}")
	}
}

func (o *out) alt(a Alt) {
	switch {
	case a.Con != "":
		o.b.WriteString(a.Con)
		o.b.WriteString(" ")
		o.varList(a.Binds)
	case a.IsLit:
		o.b.WriteString(strconv.FormatInt(a.Lit, 10))
	default:
		name := a.Bind
		if name == "" {
			name = "_"
		}
		o.b.WriteString(name)
	}
	o.b.WriteString(" -> ")
	o.expr(a.Body)
}

func (o *out) atomList(atoms []Atom) {
	o.b.WriteString("{")
	for i, a := range atoms {
		if i > 0 {
			o.b.WriteString(", ")
		}
		switch at := a.(type) {
		case VarAtom:
			o.b.WriteString(at.Name)
		case LitAtom:
			o.b.WriteString(strconv.FormatInt(at.Val, 10))
		}
	}
	o.b.WriteString("}")
}

func isCompound(e Expr) bool {
	switch e.(type) {
	case Let, Case:
		return true
	default:
		return false
	}
}

/* ---------- deep result rendering ---------- */

func deepResult(m *Machine, r Result, depth int) (string, error) {
	if r.Kind == ResultInt {
		return strconv.FormatInt(r.Int, 10), nil
	}
	if len(r.Args) == 0 {
		return r.Tag + " {}", nil
	}
	parts := make([]string, len(r.Args))
	for i, v := range r.Args {
		if depth <= 0 || v.Tag == VInt {
			parts[i] = FormatValue(v)
			continue
		}
		sub, err := m.ForceValue(v)
		if err != nil {
			return "", err
		}
		s, err := deepResult(m, sub, depth-1)
		if err != nil {
			return "", err
		}
		if sub.Kind == ResultCon && len(sub.Args) > 0 {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return r.Tag + " {" + strings.Join(parts, ", ") + "}", nil
}

/* ---------- trace summaries ---------- */

// summarizeExpr is a one-line description for the machine's trace log.
func summarizeExpr(e Expr) string {
	switch n := e.(type) {
	case Lit:
		return strconv.FormatInt(n.Val, 10)
	case App:
		if len(n.Args) == 0 {
			return n.Fun
		}
		return fmt.Sprintf("%s/%d", n.Fun, len(n.Args))
	case Con:
		return fmt.Sprintf("%s/%d", n.Tag, len(n.Args))
	case Prim:
		return fmt.Sprintf("%s/%d", n.Op, len(n.Args))
	case Let:
		kw := "let"
		if n.Rec {
			kw = "letrec"
		}
		return fmt.Sprintf("%s(%d binds)", kw, len(n.Binds))
	case Case:
		return fmt.Sprintf("case(%d alts)", len(n.Alts))
	default:
		return "?"
	}
}
