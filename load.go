// load.go — load-time validation of a parsed program.
//
// Everything here is reported before evaluation begins, never as a partial
// result: duplicate or missing top-level names, unknown primitive names,
// wrong primitive arity, unbound variable references, malformed entry
// point, updatable lambdas with parameters. The machine itself assumes a
// loaded program and treats the same conditions as faults if reached.
package stg

import "fmt"

// LoadError is a program-level diagnostic produced before evaluation.
type LoadError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("LOAD ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("LOAD ERROR: %s", e.Msg)
}

// Load validates prog. A nil return means the program is runnable:
// NewMachine calls this before allocating anything.
func Load(prog *Program) error {
	if prog == nil || len(prog.Binds) == 0 {
		return &LoadError{Msg: "empty program"}
	}

	globals := make(map[string]bool, len(prog.Binds))
	for _, b := range prog.Binds {
		if globals[b.Name] {
			return loadErrAt(b.Pos, "duplicate top-level binding %q", b.Name)
		}
		globals[b.Name] = true
	}

	entry, ok := prog.Binding(EntryName)
	if !ok {
		return &LoadError{Msg: fmt.Sprintf("program has no %q binding", EntryName)}
	}
	if len(entry.LF.Params) != 0 {
		return loadErrAt(entry.Pos, "%q must take no parameters", EntryName)
	}
	if len(entry.LF.Free) != 0 {
		return loadErrAt(entry.Pos, "%q must have an empty free-variable list", EntryName)
	}

	c := &loadChecker{globals: globals}
	for _, b := range prog.Binds {
		if len(b.LF.Free) != 0 {
			return loadErrAt(b.Pos, "top-level binding %q lists free variables; globals are always in scope", b.Name)
		}
		if err := c.lambda(b.LF, nil, b.Pos); err != nil {
			return err
		}
	}
	return nil
}

func loadErrAt(pos Pos, format string, args ...interface{}) error {
	return &LoadError{Line: pos.Line, Col: pos.Col, Msg: fmt.Sprintf(format, args...)}
}

//// END_OF_PUBLIC

// loadChecker walks lambda bodies carrying the set of locally visible
// names; global names are visible everywhere.
type loadChecker struct {
	globals map[string]bool
}

type scope struct {
	parent *scope
	names  map[string]bool
}

func (s *scope) child(names ...string) *scope {
	out := &scope{parent: s, names: make(map[string]bool, len(names))}
	for _, n := range names {
		out.names[n] = true
	}
	return out
}

func (s *scope) has(name string) bool {
	for f := s; f != nil; f = f.parent {
		if f.names[name] {
			return true
		}
	}
	return false
}

func (c *loadChecker) visible(name string, sc *scope) bool {
	return sc.has(name) || c.globals[name]
}

// lambda checks an update-flag invariant, then the body under a fresh
// scope of the declared frees and params.
func (c *loadChecker) lambda(lf *LambdaForm, enclosing *scope, pos Pos) error {
	if lf.Update && len(lf.Params) != 0 {
		return loadErrAt(pos, "updatable lambda cannot take parameters")
	}
	for _, f := range lf.Free {
		if enclosing == nil || !c.visible(f, enclosing) {
			return loadErrAt(pos, "free variable %q is not in scope", f)
		}
	}
	sc := (&scope{}).child(append(append([]string{}, lf.Free...), lf.Params...)...)
	return c.expr(lf.Body, sc)
}

func (c *loadChecker) expr(e Expr, sc *scope) error {
	switch n := e.(type) {
	case Lit:
		return nil

	case Con:
		return c.atoms(n.Args, sc, n.Pos)

	case Prim:
		arity, ok := PrimArity(n.Op)
		if !ok {
			return loadErrAt(n.Pos, "unknown primitive operation %q", n.Op)
		}
		if len(n.Args) != arity {
			return loadErrAt(n.Pos, "primitive %s wants %d operands, got %d", n.Op, arity, len(n.Args))
		}
		return c.atoms(n.Args, sc, n.Pos)

	case App:
		if !c.visible(n.Fun, sc) {
			return loadErrAt(n.Pos, "unbound name %q", n.Fun)
		}
		return c.atoms(n.Args, sc, n.Pos)

	case Case:
		if err := c.expr(n.Scrut, sc); err != nil {
			return err
		}
		sawDefault := false
		for _, alt := range n.Alts {
			if sawDefault {
				return loadErrAt(alt.Pos, "alternative after a default can never match")
			}
			inner := sc
			switch {
			case alt.Con != "":
				inner = sc.child(alt.Binds...)
			case alt.IsLit:
				// nothing bound
			default:
				sawDefault = true
				if alt.Bind != "" && alt.Bind != "_" {
					inner = sc.child(alt.Bind)
				}
			}
			if err := c.expr(alt.Body, inner); err != nil {
				return err
			}
		}
		if len(n.Alts) == 0 {
			return loadErrAt(n.Pos, "case with no alternatives")
		}
		return nil

	case Let:
		names := make([]string, len(n.Binds))
		for i, b := range n.Binds {
			names[i] = b.Name
		}
		inner := sc.child(names...)
		lambdaScope := sc
		if n.Rec {
			lambdaScope = inner
		}
		for _, b := range n.Binds {
			if err := c.lambda(b.LF, lambdaScope, b.Pos); err != nil {
				return err
			}
		}
		return c.expr(n.Body, inner)

	default:
		return loadErrAt(exprPos(e), "unknown expression form %T", e)
	}
}

func (c *loadChecker) atoms(atoms []Atom, sc *scope, pos Pos) error {
	for _, a := range atoms {
		v, ok := a.(VarAtom)
		if !ok {
			continue
		}
		if !c.visible(v.Name, sc) {
			return loadErrAt(v.Pos, "unbound name %q", v.Name)
		}
	}
	return nil
}
