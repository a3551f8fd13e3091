// syntax.go — the IR consumed by the machine.
//
// The IR is the output of an external front end: a flat list of top-level
// bindings, each a lambda form `{frees} \flag {params} -> body`. Expressions
// and atoms are closed sums; every transition rule in machine.go switches
// exhaustively over them. Atoms are never compound — the parser enforces
// that, so the machine resolves any atom in O(1).
//
// Every expression node carries a 1-based source position so machine faults
// can point back into the source text (see errors.go).
package stg

// Pos is a 1-based source coordinate attached to IR nodes by the parser.
// A zero Pos means "no position" (e.g. IR built programmatically in tests).
type Pos struct {
	Line int
	Col  int
}

// Atom is an argument position: a variable reference or an integer literal.
type Atom interface{ isAtom() }

// VarAtom references a name bound in the enclosing environment.
type VarAtom struct {
	Name string
	Pos  Pos
}

// LitAtom is an unboxed integer literal.
type LitAtom struct {
	Val int64
}

func (VarAtom) isAtom() {}
func (LitAtom) isAtom() {}

// Expr is the expression sum. The grammar is deliberately small; each
// variant corresponds to exactly one evaluation rule.
type Expr interface{ isExpr() }

// Let introduces heap closures before evaluating Body. When Rec is true the
// bindings' free lists may reference each other and themselves (letrec).
type Let struct {
	Rec   bool
	Binds []Binding
	Body  Expr
	Pos   Pos
}

// Case evaluates Scrut to WHNF and dispatches on the result. Alternatives
// are tried in declaration order; the first structural match wins.
type Case struct {
	Scrut Expr
	Alts  []Alt
	Pos   Pos
}

// App applies the function bound to Fun to already-atomic arguments.
// A bare variable reference is an App with no arguments.
type App struct {
	Fun  string
	Args []Atom
	Pos  Pos
}

// Con is a saturated constructor application.
type Con struct {
	Tag  string
	Args []Atom
	Pos  Pos
}

// Prim applies a primitive operation to fully-evaluated unboxed operands.
type Prim struct {
	Op   string
	Args []Atom
	Pos  Pos
}

// Lit is an integer literal in expression position.
type Lit struct {
	Val int64
	Pos Pos
}

func (Let) isExpr()  {}
func (Case) isExpr() {}
func (App) isExpr()  {}
func (Con) isExpr()  {}
func (Prim) isExpr() {}
func (Lit) isExpr()  {}

// Alt is one case alternative. Exactly one of the three shapes is active:
//   - Con != ""            constructor pattern `Con {Binds} -> Body`
//   - IsLit                literal pattern `Lit -> Body`
//   - neither              default; Bind names the scrutinee ("_" discards)
type Alt struct {
	Con   string
	Binds []string
	IsLit bool
	Lit   int64
	Bind  string
	Body  Expr
	Pos   Pos
}

// IsDefault reports whether the alternative matches anything.
func (a Alt) IsDefault() bool { return a.Con == "" && !a.IsLit }

// LambdaForm is a closure template: the names it captures, its update flag,
// its parameters, and its body. Updatable lambda forms must be thunks
// (no parameters); the loader rejects anything else.
type LambdaForm struct {
	Free   []string
	Update bool // true = Updatable, memoized after first evaluation
	Params []string
	Body   Expr
}

// Binding attaches a name to a lambda form, either at the top level or
// inside a let/letrec.
type Binding struct {
	Name string
	LF   *LambdaForm
	Pos  Pos
}

// Program is a parsed IR unit: top-level bindings in source order.
// Top-level names are globally in scope and need not appear in free lists.
type Program struct {
	Binds []Binding
}

// EntryName is the distinguished binding evaluated by Run.
const EntryName = "main"

// Binding looks up a top-level binding by name.
func (p *Program) Binding(name string) (Binding, bool) {
	for _, b := range p.Binds {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func exprPos(e Expr) Pos {
	switch n := e.(type) {
	case Let:
		return n.Pos
	case Case:
		return n.Pos
	case App:
		return n.Pos
	case Con:
		return n.Pos
	case Prim:
		return n.Pos
	case Lit:
		return n.Pos
	default:
		return Pos{}
	}
}
