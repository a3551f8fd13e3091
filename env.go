// env.go — lexical environments mapping names to machine values.
//
// Frames chain through parent; lookups walk parent-ward, so the innermost
// binding wins. Machine environments are extend-only: nested lets and case
// alternatives create child frames and never mutate an enclosing one. The
// single exception is two-phase letrec construction, which Defines into a
// frame it has just created (see machine.go).
package stg

// Env is a lexical environment frame with a parent link.
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a new frame with the given parent (which may be nil).
func NewEnv(parent *Env) *Env { return &Env{parent: parent, table: make(map[string]Value)} }

// Define binds name to v in the current frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.table[name] = v
}

// Lookup retrieves the nearest visible binding for name.
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.table[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Child returns a fresh frame extending e.
func (e *Env) Child() *Env { return NewEnv(e) }
