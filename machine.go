// machine.go — the evaluation engine.
//
// OVERVIEW
// ========
// The machine drives a `code` state forward by repeatedly matching on the
// state and the tops of its stacks, mutating the heap and stacks, until a
// value is returned with nothing left to consume. Four states:
//
//	Eval(expr, env)       evaluate an expression under an environment
//	Enter(addr)           transfer control into the closure at addr
//	ReturnCon(tag, args)  a constructor value is ready
//	ReturnInt(n)          an unboxed integer is ready
//
// Three stacks drive control flow: the argument stack (machine words
// pushed by applications), the return stack (case continuations), and the
// update stack (pending memoizations). Update frames record stack depths
// rather than copying stacks: the depths act as barriers, so the segment
// of each stack above the newest update frame is all the code being
// evaluated on behalf of that thunk may consume.
//
// UPDATE PROTOCOL
// ===============
// Entering an updatable closure pushes an update frame and blackholes the
// slot. When a Return* state finds the return stack drained to the
// barrier, the newest update frame is popped and its target slot is
// overwritten in place with an already-evaluated closure; the barriers
// lift and the same value keeps returning. Entering a function with fewer
// arguments than its arity pops the update frame instead, overwrites the
// target with the merged partial-application closure, and re-enters the
// function with the argument barrier lifted.
//
// FAULTS
// ======
// The machine assumes its input is well typed; violations (unmatched case,
// arity misuse, dangling address, unbound name, blackhole re-entry, zero
// divisor) abort evaluation. Internally they are signalled with
// panic(machFault) and recovered only at the Run/Force boundary, where
// they surface as a *MachineError — never as a partial result. The same
// input always produces the same fault.
package stg

import (
	"fmt"
	"io"
)

////////////////////////////////////////////////////////////////////////////////
//                              MACHINE WORDS
////////////////////////////////////////////////////////////////////////////////

// ValueTag discriminates the two machine word kinds.
type ValueTag int

const (
	VAddr ValueTag = iota // heap address
	VInt                  // unboxed integer
)

// Value is a machine word: a heap address or an unboxed integer. These are
// the only things that live on the argument stack and in environments.
type Value struct {
	Tag  ValueTag
	Addr Addr
	Int  int64
}

// AddrV and IntV build machine words.
func AddrV(a Addr) Value { return Value{Tag: VAddr, Addr: a} }
func IntV(n int64) Value { return Value{Tag: VInt, Int: n} }

// String renders a debug representation.
func (v Value) String() string {
	if v.Tag == VInt {
		return fmt.Sprintf("%d", v.Int)
	}
	return fmt.Sprintf("@%d", v.Addr)
}

////////////////////////////////////////////////////////////////////////////////
//                              FAULTS
////////////////////////////////////////////////////////////////////////////////

// FaultKind classifies machine faults. The set is closed; every fault a
// run can produce is one of these.
type FaultKind int

const (
	FaultUnboundName  FaultKind = iota // name lookup failed at run time
	FaultDanglingAddr                  // address absent from the heap
	FaultNoAlternative                 // case exhausted its alternatives
	FaultNotApplicable                 // no transition rule applies (arity misuse)
	FaultBlackHole                     // re-entry of an in-progress thunk
	FaultPrim                          // primitive failure (zero divisor)
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnboundName:
		return "unbound name"
	case FaultDanglingAddr:
		return "dangling address"
	case FaultNoAlternative:
		return "no matching alternative"
	case FaultNotApplicable:
		return "no applicable rule"
	case FaultBlackHole:
		return "infinite loop (blackhole re-entered)"
	case FaultPrim:
		return "primitive fault"
	default:
		return "unknown fault"
	}
}

// MachineError is a machine fault surfaced as a Go error. Line/Col are
// 1-based and zero when no source position is known (IR built in code).
type MachineError struct {
	Kind FaultKind
	Line int
	Col  int
	Msg  string
}

func (e *MachineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("MACHINE FAULT at %d:%d: %s (%s)", e.Line, e.Col, e.Msg, e.Kind)
	}
	return fmt.Sprintf("MACHINE FAULT: %s (%s)", e.Msg, e.Kind)
}

// machFault is the internal panic payload; Run/Force recover it.
type machFault struct {
	kind FaultKind
	pos  Pos
	msg  string
}

func faultf(kind FaultKind, pos Pos, format string, args ...interface{}) {
	panic(machFault{kind: kind, pos: pos, msg: fmt.Sprintf(format, args...)})
}

////////////////////////////////////////////////////////////////////////////////
//                              RESULTS & STATS
////////////////////////////////////////////////////////////////////////////////

// ResultKind discriminates the two terminal value shapes.
type ResultKind int

const (
	ResultInt ResultKind = iota
	ResultCon
)

// Result is the machine's one output: an integer, or a constructor tag
// with its argument words (fields stay suspended unless forced).
type Result struct {
	Kind ResultKind
	Int  int64
	Tag  string
	Args []Value
}

// Stats counts the observable work of a run. Memoization properties are
// asserted through these counters.
type Stats struct {
	Steps   int // state transitions
	Updates int // update frames consumed
	Prims   int // primitive applications
}

////////////////////////////////////////////////////////////////////////////////
//                              MACHINE STATE
////////////////////////////////////////////////////////////////////////////////

type codeTag int

const (
	cEval codeTag = iota
	cEnter
	cReturnCon
	cReturnInt
)

type code struct {
	tag codeTag

	expr Expr // cEval
	env  *Env // cEval

	addr Addr // cEnter

	conTag  string  // cReturnCon
	conArgs []Value // cReturnCon

	intVal int64 // cReturnInt
}

// contFrame is a pushed case: its alternatives plus the environment at the
// point the case was entered. Popped exactly once.
type contFrame struct {
	alts []Alt
	env  *Env
	pos  Pos
}

// updateFrame records the stack depths and target thunk at the moment an
// updatable closure is entered. Consumed exactly once.
type updateFrame struct {
	argTop int
	retTop int
	target Addr
}

// Machine is one evaluation context over a loaded program. It is strictly
// sequential; nothing here is safe for concurrent use.
type Machine struct {
	prog    *Program
	heap    *Heap
	globals *Env

	args []Value
	rets []contFrame
	upds []updateFrame

	stats   Stats
	lastPos Pos

	// Trace, when non-nil, receives one line per transition.
	Trace io.Writer
}

// NewMachine validates prog (see load.go) and builds a machine with all
// top-level closures allocated and the global environment installed.
func NewMachine(prog *Program) (*Machine, error) {
	if err := Load(prog); err != nil {
		return nil, err
	}
	m := &Machine{prog: prog, heap: NewHeap(), globals: NewEnv(nil)}

	// Two-phase: every top-level name gets its address before any closure
	// captures the global frame, so globals may reference each other and
	// themselves freely.
	addrs := make([]Addr, len(prog.Binds))
	for i, b := range prog.Binds {
		addrs[i] = m.heap.Reserve()
		m.globals.Define(b.Name, AddrV(addrs[i]))
	}
	for i, b := range prog.Binds {
		m.heap.Fill(addrs[i], &Closure{LF: b.LF, Env: m.globals})
	}
	return m, nil
}

// RunSource parses, loads, and runs a program in one call.
func RunSource(src string) (Result, error) {
	prog, err := ParseProgram(src)
	if err != nil {
		return Result{}, err
	}
	m, err := NewMachine(prog)
	if err != nil {
		return Result{}, err
	}
	return m.Run()
}

// Heap exposes the machine's heap (tests, deep printing).
func (m *Machine) Heap() *Heap { return m.heap }

// Globals exposes the global environment.
func (m *Machine) Globals() *Env { return m.globals }

// Stats returns the counters accumulated so far.
func (m *Machine) Stats() Stats { return m.stats }

// Run evaluates the program entry point to its final value. The machine
// runs to completion or to a fault; a fault is returned as *MachineError
// and the result is zero.
func (m *Machine) Run() (Result, error) {
	return m.drive(code{tag: cEval, expr: App{Fun: EntryName}, env: m.globals})
}

// Force evaluates the closure at addr to weak head normal form using the
// same transition loop. It requires quiescent stacks, i.e. call it before
// a run or after one has finished; the CLI uses it to deep-print
// constructor fields and tests use it to observe sharing.
func (m *Machine) Force(addr Addr) (Result, error) {
	if len(m.args) != 0 || len(m.rets) != 0 || len(m.upds) != 0 {
		return Result{}, &MachineError{Kind: FaultNotApplicable, Msg: "force with non-empty stacks"}
	}
	return m.drive(code{tag: cEnter, addr: addr})
}

// ForceValue is Force lifted to machine words; integers are already WHNF.
func (m *Machine) ForceValue(v Value) (Result, error) {
	if v.Tag == VInt {
		return Result{Kind: ResultInt, Int: v.Int}, nil
	}
	return m.Force(v.Addr)
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
//                              TRANSITION LOOP
////////////////////////////////////////////////////////////////////////////////

func (m *Machine) drive(c code) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(machFault)
			if !ok {
				panic(r)
			}
			pos := f.pos
			if pos.Line == 0 {
				pos = m.lastPos
			}
			err = &MachineError{Kind: f.kind, Line: pos.Line, Col: pos.Col, Msg: f.msg}
			res = Result{}
		}
	}()

	for {
		m.stats.Steps++
		if m.Trace != nil {
			fmt.Fprintf(m.Trace, "%6d  %-40s  args=%d rets=%d upds=%d heap=%d\n",
				m.stats.Steps, m.codeString(c), len(m.args), len(m.rets), len(m.upds), m.heap.Size())
		}

		switch c.tag {
		case cEval:
			c = m.stepEval(c.expr, c.env)

		case cEnter:
			c = m.stepEnter(c.addr)

		case cReturnCon, cReturnInt:
			next, done := m.stepReturn(c)
			if done {
				if c.tag == cReturnInt {
					return Result{Kind: ResultInt, Int: c.intVal}, nil
				}
				return Result{Kind: ResultCon, Tag: c.conTag, Args: c.conArgs}, nil
			}
			c = next
		}
	}
}

// barriers of the newest update frame (zero with none pending)
func (m *Machine) argBarrier() int {
	if n := len(m.upds); n > 0 {
		return m.upds[n-1].argTop
	}
	return 0
}

func (m *Machine) retBarrier() int {
	if n := len(m.upds); n > 0 {
		return m.upds[n-1].retTop
	}
	return 0
}

// ───────────────────────────────── Eval ─────────────────────────────────────

func (m *Machine) stepEval(e Expr, env *Env) code {
	m.lastPos = exprPos(e)

	switch n := e.(type) {
	case Lit:
		return code{tag: cReturnInt, intVal: n.Val}

	case Con:
		return code{tag: cReturnCon, conTag: n.Tag, conArgs: m.resolveAtoms(n.Args, env)}

	case Prim:
		return m.evalPrim(n, env)

	case App:
		v := m.lookup(n.Fun, env, n.Pos)
		if v.Tag == VInt {
			if len(n.Args) > 0 {
				faultf(FaultNotApplicable, n.Pos, "integer %d applied to %d arguments", v.Int, len(n.Args))
			}
			return code{tag: cReturnInt, intVal: v.Int}
		}
		// Push right-to-left so the first argument is on top.
		resolved := m.resolveAtoms(n.Args, env)
		for i := len(resolved) - 1; i >= 0; i-- {
			m.args = append(m.args, resolved[i])
		}
		return code{tag: cEnter, addr: v.Addr}

	case Case:
		m.rets = append(m.rets, contFrame{alts: n.Alts, env: env, pos: n.Pos})
		return code{tag: cEval, expr: n.Scrut, env: env}

	case Let:
		return m.evalLet(n, env)

	default:
		faultf(FaultNotApplicable, exprPos(e), "unknown expression form %T", e)
		panic("unreachable")
	}
}

func (m *Machine) evalPrim(n Prim, env *Env) code {
	def, ok := primTable[n.Op]
	if !ok {
		// The loader rejects unknown primitives; this guards IR built
		// programmatically without Load.
		faultf(FaultNotApplicable, n.Pos, "unknown primitive %s", n.Op)
	}
	if len(n.Args) != def.arity {
		faultf(FaultNotApplicable, n.Pos, "primitive %s wants %d operands, got %d", n.Op, def.arity, len(n.Args))
	}
	ops := make([]int64, len(n.Args))
	for i, a := range n.Args {
		v := m.resolveAtom(a, env)
		if v.Tag != VInt {
			faultf(FaultNotApplicable, n.Pos, "primitive %s operand %d is not an unboxed integer", n.Op, i+1)
		}
		ops[i] = v.Int
	}
	m.stats.Prims++
	out, err := def.impl(ops)
	if err != nil {
		faultf(FaultPrim, n.Pos, "%s: %s", n.Op, err)
	}
	return code{tag: cReturnInt, intVal: out}
}

func (m *Machine) evalLet(n Let, env *Env) code {
	inner := env.Child()
	if !n.Rec {
		// Closures capture the outer environment: bindings cannot see
		// each other.
		for _, b := range n.Binds {
			addr := m.heap.Alloc(m.closure(b.LF, env, b.Pos))
			inner.Define(b.Name, AddrV(addr))
		}
		return code{tag: cEval, expr: n.Body, env: inner}
	}
	// letrec: reserve every address first, then build closures that
	// capture the extended frame, then fill.
	addrs := make([]Addr, len(n.Binds))
	for i, b := range n.Binds {
		addrs[i] = m.heap.Reserve()
		inner.Define(b.Name, AddrV(addrs[i]))
	}
	for i, b := range n.Binds {
		m.heap.Fill(addrs[i], m.closure(b.LF, inner, b.Pos))
	}
	return code{tag: cEval, expr: n.Body, env: inner}
}

// closure trims the creating environment down to the declared free list.
// The captured frame chains to the globals so top-level names stay
// visible without being listed.
func (m *Machine) closure(lf *LambdaForm, from *Env, pos Pos) *Closure {
	captured := NewEnv(m.globals)
	for _, name := range lf.Free {
		v, ok := from.Lookup(name)
		if !ok {
			faultf(FaultUnboundName, pos, "free variable %q is not in scope", name)
		}
		captured.Define(name, v)
	}
	return &Closure{LF: lf, Env: captured}
}

// ───────────────────────────────── Enter ────────────────────────────────────

func (m *Machine) stepEnter(addr Addr) code {
	for {
		if m.heap.State(addr) == slotInProgress {
			faultf(FaultBlackHole, m.lastPos, "thunk @%d entered while its own evaluation is in progress", addr)
		}
		clo := m.heap.Lookup(addr)
		arity := len(clo.LF.Params)
		avail := len(m.args) - m.argBarrier()

		if avail >= arity {
			if clo.LF.Update {
				m.upds = append(m.upds, updateFrame{
					argTop: len(m.args),
					retTop: len(m.rets),
					target: addr,
				})
				m.heap.Blackhole(addr)
			}
			env := clo.Env
			if arity > 0 {
				env = env.Child()
				for _, p := range clo.LF.Params {
					top := len(m.args) - 1
					env.Define(p, m.args[top])
					m.args = m.args[:top]
				}
			}
			return code{tag: cEval, expr: clo.LF.Body, env: env}
		}

		// Partial application: fewer arguments than the arity. Merge the
		// supplied arguments into a new closure (free list = frees ++
		// consumed params, in that order), memoize it over the pending
		// update frame's target, and re-enter with the barrier lifted.
		if len(m.upds) == 0 {
			faultf(FaultNotApplicable, m.lastPos,
				"function @%d wants %d arguments but only %d are available and no update is pending",
				addr, arity, avail)
		}
		pap := m.mergePartial(clo, avail)
		fr := m.upds[len(m.upds)-1]
		m.upds = m.upds[:len(m.upds)-1]
		m.heap.Update(fr.target, pap)
		m.stats.Updates++
	}
}

func (m *Machine) mergePartial(clo *Closure, avail int) *Closure {
	params := clo.LF.Params
	env := clo.Env.Child()
	for j := 0; j < avail; j++ {
		env.Define(params[j], m.args[len(m.args)-1-j])
	}
	free := make([]string, 0, len(clo.LF.Free)+avail)
	free = append(free, clo.LF.Free...)
	free = append(free, params[:avail]...)
	rest := make([]string, len(params)-avail)
	copy(rest, params[avail:])
	return &Closure{
		LF: &LambdaForm{
			Free:   free,
			Update: false,
			Params: rest,
			Body:   clo.LF.Body,
		},
		Env: env,
	}
}

// ──────────────────────────────── Return ────────────────────────────────────

// stepReturn handles both ReturnCon and ReturnInt: pop a continuation and
// match, or consume an update frame, or report the terminal state.
func (m *Machine) stepReturn(c code) (code, bool) {
	// A value returned while arguments sit above the barrier means some
	// closure body produced a value that was applied to arguments.
	if len(m.args) > m.argBarrier() {
		what := "constructor " + c.conTag
		if c.tag == cReturnInt {
			what = fmt.Sprintf("integer %d", c.intVal)
		}
		faultf(FaultNotApplicable, m.lastPos, "%s applied to %d pending arguments", what, len(m.args)-m.argBarrier())
	}

	if len(m.rets) > m.retBarrier() {
		fr := m.rets[len(m.rets)-1]
		m.rets = m.rets[:len(m.rets)-1]
		return m.matchAlts(c, fr), false
	}

	if len(m.upds) > 0 {
		fr := m.upds[len(m.upds)-1]
		m.upds = m.upds[:len(m.upds)-1]
		m.heap.Update(fr.target, m.valueClosure(c))
		m.stats.Updates++
		return c, false
	}

	return code{}, true
}

// valueClosure builds the already-evaluated closure written over an
// updated thunk: entering it immediately yields the same value again.
func (m *Machine) valueClosure(c code) *Closure {
	if c.tag == cReturnInt {
		return &Closure{
			LF:  &LambdaForm{Body: Lit{Val: c.intVal}},
			Env: NewEnv(m.globals),
		}
	}
	names := make([]string, len(c.conArgs))
	atoms := make([]Atom, len(c.conArgs))
	env := NewEnv(m.globals)
	for i, v := range c.conArgs {
		names[i] = fmt.Sprintf("v%d", i+1)
		atoms[i] = VarAtom{Name: names[i]}
		env.Define(names[i], v)
	}
	return &Closure{
		LF:  &LambdaForm{Free: names, Body: Con{Tag: c.conTag, Args: atoms}},
		Env: env,
	}
}

// matchAlts tries the frame's alternatives in declaration order; the
// first structural match wins and a default only fires when nothing
// before it matched.
func (m *Machine) matchAlts(c code, fr contFrame) code {
	for _, alt := range fr.alts {
		switch {
		case alt.Con != "":
			if c.tag != cReturnCon || alt.Con != c.conTag {
				continue
			}
			if len(alt.Binds) != len(c.conArgs) {
				faultf(FaultNotApplicable, alt.Pos, "pattern %s binds %d fields, constructor has %d",
					alt.Con, len(alt.Binds), len(c.conArgs))
			}
			env := fr.env.Child()
			for i, name := range alt.Binds {
				env.Define(name, c.conArgs[i])
			}
			return code{tag: cEval, expr: alt.Body, env: env}

		case alt.IsLit:
			if c.tag != cReturnInt || alt.Lit != c.intVal {
				continue
			}
			return code{tag: cEval, expr: alt.Body, env: fr.env}

		default:
			env := fr.env
			if alt.Bind != "_" && alt.Bind != "" {
				env = env.Child()
				env.Define(alt.Bind, m.returnedWord(c))
			}
			return code{tag: cEval, expr: alt.Body, env: env}
		}
	}

	if c.tag == cReturnInt {
		faultf(FaultNoAlternative, fr.pos, "no alternative matches integer %d", c.intVal)
	}
	faultf(FaultNoAlternative, fr.pos, "no alternative matches constructor %s/%d", c.conTag, len(c.conArgs))
	panic("unreachable")
}

// returnedWord converts the current return state into a machine word for
// a default alternative's binder. Integers bind directly; a constructor
// is boxed into a fresh already-evaluated heap closure.
func (m *Machine) returnedWord(c code) Value {
	if c.tag == cReturnInt {
		return IntV(c.intVal)
	}
	return AddrV(m.heap.Alloc(m.valueClosure(c)))
}

// ──────────────────────────────── helpers ───────────────────────────────────

func (m *Machine) lookup(name string, env *Env, pos Pos) Value {
	v, ok := env.Lookup(name)
	if !ok {
		faultf(FaultUnboundName, pos, "unbound name %q", name)
	}
	return v
}

func (m *Machine) resolveAtom(a Atom, env *Env) Value {
	switch at := a.(type) {
	case LitAtom:
		return IntV(at.Val)
	case VarAtom:
		return m.lookup(at.Name, env, at.Pos)
	default:
		faultf(FaultNotApplicable, Pos{}, "unknown atom form %T", a)
		panic("unreachable")
	}
}

func (m *Machine) resolveAtoms(atoms []Atom, env *Env) []Value {
	if len(atoms) == 0 {
		return nil
	}
	out := make([]Value, len(atoms))
	for i, a := range atoms {
		out[i] = m.resolveAtom(a, env)
	}
	return out
}

func (m *Machine) codeString(c code) string {
	switch c.tag {
	case cEval:
		return "Eval " + summarizeExpr(c.expr)
	case cEnter:
		return fmt.Sprintf("Enter @%d", c.addr)
	case cReturnCon:
		return fmt.Sprintf("ReturnCon %s/%d", c.conTag, len(c.conArgs))
	case cReturnInt:
		return fmt.Sprintf("ReturnInt %d", c.intVal)
	default:
		return "?"
	}
}
