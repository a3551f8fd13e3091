// heap.go — the closure store.
//
// The heap is an arena of slots addressed by index. Addresses are stable
// for the lifetime of the slot: allocation appends, update overwrites in
// place, and nothing ever moves. Collection policy is out of scope; Drop
// vacates a slot explicitly and a vacated or out-of-range address is a
// machine fault at lookup, never a silent nil.
//
// Slot states track the update protocol:
//
//	slotReserved    address handed out, closure not yet filled (letrec)
//	slotThunk       closure present, not yet entered for update
//	slotInProgress  updatable closure entered, result pending (blackhole)
//	slotValue       overwritten with its final value
package stg

// Addr is a stable heap address (slot index).
type Addr int

type slotState int

const (
	slotReserved slotState = iota
	slotThunk
	slotInProgress
	slotValue
	slotDropped
)

// Closure pairs a lambda form with the environment supplying its free
// variables. The heap slot owns the closure exclusively until it is
// updated or dropped; the environment holds shared addresses, not copies.
type Closure struct {
	LF  *LambdaForm
	Env *Env
}

type slot struct {
	state slotState
	clo   *Closure
}

// Heap is a growable slot arena. It is mutated only by the single
// evaluation goroutine (allocation and update-on-return), so it carries
// no locking.
type Heap struct {
	slots  []slot
	allocs int
}

// NewHeap returns an empty heap.
func NewHeap() *Heap { return &Heap{} }

// Size returns the number of slots ever allocated (including dropped).
func (h *Heap) Size() int { return len(h.slots) }

// Allocs returns the total allocation count (reserve included).
func (h *Heap) Allocs() int { return h.allocs }

// Alloc stores a closure in a fresh slot and returns its address.
func (h *Heap) Alloc(c *Closure) Addr {
	h.allocs++
	h.slots = append(h.slots, slot{state: slotThunk, clo: c})
	return Addr(len(h.slots) - 1)
}

// Reserve hands out an address whose closure will be filled later.
// Two-phase construction is how letrec closures capture their own
// (now-known) addresses without true cyclic initialization.
func (h *Heap) Reserve() Addr {
	h.allocs++
	h.slots = append(h.slots, slot{state: slotReserved})
	return Addr(len(h.slots) - 1)
}

// Fill completes a reserved slot.
func (h *Heap) Fill(a Addr, c *Closure) {
	s := h.at(a)
	if s.state != slotReserved {
		faultf(FaultDanglingAddr, Pos{}, "fill of non-reserved address %d", a)
	}
	s.state = slotThunk
	s.clo = c
}

// Lookup returns the closure at a. Reserved, dropped, and out-of-range
// addresses are machine faults.
func (h *Heap) Lookup(a Addr) *Closure {
	s := h.at(a)
	switch s.state {
	case slotReserved:
		faultf(FaultDanglingAddr, Pos{}, "address %d entered before initialization", a)
	case slotDropped:
		faultf(FaultDanglingAddr, Pos{}, "address %d was dropped", a)
	}
	return s.clo
}

// State exposes the slot state for a (tests and the trace log).
func (h *Heap) State(a Addr) slotState { return h.at(a).state }

// Blackhole marks an updatable closure as entered-but-not-yet-updated.
// Re-entering the address while the mark is present is a fault in Enter,
// not an infinite loop.
func (h *Heap) Blackhole(a Addr) {
	h.at(a).state = slotInProgress
}

// Update overwrites the slot in place with the closure's final value form.
// Every alias of a observes the new closure immediately.
func (h *Heap) Update(a Addr, c *Closure) {
	s := h.at(a)
	if s.state == slotDropped {
		faultf(FaultDanglingAddr, Pos{}, "update of dropped address %d", a)
	}
	s.state = slotValue
	s.clo = c
}

// Drop vacates a slot. Further lookups fault.
func (h *Heap) Drop(a Addr) {
	s := h.at(a)
	s.state = slotDropped
	s.clo = nil
}

func (h *Heap) at(a Addr) *slot {
	if a < 0 || int(a) >= len(h.slots) {
		faultf(FaultDanglingAddr, Pos{}, "address %d outside heap of %d slots", a, len(h.slots))
	}
	return &h.slots[a]
}
