// prim.go — the fixed primitive-operation table.
//
// Primitives operate on unboxed int64 operands only; the operands reach a
// Prim node already evaluated (the front end case-binds anything lazy
// first). Unknown operation names are load-time errors, never runtime
// faults. Comparisons yield unboxed 1 or 0 so their results can be
// case-scrutinized with literal alternatives.
package stg

// primImpl computes one primitive application. A nil error is the normal
// path; the only failing primitives are /# and %# on a zero divisor.
type primImpl func(args []int64) (int64, error)

type primDef struct {
	arity int
	impl  primImpl
}

var primTable = map[string]primDef{
	"+#":   {2, func(a []int64) (int64, error) { return a[0] + a[1], nil }},
	"-#":   {2, func(a []int64) (int64, error) { return a[0] - a[1], nil }},
	"*#":   {2, func(a []int64) (int64, error) { return a[0] * a[1], nil }},
	"/#":   {2, primDiv},
	"%#":   {2, primMod},
	"==#":  {2, func(a []int64) (int64, error) { return b2i(a[0] == a[1]), nil }},
	"/=#":  {2, func(a []int64) (int64, error) { return b2i(a[0] != a[1]), nil }},
	"<#":   {2, func(a []int64) (int64, error) { return b2i(a[0] < a[1]), nil }},
	"<=#":  {2, func(a []int64) (int64, error) { return b2i(a[0] <= a[1]), nil }},
	">#":   {2, func(a []int64) (int64, error) { return b2i(a[0] > a[1]), nil }},
	">=#":  {2, func(a []int64) (int64, error) { return b2i(a[0] >= a[1]), nil }},
	"neg#": {1, func(a []int64) (int64, error) { return -a[0], nil }},
}

// PrimArity returns the declared arity of a primitive, or false if the
// name is not in the table. Load-time validation is built on this.
func PrimArity(op string) (int, bool) {
	d, ok := primTable[op]
	return d.arity, ok
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func primDiv(a []int64) (int64, error) {
	if a[1] == 0 {
		return 0, errZeroDivisor
	}
	return a[0] / a[1], nil
}

func primMod(a []int64) (int64, error) {
	if a[1] == 0 {
		return 0, errZeroDivisor
	}
	return a[0] % a[1], nil
}

type zeroDivisorError struct{}

func (zeroDivisorError) Error() string { return "zero divisor" }

var errZeroDivisor = zeroDivisorError{}
