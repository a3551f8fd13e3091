// prim_test.go
package stg

import "testing"

func TestPrimTable(t *testing.T) {
	tests := []struct {
		op   string
		args []int64
		want int64
	}{
		{"+#", []int64{2, 3}, 5},
		{"-#", []int64{2, 3}, -1},
		{"*#", []int64{4, -3}, -12},
		{"/#", []int64{7, 2}, 3},
		{"/#", []int64{-7, 2}, -3},
		{"%#", []int64{7, 2}, 1},
		{"%#", []int64{-7, 2}, -1},
		{"==#", []int64{3, 3}, 1},
		{"/=#", []int64{3, 3}, 0},
		{"<#", []int64{2, 3}, 1},
		{"<=#", []int64{3, 3}, 1},
		{">#", []int64{2, 3}, 0},
		{">=#", []int64{2, 3}, 0},
		{"neg#", []int64{-8}, 8},
	}
	for _, tt := range tests {
		d, ok := primTable[tt.op]
		if !ok {
			t.Fatalf("%s not in table", tt.op)
		}
		if d.arity != len(tt.args) {
			t.Fatalf("%s arity %d, args %d", tt.op, d.arity, len(tt.args))
		}
		got, err := d.impl(tt.args)
		if err != nil {
			t.Fatalf("%s%v: %v", tt.op, tt.args, err)
		}
		if got != tt.want {
			t.Fatalf("%s%v = %d, want %d", tt.op, tt.args, got, tt.want)
		}
	}
}

func TestPrimZeroDivisor(t *testing.T) {
	for _, op := range []string{"/#", "%#"} {
		if _, err := primTable[op].impl([]int64{1, 0}); err != errZeroDivisor {
			t.Fatalf("%s by zero: %v", op, err)
		}
	}
}

func TestPrimArity(t *testing.T) {
	if n, ok := PrimArity("+#"); !ok || n != 2 {
		t.Fatalf("+#: %d %v", n, ok)
	}
	if n, ok := PrimArity("neg#"); !ok || n != 1 {
		t.Fatalf("neg#: %d %v", n, ok)
	}
	if _, ok := PrimArity("xor#"); ok {
		t.Fatalf("xor# should be unknown")
	}
}
