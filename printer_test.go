// printer_test.go
package stg

import "testing"

func TestFormatProgramLayout(t *testing.T) {
	src := `
nil  =  {} \n {}  ->  Nil {}
main = {} \u {} -> let xs = {} \u {} -> case nil of { Nil {} -> Cons {1, nil}; _ -> Nil {} } in xs
`
	want := `nil = {} \n {} -> Nil {}

main = {} \u {} ->
  let xs = {} \u {} ->
      case nil of {
        Nil {} -> Cons {1, nil};
        _ -> Nil {}
      }
  in xs
`
	p := parse(t, src)
	if got := FormatProgram(p); got != want {
		t.Fatalf("\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestFormatExpr(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`42`, `42`},
		{`f`, `f`},
		{`f {x, -1}`, `f {x, -1}`},
		{`+# {a, b}`, `+# {a, b}`},
		{`Nil {}`, `Nil {}`},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", tt.src, err)
		}
		if got := FormatExpr(e); got != tt.want {
			t.Fatalf("FormatExpr(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(IntV(-7)); got != "-7" {
		t.Fatalf("int: %q", got)
	}
	if got := FormatValue(AddrV(3)); got != "@3" {
		t.Fatalf("addr: %q", got)
	}
}

func TestFormatResult(t *testing.T) {
	r := Result{Kind: ResultInt, Int: 5}
	if got := FormatResult(r); got != "5" {
		t.Fatalf("int result: %q", got)
	}
	r = Result{Kind: ResultCon, Tag: "Nil"}
	if got := FormatResult(r); got != "Nil {}" {
		t.Fatalf("nullary: %q", got)
	}
	r = Result{Kind: ResultCon, Tag: "Cons", Args: []Value{IntV(1), AddrV(4)}}
	if got := FormatResult(r); got != "Cons {1, @4}" {
		t.Fatalf("shallow: %q", got)
	}
}

func TestFormatResultDeep(t *testing.T) {
	src := `
nil = {} \n {} -> Nil {}
main = {} \u {} ->
  let t = {} \u {} -> Cons {2, nil}
  in Cons {1, t}
`
	r, m := runSrc(t, src)
	got, err := FormatResultDeep(m, r, 3)
	if err != nil {
		t.Fatalf("FormatResultDeep: %v", err)
	}
	if got != "Cons {1, (Cons {2, Nil {}})}" {
		t.Fatalf("deep: %q", got)
	}

	// Depth 0 renders shallowly.
	got, err = FormatResultDeep(m, r, 0)
	if err != nil {
		t.Fatalf("FormatResultDeep: %v", err)
	}
	if got != FormatResult(r) {
		t.Fatalf("depth 0: %q vs %q", got, FormatResult(r))
	}
}

func TestSummarizeExpr(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`f {a, b}`, `f/2`},
		{`f`, `f`},
		{`Cons {1, 2}`, `Cons/2`},
		{`+# {1, 2}`, `+#/2`},
		{`let x = {} \u {} -> 1 in x`, `let(1 binds)`},
		{`case 1 of { _ -> 0 }`, `case(1 alts)`},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", tt.src, err)
		}
		if got := summarizeExpr(e); got != tt.want {
			t.Fatalf("summarizeExpr(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
