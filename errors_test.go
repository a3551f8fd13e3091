// errors_test.go
package stg

import (
	"strings"
	"testing"
)

func TestWrapParseError(t *testing.T) {
	src := "main = {} \\u {} ->\n  fact {5\n"
	_, err := ParseProgram(src)
	if err == nil {
		t.Fatalf("want parse error")
	}
	out := WrapErrorWithName(err, "demo.stg", src).Error()
	if !strings.Contains(out, "PARSE ERROR in demo.stg") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "fact {5") || !strings.Contains(out, "^") {
		t.Fatalf("missing snippet or caret:\n%s", out)
	}
}

func TestWrapMachineFault(t *testing.T) {
	src := `main = {} \u {} -> /# {1, 0}`
	m := mustMachine(t, src)
	_, err := m.Run()
	if err == nil {
		t.Fatalf("want fault")
	}
	out := WrapErrorWithSource(err, src).Error()
	if !strings.Contains(out, "MACHINE FAULT (primitive fault)") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "/# {1, 0}") {
		t.Fatalf("missing source line:\n%s", out)
	}
}

func TestWrapUnknownErrorUntouched(t *testing.T) {
	err := &LoadError{Msg: "empty program"}
	if WrapErrorWithSource(err, "") != error(err) {
		t.Fatalf("positionless load error should pass through")
	}
}

func TestCaretClampedToLine(t *testing.T) {
	out := prettyErrorString("x\n", "PARSE ERROR", "", 1, 99, "boom")
	if !strings.Contains(out, "x") || !strings.Contains(out, "^") {
		t.Fatalf("bad snippet:\n%s", out)
	}
}
