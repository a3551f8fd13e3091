// errors.go: user-facing error wrapping and caret-snippet rendering
//
// This module turns lexer/parser/loader diagnostics and machine faults
// into readable snippets with a caret pointing at the offending column:
//
//	PARSE ERROR at 3:12: expected '}' closing argument list
//
//	   2 | main = {} \u {} ->
//	   3 |   fact {5
//	     |          ^
//	   4 |
//
// The snippet includes up to one line of context before and after the
// error, numbers the lines, and places a caret under the 1-based column.
//
// Behavior guarantees:
//   - *LexError, *ParseError, *LoadError, and *MachineError with a known
//     position are rendered as full snippets; anything else (including
//     positionless errors) is returned unchanged.
//   - Coordinates are 1-based and clamped to the source bounds.
//   - Output is plain text, suitable for logs and terminals.
package stg

import (
	"fmt"
	"strings"
)

// WrapErrorWithSource returns an error augmented with a caret-annotated
// snippet of the provided source. Errors it does not recognize are
// returned untouched.
func WrapErrorWithSource(err error, src string) error {
	return WrapErrorWithName(err, "", src)
}

// WrapErrorWithName is WrapErrorWithSource with a source name in the
// header ("PARSE ERROR in demo.stg at 3:12: ...").
func WrapErrorWithName(err error, srcName string, src string) error {
	switch e := err.(type) {
	case *LexError:
		// Lexer Col is 0-based; render as 1-based.
		return fmt.Errorf("%s", prettyErrorString(src, "LEXICAL ERROR", srcName, e.Line, e.Col+1, e.Msg))
	case *ParseError:
		return fmt.Errorf("%s", prettyErrorString(src, "PARSE ERROR", srcName, e.Line, e.Col, e.Msg))
	case *LoadError:
		if e.Line == 0 {
			return err
		}
		return fmt.Errorf("%s", prettyErrorString(src, "LOAD ERROR", srcName, e.Line, e.Col, e.Msg))
	case *MachineError:
		if e.Line == 0 {
			return err
		}
		header := fmt.Sprintf("MACHINE FAULT (%s)", e.Kind)
		return fmt.Errorf("%s", prettyErrorString(src, header, srcName, e.Line, e.Col, e.Msg))
	default:
		return err
	}
}

//// END_OF_PUBLIC

// prettyErrorString builds a snippet with a header and a caret. It shows
// at most one previous and one next line when available. Coordinates are
// treated as 1-based and clamped to the source bounds.
func prettyErrorString(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	caretPad := col - 1
	if caretPad > len(lineTxt) {
		caretPad = len(lineTxt)
	}
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", caretPad))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
