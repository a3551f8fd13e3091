// lexer_test.go
package stg

import (
	"reflect"
	"testing"
)

func toks(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	ts, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	return ts
}

func typesWithoutEOF(tokens []Token) []TokenType {
	if len(tokens) == 0 {
		return nil
	}
	end := len(tokens)
	if tokens[end-1].Type == EOF {
		end--
	}
	out := make([]TokenType, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, tokens[i].Type)
	}
	return out
}

func wantTypes(t *testing.T, src string, want []TokenType) []Token {
	t.Helper()
	got := toks(t, src)
	gotTypes := typesWithoutEOF(got)
	if !reflect.DeepEqual(gotTypes, want) {
		t.Fatalf("\nsource:\n%s\nwant types:\n%v\ngot types:\n%v\n", src, want, gotTypes)
	}
	return got
}

func TestLexerBinding(t *testing.T) {
	src := `main = {} \u {} -> 42`
	want := []TokenType{
		ID, ASSIGN, LCURLY, RCURLY, FLAGU, LCURLY, RCURLY, ARROW, INTEGER,
	}
	got := wantTypes(t, src, want)
	if got[8].Literal.(int64) != 42 {
		t.Fatalf("want literal 42, got %v", got[8].Literal)
	}
}

func TestLexerLambdaWithVars(t *testing.T) {
	src := `compose = {f, g} \n {x} -> g {x}`
	want := []TokenType{
		ID, ASSIGN,
		LCURLY, ID, COMMA, ID, RCURLY,
		FLAGN,
		LCURLY, ID, RCURLY,
		ARROW, ID, LCURLY, ID, RCURLY,
	}
	wantTypes(t, src, want)
}

func TestLexerKeywordsAndCase(t *testing.T) {
	src := `case n of { 0 -> 1; Cons {h, t} -> h; _ -> 9 }`
	want := []TokenType{
		CASE, ID, OF, LCURLY,
		INTEGER, ARROW, INTEGER, SEMI,
		CONID, LCURLY, ID, COMMA, ID, RCURLY, ARROW, ID, SEMI,
		WILD, ARROW, INTEGER,
		RCURLY,
	}
	wantTypes(t, src, want)
}

func TestLexerLetForms(t *testing.T) {
	wantTypes(t, `let x = {} \u {} -> 1 in x`, []TokenType{
		LET, ID, ASSIGN, LCURLY, RCURLY, FLAGU, LCURLY, RCURLY, ARROW, INTEGER, IN, ID,
	})
	wantTypes(t, `letrec f = {f} \n {n} -> n in f`, []TokenType{
		LETREC, ID, ASSIGN, LCURLY, ID, RCURLY, FLAGN, LCURLY, ID, RCURLY, ARROW, ID, IN, ID,
	})
}

func TestLexerPrimops(t *testing.T) {
	src := `+# {x, -#} ==# <=# /=# neg#`
	got := wantTypes(t, src, []TokenType{
		PRIMOP, LCURLY, ID, COMMA, PRIMOP, RCURLY, PRIMOP, PRIMOP, PRIMOP, PRIMOP,
	})
	wantLex := []string{"+#", "{", "x", ",", "-#", "}", "==#", "<=#", "/=#", "neg#"}
	for i, w := range wantLex {
		if got[i].Lexeme != w {
			t.Fatalf("token %d: want lexeme %q, got %q", i, w, got[i].Lexeme)
		}
	}
}

func TestLexerNegativeLiteral(t *testing.T) {
	got := wantTypes(t, `{-5, 7}`, []TokenType{LCURLY, INTEGER, COMMA, INTEGER, RCURLY})
	if got[1].Literal.(int64) != -5 {
		t.Fatalf("want -5, got %v", got[1].Literal)
	}
}

func TestLexerComments(t *testing.T) {
	src := `
-- whole-line comment
x = {} \n {} -> 1 -- trailing comment
`
	wantTypes(t, src, []TokenType{
		ID, ASSIGN, LCURLY, RCURLY, FLAGN, LCURLY, RCURLY, ARROW, INTEGER,
	})
}

func TestLexerPositions(t *testing.T) {
	src := "main = {}\n  \\u {} -> 1"
	got := toks(t, src)
	if got[0].Line != 1 || got[0].Col != 0 {
		t.Fatalf("main at %d:%d", got[0].Line, got[0].Col)
	}
	// the flag token starts on line 2, column 2 (0-based)
	if got[4].Type != FLAGU || got[4].Line != 2 || got[4].Col != 2 {
		t.Fatalf("flag token %v at %d:%d", got[4].Type, got[4].Line, got[4].Col)
	}
}

func TestLexerErrors(t *testing.T) {
	for _, src := range []string{
		`\x`,    // bad update flag
		`?`,     // stray character
		`Foo#`,  // uppercase primitive
		`x = -`, // dangling minus
	} {
		l := NewLexer(src)
		_, err := l.Scan()
		if err == nil {
			t.Fatalf("want lex error for %q", src)
		}
		if _, ok := err.(*LexError); !ok {
			t.Fatalf("want *LexError for %q, got %T", src, err)
		}
	}
}
