// Copyright 2024 cc8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cc8

import "testing"

func newTestLexer(src string) *Lexer {
	diag := &Diagnostics{}
	ss := NewSourceStack(diag)
	ss.PushString("test.c", src)
	return NewLexer(ss, diag)
}

func lexAll(l *Lexer) []*Token {
	var toks []*Token
	for {
		t := l.Lex()
		if t.Kind == TEOF {
			return toks
		}
		toks = append(toks, t)
	}
}

func TestLexIdentAndKeyword(t *testing.T) {
	l := newTestLexer("int foo return")
	toks := lexAll(l)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if !toks[0].Is(KwInt) {
		t.Errorf("toks[0] = %v, want KwInt", toks[0])
	}
	if toks[1].Kind != TIDENT || toks[1].Str != "foo" {
		t.Errorf("toks[1] = %+v, want ident foo", toks[1])
	}
	if !toks[2].Is(KwReturn) {
		t.Errorf("toks[2] = %v, want KwReturn", toks[2])
	}
}

func TestLexPunctuatorsMultiChar(t *testing.T) {
	tests := []struct {
		src string
		id  int
	}{
		{"->", KwArrow},
		{"++", KwInc},
		{"--", KwDec},
		{"<<=", KwShlEq},
		{">>=", KwShrEq},
		{"==", KwEQ},
		{"!=", KwNE},
		{"&&", KwLogAnd},
		{"||", KwLogOr},
		{"...", KwEllipsis},
	}
	for _, tc := range tests {
		l := newTestLexer(tc.src)
		toks := lexAll(l)
		if len(toks) != 1 {
			t.Errorf("%q: got %d tokens, want 1", tc.src, len(toks))
			continue
		}
		if !toks[0].Is(tc.id) {
			t.Errorf("%q: got keyword id %d, want %d", tc.src, toks[0].KeywordID, tc.id)
		}
	}
}

func TestLexPunctuatorDisambiguation(t *testing.T) {
	// "-" alone is not "--"; "<" alone is not "<<".
	l := newTestLexer("- < <<")
	toks := lexAll(l)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if !toks[0].Is('-') || !toks[1].Is('<') || !toks[2].Is(KwShl) {
		t.Errorf("got %v %v %v", toks[0], toks[1], toks[2])
	}
}

func TestLexStringLiteralEscapes(t *testing.T) {
	l := newTestLexer(`"a\nb\t\"c"`)
	toks := lexAll(l)
	if len(toks) != 1 || toks[0].Kind != TSTRING {
		t.Fatalf("got %+v, want one string token", toks)
	}
	want := "a\nb\t\"c"
	if toks[0].Str != want {
		t.Errorf("got %q, want %q", toks[0].Str, want)
	}
}

func TestLexCharLiteral(t *testing.T) {
	l := newTestLexer(`'\n' 'x' '\0'`)
	toks := lexAll(l)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	wants := []int64{10, int64('x'), 0}
	for i, w := range wants {
		if toks[i].Kind != TCHAR || toks[i].IVal != w {
			t.Errorf("toks[%d] = %+v, want char %d", i, toks[i], w)
		}
	}
}

func TestLexNumberSpellingDeferred(t *testing.T) {
	// Classification into int/float is the parser's job; the lexer keeps
	// the raw spelling, including a trailing exponent sign.
	l := newTestLexer("123 3.14 1e-10 0x1Fu")
	toks := lexAll(l)
	want := []string{"123", "3.14", "1e-10", "0x1Fu"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Kind != TNUMBER || toks[i].Str != w {
			t.Errorf("toks[%d] = %+v, want number %q", i, toks[i], w)
		}
	}
}

func TestLexLineComment(t *testing.T) {
	l := newTestLexer("int // a comment\nfoo")
	toks := lexAll(l)
	// Comments are swallowed, but the newline between them remains as a
	// TNEWLINE token (the lexer emits one per physical line).
	var kinds []TokenKind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	if len(toks) != 3 || !toks[0].Is(KwInt) || toks[1].Kind != TNEWLINE || toks[2].Str != "foo" {
		t.Errorf("got kinds %v, tokens %+v", kinds, toks)
	}
}

func TestLexBlockComment(t *testing.T) {
	l := newTestLexer("int/* multi\nline */foo")
	toks := lexAll(l)
	if len(toks) != 2 || !toks[0].Is(KwInt) || toks[1].Str != "foo" {
		t.Errorf("got %+v", toks)
	}
}

func TestLexBackslashNewlineSplice(t *testing.T) {
	l := newTestLexer("fo\\\no")
	toks := lexAll(l)
	if len(toks) != 1 || toks[0].Kind != TIDENT || toks[0].Str != "foo" {
		t.Fatalf("got %+v, want single ident \"foo\"", toks)
	}
}

func TestLexDigraphsNormalizeToCanonicalPunct(t *testing.T) {
	l := newTestLexer("<: :> <% %>")
	toks := lexAll(l)
	if len(toks) != 4 {
		t.Fatalf("got %d tokens, want 4", len(toks))
	}
	if !toks[0].Is('[') || !toks[1].Is(']') || !toks[2].Is('{') || !toks[3].Is('}') {
		t.Errorf("got %v %v %v %v", toks[0], toks[1], toks[2], toks[3])
	}
}

func TestLexEncodingPrefixes(t *testing.T) {
	l := newTestLexer(`u8"x" L'a' U"y"`)
	toks := lexAll(l)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if toks[0].Encoding != EncUTF8 || toks[1].Encoding != EncWChar || toks[2].Encoding != EncChar32 {
		t.Errorf("got encodings %v %v %v", toks[0].Encoding, toks[1].Encoding, toks[2].Encoding)
	}
}

// TestLexU8BeforeCharFallsThroughToIdent guards against treating u8 as a
// char-literal encoding prefix: C11 6.4.5 only allows it before a string,
// so u8'a' must lex as identifier "u8" followed by a separate char
// literal 'a', never as a UTF-8-encoded char literal.
func TestLexU8BeforeCharFallsThroughToIdent(t *testing.T) {
	l := newTestLexer(`u8'a'`)
	toks := lexAll(l)
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(toks), toks)
	}
	if toks[0].Kind != TIDENT || toks[0].Str != "u8" {
		t.Errorf("got first token %+v, want identifier \"u8\"", toks[0])
	}
	if toks[1].Kind != TCHAR || toks[1].Encoding != EncNone || toks[1].IVal != 'a' {
		t.Errorf("got second token %+v, want an unencoded char literal 'a'", toks[1])
	}
}

func TestLexUngetTokenRoundTrips(t *testing.T) {
	l := newTestLexer("a b c")
	first := l.Lex()
	l.UngetToken(first)
	again := l.Lex()
	if again.Str != first.Str {
		t.Fatalf("got %q after unget, want %q", again.Str, first.Str)
	}
	second := l.Lex()
	if second.Str != "b" {
		t.Fatalf("got %q, want \"b\"", second.Str)
	}
}

func TestLexAltBufferSwap(t *testing.T) {
	l := newTestLexer("real")
	alt := []*Token{{Kind: TIDENT, Str: "replaced"}}
	l.SetInputBuffer(alt)
	t1 := l.Lex()
	if t1.Str != "replaced" {
		t.Fatalf("got %q from altbuffer, want %q", t1.Str, "replaced")
	}
	l.RestoreInputBuffer()
	t2 := l.Lex()
	if t2.Str != "real" {
		t.Fatalf("got %q after restore, want %q", t2.Str, "real")
	}
}
