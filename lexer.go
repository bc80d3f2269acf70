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

import "strings"

// Lexer produces tokens from a SourceStack. It owns the unget stacks
// this lexer uses: a primary buffer and an optional altbuffer
// that a macro expander would swap in to sub-lex a replacement list.
type Lexer struct {
	src  *SourceStack
	diag *Diagnostics

	buffer    []*Token
	altbuffer []*Token
	useAlt    bool
}

// NewLexer creates a lexer reading from src.
func NewLexer(src *SourceStack, diag *Diagnostics) *Lexer {
	return &Lexer{src: src, diag: diag}
}

// SetInputBuffer swaps in an alternate token buffer (e.g. a macro
// replacement list) so subsequent Lex calls drain it instead of the
// primary stream. The caller must call RestoreInputBuffer to resume.
func (l *Lexer) SetInputBuffer(tokens []*Token) {
	l.altbuffer = append([]*Token(nil), tokens...)
	l.useAlt = true
}

// RestoreInputBuffer switches lexing back to the primary stream.
func (l *Lexer) RestoreInputBuffer() {
	l.altbuffer = nil
	l.useAlt = false
}

// UngetToken pushes t back onto whichever buffer is currently active.
func (l *Lexer) UngetToken(t *Token) {
	if t == nil {
		return
	}
	if l.useAlt {
		l.altbuffer = append(l.altbuffer, t)
	} else {
		l.buffer = append(l.buffer, t)
	}
}

// Lex returns the next token, or a TEOF token at end of input.
func (l *Lexer) Lex() *Token {
	if l.useAlt {
		if n := len(l.altbuffer); n > 0 {
			t := l.altbuffer[n-1]
			l.altbuffer = l.altbuffer[:n-1]
			return t
		}
	} else if n := len(l.buffer); n > 0 {
		t := l.buffer[n-1]
		l.buffer = l.buffer[:n-1]
		return t
	}
	return l.lexDirect()
}

func isIdentStart(c int) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c int) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c int) bool { return c >= '0' && c <= '9' }

func (l *Lexer) skipHSpace() bool {
	any := false
	for {
		c := l.src.Readc()
		if c == ' ' || c == '\t' || c == '\f' || c == '\v' {
			any = true
			continue
		}
		l.src.Unreadc(c)
		return any
	}
}

// lexDirect reads the next token straight off the character source,
// ignoring both unget buffers.
func (l *Lexer) lexDirect() *Token {
	hadSpace := l.skipHSpace()
	pos := l.src.CurrentPosition()
	bol := pos.Column == 0
	c := l.src.Readc()
	if c == eof {
		return l.finish(&Token{Kind: TEOF}, pos, bol, hadSpace)
	}
	if c == '\n' {
		return l.finish(&Token{Kind: TNEWLINE}, pos, bol, hadSpace)
	}
	if c == '/' {
		c2 := l.src.Readc()
		switch c2 {
		case '/':
			l.skipLineComment()
			return l.lexDirect()
		case '*':
			l.skipBlockComment(pos)
			return l.lexDirect()
		default:
			l.src.Unreadc(c2)
		}
	}
	if isIdentStart(c) {
		return l.finish(l.lexIdentOrLiteral(c), pos, bol, hadSpace)
	}
	if isDigit(c) {
		return l.finish(l.lexNumber(c), pos, bol, hadSpace)
	}
	if c == '"' {
		return l.finish(l.lexString(EncNone), pos, bol, hadSpace)
	}
	if c == '\'' {
		return l.finish(l.lexChar(EncNone), pos, bol, hadSpace)
	}
	return l.finish(l.lexPunct(c), pos, bol, hadSpace)
}

func (l *Lexer) finish(t *Token, pos Position, bol, space bool) *Token {
	pos.Seq = l.src.NextTokenSeq()
	t.Pos = pos
	t.BOL = bol
	t.Space = space
	if t.Hideset == nil {
		t.Hideset = map[string]bool{}
	}
	return t
}

func (l *Lexer) skipLineComment() {
	for {
		c := l.src.Readc()
		if c == '\n' {
			l.src.Unreadc(c)
			return
		}
		if c == eof {
			return
		}
	}
}

func (l *Lexer) skipBlockComment(start Position) {
	var prev int
	for {
		c := l.src.Readc()
		if c == eof {
			l.diag.Errorf(start, "premature end of input in comment")
			return
		}
		if prev == '*' && c == '/' {
			return
		}
		prev = c
	}
}

// lexIdentOrLiteral scans an identifier, recognizing the L/u/U/u8 encoding
// prefixes on a following character/string literal.
func (l *Lexer) lexIdentOrLiteral(first int) *Token {
	var b strings.Builder
	b.WriteByte(byte(first))
	for {
		c := l.src.Readc()
		if isIdentCont(c) {
			b.WriteByte(byte(c))
			continue
		}
		l.src.Unreadc(c)
		break
	}
	name := b.String()
	if enc, ok := encodingPrefix(name); ok {
		c := l.src.Readc()
		if c == '"' {
			return l.lexString(enc)
		}
		// u8 is a string-only prefix (C11 6.4.5): u8'a' is never a UTF-8
		// char literal, it falls through to the identifier "u8" followed
		// by a separate char literal.
		if c == '\'' && enc != EncUTF8 {
			return l.lexChar(enc)
		}
		l.src.Unreadc(c)
	}
	if id, ok := keywords[name]; ok {
		return &Token{Kind: TKEYWORD, KeywordID: id, Str: name}
	}
	return &Token{Kind: TIDENT, Str: name}
}

func encodingPrefix(name string) (Encoding, bool) {
	switch name {
	case "L":
		return EncWChar, true
	case "u":
		return EncChar16, true
	case "U":
		return EncChar32, true
	case "u8":
		return EncUTF8, true
	}
	return EncNone, false
}

// lexNumber applies the loose recognition rule: a run starting with a
// digit, then digits/letters/dots, with +/- permitted right after an
// exponent marker. Classification into int vs. float is deferred to the
// parser.
func (l *Lexer) lexNumber(first int) *Token {
	var b strings.Builder
	b.WriteByte(byte(first))
	last := byte(first)
	for {
		c := l.src.Readc()
		if c == eof {
			break
		}
		if isDigit(c) || (isIdentStart(c) && c != '$') || c == '.' {
			b.WriteByte(byte(c))
			last = byte(c)
			continue
		}
		if (c == '+' || c == '-') && (last == 'e' || last == 'E' || last == 'p' || last == 'P') {
			b.WriteByte(byte(c))
			last = byte(c)
			continue
		}
		l.src.Unreadc(c)
		break
	}
	return &Token{Kind: TNUMBER, Str: b.String()}
}

// lexChar scans a character literal's body, up to the closing quote.
func (l *Lexer) lexChar(enc Encoding) *Token {
	pos := l.src.CurrentPosition()
	v, ok := l.readEscapedChar('\'', pos)
	if !ok {
		l.diag.Errorf(pos, "unterminated character literal")
	}
	c := l.src.Readc()
	if c != '\'' {
		l.diag.Errorf(pos, "missing terminating ' character")
	}
	return &Token{Kind: TCHAR, IVal: int64(v), Encoding: enc}
}

// lexString scans a string literal's body, up to the closing quote.
func (l *Lexer) lexString(enc Encoding) *Token {
	pos := l.src.CurrentPosition()
	var runes []rune
	for {
		c := l.src.Readc()
		if c == '"' {
			break
		}
		if c == eof || c == '\n' {
			l.diag.Errorf(pos, "unterminated string literal")
		}
		if c == '\\' {
			v, ok := l.readEscape(pos)
			if ok {
				runes = append(runes, v)
			}
			continue
		}
		runes = append(runes, rune(c))
	}
	return &Token{Kind: TSTRING, Str: string(runes), Encoding: enc}
}

// readEscapedChar reads a single (possibly escaped) character for a char
// literal; delim is the terminator to recognize-but-not-consume as an
// error condition (already consumed by caller convention: it is not
// consumed here).
func (l *Lexer) readEscapedChar(delim int, pos Position) (rune, bool) {
	c := l.src.Readc()
	if c == eof || c == delim {
		l.src.Unreadc(c)
		return 0, false
	}
	if c == '\\' {
		v, ok := l.readEscape(pos)
		return v, ok
	}
	return rune(c), true
}

// readEscape reads the body of a backslash escape (the backslash has
// already been consumed) and returns its value.
func (l *Lexer) readEscape(pos Position) (rune, bool) {
	c := l.src.Readc()
	switch c {
	case 'a':
		return 7, true
	case 'b':
		return 8, true
	case 'f':
		return 12, true
	case 'n':
		return 10, true
	case 'r':
		return 13, true
	case 't':
		return 9, true
	case 'v':
		return 11, true
	case 'e':
		return 27, true
	case '\\':
		return '\\', true
	case '\'':
		return '\'', true
	case '"':
		return '"', true
	case '?':
		return '?', true
	case '0', '1', '2', '3', '4', '5', '6', '7':
		return l.readOctalEscape(c), true
	case 'x':
		return l.readHexEscape(), true
	case 'u':
		return l.readUniversalEscape(4, pos), true
	case 'U':
		return l.readUniversalEscape(8, pos), true
	case eof:
		l.diag.Errorf(pos, "premature end of input in escape sequence")
		return 0, false
	default:
		l.diag.Warnf(pos, "unknown escape character \\%c", c)
		return rune(c), true
	}
}

func (l *Lexer) readOctalEscape(first int) rune {
	v := first - '0'
	for i := 0; i < 2; i++ {
		c := l.src.Readc()
		if c < '0' || c > '7' {
			l.src.Unreadc(c)
			break
		}
		v = v*8 + (c - '0')
	}
	return rune(v)
}

func (l *Lexer) readHexEscape() rune {
	v := 0
	any := false
	for {
		c := l.src.Readc()
		d := hexDigit(c)
		if d < 0 {
			l.src.Unreadc(c)
			break
		}
		v = v*16 + d
		any = true
	}
	_ = any
	return rune(v)
}

func hexDigit(c int) int {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return -1
}

// readUniversalEscape reads \uHHHH or \UHHHHHHHH, validating the surrogate
// and low-value ranges.
func (l *Lexer) readUniversalEscape(digits int, pos Position) rune {
	v := 0
	for i := 0; i < digits; i++ {
		c := l.src.Readc()
		d := hexDigit(c)
		if d < 0 {
			l.diag.Errorf(pos, "invalid universal character name")
			return 0
		}
		v = v*16 + d
	}
	if v >= 0xD800 && v <= 0xDFFF {
		l.diag.Errorf(pos, "universal character name refers to a surrogate code point")
	}
	if v < 0xA0 && v != '$' && v != '@' && v != '`' {
		l.diag.Errorf(pos, "universal character name below 0xA0 is not allowed")
	}
	return rune(v)
}

// lexPunct scans an operator/punctuator, including digraphs and every
// multi-character C11 operator.
func (l *Lexer) lexPunct(c int) *Token {
	two := func(c2 byte, id int) (*Token, bool) {
		n := l.src.Readc()
		if n == int(c2) {
			return &Token{Kind: TKEYWORD, KeywordID: id}, true
		}
		l.src.Unreadc(n)
		return nil, false
	}
	switch c {
	case '-':
		if t, ok := two('>', KwArrow); ok {
			return t
		}
		if t, ok := two('-', KwDec); ok {
			return t
		}
		if t, ok := two('=', KwSubEq); ok {
			return t
		}
		return punctToken('-')
	case '+':
		if t, ok := two('+', KwInc); ok {
			return t
		}
		if t, ok := two('=', KwAddEq); ok {
			return t
		}
		return punctToken('+')
	case '<':
		n := l.src.Readc()
		if n == '<' {
			if t, ok := two('=', KwShlEq); ok {
				return t
			}
			return &Token{Kind: TKEYWORD, KeywordID: KwShl}
		}
		if n == '=' {
			return &Token{Kind: TKEYWORD, KeywordID: KwLE}
		}
		if n == ':' {
			return punctToken('[')
		}
		if n == '%' {
			return punctToken('{')
		}
		l.src.Unreadc(n)
		return punctToken('<')
	case '>':
		n := l.src.Readc()
		if n == '>' {
			if t, ok := two('=', KwShrEq); ok {
				return t
			}
			return &Token{Kind: TKEYWORD, KeywordID: KwShr}
		}
		if n == '=' {
			return &Token{Kind: TKEYWORD, KeywordID: KwGE}
		}
		l.src.Unreadc(n)
		return punctToken('>')
	case '=':
		if t, ok := two('=', KwEQ); ok {
			return t
		}
		return punctToken('=')
	case '!':
		if t, ok := two('=', KwNE); ok {
			return t
		}
		return punctToken('!')
	case '&':
		if t, ok := two('&', KwLogAnd); ok {
			return t
		}
		if t, ok := two('=', KwAndEq); ok {
			return t
		}
		return punctToken('&')
	case '|':
		if t, ok := two('|', KwLogOr); ok {
			return t
		}
		if t, ok := two('=', KwOrEq); ok {
			return t
		}
		return punctToken('|')
	case '*':
		if t, ok := two('=', KwMulEq); ok {
			return t
		}
		return punctToken('*')
	case '/':
		if t, ok := two('=', KwDivEq); ok {
			return t
		}
		return punctToken('/')
	case '%':
		n := l.src.Readc()
		if n == '=' {
			return &Token{Kind: TKEYWORD, KeywordID: KwModEq}
		}
		if n == '>' {
			return punctToken('}')
		}
		if n == ':' {
			n2 := l.src.Readc()
			if n2 == '%' {
				n3 := l.src.Readc()
				if n3 == ':' {
					return &Token{Kind: TKEYWORD, KeywordID: KwHashHash}
				}
				l.src.Unreadc(n3)
				l.src.Unreadc('%')
				return &Token{Kind: TKEYWORD, KeywordID: KwHash}
			}
			l.src.Unreadc(n2)
			return &Token{Kind: TKEYWORD, KeywordID: KwHash}
		}
		l.src.Unreadc(n)
		return punctToken('%')
	case '^':
		if t, ok := two('=', KwXorEq); ok {
			return t
		}
		return punctToken('^')
	case '#':
		if t, ok := two('#', KwHashHash); ok {
			return t
		}
		return &Token{Kind: TKEYWORD, KeywordID: KwHash}
	case '.':
		n := l.src.Readc()
		if n == '.' {
			n2 := l.src.Readc()
			if n2 == '.' {
				return &Token{Kind: TKEYWORD, KeywordID: KwEllipsis}
			}
			l.src.Unreadc(n2)
			l.src.Unreadc('.')
			return punctToken('.')
		}
		l.src.Unreadc(n)
		return punctToken('.')
	case ':':
		if t, ok := two('>', 0); ok {
			_ = t
			return punctToken(']')
		}
		return punctToken(':')
	default:
		return punctToken(c)
	}
}

func punctToken(c int) *Token {
	return &Token{Kind: TKEYWORD, KeywordID: c}
}
