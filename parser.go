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

import "fmt"

// Parser is a hand-written recursive-descent parser with Pratt-style
// precedence for expressions, producing a list of top-level function
// definitions and global declarations.
type Parser struct {
	comp   *Compiler
	lex    *Lexer
	diag   *Diagnostics
	scopes *ScopeStack

	loopDepth   int
	switchDepth *switchContext

	curFunc      *NodeFuncDef
	funcLabels   map[string]*NodeLabel // source label name -> node, for goto resolution
	pendingGotos []*NodeGoto
	funcNameNode *NodeString

	// pendingParamNames is filled in by parseParamList, called while
	// parsing a declarator, and consumed by parseFunctionBody immediately
	// after: the two are different call frames, so the names have to hang
	// off the parser rather than a local.
	pendingParamNames []string

	enumConstsTable map[string]int64
	anonCounter     int
}

// switchContext tracks the innermost switch's accumulated cases, as a
// stack node so nested switches save/restore naturally.
type switchContext struct {
	outer   *switchContext
	node    *NodeSwitch
	seenInt map[int64]bool
}

// NewParser creates a parser over the compiler's lexer/scopes.
func NewParser(c *Compiler) *Parser {
	return &Parser{
		comp:   c,
		lex:    c.Lex,
		diag:   c.Diag,
		scopes: c.Scopes,
	}
}

// --- token stream helpers -------------------------------------------------

func (p *Parser) peek() *Token {
	for {
		t := p.lex.Lex()
		if t.Kind == TNEWLINE || t.Kind == TSPACE {
			continue
		}
		p.lex.UngetToken(t)
		return t
	}
}

func (p *Parser) next() *Token {
	for {
		t := p.lex.Lex()
		if t.Kind == TNEWLINE || t.Kind == TSPACE {
			continue
		}
		return t
	}
}

func (p *Parser) unget(t *Token) {
	p.lex.UngetToken(t)
}

func (p *Parser) is(id int) bool {
	return p.peek().Is(id)
}

func (p *Parser) isIdent() bool {
	return p.peek().Kind == TIDENT
}

func (p *Parser) accept(id int) bool {
	if p.is(id) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(id int) *Token {
	t := p.next()
	if !t.Is(id) {
		p.errorf(t.Pos, "expected %s, got %s", keywordSpelling(id), t.String())
	}
	return t
}

func (p *Parser) expectIdent() string {
	t := p.next()
	if t.Kind != TIDENT {
		p.errorf(t.Pos, "expected identifier, got %s", t.String())
	}
	return t.Str
}

func (p *Parser) errorf(pos Position, format string, args ...any) {
	p.diag.Errorf(pos, format, args...)
}

// --- top level -------------------------------------------------------------

// ParseProgram parses the whole translation unit.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for {
		t := p.peek()
		if t.Kind == TEOF {
			break
		}
		if t.Is(KwHash) {
			p.skipDirectiveLine()
			continue
		}
		decl := p.parseExternalDeclaration()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
	}
	return prog
}

// skipDirectiveLine discards a preprocessor directive line verbatim. Full
// macro expansion and #include resolution are out of scope;
// already-expanded directives reaching here (e.g. from an external
// preprocessing pass) are simply consumed up to the terminating newline.
func (p *Parser) skipDirectiveLine() {
	for {
		t := p.lex.Lex()
		if t.Kind == TNEWLINE || t.Kind == TEOF {
			return
		}
	}
}

// parseExternalDeclaration parses one function definition or a run of
// global declarations sharing one set of declaration-specifiers.
func (p *Parser) parseExternalDeclaration() Node {
	base, storage := p.parseDeclSpecs()
	if p.accept(';') {
		return nil // e.g. a bare "struct Foo;" forward declaration
	}
	name, ty := p.parseDeclarator(base)
	if storage.isTypedef {
		p.scopes.DeclareTypedef(name, ty)
		p.finishDeclaratorList(base, storage)
		return nil
	}
	if ty.Kind == CTFunc && p.is('{') {
		return p.parseFunctionBody(name, ty, storage)
	}
	// Global variable declaration(s), comma-separated.
	decls := &NodeBlock{}
	p.parseOneGlobal(name, ty, storage, decls)
	for p.accept(',') {
		name2, ty2 := p.parseDeclarator(base)
		p.parseOneGlobal(name2, ty2, storage, decls)
	}
	p.expect(';')
	if len(decls.Stmts) == 0 {
		return nil
	}
	if len(decls.Stmts) == 1 {
		return decls.Stmts[0]
	}
	return decls
}

func (p *Parser) parseOneGlobal(name string, ty *Ctype, storage declStorage, out *NodeBlock) {
	if prev, ok := p.scopes.LookupVarInCurrentScope(name); ok && !typesCompatible(prev.Type(), ty) {
		p.errorf(p.peek().Pos, "redeclaration of '%s' with a conflicting type", name)
	}
	gv := &NodeVar{NodeBase: NodeBase{CType: ty}, Name: name, IsLocal: false, Label: name}
	gv.Init = nil
	if storage.isStatic {
		ty.IsStatic = true
	}
	p.scopes.DeclareVar(name, gv)
	if ty.Kind == CTFunc {
		return // a prototype only declares the name; it reserves no storage
	}
	if p.accept('=') {
		init := p.parseInitializer(ty)
		gv.Init = flattenInitializer(p, init, ty, 0)
	}
	out.Stmts = append(out.Stmts, &NodeDecl{NodeBase: NodeBase{CType: voidType}, Var: gv, InitList: gv.Init})
}

// finishDeclaratorList consumes any further comma-separated declarators
// sharing a typedef's declaration-specifiers.
func (p *Parser) finishDeclaratorList(base *Ctype, storage declStorage) {
	for p.accept(',') {
		name, ty := p.parseDeclarator(base)
		if storage.isTypedef {
			p.scopes.DeclareTypedef(name, ty)
		}
	}
	p.expect(';')
}

// parseFunctionBody parses a function definition's body given its already
// parsed name/type/storage-class.
func (p *Parser) parseFunctionBody(name string, ty *Ctype, storage declStorage) Node {
	fn := &NodeFuncDef{
		NodeBase: NodeBase{Pos: p.peek().Pos, CType: voidType},
		Name:     name,
		FuncType: ty,
		IsStatic: storage.isStatic,
	}
	prevFunc, prevLabels, prevGotos, prevName := p.curFunc, p.funcLabels, p.pendingGotos, p.funcNameNode
	p.curFunc = fn
	p.funcLabels = map[string]*NodeLabel{}
	p.pendingGotos = nil
	p.funcNameNode = &NodeString{NodeBase: NodeBase{CType: NewPtrType(charType)}, Value: name}

	p.scopes.DeclareVar(name, &NodeVar{NodeBase: NodeBase{CType: ty}, Name: name, Label: name})
	p.scopes.Push()
	for i, pt := range ty.ParameterTypes {
		pname := fmt.Sprintf("__arg%d", i)
		if i < len(p.pendingParamNames) {
			pname = p.pendingParamNames[i]
		}
		lv := &NodeVar{NodeBase: NodeBase{CType: pt}, Name: pname, IsLocal: true}
		fn.Params = append(fn.Params, lv)
		p.scopes.DeclareVar(pname, lv)
	}
	p.pendingParamNames = nil

	fn.Body = p.parseCompoundStatement()
	fn.Locals = p.curFunc.Locals
	p.scopes.Pop()

	for _, g := range p.pendingGotos {
		if lbl, ok := p.funcLabels[g.Label]; ok {
			g.Resolved = lbl.Emitted
		} else {
			p.errorf(g.Pos, "use of undeclared label '%s'", g.Label)
		}
	}

	p.curFunc, p.funcLabels, p.pendingGotos, p.funcNameNode = prevFunc, prevLabels, prevGotos, prevName
	return fn
}

func (p *Parser) addLocal(v *NodeVar) {
	p.curFunc.Locals = append(p.curFunc.Locals, v)
}

// --- declaration specifiers -------------------------------------------------

// declStorage records the storage-class/function specifiers that rode
// along with a decl-spec parse; the base type itself is returned
// separately so callers can reuse it across a comma-separated declarator
// list.
type declStorage struct {
	isStatic   bool
	isExtern   bool
	isTypedef  bool
	isInline   bool
	isNoreturn bool
}

// parseDeclSpecs parses storage-class specifiers, type qualifiers, and the
// type-specifier sequence (base arithmetic types, struct/union/enum
// specifiers, or a typedef name), in any order, per C11's declaration
// grammar.
func (p *Parser) parseDeclSpecs() (*Ctype, declStorage) {
	var storage declStorage
	var kind int // 0 = unset; otherwise one of the Kw* base-type tokens
	signedSeen, unsignedSeen := false, false
	longCount := 0
	var named *Ctype

loop:
	for {
		t := p.peek()
		switch {
		case t.Is(KwStatic):
			storage.isStatic = true
			p.next()
		case t.Is(KwExtern):
			storage.isExtern = true
			p.next()
		case t.Is(KwTypedef):
			storage.isTypedef = true
			p.next()
		case t.Is(KwInline):
			storage.isInline = true
			p.next()
		case t.Is(KwNoreturn):
			storage.isNoreturn = true
			p.next()
		case t.Is(KwConst), t.Is(KwVolatile), t.Is(KwRestrict), t.Is(KwRegister),
			t.Is(KwThreadLocal), t.Is(KwAtomic):
			p.next() // qualifiers are not tracked on Ctype
		case t.Is(KwVoid):
			named = voidType
			p.next()
		case t.Is(KwBool):
			named = boolType
			p.next()
		case t.Is(KwChar):
			named = charType
			p.next()
		case t.Is(KwShort):
			kind = KwShort
			p.next()
		case t.Is(KwInt):
			kind = KwInt
			p.next()
		case t.Is(KwLong):
			longCount++
			p.next()
		case t.Is(KwFloat):
			named = floatType
			p.next()
		case t.Is(KwDouble):
			named = doubleType
			p.next()
		case t.Is(KwSigned):
			signedSeen = true
			p.next()
		case t.Is(KwUnsigned):
			unsignedSeen = true
			p.next()
		case t.Is(KwStruct), t.Is(KwUnion):
			named = p.parseStructOrUnionSpec(t.KeywordID == KwUnion)
		case t.Is(KwEnum):
			named = p.parseEnumSpec()
		case t.Is(KwAlignas):
			p.next()
			p.expect('(')
			if p.isTypeNameAhead() {
				p.parseTypeName()
			} else {
				p.parseConstantExpr()
			}
			p.expect(')')
		case t.Kind == TIDENT && named == nil && kind == 0 && longCount == 0 && !signedSeen && !unsignedSeen:
			if ty, ok := p.scopes.LookupTypedef(t.Str); ok {
				named = ty
				p.next()
			} else {
				break loop
			}
		default:
			break loop
		}
	}

	if named != nil {
		return named, storage
	}
	if longCount >= 2 {
		if unsignedSeen {
			return ullongType, storage
		}
		return llongType, storage
	}
	if longCount == 1 {
		if unsignedSeen {
			return ulongType, storage
		}
		return longType, storage
	}
	if kind == KwShort {
		if unsignedSeen {
			return ushortType, storage
		}
		return shortType, storage
	}
	if unsignedSeen {
		return uintType, storage
	}
	// kind == KwInt, or nothing recognizable was seen: default to int
	// (plain "signed" alone, or an empty spec list inside a cast/sizeof
	// context that the caller already validated).
	return intType, storage
}

// isTypeNameAhead looks one token ahead to decide whether the upcoming
// tokens start a type-name (used by sizeof/cast/_Generic/_Alignof
// disambiguation between "(expr)" and "(type)").
func (p *Parser) isTypeNameAhead() bool {
	t := p.peek()
	switch {
	case t.Is(KwVoid), t.Is(KwBool), t.Is(KwChar), t.Is(KwShort), t.Is(KwInt),
		t.Is(KwLong), t.Is(KwFloat), t.Is(KwDouble), t.Is(KwSigned), t.Is(KwUnsigned),
		t.Is(KwStruct), t.Is(KwUnion), t.Is(KwEnum), t.Is(KwConst), t.Is(KwVolatile),
		t.Is(KwRestrict), t.Is(KwAtomic):
		return true
	case t.Kind == TIDENT:
		return p.scopes.IsTypeName(t.Str)
	}
	return false
}

// parseTypeName parses a standalone type-name, as used by sizeof/cast/
// compound-literal/_Generic/_Alignof.
func (p *Parser) parseTypeName() *Ctype {
	base, _ := p.parseDeclSpecs()
	return p.abstractDeclarator(base)
}

// --- struct/union/enum specifiers ------------------------------------------

func (p *Parser) parseStructOrUnionSpec(isUnion bool) *Ctype {
	p.next() // struct/union keyword
	var tag string
	if p.isIdent() {
		tag = p.next().Str
	}
	if !p.is('{') {
		// Reference to a previously declared (possibly incomplete) tag.
		if tag == "" {
			p.errorf(p.peek().Pos, "expected struct/union tag or body")
		}
		if ty, ok := p.scopes.LookupTag(tag); ok {
			return ty
		}
		// Forward reference: register an incomplete placeholder now so
		// pointer-to-this-tag declarations type-check; Finish() mutates
		// this same pointer in place once the body is seen. Pointers to
		// it are therefore safe to hand out before the body appears.
		kind := CTStruct
		if isUnion {
			kind = CTUnion
		}
		placeholder := &Ctype{Kind: kind, TagName: tag, Size: -1}
		p.scopes.DeclareTag(tag, placeholder)
		return placeholder
	}
	p.expect('{')
	b := NewStructBuilder(isUnion)
	for !p.accept('}') {
		p.parseStructMember(b)
	}
	ty := b.Finish(tag)
	if tag != "" {
		if existing, ok := p.scopes.LookupTag(tag); ok && existing.Size < 0 {
			*existing = *ty // backpatch the forward-reference placeholder in place
			ty = existing
		} else {
			p.scopes.DeclareTag(tag, ty)
		}
	}
	return ty
}

// parseStructMember parses one member-declaration line, which may declare
// several fields (including anonymous struct/union members and bitfields)
// sharing one base type.
func (p *Parser) parseStructMember(b *StructBuilder) {
	base, _ := p.parseDeclSpecs()
	if p.accept(';') {
		if IsStructOrUnion(base) {
			b.AddAnonymousMember(base)
		}
		return
	}
	for {
		if p.accept(':') {
			width := p.parseConstantExpr()
			b.AddBitfield("", base, int(width))
		} else {
			name, ty := p.parseDeclarator(base)
			if p.accept(':') {
				width := p.parseConstantExpr()
				b.AddBitfield(name, ty, int(width))
			} else {
				b.AddField(name, ty)
			}
		}
		if !p.accept(',') {
			break
		}
	}
	p.expect(';')
}

func (p *Parser) parseEnumSpec() *Ctype {
	p.next() // enum keyword
	var tag string
	if p.isIdent() {
		tag = p.next().Str
	}
	if !p.is('{') {
		if tag != "" {
			if ty, ok := p.scopes.LookupTag(tag); ok {
				return ty
			}
		}
		return intType // incomplete enum reference: treat as int
	}
	p.expect('{')
	next := int64(0)
	for !p.is('}') {
		name := p.expectIdent()
		if p.accept('=') {
			next = p.parseConstantExpr()
		}
		p.scopes.DeclareVar(name, &NodeVar{
			NodeBase: NodeBase{CType: intType},
			Name:     name,
		})
		// Enum constants fold to plain int literals wherever referenced;
		// parsePrimary special-cases identifiers bound to an enum constant
		// via enumConsts rather than a variable.
		p.enumConsts()[name] = next
		next++
		if !p.accept(',') {
			break
		}
	}
	p.expect('}')
	if tag != "" {
		p.scopes.DeclareTag(tag, intType)
	}
	return intType
}

// enumConsts lazily allocates the parser's enum-constant table.
func (p *Parser) enumConsts() map[string]int64 {
	if p.enumConstsTable == nil {
		p.enumConstsTable = map[string]int64{}
	}
	return p.enumConstsTable
}

// --- declarators -------------------------------------------------------

// declaratorBase consumes leading '*'s (and their qualifiers), wrapping
// base in one pointer layer per star.
func (p *Parser) declaratorBase(base *Ctype) *Ctype {
	for p.accept('*') {
		for p.is(KwConst) || p.is(KwVolatile) || p.is(KwRestrict) {
			p.next()
		}
		base = NewPtrType(base)
	}
	return base
}

// parseDeclarator parses a full declarator (name plus pointer/array/
// function suffixes) given its already-parsed base type, using the
// placeholder/backpatch technique for parenthesized declarators: a
// parenthesized inner declarator is parsed against a throwaway Ctype,
// and once the trailing array/function suffixes after the parens are
// known, the placeholder is overwritten in place with the real type.
func (p *Parser) parseDeclarator(base *Ctype) (string, *Ctype) {
	ty := p.declaratorBase(base)
	if p.accept('(') {
		placeholder := &Ctype{}
		wrapped, name := p.parseDeclaratorInner(placeholder)
		p.expect(')')
		ty = p.typeSuffix(ty)
		*placeholder = *ty
		return name, wrapped
	}
	name := ""
	if p.isIdent() {
		name = p.next().Str
	}
	ty = p.typeSuffix(ty)
	return name, ty
}

// parseDeclaratorInner parses a declarator nested inside parentheses. It
// returns the full type as seen from outside the parens (wrapped, which
// may embed placeholder several pointer/array layers deep) plus the
// declared name; the caller backpatches placeholder once the suffixes
// following the closing paren are known.
func (p *Parser) parseDeclaratorInner(placeholder *Ctype) (wrapped *Ctype, name string) {
	ty := p.declaratorBase(placeholder)
	if p.accept('(') {
		inner := &Ctype{}
		innerWrapped, n := p.parseDeclaratorInner(inner)
		p.expect(')')
		ty = p.typeSuffix(ty)
		*inner = *ty
		return innerWrapped, n
	}
	if p.isIdent() {
		name = p.next().Str
	}
	ty = p.typeSuffix(ty)
	return ty, name
}

// abstractDeclarator parses a declarator with no identifier (used by
// type-names in sizeof/cast/_Generic contexts).
func (p *Parser) abstractDeclarator(base *Ctype) *Ctype {
	ty := p.declaratorBase(base)
	if p.is('(') {
		open := p.next()
		if p.is(')') || p.isDeclSpecAhead() {
			// This "(" actually opens a function-suffix parameter list,
			// not a nested declarator (an abstract declarator has no name
			// to disambiguate on).
			p.unget(open)
			return p.typeSuffix(ty)
		}
		placeholder := &Ctype{}
		wrapped := p.abstractDeclaratorInner(placeholder)
		p.expect(')')
		ty = p.typeSuffix(ty)
		*placeholder = *ty
		return wrapped
	}
	return p.typeSuffix(ty)
}

// abstractDeclaratorInner mirrors parseDeclaratorInner without a name;
// see its comment for why the wrapped type, not placeholder itself, is
// what the caller must keep.
func (p *Parser) abstractDeclaratorInner(placeholder *Ctype) (wrapped *Ctype) {
	ty := p.declaratorBase(placeholder)
	if p.accept('(') {
		inner := &Ctype{}
		innerWrapped := p.abstractDeclaratorInner(inner)
		p.expect(')')
		ty = p.typeSuffix(ty)
		*inner = *ty
		return innerWrapped
	}
	ty = p.typeSuffix(ty)
	return ty
}

// isDeclSpecAhead reports whether the next token could start a
// declaration-specifier sequence, the lookahead abstractDeclarator's
// ambiguity between "(declarator)" and "(parameter-list)" needs.
func (p *Parser) isDeclSpecAhead() bool {
	return p.isTypeNameAhead() || p.is(KwStatic) || p.is(KwExtern) || p.is(KwRegister)
}

// typeSuffix parses zero or more trailing "[n]" / "(params)" suffixes,
// nesting them in declaration order so "int a[3][4]" reads as array-of-3
// array-of-4 int, and "int *a[3]" reads as array-of-3 pointer-to-int.
func (p *Parser) typeSuffix(ty *Ctype) *Ctype {
	if p.accept('[') {
		n := -1
		for p.is(KwStatic) || p.is(KwConst) || p.is(KwRestrict) || p.is(KwVolatile) {
			p.next()
		}
		if !p.is(']') {
			n = int(p.parseConstantExpr())
		}
		p.expect(']')
		inner := p.typeSuffix(ty)
		return NewArrayType(inner, n)
	}
	if p.accept('(') {
		params, varargs := p.parseParamList()
		p.expect(')')
		return NewFuncType(ty, params, varargs)
	}
	return ty
}

// parseParamList parses a function declarator's parameter-type-list,
// stashing parameter names on the parser for parseFunctionBody to bind
// once the function's own scope exists.
func (p *Parser) parseParamList() ([]*Ctype, bool) {
	var types []*Ctype
	var names []string
	if p.is(')') {
		p.pendingParamNames = names
		return nil, false
	}
	if p.is(KwVoid) {
		save := p.peek()
		p.next()
		if p.is(')') {
			p.pendingParamNames = names
			return nil, false
		}
		p.unget(save)
	}
	for {
		if p.accept(KwEllipsis) {
			p.pendingParamNames = names
			return types, true
		}
		base, _ := p.parseDeclSpecs()
		name, ty := p.parseOptionalParamDeclarator(base)
		ty = decay(ty)
		types = append(types, ty)
		names = append(names, name)
		if !p.accept(',') {
			break
		}
	}
	p.pendingParamNames = names
	return types, false
}

// parseOptionalParamDeclarator is parseDeclarator relaxed to allow the
// parameter name to be omitted, as in a function prototype.
func (p *Parser) parseOptionalParamDeclarator(base *Ctype) (string, *Ctype) {
	ty := p.declaratorBase(base)
	if p.is('(') {
		open := p.next()
		if p.is(')') || p.isDeclSpecAhead() {
			p.unget(open)
			return "", p.typeSuffix(ty)
		}
		placeholder := &Ctype{}
		wrapped, name := p.parseDeclaratorInner(placeholder)
		p.expect(')')
		ty = p.typeSuffix(ty)
		*placeholder = *ty
		return name, wrapped
	}
	name := ""
	if p.isIdent() {
		name = p.next().Str
	}
	ty = p.typeSuffix(ty)
	return name, ty
}
