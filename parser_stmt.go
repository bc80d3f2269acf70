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

// parseStatement dispatches on the leading token to one of the C
// statement forms; declarations are handled by parseBlockItem, one level
// up, since they are only legal directly inside a compound statement.
func (p *Parser) parseStatement() Node {
	t := p.peek()
	switch {
	case t.Is('{'):
		return p.parseCompoundStatement()
	case t.Is(KwIf):
		return p.parseIf()
	case t.Is(KwFor):
		return p.parseFor()
	case t.Is(KwWhile):
		return p.parseWhile()
	case t.Is(KwDo):
		return p.parseDo()
	case t.Is(KwSwitch):
		return p.parseSwitch()
	case t.Is(KwCase):
		return p.parseCase()
	case t.Is(KwDefault):
		return p.parseDefault()
	case t.Is(KwBreak):
		pos := p.next().Pos
		p.expect(';')
		if p.loopDepth == 0 && p.switchDepth == nil {
			p.errorf(pos, "break statement not within a loop or switch")
		}
		return &NodeBreak{NodeBase{Pos: pos, CType: voidType}}
	case t.Is(KwContinue):
		pos := p.next().Pos
		p.expect(';')
		if p.loopDepth == 0 {
			p.errorf(pos, "continue statement not within a loop")
		}
		return &NodeContinue{NodeBase{Pos: pos, CType: voidType}}
	case t.Is(KwGoto):
		return p.parseGoto()
	case t.Is(KwReturn):
		return p.parseReturn()
	case t.Is(';'):
		p.next()
		return &NodeBlock{NodeBase: NodeBase{Pos: t.Pos, CType: voidType}}
	case t.Kind == TIDENT:
		if p.isLabelAhead() {
			return p.parseLabel()
		}
		return p.parseExprStatement()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseExprStatement() Node {
	n := p.parseExpr()
	p.expect(';')
	return n
}

// isLabelAhead looks two tokens ahead for "ident :" without consuming
// either, distinguishing a label from an expression statement starting
// with an identifier.
func (p *Parser) isLabelAhead() bool {
	t1 := p.lex.Lex()
	t2 := p.lex.Lex()
	isLabel := t1.Kind == TIDENT && t2.Is(':')
	p.lex.UngetToken(t2)
	p.lex.UngetToken(t1)
	return isLabel
}

func (p *Parser) parseLabel() Node {
	t := p.next()
	p.expect(':')
	emitted := p.comp.Labels.New()
	lbl := &NodeLabel{NodeBase: NodeBase{Pos: t.Pos, CType: voidType}, Name: t.Str, Emitted: emitted}
	p.funcLabels[t.Str] = lbl
	return &NodeBlock{
		NodeBase: NodeBase{Pos: t.Pos, CType: voidType},
		Stmts:    []Node{lbl, p.parseStatement()},
	}
}

func (p *Parser) parseGoto() Node {
	pos := p.next().Pos
	name := p.expectIdent()
	p.expect(';')
	g := &NodeGoto{NodeBase: NodeBase{Pos: pos, CType: voidType}, Label: name}
	p.pendingGotos = append(p.pendingGotos, g)
	return g
}

func (p *Parser) parseReturn() Node {
	pos := p.next().Pos
	var v Node
	if !p.is(';') {
		v = p.parseExpr()
		if p.curFunc != nil {
			v = p.convert(v, p.curFunc.FuncType.ReturnType)
		}
	}
	p.expect(';')
	return &NodeReturn{NodeBase: NodeBase{Pos: pos, CType: voidType}, Value: v}
}

func (p *Parser) parseIf() Node {
	pos := p.next().Pos
	p.expect('(')
	cond := p.parseExpr()
	p.expect(')')
	then := p.parseStatement()
	var els Node
	if p.accept(KwElse) {
		els = p.parseStatement()
	}
	return &NodeIf{NodeBase: NodeBase{Pos: pos, CType: voidType}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() Node {
	pos := p.next().Pos
	p.expect('(')
	cond := p.parseExpr()
	p.expect(')')
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	return &NodeWhile{NodeBase: NodeBase{Pos: pos, CType: voidType}, Cond: cond, Body: body}
}

func (p *Parser) parseDo() Node {
	pos := p.next().Pos
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	p.expect(KwWhile)
	p.expect('(')
	cond := p.parseExpr()
	p.expect(')')
	p.expect(';')
	return &NodeDo{NodeBase: NodeBase{Pos: pos, CType: voidType}, Cond: cond, Body: body}
}

func (p *Parser) parseFor() Node {
	pos := p.next().Pos
	p.expect('(')
	p.scopes.Push()
	var init Node
	if !p.is(';') {
		if p.isDeclSpecAhead() {
			init = p.parseLocalDeclGroup()
		} else {
			init = p.parseExpr()
			p.expect(';')
		}
	} else {
		p.next()
	}
	var cond Node
	if !p.is(';') {
		cond = p.parseExpr()
	}
	p.expect(';')
	var step Node
	if !p.is(')') {
		step = p.parseExpr()
	}
	p.expect(')')
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	p.scopes.Pop()
	return &NodeFor{NodeBase: NodeBase{Pos: pos, CType: voidType}, Init: init, Cond: cond, Step: step, Body: body}
}

func (p *Parser) parseSwitch() Node {
	pos := p.next().Pos
	p.expect('(')
	tag := p.parseExpr()
	p.expect(')')
	sw := &NodeSwitch{NodeBase: NodeBase{Pos: pos, CType: voidType}, Tag: tag}
	p.switchDepth = &switchContext{outer: p.switchDepth, node: sw, seenInt: map[int64]bool{}}
	sw.Body = p.parseStatement()
	p.switchDepth = p.switchDepth.outer
	return sw
}

func (p *Parser) parseCase() Node {
	pos := p.next().Pos
	if p.switchDepth == nil {
		p.errorf(pos, "case label not within a switch statement")
	}
	lo := p.parseConstantExpr()
	hi := lo
	isRange := false
	if p.accept(KwEllipsis) { // GNU case LO ... HI extension
		hi = p.parseConstantExpr()
		isRange = true
	}
	p.expect(':')
	label := p.comp.Labels.New()
	c := &NodeCase{NodeBase: NodeBase{Pos: pos, CType: voidType}, Begin: lo, End: hi, IsRange: isRange, Label: label}
	if p.switchDepth != nil {
		if !isRange {
			if p.switchDepth.seenInt[lo] {
				p.errorf(pos, "duplicate case value '%d'", lo)
			}
			p.switchDepth.seenInt[lo] = true
		}
		p.switchDepth.node.Cases = append(p.switchDepth.node.Cases, c)
	}
	return &NodeBlock{NodeBase: NodeBase{Pos: pos, CType: voidType}, Stmts: []Node{c, p.parseStatement()}}
}

func (p *Parser) parseDefault() Node {
	pos := p.next().Pos
	if p.switchDepth == nil {
		p.errorf(pos, "default label not within a switch statement")
	}
	p.expect(':')
	label := p.comp.Labels.New()
	d := &NodeDefault{NodeBase: NodeBase{Pos: pos, CType: voidType}, Label: label}
	if p.switchDepth != nil {
		if p.switchDepth.node.Default != nil {
			p.errorf(pos, "multiple default labels in one switch")
		}
		p.switchDepth.node.Default = d
	}
	return &NodeBlock{NodeBase: NodeBase{Pos: pos, CType: voidType}, Stmts: []Node{d, p.parseStatement()}}
}

// --- compound statements / block items --------------------------------------

func (p *Parser) parseCompoundStatement() Node {
	pos := p.expect('{').Pos
	p.scopes.Push()
	blk := &NodeBlock{NodeBase: NodeBase{Pos: pos, CType: voidType}}
	for !p.accept('}') {
		blk.Stmts = append(blk.Stmts, p.parseBlockItem())
	}
	p.scopes.Pop()
	return blk
}

// parseBlockItem parses either a local declaration or a statement, the
// two things legal directly inside a compound statement's body.
func (p *Parser) parseBlockItem() Node {
	if p.isDeclSpecAhead() {
		return p.parseLocalDeclGroup()
	}
	return p.parseStatement()
}

// parseLocalDeclGroup parses one declaration line (possibly several
// comma-separated declarators sharing a base type) into a NodeBlock of
// NodeDecl statements, registering typedefs and locals as it goes.
func (p *Parser) parseLocalDeclGroup() Node {
	pos := p.peek().Pos
	base, storage := p.parseDeclSpecs()
	blk := &NodeBlock{NodeBase: NodeBase{Pos: pos, CType: voidType}}
	if p.accept(';') {
		return blk
	}
	for {
		name, ty := p.parseDeclarator(base)
		if storage.isTypedef {
			p.scopes.DeclareTypedef(name, ty)
		} else if storage.isStatic {
			ty.IsStatic = true
			label := name + "." + p.comp.Labels.New()
			gv := &NodeVar{NodeBase: NodeBase{Pos: pos, CType: ty}, Name: name, IsLocal: false, Label: label}
			p.scopes.DeclareVar(name, gv)
			if p.accept('=') {
				init := p.parseInitializer(ty)
				gv.Init = flattenInitializer(p, init, ty, 0)
			}
			blk.Stmts = append(blk.Stmts, &NodeDecl{NodeBase: NodeBase{Pos: pos, CType: voidType}, Var: gv, InitList: gv.Init})
		} else {
			lv := &NodeVar{NodeBase: NodeBase{Pos: pos, CType: ty}, Name: name, IsLocal: true}
			p.scopes.DeclareVar(name, lv)
			p.addLocal(lv)
			if p.accept('=') {
				init := p.parseInitializer(ty)
				lv.Init = flattenInitializer(p, init, ty, 0)
			}
			blk.Stmts = append(blk.Stmts, &NodeDecl{NodeBase: NodeBase{Pos: pos, CType: voidType}, Var: lv, InitList: lv.Init})
		}
		if !p.accept(',') {
			break
		}
	}
	p.expect(';')
	return blk
}
