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

// genExpr evaluates n and leaves its value in %rax (integers, pointers)
// or %xmm0 (float/double), except that an aggregate-typed expression
// leaves its *address* in %rax (struct/union/array values are always
// manipulated by address, per the load() comment in codegen.go).
func (g *Codegen) genExpr(n Node) {
	switch v := n.(type) {
	case *NodeLiteral:
		g.genLiteral(v)
	case *NodeString:
		g.emitf("\tlea %s(%%rip), %%rax\n", g.ensureStringLabel(v))
	case *NodeVar:
		g.genAddr(v)
		g.load(v.Type())
	case *NodeStructRef:
		g.genAddr(v)
		g.loadBitfieldAware(v)
	case *NodeDeref:
		g.genExpr(v.Operand)
		g.load(v.Type())
	case *NodeAddr:
		g.genAddr(v.Operand)
	case *NodeAssign:
		g.genAssign(v.Left, v.Right)
	case *NodeCompoundAssign:
		g.genCompoundAssign(v)
	case *NodeIncDec:
		g.genIncDec(v)
	case *NodeBinop:
		g.genBinop(v)
	case *NodeLogical:
		g.genLogical(v)
	case *NodeUnary:
		g.genUnary(v)
	case *NodeCast:
		g.genExpr(v.Operand)
		g.genConvert(v.Operand.Type(), v.Type())
	case *NodeConv:
		g.genExpr(v.Operand)
		g.genConvert(v.Operand.Type(), v.Type())
	case *NodeTernary:
		g.genTernary(v)
	case *NodeCall:
		g.genCall(v)
	case *NodeIndirectCall:
		g.genIndirectCall(v)
	case *NodeVaStart:
		g.genVaStart(v)
	case *NodeVaArg:
		g.genVaArg(v)
	case *NodeVaEnd:
		// va_end has no runtime effect under this ABI mapping.
	default:
		panic(&fatalError{msg: fmt.Sprintf("%s: codegen: unhandled expression node", n.Position())})
	}
}

func (g *Codegen) genLiteral(v *NodeLiteral) {
	if !v.IsFloat {
		g.emitf("\tmov $%d, %%rax\n", v.IVal)
		return
	}
	label := g.ensureFloatLabel(v)
	if v.Type().Kind == CTFloat {
		g.emitf("\tmovss %s(%%rip), %%xmm0\n", label)
	} else {
		g.emitf("\tmovsd %s(%%rip), %%xmm0\n", label)
	}
}

// loadBitfieldAware loads a struct-field reference, extracting and
// sign-extending a bitfield out of its storage unit when Field.BitSize
// is nonzero; a plain field just loads normally.
func (g *Codegen) loadBitfieldAware(v *NodeStructRef) {
	f := v.Field
	if f.BitSize == 0 {
		g.load(v.Type())
		return
	}
	g.load(f.Type)
	// The unit was loaded (sign- or zero-extended) into all 64 bits of %rax.
	shiftLeft := 64 - f.BitOff - f.BitSize
	shiftRight := 64 - f.BitSize
	g.emitf("\tshl $%d, %%rax\n", shiftLeft)
	if f.Type.Unsigned {
		g.emitf("\tshr $%d, %%rax\n", shiftRight)
	} else {
		g.emitf("\tsar $%d, %%rax\n", shiftRight)
	}
}

// genAssign stores rhs's value through lhs's address. The address is
// computed and pushed first so evaluating rhs (which may itself address
// unrelated memory, or even call a function) never clobbers it.
func (g *Codegen) genAssign(lhs, rhs Node) {
	g.genAddr(lhs)
	g.emitf("\tpush %%rax\n")
	g.genExpr(rhs)
	g.emitf("\tpop %%rdi\n")
	if sr, ok := lhs.(*NodeStructRef); ok && sr.Field.BitSize != 0 {
		g.storeBitfield(sr.Field)
		return
	}
	g.storeIndirect(lhs.Type())
}

// storeBitfield stores the low BitSize bits of %rax into the bitfield's
// storage unit at (%rdi), preserving the unit's other bits.
func (g *Codegen) storeBitfield(f *Field) {
	mask := int64(1)<<uint(f.BitSize) - 1
	g.emitf("\tand $%d, %%rax\n", mask)
	g.emitf("\tmov %%rax, %%r10\n")
	g.emitf("\tshl $%d, %%r10\n", f.BitOff)
	switch f.Type.Size {
	case 1:
		g.emitf("\tmovzbl (%%rdi), %%eax\n")
	case 2:
		g.emitf("\tmovzwl (%%rdi), %%eax\n")
	case 4:
		g.emitf("\tmov (%%rdi), %%eax\n")
	default:
		g.emitf("\tmov (%%rdi), %%rax\n")
	}
	g.emitf("\tmov $%d, %%r11\n", ^(mask << uint(f.BitOff)))
	g.emitf("\tand %%r11, %%rax\n")
	g.emitf("\tor %%r10, %%rax\n")
	switch f.Type.Size {
	case 1:
		g.emitf("\tmov %%al, (%%rdi)\n")
	case 2:
		g.emitf("\tmov %%ax, (%%rdi)\n")
	case 4:
		g.emitf("\tmov %%eax, (%%rdi)\n")
	default:
		g.emitf("\tmov %%rax, (%%rdi)\n")
	}
}

func (g *Codegen) genCompoundAssign(v *NodeCompoundAssign) {
	bin := &NodeBinop{NodeBase: NodeBase{Pos: v.Pos, CType: v.Left.Type()}, Op: v.Op, Left: v.Left, Right: v.Right}
	g.genAssign(v.Left, bin)
}

func (g *Codegen) genIncDec(v *NodeIncDec) {
	delta := int64(1)
	if v.Op == KwDec {
		delta = -1
	}
	step := Node(&NodeLiteral{NodeBase: NodeBase{Pos: v.Pos, CType: intType}, IVal: delta})
	bin := &NodeBinop{NodeBase: NodeBase{Pos: v.Pos, CType: v.Operand.Type()}, Op: '+', Left: v.Operand, Right: step}
	if v.Prefix {
		g.genAssign(v.Operand, bin)
		return
	}
	g.genExpr(v.Operand)
	if IsFlotype(v.Operand.Type()) {
		g.emitf("\tmovsd %%xmm0, %%xmm1\n")
	} else {
		g.emitf("\tpush %%rax\n")
	}
	g.genAssign(v.Operand, bin)
	if IsFlotype(v.Operand.Type()) {
		g.emitf("\tmovsd %%xmm1, %%xmm0\n")
	} else {
		g.emitf("\tpop %%rax\n")
	}
}

// genBinop implements the push/left, compute-right, pop/left evaluation
// order: the left operand's value sits on the stack while the right
// operand (which may itself contain calls or further pushes) evaluates.
func (g *Codegen) genBinop(v *NodeBinop) {
	if v.Op == ',' {
		g.genExpr(v.Left)
		g.genExpr(v.Right)
		return
	}
	if IsFlotype(v.Type()) {
		g.genFloatBinop(v)
		return
	}
	lt, rt := decay(v.Left.Type()), decay(v.Right.Type())
	if (v.Op == '+' || v.Op == '-') && IsPtrType(lt) {
		g.genPointerArith(v, lt, rt)
		return
	}
	g.genExpr(v.Left)
	g.emitf("\tpush %%rax\n")
	g.genExpr(v.Right)
	g.emitf("\tmov %%rax, %%rdi\n")
	g.emitf("\tpop %%rax\n")
	g.emitIntBinopOp(v.Op, v.Type().Unsigned)
}

// genPointerArith scales the integer operand by the pointee size before
// the add/subtract, implementing pointer-arithmetic scaling
// for "ptr +- int". For ptr-ptr subtraction (which the parser's newBinop
// types as long) it divides the byte distance by the pointee size instead.
func (g *Codegen) genPointerArith(v *NodeBinop, lt, rt *Ctype) {
	g.genExpr(v.Left)
	g.emitf("\tpush %%rax\n")
	g.genExpr(v.Right)
	if IsPtrType(rt) {
		g.emitf("\tmov %%rax, %%rdi\n")
		g.emitf("\tpop %%rax\n")
		g.emitf("\tsub %%rdi, %%rax\n")
		if lt.Pointee.Size > 1 {
			g.emitf("\tmov $%d, %%rdi\n\tcqto\n\tidiv %%rdi\n", lt.Pointee.Size)
		}
		return
	}
	if lt.Pointee.Size != 1 {
		g.emitf("\timul $%d, %%rax\n", lt.Pointee.Size)
	}
	g.emitf("\tmov %%rax, %%rdi\n")
	g.emitf("\tpop %%rax\n")
	if v.Op == '+' {
		g.emitf("\tadd %%rdi, %%rax\n")
	} else {
		g.emitf("\tsub %%rdi, %%rax\n")
	}
}

func (g *Codegen) emitIntBinopOp(op int, unsigned bool) {
	switch op {
	case '+':
		g.emitf("\tadd %%rdi, %%rax\n")
	case '-':
		g.emitf("\tsub %%rdi, %%rax\n")
	case '*':
		g.emitf("\timul %%rdi, %%rax\n")
	case '/':
		if unsigned {
			g.emitf("\txor %%edx, %%edx\n\tdiv %%rdi\n")
		} else {
			g.emitf("\tcqto\n\tidiv %%rdi\n")
		}
	case '%':
		if unsigned {
			g.emitf("\txor %%edx, %%edx\n\tdiv %%rdi\n\tmov %%rdx, %%rax\n")
		} else {
			g.emitf("\tcqto\n\tidiv %%rdi\n\tmov %%rdx, %%rax\n")
		}
	case '&':
		g.emitf("\tand %%rdi, %%rax\n")
	case '|':
		g.emitf("\tor %%rdi, %%rax\n")
	case '^':
		g.emitf("\txor %%rdi, %%rax\n")
	case KwShl:
		g.emitf("\tmov %%rdi, %%rcx\n\tshl %%cl, %%rax\n")
	case KwShr:
		g.emitf("\tmov %%rdi, %%rcx\n")
		if unsigned {
			g.emitf("\tshr %%cl, %%rax\n")
		} else {
			g.emitf("\tsar %%cl, %%rax\n")
		}
	case '<', '>', KwLE, KwGE, KwEQ, KwNE:
		g.emitf("\tcmp %%rdi, %%rax\n")
		g.emitf("\t%s %%al\n", setccFor(op, unsigned))
		g.emitf("\tmovzbl %%al, %%eax\n")
	}
}

func setccFor(op int, unsigned bool) string {
	switch op {
	case '<':
		if unsigned {
			return "setb"
		}
		return "setl"
	case '>':
		if unsigned {
			return "seta"
		}
		return "setg"
	case KwLE:
		if unsigned {
			return "setbe"
		}
		return "setle"
	case KwGE:
		if unsigned {
			return "setae"
		}
		return "setge"
	case KwEQ:
		return "sete"
	case KwNE:
		return "setne"
	}
	return "sete"
}

func (g *Codegen) genFloatBinop(v *NodeBinop) {
	sfx := "sd"
	if v.Type().Kind == CTFloat {
		sfx = "ss"
	}
	g.genExpr(v.Left)
	g.emitf("\tsub $8, %%rsp\n\tmov%s %%xmm0, (%%rsp)\n", sfx)
	g.genExpr(v.Right)
	g.emitf("\tmov%s (%%rsp), %%xmm1\n\tadd $8, %%rsp\n", sfx)
	switch v.Op {
	case '+':
		g.emitf("\tadd%s %%xmm0, %%xmm1\n\tmov%s %%xmm1, %%xmm0\n", sfx, sfx)
	case '-':
		g.emitf("\tsub%s %%xmm0, %%xmm1\n\tmov%s %%xmm1, %%xmm0\n", sfx, sfx)
	case '*':
		g.emitf("\tmul%s %%xmm0, %%xmm1\n\tmov%s %%xmm1, %%xmm0\n", sfx, sfx)
	case '/':
		g.emitf("\tdiv%s %%xmm0, %%xmm1\n\tmov%s %%xmm1, %%xmm0\n", sfx, sfx)
	case '<', '>', KwLE, KwGE, KwEQ, KwNE:
		g.emitf("\tucomis%s %%xmm0, %%xmm1\n", sfx[len(sfx)-1:])
		g.emitf("\t%s %%al\n", setccFor(v.Op, true))
		g.emitf("\tmovzbl %%al, %%eax\n")
	}
}

func (g *Codegen) genLogical(v *NodeLogical) {
	falseLabel := g.comp.Labels.New()
	endLabel := g.comp.Labels.New()
	g.genExpr(v.Left)
	g.emitf("\tcmp $0, %%rax\n")
	if v.Op == KwLogAnd {
		g.emitf("\tje %s\n", falseLabel)
		g.genExpr(v.Right)
		g.emitf("\tcmp $0, %%rax\n")
		g.emitf("\tje %s\n", falseLabel)
		g.emitf("\tmov $1, %%rax\n")
		g.emitf("\tjmp %s\n", endLabel)
		g.label(falseLabel)
		g.emitf("\tmov $0, %%rax\n")
		g.label(endLabel)
		return
	}
	trueLabel := g.comp.Labels.New()
	g.emitf("\tjne %s\n", trueLabel)
	g.genExpr(v.Right)
	g.emitf("\tcmp $0, %%rax\n")
	g.emitf("\tjne %s\n", trueLabel)
	g.emitf("\tmov $0, %%rax\n")
	g.emitf("\tjmp %s\n", endLabel)
	g.label(trueLabel)
	g.emitf("\tmov $1, %%rax\n")
	g.label(endLabel)
}

func (g *Codegen) genUnary(v *NodeUnary) {
	g.genExpr(v.Operand)
	switch v.Op {
	case '-':
		if IsFlotype(v.Type()) {
			sfx := "sd"
			if v.Type().Kind == CTFloat {
				sfx = "ss"
			}
			g.emitf("\txorp%s %%xmm1, %%xmm1\n\tsub%s %%xmm0, %%xmm1\n\tmov%s %%xmm1, %%xmm0\n", sfx[1:], sfx, sfx)
		} else {
			g.emitf("\tneg %%rax\n")
		}
	case '~':
		g.emitf("\tnot %%rax\n")
	case '!':
		g.emitf("\tcmp $0, %%rax\n\tsete %%al\n\tmovzbl %%al, %%eax\n")
	}
}

func (g *Codegen) genConvert(from, to *Ctype) {
	switch {
	case IsFlotype(from) && IsFlotype(to):
		if from.Kind != to.Kind {
			if to.Kind == CTFloat {
				g.emitf("\tcvtsd2ss %%xmm0, %%xmm0\n")
			} else {
				g.emitf("\tcvtss2sd %%xmm0, %%xmm0\n")
			}
		}
	case IsFlotype(from) && IsInttype(to):
		if from.Kind == CTFloat {
			g.emitf("\tcvttss2si %%xmm0, %%rax\n")
		} else {
			g.emitf("\tcvttsd2si %%xmm0, %%rax\n")
		}
	case IsInttype(from) && IsFlotype(to):
		if to.Kind == CTFloat {
			g.emitf("\tcvtsi2ss %%rax, %%xmm0\n")
		} else {
			g.emitf("\tcvtsi2sd %%rax, %%xmm0\n")
		}
	case IsInttype(from) && IsInttype(to):
		g.genIntTruncOrExtend(from, to)
	}
}

func (g *Codegen) genIntTruncOrExtend(from, to *Ctype) {
	if to.Size <= from.Size {
		return // narrowing is a no-op on the representation already in %rax
	}
	switch from.Size {
	case 1:
		if from.Unsigned {
			g.emitf("\tmovzbl %%al, %%eax\n")
		} else {
			g.emitf("\tmovsbl %%al, %%eax\n")
		}
	case 2:
		if from.Unsigned {
			g.emitf("\tmovzwl %%ax, %%eax\n")
		} else {
			g.emitf("\tmovswl %%ax, %%eax\n")
		}
	case 4:
		if from.Unsigned {
			g.emitf("\tmov %%eax, %%eax\n")
		} else {
			g.emitf("\tmovslq %%eax, %%rax\n")
		}
	}
}

func (g *Codegen) genTernary(v *NodeTernary) {
	elseLabel := g.comp.Labels.New()
	endLabel := g.comp.Labels.New()
	g.genExpr(v.Cond)
	g.emitf("\tcmp $0, %%rax\n")
	g.emitf("\tje %s\n", elseLabel)
	g.genExpr(v.Then)
	g.emitf("\tjmp %s\n", endLabel)
	g.label(elseLabel)
	g.genExpr(v.Else)
	g.label(endLabel)
}
