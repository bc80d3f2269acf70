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

import (
	"fmt"
	"strings"
)

// regSaveAreaSize is the SysV register-save area a varargs function
// spills into before va_start: six 8-byte GP slots (rdi, rsi, rdx, rcx,
// r8, r9) followed by sixteen 16-byte XMM slots (xmm0..xmm15), 304 bytes.
// Only xmm0..xmm7 ever carry a variadic float argument (genVaArg's FP
// bound stays at 8), but the reserved area itself is sized to sixteen
// slots to match the register-save area this subset targets.
const (
	gpRegSaveSize   = 6 * 8
	fpRegSaveSize   = 16 * 16
	regSaveAreaSize = gpRegSaveSize + fpRegSaveSize
)

var gpArgRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
var gpArgRegs32 = []string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"}
var gpArgRegs8 = []string{"%dil", "%sil", "%dl", "%cl", "%r8b", "%r9b"}

// Codegen is a one-pass tree-walking emitter: it walks the typed AST once
// and writes GNU AT&T assembly text directly, using a push/pop evaluation
// stack for binary operators instead of a register allocator.
type Codegen struct {
	comp *Compiler
	buf  strings.Builder
	data *DataSection

	curFunc    *NodeFuncDef
	frameSize  int
	regSaveOff int // varargs only

	breakStack    []string
	continueStack []string

	floatLabels  map[*NodeLiteral]string
	stringLabels map[*NodeString]string
}

// NewCodegen creates a Codegen bound to the compiler's label allocator.
func NewCodegen(c *Compiler) *Codegen {
	return &Codegen{
		comp:         c,
		data:         NewDataSection(c),
		floatLabels:  map[*NodeLiteral]string{},
		stringLabels: map[*NodeString]string{},
	}
}

func (g *Codegen) emitf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *Codegen) label(l string) {
	g.emitf("%s:\n", l)
}

// Emit walks the whole program and returns the final assembly text, data
// section first (so forward references to a later-declared global still
// resolve once the assembler sees the whole file), then .text.
func (g *Codegen) Emit(prog *Program) string {
	for _, d := range prog.Decls {
		g.emitTopLevel(d)
	}
	full := g.data.Render() + "\t.text\n" + g.buf.String()
	return tidyAssembly(full)
}

func (g *Codegen) emitTopLevel(n Node) {
	switch v := n.(type) {
	case *NodeFuncDef:
		g.genFunction(v)
	case *NodeDecl:
		g.data.AddGlobal(v.Var, v.InitList)
	case *NodeBlock:
		for _, s := range v.Stmts {
			g.emitTopLevel(s)
		}
	}
}

// --- function prologue / frame layout ---------------------------------------

// assignFrameOffsets lays out every parameter and local in declaration
// order, each slot rounded up to 8 bytes regardless of the variable's own
// type alignment, and returns the frame size (already 16-byte aligned).
func (g *Codegen) assignFrameOffsets(fn *NodeFuncDef) int {
	off := 0
	assign := func(v *NodeVar) {
		off -= alignUp(v.Type().Size, 8)
		v.LOff = off
	}
	for _, v := range fn.Params {
		assign(v)
	}
	for _, v := range fn.Locals {
		assign(v)
	}
	if fn.FuncType.HasVarargs {
		off -= regSaveAreaSize
		off = -alignUp(-off, 16)
		g.regSaveOff = off
	}
	return alignUp(-off, 16)
}

func (g *Codegen) genFunction(fn *NodeFuncDef) {
	g.curFunc = fn
	g.frameSize = g.assignFrameOffsets(fn)
	endLabel := g.comp.Labels.New()
	fn.endLabel = endLabel

	if !fn.IsStatic {
		g.emitf("\t.globl %s\n", fn.Name)
	}
	g.label(fn.Name)
	g.emitf("\tpush %%rbp\n")
	g.emitf("\tmov %%rsp, %%rbp\n")
	g.emitf("\tsub $%d, %%rsp\n", g.frameSize)

	gpIdx, fpIdx, stackIdx := 0, 0, 0
	for _, v := range fn.Params {
		if IsFlotype(v.Type()) {
			if fpIdx < 8 {
				g.storeXMMArg(fpIdx, v)
				fpIdx++
			} else {
				g.loadStackArgInto(stackIdx, v)
				stackIdx++
			}
			continue
		}
		if gpIdx < 6 {
			g.storeGPArg(gpIdx, v)
			gpIdx++
		} else {
			g.loadStackArgInto(stackIdx, v)
			stackIdx++
		}
	}
	if fn.FuncType.HasVarargs {
		g.emitVarargsSaveArea(gpIdx, fpIdx)
	}

	g.genStmt(fn.Body)

	g.label(endLabel)
	g.emitf("\tleave\n")
	g.emitf("\tret\n")
	g.curFunc = nil
}

func (g *Codegen) storeGPArg(idx int, v *NodeVar) {
	switch v.Type().Size {
	case 1:
		g.emitf("\tmov %s, %d(%%rbp)\n", gpArgRegs8[idx], v.LOff)
	case 4:
		g.emitf("\tmov %s, %d(%%rbp)\n", gpArgRegs32[idx], v.LOff)
	default:
		g.emitf("\tmov %s, %d(%%rbp)\n", gpArgRegs[idx], v.LOff)
	}
}

func (g *Codegen) storeXMMArg(idx int, v *NodeVar) {
	if v.Type().Kind == CTFloat {
		g.emitf("\tmovss %%xmm%d, %d(%%rbp)\n", idx, v.LOff)
	} else {
		g.emitf("\tmovsd %%xmm%d, %d(%%rbp)\n", idx, v.LOff)
	}
}

// loadStackArgInto copies a caller-stack-passed argument (7th+ integer,
// 9th+ float) from above the return address into its frame slot.
func (g *Codegen) loadStackArgInto(stackIdx int, v *NodeVar) {
	srcOff := 16 + stackIdx*8
	g.emitf("\tmov %d(%%rbp), %%rax\n", srcOff)
	g.emitf("\tmov %%rax, %d(%%rbp)\n", v.LOff)
}

// emitVarargsSaveArea spills the remaining (unused-by-named-parameters)
// argument registers into the register-save area, and records on the
// current function (vaGPUsed/vaFPUsed) how many GP/FP registers were
// already consumed by named parameters — va_arg needs that to find the
// next variadic argument.
func (g *Codegen) emitVarargsSaveArea(gpUsed, fpUsed int) {
	base := g.regSaveOff
	for i := gpUsed; i < 6; i++ {
		g.emitf("\tmov %s, %d(%%rbp)\n", gpArgRegs[i], base+i*8)
	}
	for i := fpUsed; i < 16; i++ {
		g.emitf("\tmovaps %%xmm%d, %d(%%rbp)\n", i, base+gpRegSaveSize+i*16)
	}
	// gp_offset/fp_offset cells of a conceptual va_list: codegen computes
	// va_arg's read cursor directly from the AST rather than maintaining
	// a runtime va_list struct, so no cells are written here; the cursor
	// state lives in vaGPCursor/vaFPCursor instead.
	g.curFunc.vaGPUsed = gpUsed
	g.curFunc.vaFPUsed = fpUsed
}

// --- statements --------------------------------------------------------------

func (g *Codegen) genStmt(n Node) {
	switch v := n.(type) {
	case nil:
		return
	case *NodeBlock:
		for _, s := range v.Stmts {
			g.genStmt(s)
		}
	case *NodeDecl:
		g.genLocalInit(v)
	case *NodeIf:
		g.genIf(v)
	case *NodeFor:
		g.genFor(v)
	case *NodeWhile:
		g.genWhile(v)
	case *NodeDo:
		g.genDo(v)
	case *NodeSwitch:
		g.genSwitch(v)
	case *NodeCase:
		g.label(v.Label)
	case *NodeDefault:
		g.label(v.Label)
	case *NodeLabel:
		g.label(v.Emitted)
	case *NodeGoto:
		g.emitf("\tjmp %s\n", v.Resolved)
	case *NodeBreak:
		g.emitf("\tjmp %s\n", g.breakStack[len(g.breakStack)-1])
	case *NodeContinue:
		g.emitf("\tjmp %s\n", g.continueStack[len(g.continueStack)-1])
	case *NodeReturn:
		if v.Value != nil {
			g.genExpr(v.Value)
		}
		g.emitf("\tjmp %s\n", g.curFunc.endLabel)
	default:
		// A bare expression statement: evaluate and discard.
		g.genExpr(n)
	}
}

// genLocalInit emits a local's deferred initializer exactly once: Init is
// cleared immediately after emission (shared-pointer visibility, per
// NodeVar's doc comment) so re-entering the declaring scope (e.g. a loop
// body with a local re-declared each iteration) re-runs it correctly
// while a second *reference* to the same node never replays it.
func (g *Codegen) genLocalInit(d *NodeDecl) {
	v := d.Var
	if !v.IsLocal {
		// A static local: its storage lives in the data section.
		g.data.AddGlobal(v, d.InitList)
		return
	}
	init := v.Init
	if len(init) == 0 {
		return
	}
	v.Init = nil
	for _, e := range init {
		g.genInitEntry(v, e)
	}
}

func (g *Codegen) genInitEntry(v *NodeVar, e *InitEntry) {
	if s, ok := e.Value.(*NodeString); ok && e.Type.Kind == CTArray {
		g.genAddr(v)
		g.emitf("\tadd $%d, %%rax\n", e.Offset)
		g.emitf("\tmov %%rax, %%rdi\n")
		label := g.ensureStringLabel(s)
		g.emitf("\tlea %s(%%rip), %%rsi\n", label)
		g.emitf("\tmov $%d, %%rcx\n", e.Type.Size)
		g.emitf("\trep movsb\n")
		return
	}
	g.genAddr(v)
	g.emitf("\tadd $%d, %%rax\n", e.Offset)
	g.emitf("\tpush %%rax\n")
	g.genExpr(e.Value)
	g.emitf("\tpop %%rdi\n")
	g.storeIndirect(e.Type)
}

func (g *Codegen) genIf(n *NodeIf) {
	elseLabel := g.comp.Labels.New()
	endLabel := g.comp.Labels.New()
	g.genExpr(n.Cond)
	g.emitf("\tcmp $0, %%rax\n")
	g.emitf("\tje %s\n", elseLabel)
	g.genStmt(n.Then)
	g.emitf("\tjmp %s\n", endLabel)
	g.label(elseLabel)
	g.genStmt(n.Else)
	g.label(endLabel)
}

func (g *Codegen) genFor(n *NodeFor) {
	begin := g.comp.Labels.New()
	step := g.comp.Labels.New()
	end := g.comp.Labels.New()
	g.genStmt(n.Init)
	g.label(begin)
	if n.Cond != nil {
		g.genExpr(n.Cond)
		g.emitf("\tcmp $0, %%rax\n")
		g.emitf("\tje %s\n", end)
	}
	g.pushLoopLabels(end, step)
	g.genStmt(n.Body)
	g.popLoopLabels()
	g.label(step)
	if n.Step != nil {
		g.genExpr(n.Step)
	}
	g.emitf("\tjmp %s\n", begin)
	g.label(end)
}

func (g *Codegen) genWhile(n *NodeWhile) {
	begin := g.comp.Labels.New()
	end := g.comp.Labels.New()
	g.label(begin)
	g.genExpr(n.Cond)
	g.emitf("\tcmp $0, %%rax\n")
	g.emitf("\tje %s\n", end)
	g.pushLoopLabels(end, begin)
	g.genStmt(n.Body)
	g.popLoopLabels()
	g.emitf("\tjmp %s\n", begin)
	g.label(end)
}

func (g *Codegen) genDo(n *NodeDo) {
	begin := g.comp.Labels.New()
	contLabel := g.comp.Labels.New()
	end := g.comp.Labels.New()
	g.label(begin)
	g.pushLoopLabels(end, contLabel)
	g.genStmt(n.Body)
	g.popLoopLabels()
	g.label(contLabel)
	g.genExpr(n.Cond)
	g.emitf("\tcmp $0, %%rax\n")
	g.emitf("\tjne %s\n", begin)
	g.label(end)
}

func (g *Codegen) pushLoopLabels(brk, cont string) {
	g.breakStack = append(g.breakStack, brk)
	g.continueStack = append(g.continueStack, cont)
}

func (g *Codegen) popLoopLabels() {
	g.breakStack = g.breakStack[:len(g.breakStack)-1]
	g.continueStack = g.continueStack[:len(g.continueStack)-1]
}

// genSwitch lowers to a linear chain of comparisons against the tag
// value (no jump table): each plain case becomes one compare-and-branch,
// and a GNU range case a pair of bound checks.
func (g *Codegen) genSwitch(n *NodeSwitch) {
	end := g.comp.Labels.New()
	g.genExpr(n.Tag)
	g.emitf("\tmov %%rax, %%r11\n")
	for _, c := range n.Cases {
		if c.IsRange {
			g.emitf("\tcmp $%d, %%r11\n", c.Begin)
			skip := g.comp.Labels.New()
			g.emitf("\tjl %s\n", skip)
			g.emitf("\tcmp $%d, %%r11\n", c.End)
			g.emitf("\tjg %s\n", skip)
			g.emitf("\tjmp %s\n", c.Label)
			g.label(skip)
		} else {
			g.emitf("\tcmp $%d, %%r11\n", c.Begin)
			g.emitf("\tje %s\n", c.Label)
		}
	}
	if n.Default != nil {
		g.emitf("\tjmp %s\n", n.Default.Label)
	} else {
		g.emitf("\tjmp %s\n", end)
	}
	cont := end
	if n := len(g.continueStack); n > 0 {
		cont = g.continueStack[n-1]
	}
	g.pushLoopLabels(end, cont) // continue inside a switch targets its enclosing loop, not here; break does apply
	g.genStmt(n.Body)
	g.popLoopLabels()
	g.label(end)
}

// --- lvalue addressing / load/store ------------------------------------------

// genAddr leaves an lvalue's address in %rax.
func (g *Codegen) genAddr(n Node) {
	switch v := n.(type) {
	case *NodeVar:
		if v.IsLocal && len(v.Init) > 0 {
			// A compound literal has no NodeDecl: its first use runs its initializer.
			g.genLocalInit(&NodeDecl{Var: v})
		}
		if v.IsLocal {
			g.emitf("\tlea %d(%%rbp), %%rax\n", v.LOff)
		} else {
			g.emitf("\tlea %s(%%rip), %%rax\n", v.Label)
		}
	case *NodeDeref:
		g.genExpr(v.Operand)
	case *NodeStructRef:
		g.genAddr(v.Base)
		g.emitf("\tadd $%d, %%rax\n", v.Field.Offset)
	default:
		panic(&fatalError{msg: fmt.Sprintf("%s: not an lvalue", n.Position())})
	}
}

// load reads size bytes from the address in %rax into %rax/%xmm0,
// sign- or zero-extending narrower integer types per ty.Unsigned.
func (g *Codegen) load(ty *Ctype) {
	if IsFlotype(ty) {
		if ty.Kind == CTFloat {
			g.emitf("\tmovss (%%rax), %%xmm0\n")
		} else {
			g.emitf("\tmovsd (%%rax), %%xmm0\n")
		}
		return
	}
	if IsStructOrUnion(ty) || ty.Kind == CTArray {
		return // aggregates are manipulated by address, never loaded into a register
	}
	switch ty.Size {
	case 1:
		if ty.Unsigned {
			g.emitf("\tmovzbl (%%rax), %%eax\n")
		} else {
			g.emitf("\tmovsbl (%%rax), %%eax\n")
		}
	case 2:
		if ty.Unsigned {
			g.emitf("\tmovzwl (%%rax), %%eax\n")
		} else {
			g.emitf("\tmovswl (%%rax), %%eax\n")
		}
	case 4:
		if ty.Unsigned {
			g.emitf("\tmov (%%rax), %%eax\n")
		} else {
			g.emitf("\tmovslq (%%rax), %%rax\n")
		}
	default:
		g.emitf("\tmov (%%rax), %%rax\n")
	}
}

// storeIndirect stores the value currently in %rax/%xmm0 through the
// address in %rdi; genAssign is responsible for getting the address and
// value into that arrangement (address computed and pushed first, value
// computed second, address popped into %rdi right before this call).
func (g *Codegen) storeIndirect(ty *Ctype) {
	if IsFlotype(ty) {
		if ty.Kind == CTFloat {
			g.emitf("\tmovss %%xmm0, (%%rdi)\n")
		} else {
			g.emitf("\tmovsd %%xmm0, (%%rdi)\n")
		}
		return
	}
	if IsStructOrUnion(ty) {
		g.copyStruct(ty)
		return
	}
	switch ty.Size {
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

// copyStruct block-copies a struct/union currently addressed by %rax
// (source) to the destination addressed by %rdi, matching this compiler's
// struct-assignment invariant.
func (g *Codegen) copyStruct(ty *Ctype) {
	g.emitf("\tmov %%rax, %%rsi\n")
	g.emitf("\tmov $%d, %%rcx\n", ty.Size)
	g.emitf("\trep movsb\n")
}
