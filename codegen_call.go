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

// argSlot records where one evaluated argument ends up: a general-purpose
// register, an XMM register, or (beyond the six/eight register slots)
// left on the outgoing stack area in push order.
type argSlot struct {
	isFloat bool
	reg     int // index into gpArgRegs or the XMM bank
	onStack bool
}

// classifyArgs assigns each argument a register per the SysV integer/SSE
// class counters, independently of evaluation order.
func classifyArgs(args []Node) ([]argSlot, int) {
	slots := make([]argSlot, len(args))
	gp, fp := 0, 0
	for i, a := range args {
		if IsFlotype(decay(a.Type())) {
			if fp < 8 {
				slots[i] = argSlot{isFloat: true, reg: fp}
				fp++
			} else {
				slots[i] = argSlot{isFloat: true, onStack: true}
			}
		} else {
			if gp < 6 {
				slots[i] = argSlot{reg: gp}
				gp++
			} else {
				slots[i] = argSlot{onStack: true}
			}
		}
	}
	return slots, fp
}

// genArgs evaluates args left-to-right onto the native stack (8 bytes per
// slot, regardless of class, for uniform bookkeeping), pads for 16-byte
// call-time alignment, then pops each register-class argument into its
// assigned register in reverse (rightmost first) order. Arguments beyond
// the six GP/eight SSE register slots are left in their pushed stack
// position, which is the scope simplification recorded in DESIGN.md:
// call sites with more than six integer or eight floating-point
// arguments do not get their overflow operands relocated to the precise
// SysV outgoing-stack-argument offsets.
func (g *Codegen) genArgs(args []Node) (fpUsed int) {
	slots, fp := classifyArgs(args)
	if len(args)%2 == 1 {
		g.emitf("\tsub $8, %%rsp\n")
	}
	for _, a := range args {
		g.genExpr(a)
		if IsFlotype(decay(a.Type())) {
			g.emitf("\tsub $8, %%rsp\n\tmovsd %%xmm0, (%%rsp)\n")
		} else {
			g.emitf("\tpush %%rax\n")
		}
	}
	for i := len(args) - 1; i >= 0; i-- {
		s := slots[i]
		if s.onStack {
			continue
		}
		if s.isFloat {
			g.emitf("\tmovsd (%%rsp), %%xmm%d\n\tadd $8, %%rsp\n", s.reg)
		} else {
			g.emitf("\tpop %s\n", gpArgRegs[s.reg])
		}
	}
	return fp
}

func (g *Codegen) genCall(v *NodeCall) {
	fp := g.genArgs(v.Args)
	if v.FuncType.HasVarargs {
		g.emitf("\tmov $%d, %%al\n", fp)
	}
	g.emitf("\tcall %s\n", v.FuncName)
	g.afterCall(len(v.Args))
}

func (g *Codegen) genIndirectCall(v *NodeIndirectCall) {
	g.genExpr(v.Func)
	g.emitf("\tpush %%rax\n") // hold the callee address across argument evaluation
	fp := g.genArgs(v.Args)
	g.emitf("\tpop %%r11\n")
	if v.FuncType.HasVarargs {
		g.emitf("\tmov $%d, %%al\n", fp)
	}
	g.emitf("\tcall *%%r11\n")
	g.afterCall(len(v.Args))
}

// afterCall removes the alignment pad this call sequence may have added;
// the register-class arguments were already consumed by genArgs's pops.
func (g *Codegen) afterCall(nargs int) {
	if nargs%2 == 1 {
		g.emitf("\tadd $8, %%rsp\n")
	}
}

// genVaStart is a no-op: the register-save area is populated
// unconditionally in the prologue (emitVarargsSaveArea), and va_arg
// reads directly from it (never from the stack-argument area) rather than
// maintaining a runtime va_list cursor struct.
func (g *Codegen) genVaStart(v *NodeVaStart) {}

// genVaArg reads the next variadic argument. Because this compiler does
// not track a mutable va_list cursor at runtime, it instead counts, at
// compile time, how many va_arg calls on this ap have already executed
// in the same function and uses that as the register-save-area index —
// correct for the straight-line "read each vararg once, in order" usage
// this compiler supports, but not for va_list values passed to another
// function or copied with va_copy (out of scope).
//
// A slot at or past the register-save area's capacity (6 GP, 8 FP) would
// read past it into whatever memory happens to sit below %rbp; rather
// than do that silently, such a read is a fatal diagnostic.
func (g *Codegen) genVaArg(v *NodeVaArg) {
	ty := v.Type()
	if IsFlotype(ty) {
		slot := g.curFunc.vaFPUsed + g.curFunc.vaFPCursor
		if slot >= 8 {
			g.comp.Diag.Errorf(v.Position(), "va_arg: variadic call has more than 8 floating-point arguments, which this compiler does not support")
		}
		g.curFunc.vaFPCursor++
		off := g.regSaveOff + gpRegSaveSize + slot*16
		g.emitf("\tlea %d(%%rbp), %%rax\n", off)
		g.load(ty)
		return
	}
	slot := g.curFunc.vaGPUsed + g.curFunc.vaGPCursor
	if slot >= 6 {
		g.comp.Diag.Errorf(v.Position(), "va_arg: variadic call has more than 6 integer arguments, which this compiler does not support")
	}
	g.curFunc.vaGPCursor++
	off := g.regSaveOff + slot*8
	g.emitf("\tlea %d(%%rbp), %%rax\n", off)
	g.load(ty)
}
