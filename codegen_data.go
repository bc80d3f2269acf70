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
	"math"
	"strings"
)

// DataSection accumulates every global variable and literal that needs a
// ".data" (or ".bss"-equivalent ".lcomm") entry, and renders them once at
// the end of codegen so forward references within the .text section
// (a function calling one declared later) never need a second pass.
type DataSection struct {
	comp *Compiler
	buf  strings.Builder
}

func NewDataSection(c *Compiler) *DataSection {
	return &DataSection{comp: c}
}

func (d *DataSection) Render() string {
	return d.buf.String()
}

// AddGlobal emits one global variable's storage: zero-initialized
// variables get a ".lcomm"/".comm" reservation, initialized ones get an
// explicit byte-by-byte ".data" layout built from the flattened
// initializer list, with zero padding inserted between entries so gaps
// (struct padding, partially-initialized arrays) read back as zero.
func (d *DataSection) AddGlobal(v *NodeVar, init []*InitEntry) {
	ty := v.Type()
	if len(init) == 0 {
		if ty.IsStatic {
			fmt.Fprintf(&d.buf, "\t.lcomm %s, %d, %d\n", v.Label, ty.Size, ty.Align)
		} else {
			fmt.Fprintf(&d.buf, "\t.globl %s\n\t.comm %s, %d, %d\n", v.Label, v.Label, ty.Size, ty.Align)
		}
		return
	}
	if !v.Type().IsStatic {
		fmt.Fprintf(&d.buf, "\t.globl %s\n", v.Label)
	}
	fmt.Fprintf(&d.buf, "\t.data\n\t.align %d\n", ty.Align)
	fmt.Fprintf(&d.buf, "%s:\n", v.Label)
	d.emitLayout(ty, init, 0)
}

// emitLayout walks the flattened, offset-sorted init entries and writes
// one assembler directive per entry, padding any byte range between
// entries (or trailing, up to size) with explicit zero bytes.
func (d *DataSection) emitLayout(ty *Ctype, entries []*InitEntry, base int) {
	cursor := base
	for _, e := range entries {
		if e.Offset > cursor {
			d.zero(e.Offset - cursor)
		}
		d.emitEntry(e)
		cursor = e.Offset + d.entrySize(e)
	}
	if end := base + ty.Size; cursor < end {
		d.zero(end - cursor)
	}
}

func (d *DataSection) entrySize(e *InitEntry) int {
	if e.Type.Kind == CTArray {
		return e.Type.Size
	}
	return e.Type.Size
}

func (d *DataSection) zero(n int) {
	if n > 0 {
		fmt.Fprintf(&d.buf, "\t.zero %d\n", n)
	}
}

func (d *DataSection) emitEntry(e *InitEntry) {
	if s, ok := e.Value.(*NodeString); ok && e.Type.Kind == CTArray {
		d.emitStringBytes(s.Value, e.Type.Size)
		return
	}
	switch v := e.Value.(type) {
	case *NodeLiteral:
		d.emitScalarLiteral(e.Type, v)
	case *NodeAddr:
		d.emitAddrOf(v.Operand)
	case *NodeVar:
		if !v.IsLocal {
			fmt.Fprintf(&d.buf, "\t.quad %s\n", v.Label)
		}
	default:
		// A non-constant global initializer should have been rejected
		// earlier; emitting zero here keeps layout arithmetic consistent
		// instead of panicking the whole compilation over it.
		d.zero(e.Type.Size)
	}
}

func (d *DataSection) emitAddrOf(operand Node) {
	switch v := operand.(type) {
	case *NodeVar:
		fmt.Fprintf(&d.buf, "\t.quad %s\n", v.Label)
	case *NodeStructRef:
		base := addrBaseLabel(v.Base)
		fmt.Fprintf(&d.buf, "\t.quad %s+%d\n", base, v.Field.Offset)
	default:
		d.zero(8)
	}
}

func addrBaseLabel(n Node) string {
	if v, ok := n.(*NodeVar); ok {
		return v.Label
	}
	return "0"
}

func (d *DataSection) emitScalarLiteral(ty *Ctype, v *NodeLiteral) {
	if IsFlotype(ty) {
		if ty.Kind == CTFloat {
			bits := math.Float32bits(float32(v.FVal))
			fmt.Fprintf(&d.buf, "\t.long %d\n", bits)
		} else {
			bits := math.Float64bits(v.FVal)
			fmt.Fprintf(&d.buf, "\t.quad %d\n", bits)
		}
		return
	}
	switch ty.Size {
	case 1:
		fmt.Fprintf(&d.buf, "\t.byte %d\n", uint8(v.IVal))
	case 2:
		fmt.Fprintf(&d.buf, "\t.short %d\n", uint16(v.IVal))
	case 4:
		fmt.Fprintf(&d.buf, "\t.long %d\n", uint32(v.IVal))
	default:
		fmt.Fprintf(&d.buf, "\t.quad %d\n", v.IVal)
	}
}

// emitStringBytes writes size bytes of a string literal's encoding as a
// single ".ascii" directive, zero-padding (including the terminator) up
// to size; a literal longer than size truncates, matching
// "char a[n] = \"...\"" semantics when n is shorter than the text.
func (d *DataSection) emitStringBytes(s string, size int) {
	b := []byte(s)
	if len(b) > size {
		b = b[:size]
	}
	var esc strings.Builder
	for _, c := range b {
		fmt.Fprintf(&esc, "\\%03o", c)
	}
	fmt.Fprintf(&d.buf, "\t.ascii \"%s\"\n", esc.String())
	if pad := size - len(b); pad > 0 {
		d.zero(pad)
	}
}

// --- lazy/memoized literal labels -------------------------------------------

// ensureFloatLabel returns v's data-section label, assigning and
// emitting it at most once: every subsequent reference to the same
// *NodeLiteral (the AST shares literal nodes by identity when a constant
// is folded into one node and then read twice) reuses the memoized label.
func (g *Codegen) ensureFloatLabel(v *NodeLiteral) string {
	if l, ok := g.floatLabels[v]; ok {
		return l
	}
	l := g.comp.Labels.New()
	g.floatLabels[v] = l
	g.data.buf.WriteString("\t.data\n\t.align 8\n")
	fmt.Fprintf(&g.data.buf, "%s:\n", l)
	g.data.emitScalarLiteral(v.Type(), v)
	return l
}

// ensureStringLabel is the string-literal analogue of ensureFloatLabel.
func (g *Codegen) ensureStringLabel(v *NodeString) string {
	if l, ok := g.stringLabels[v]; ok {
		return l
	}
	l := g.comp.Labels.New()
	g.stringLabels[v] = l
	g.data.buf.WriteString("\t.data\n\t.align 1\n")
	fmt.Fprintf(&g.data.buf, "%s:\n", l)
	g.data.emitStringBytes(v.Value, len(v.Value)+1)
	return l
}
