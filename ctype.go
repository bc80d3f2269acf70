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

// CtypeKind discriminates the Ctype tagged record.
type CtypeKind int

const (
	CTVoid CtypeKind = iota
	CTBool
	CTChar
	CTShort
	CTInt
	CTLong
	CTLLong
	CTFloat
	CTDouble
	CTLDouble
	CTPtr
	CTArray
	CTStruct
	CTUnion
	CTFunc
)

// Field is one member of a struct/union, including bitfield placement.
type Field struct {
	Name    string
	Type    *Ctype
	Offset  int
	BitOff  int
	BitSize int // 0 means "not a bitfield"
}

// Ctype is the tagged type record. Kind-specific data
// lives in the fields below; which ones are meaningful is determined by
// Kind, matching the C source's "kind-integer plus shared struct" idiom
// but with Go's type system able to at least group the variants by
// constructor function (NewPtrType, NewArrayType, ...) below.
type Ctype struct {
	Kind       CtypeKind
	Size       int
	Align      int
	Unsigned   bool
	IsStatic   bool
	HasVarargs bool

	// PTR, ARRAY
	Pointee *Ctype
	Len     int // ARRAY only; -1 means incomplete

	// STRUCT, UNION
	Fields  *OrderedMap[*Field]
	TagName string

	// FUNC
	ReturnType     *Ctype
	ParameterTypes []*Ctype
}

// Canonical scalar types. long double is represented and emitted
// identically to double, an accepted simplification.
var (
	voidType    = &Ctype{Kind: CTVoid, Size: 0, Align: 0}
	boolType    = &Ctype{Kind: CTBool, Size: 1, Align: 1, Unsigned: true}
	charType    = &Ctype{Kind: CTChar, Size: 1, Align: 1}
	ucharType   = &Ctype{Kind: CTChar, Size: 1, Align: 1, Unsigned: true}
	shortType   = &Ctype{Kind: CTShort, Size: 2, Align: 2}
	ushortType  = &Ctype{Kind: CTShort, Size: 2, Align: 2, Unsigned: true}
	intType     = &Ctype{Kind: CTInt, Size: 4, Align: 4}
	uintType    = &Ctype{Kind: CTInt, Size: 4, Align: 4, Unsigned: true}
	longType    = &Ctype{Kind: CTLong, Size: 8, Align: 8}
	ulongType   = &Ctype{Kind: CTLong, Size: 8, Align: 8, Unsigned: true}
	llongType   = &Ctype{Kind: CTLLong, Size: 8, Align: 8}
	ullongType  = &Ctype{Kind: CTLLong, Size: 8, Align: 8, Unsigned: true}
	floatType   = &Ctype{Kind: CTFloat, Size: 4, Align: 4}
	doubleType  = &Ctype{Kind: CTDouble, Size: 8, Align: 8}
	ldoubleType = &Ctype{Kind: CTLDouble, Size: 8, Align: 8}
)

// vaListType is the builtin type behind <stdarg.h>'s va_list: SysV's own
// four-word gp_offset/fp_offset/overflow_arg_area/reg_save_area struct,
// wrapped in a one-element array the way glibc defines va_list so that
// passing it to va_start/va_arg/a callee decays to a pointer without an
// explicit "&". This compiler's va_arg codegen never reads the struct's
// fields (it tracks the read cursor at compile time instead — see
// genVaArg), so the fields exist only to give the type its real layout
// and size.
var vaListType = func() *Ctype {
	b := NewStructBuilder(false)
	b.AddField("gp_offset", uintType)
	b.AddField("fp_offset", uintType)
	b.AddField("overflow_arg_area", NewPtrType(voidType))
	b.AddField("reg_save_area", NewPtrType(voidType))
	st := b.Finish("__va_list_tag")
	return NewArrayType(st, 1)
}()

// NewPtrType returns the pointer-to-to type.
func NewPtrType(to *Ctype) *Ctype {
	return &Ctype{Kind: CTPtr, Size: 8, Align: 8, Pointee: to}
}

// NewArrayType returns an array of length n (n < 0 means "incomplete").
func NewArrayType(of *Ctype, n int) *Ctype {
	t := &Ctype{Kind: CTArray, Pointee: of, Len: n, Align: of.Align}
	if n >= 0 {
		t.Size = of.Size * n
	}
	return t
}

// CompleteArray fills in the length (and size) of a previously-incomplete
// array type, e.g. once an initializer's element count is known.
func CompleteArray(t *Ctype, n int) {
	t.Len = n
	t.Size = t.Pointee.Size * n
}

// NewFuncType returns a function type.
func NewFuncType(ret *Ctype, params []*Ctype, varargs bool) *Ctype {
	return &Ctype{Kind: CTFunc, ReturnType: ret, ParameterTypes: params, HasVarargs: varargs}
}

func IsVoid(t *Ctype) bool { return t.Kind == CTVoid }

func IsInttype(t *Ctype) bool {
	switch t.Kind {
	case CTBool, CTChar, CTShort, CTInt, CTLong, CTLLong:
		return true
	}
	return false
}

func IsFlotype(t *Ctype) bool {
	switch t.Kind {
	case CTFloat, CTDouble, CTLDouble:
		return true
	}
	return false
}

func IsArithtype(t *Ctype) bool {
	return IsInttype(t) || IsFlotype(t)
}

func IsPtrType(t *Ctype) bool {
	return t.Kind == CTPtr
}

func IsStructOrUnion(t *Ctype) bool {
	return t.Kind == CTStruct || t.Kind == CTUnion
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// intRank orders integer types for the "usual arithmetic conversions";
// usualArith compares ranks only between operands of the same signedness.
func intRank(t *Ctype) int {
	switch t.Kind {
	case CTBool:
		return 0
	case CTChar:
		return 1
	case CTShort:
		return 2
	case CTInt:
		return 3
	case CTLong:
		return 4
	case CTLLong:
		return 5
	}
	return 3
}

// decay applies array-to-pointer and function-to-pointer decay, to be
// invoked implicitly whenever an array/function expression appears where
// a value is required.
func decay(t *Ctype) *Ctype {
	switch t.Kind {
	case CTArray:
		return NewPtrType(t.Pointee)
	case CTFunc:
		return NewPtrType(t)
	default:
		return t
	}
}

// usualArith implements the usual arithmetic conversions for a binary
// operator's two (already-decayed) operand types: pointer arithmetic
// keeps the pointer type, mixed integer/float promotes to float, and
// among integers the higher-ranked/unsigned type wins.
func usualArith(op int, a, b *Ctype) *Ctype {
	a, b = decay(a), decay(b)
	if a.Kind == CTPtr || b.Kind == CTPtr {
		if a.Kind == CTPtr {
			return a
		}
		return b
	}
	if IsFlotype(a) || IsFlotype(b) {
		if a.Kind == CTLDouble || b.Kind == CTLDouble {
			return ldoubleType
		}
		if a.Kind == CTDouble || b.Kind == CTDouble {
			return doubleType
		}
		return floatType
	}
	// integer promotion: anything smaller than int promotes to int.
	pa, pb := promote(a), promote(b)
	if pa.Size != pb.Size {
		if pa.Size > pb.Size {
			return pa
		}
		return pb
	}
	if pa.Unsigned != pb.Unsigned {
		if pa.Unsigned {
			return pa
		}
		return pb
	}
	if intRank(pa) >= intRank(pb) {
		return pa
	}
	return pb
}

// promote implements integer promotion: _Bool, char, short (signed or
// not) promote to int.
func promote(t *Ctype) *Ctype {
	switch t.Kind {
	case CTBool, CTChar, CTShort:
		return intType
	}
	return t
}

// StructBuilder incrementally lays out a struct/union's fields in
// declaration order, packing bitfields into their storage unit until it
// overflows.
type StructBuilder struct {
	isUnion bool

	fields *OrderedMap[*Field]
	offset int // next free byte offset (struct) / always 0 (union)
	align  int

	bitUnitType   *Ctype
	bitUnitOffset int
	bitCursor     int
}

// NewStructBuilder starts a new struct or union layout.
func NewStructBuilder(isUnion bool) *StructBuilder {
	return &StructBuilder{isUnion: isUnion, fields: NewOrderedMap[*Field](), align: 1}
}

func (b *StructBuilder) closeBitUnit() {
	if b.bitUnitType != nil && !b.isUnion {
		end := b.bitUnitOffset + b.bitUnitType.Size
		if end > b.offset {
			b.offset = end
		}
	}
	b.bitUnitType = nil
	b.bitCursor = 0
}

// AddField adds a normal (non-bitfield) member.
func (b *StructBuilder) AddField(name string, t *Ctype) *Field {
	b.closeBitUnit()
	off := 0
	if !b.isUnion {
		off = alignUp(b.offset, t.Align)
	}
	f := &Field{Name: name, Type: t, Offset: off}
	if name != "" {
		b.fields.Put(name, f)
	}
	if t.Align > b.align {
		b.align = t.Align
	}
	if b.isUnion {
		if t.Size > b.offset {
			b.offset = t.Size
		}
	} else {
		b.offset = off + t.Size
	}
	return f
}

// AddBitfield adds a bitfield member of the given base integer type and
// width. An empty name reserves the bits as padding without becoming a
// lookup-visible field.
func (b *StructBuilder) AddBitfield(name string, t *Ctype, width int) *Field {
	if t.Align > b.align {
		b.align = t.Align
	}
	unitBits := t.Size * 8
	if !b.isUnion && b.bitUnitType != nil && b.bitUnitType.Size == t.Size && b.bitCursor+width <= unitBits {
		f := &Field{Name: name, Type: t, Offset: b.bitUnitOffset, BitOff: b.bitCursor, BitSize: width}
		b.bitCursor += width
		if name != "" {
			b.fields.Put(name, f)
		}
		return f
	}
	b.closeBitUnit()
	off := 0
	if !b.isUnion {
		off = alignUp(b.offset, t.Align)
		b.bitUnitOffset = off
		b.bitUnitType = t
		b.bitCursor = width
	}
	f := &Field{Name: name, Type: t, Offset: off, BitOff: 0, BitSize: width}
	if name != "" {
		b.fields.Put(name, f)
	}
	if b.isUnion {
		if t.Size > b.offset {
			b.offset = t.Size
		}
	}
	return f
}

// AddAnonymousMember promotes the fields of an unnamed nested struct/union
// member into the enclosing layout, offsetting each inner field by the
// base offset the member itself would occupy.
func (b *StructBuilder) AddAnonymousMember(t *Ctype) {
	b.closeBitUnit()
	base := 0
	if !b.isUnion {
		base = alignUp(b.offset, t.Align)
	}
	for _, inner := range t.Fields.Values() {
		promoted := &Field{
			Name:    inner.Name,
			Type:    inner.Type,
			Offset:  base + inner.Offset,
			BitOff:  inner.BitOff,
			BitSize: inner.BitSize,
		}
		if inner.Name != "" {
			b.fields.Put(inner.Name, promoted)
		}
	}
	if t.Align > b.align {
		b.align = t.Align
	}
	if b.isUnion {
		if t.Size > b.offset {
			b.offset = t.Size
		}
	} else {
		b.offset = base + t.Size
	}
}

// Finish freezes the layout and returns the completed, monotonic struct
// type: once returned, its field map never changes again.
func (b *StructBuilder) Finish(tagName string) *Ctype {
	b.closeBitUnit()
	size := alignUp(b.offset, b.align)
	kind := CTStruct
	if b.isUnion {
		kind = CTUnion
	}
	return &Ctype{
		Kind:    kind,
		Size:    size,
		Align:   b.align,
		Fields:  b.fields,
		TagName: tagName,
	}
}
