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

func fieldOf(t *testing.T, ty *Ctype, name string) *Field {
	t.Helper()
	f, ok := ty.Fields.Get(name)
	if !ok {
		t.Fatalf("field %q not found in %+v", name, ty.Fields.Keys())
	}
	return f
}

func TestStructBuilderBasicLayout(t *testing.T) {
	// struct { char c; int i; char c2; } — padding before i, trailing pad.
	b := NewStructBuilder(false)
	b.AddField("c", charType)
	b.AddField("i", intType)
	b.AddField("c2", charType)
	st := b.Finish("s")

	if got := fieldOf(t, st, "c").Offset; got != 0 {
		t.Errorf("c offset = %d, want 0", got)
	}
	if got := fieldOf(t, st, "i").Offset; got != 4 {
		t.Errorf("i offset = %d, want 4", got)
	}
	if got := fieldOf(t, st, "c2").Offset; got != 8 {
		t.Errorf("c2 offset = %d, want 8", got)
	}
	if st.Size != 12 {
		t.Errorf("struct size = %d, want 12", st.Size)
	}
	if st.Align != 4 {
		t.Errorf("struct align = %d, want 4", st.Align)
	}
}

func TestStructBuilderUnionOverlaysFields(t *testing.T) {
	b := NewStructBuilder(true)
	b.AddField("i", intType)
	b.AddField("d", doubleType)
	u := b.Finish("u")
	if fieldOf(t, u, "i").Offset != 0 || fieldOf(t, u, "d").Offset != 0 {
		t.Errorf("union fields must all start at offset 0")
	}
	if u.Size != 8 {
		t.Errorf("union size = %d, want 8 (largest member)", u.Size)
	}
}

func TestStructBuilderBitfieldPacking(t *testing.T) {
	// struct { unsigned a:3; unsigned b:5; unsigned c:25; } packs a and b
	// into the first unsigned (3+5=8 <= 32), then c needs a fresh unit
	// since 8+25=33 > 32.
	b := NewStructBuilder(false)
	b.AddBitfield("a", uintType, 3)
	b.AddBitfield("b", uintType, 5)
	b.AddBitfield("c", uintType, 25)
	st := b.Finish("bits")

	a := fieldOf(t, st, "a")
	bf := fieldOf(t, st, "b")
	c := fieldOf(t, st, "c")
	if a.Offset != 0 || a.BitOff != 0 || a.BitSize != 3 {
		t.Errorf("a = %+v, want offset 0 bitoff 0 size 3", a)
	}
	if bf.Offset != 0 || bf.BitOff != 3 || bf.BitSize != 5 {
		t.Errorf("b = %+v, want offset 0 bitoff 3 size 5", bf)
	}
	if c.Offset != 4 || c.BitOff != 0 {
		t.Errorf("c = %+v, want a fresh storage unit at offset 4", c)
	}
	if st.Size != 8 {
		t.Errorf("struct size = %d, want 8", st.Size)
	}
}

func TestStructBuilderAnonymousMemberPromotion(t *testing.T) {
	inner := NewStructBuilder(false)
	inner.AddField("x", intType)
	inner.AddField("y", intType)
	innerTy := inner.Finish("")

	outer := NewStructBuilder(false)
	outer.AddField("tag", charType)
	outer.AddAnonymousMember(innerTy)
	st := outer.Finish("outer")

	x := fieldOf(t, st, "x")
	y := fieldOf(t, st, "y")
	if x.Offset != 4 || y.Offset != 8 {
		t.Errorf("promoted fields x=%+v y=%+v, want offsets 4 and 8", x, y)
	}
}

func TestNewArrayTypeSizeAndIncomplete(t *testing.T) {
	arr := NewArrayType(intType, 10)
	if arr.Size != 40 {
		t.Errorf("size = %d, want 40", arr.Size)
	}
	incomplete := NewArrayType(intType, -1)
	if incomplete.Size != 0 {
		t.Errorf("incomplete array size = %d, want 0 before CompleteArray", incomplete.Size)
	}
	CompleteArray(incomplete, 5)
	if incomplete.Size != 20 || incomplete.Len != 5 {
		t.Errorf("after CompleteArray: size=%d len=%d, want 20 and 5", incomplete.Size, incomplete.Len)
	}
}

func TestUsualArithPointerWins(t *testing.T) {
	ptr := NewPtrType(intType)
	got := usualArith('+', ptr, intType)
	if got != ptr {
		t.Errorf("pointer + int should keep the pointer type")
	}
}

func TestUsualArithFloatDominates(t *testing.T) {
	if got := usualArith('+', intType, doubleType); got != doubleType {
		t.Errorf("int + double = %v, want double", got)
	}
	if got := usualArith('+', floatType, intType); got != floatType {
		t.Errorf("float + int = %v, want float", got)
	}
}

func TestUsualArithUnsignedDominatesSameSize(t *testing.T) {
	got := usualArith('+', intType, uintType)
	if !got.Unsigned || got.Size != 4 {
		t.Errorf("int + unsigned int = %+v, want unsigned 4-byte", got)
	}
}

func TestUsualArithIntegerPromotionFromChar(t *testing.T) {
	got := usualArith('+', charType, charType)
	if got.Kind != CTInt {
		t.Errorf("char + char = %v, want promoted to int", got.Kind)
	}
}

func TestDecayArrayAndFunction(t *testing.T) {
	arr := NewArrayType(intType, 3)
	if d := decay(arr); d.Kind != CTPtr || d.Pointee != intType {
		t.Errorf("decay(array) = %+v, want pointer to int", d)
	}
	fn := NewFuncType(voidType, nil, false)
	if d := decay(fn); d.Kind != CTPtr || d.Pointee != fn {
		t.Errorf("decay(func) = %+v, want pointer to the function type", d)
	}
}
