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

func TestParseDeclaratorSimplePointer(t *testing.T) {
	p := newTestParser("*a")
	name, ty := p.parseDeclarator(intType)
	if name != "a" {
		t.Fatalf("name = %q, want a", name)
	}
	if ty.Kind != CTPtr || ty.Pointee != intType {
		t.Fatalf("ty = %+v, want pointer to int", ty)
	}
}

func TestParseDeclaratorArrayOfPointers(t *testing.T) {
	// int *a[3] is array-of-3 pointer-to-int.
	p := newTestParser("*a[3]")
	name, ty := p.parseDeclarator(intType)
	if name != "a" {
		t.Fatalf("name = %q, want a", name)
	}
	if ty.Kind != CTArray || ty.Len != 3 {
		t.Fatalf("ty = %+v, want array of 3", ty)
	}
	if ty.Pointee.Kind != CTPtr || ty.Pointee.Pointee != intType {
		t.Fatalf("element type = %+v, want pointer to int", ty.Pointee)
	}
}

func TestParseDeclaratorPointerToArray(t *testing.T) {
	// int (*a)[3] is pointer-to-array-of-3-int: the declarator grammar's
	// placeholder/backpatch case, since the parens force the "*a" to bind
	// tighter than the trailing "[3]".
	p := newTestParser("(*a)[3]")
	name, ty := p.parseDeclarator(intType)
	if name != "a" {
		t.Fatalf("name = %q, want a", name)
	}
	if ty.Kind != CTPtr {
		t.Fatalf("ty.Kind = %v, want CTPtr (pointer to array)", ty.Kind)
	}
	arr := ty.Pointee
	if arr.Kind != CTArray || arr.Len != 3 {
		t.Fatalf("pointee = %+v, want array of 3", arr)
	}
	if arr.Pointee != intType {
		t.Fatalf("array element = %+v, want int", arr.Pointee)
	}
}

func TestParseDeclaratorFunctionPointer(t *testing.T) {
	// int (*fp)(int, int) is pointer-to-function(int,int)->int.
	p := newTestParser("(*fp)(int, int)")
	name, ty := p.parseDeclarator(intType)
	if name != "fp" {
		t.Fatalf("name = %q, want fp", name)
	}
	if ty.Kind != CTPtr {
		t.Fatalf("ty.Kind = %v, want CTPtr (pointer to function)", ty.Kind)
	}
	fn := ty.Pointee
	if fn.Kind != CTFunc {
		t.Fatalf("pointee = %+v, want function type", fn)
	}
	if fn.ReturnType != intType {
		t.Fatalf("return type = %+v, want int", fn.ReturnType)
	}
	if len(fn.ParameterTypes) != 2 || fn.ParameterTypes[0] != intType || fn.ParameterTypes[1] != intType {
		t.Fatalf("params = %+v, want [int int]", fn.ParameterTypes)
	}
}

func TestParseDeclaratorArrayOfArrays(t *testing.T) {
	// int a[3][4] is array-of-3 array-of-4 int (row-major nesting order).
	p := newTestParser("a[3][4]")
	name, ty := p.parseDeclarator(intType)
	if name != "a" {
		t.Fatalf("name = %q, want a", name)
	}
	if ty.Kind != CTArray || ty.Len != 3 {
		t.Fatalf("outer = %+v, want array of 3", ty)
	}
	inner := ty.Pointee
	if inner.Kind != CTArray || inner.Len != 4 || inner.Pointee != intType {
		t.Fatalf("inner = %+v, want array of 4 int", inner)
	}
}

func TestAbstractDeclaratorPointerToArray(t *testing.T) {
	// sizeof-style type-name context: "int (*)[3]" has no identifier.
	p := newTestParser("(*)[3]")
	ty := p.abstractDeclarator(intType)
	if ty.Kind != CTPtr {
		t.Fatalf("ty.Kind = %v, want CTPtr", ty.Kind)
	}
	arr := ty.Pointee
	if arr.Kind != CTArray || arr.Len != 3 || arr.Pointee != intType {
		t.Fatalf("pointee = %+v, want array of 3 int", arr)
	}
}

func TestAbstractDeclaratorFunctionSuffixNotNestedDeclarator(t *testing.T) {
	// "int (int, double)" is a function type, not a parenthesized nested
	// declarator: isDeclSpecAhead must disambiguate using the contents
	// after "(".
	p := newTestParser("(int, double)")
	ty := p.abstractDeclarator(intType)
	if ty.Kind != CTFunc {
		t.Fatalf("ty.Kind = %v, want CTFunc", ty.Kind)
	}
	if ty.ReturnType != intType {
		t.Fatalf("return type = %+v, want int", ty.ReturnType)
	}
	if len(ty.ParameterTypes) != 2 || ty.ParameterTypes[0] != intType || ty.ParameterTypes[1] != doubleType {
		t.Fatalf("params = %+v, want [int double]", ty.ParameterTypes)
	}
}

func TestParseTypeNamePointer(t *testing.T) {
	p := newTestParser("int *")
	ty := p.parseTypeName()
	if ty.Kind != CTPtr || ty.Pointee != intType {
		t.Fatalf("ty = %+v, want pointer to int", ty)
	}
}
