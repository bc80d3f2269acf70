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

// Package tests exercises the cc8 library end to end through its public
// Compiler API: each case compiles a small C source file and inspects the
// emitted GNU AT&T assembly text for the structural properties that
// matter, since no assembler or linker is invoked anywhere in this
// pipeline.
package tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cc8-project/cc8"
)

// compile writes src to a temp .c file and runs it through the compiler,
// returning the emitted assembly text.
func compile(t *testing.T, src string) string {
	t.Helper()
	path := writeSource(t, src)
	c := cc8.NewCompiler(cc8.CompilerOptions{})
	asm, err := c.Compile(path)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return asm
}

// compileExpectError is like compile but asserts the compiler rejects src.
func compileExpectError(t *testing.T, src string) error {
	t.Helper()
	path := writeSource(t, src)
	c := cc8.NewCompiler(cc8.CompilerOptions{})
	_, err := c.Compile(path)
	if err == nil {
		t.Fatalf("expected Compile to fail for:\n%s", src)
	}
	return err
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	return path
}

// TestIntegerAdditionExitCode mirrors running the program under a shell and
// checking $?: main returns its argument as the process exit status, so the
// emitted assembly for "return 2+3;" must define main and fall through to
// its epilogue.
func TestIntegerAdditionExitCode(t *testing.T) {
	asm := compile(t, `
int main(void) {
	return 2 + 3;
}
`)
	assert.Contains(t, asm, "main:")
	assert.Contains(t, asm, "ret")
}

// TestPointerArithmeticScaling checks that p+1 on an int* scales by the
// pointee size (4) rather than adding 1 raw byte, emitted as an imul.
func TestPointerArithmeticScaling(t *testing.T) {
	asm := compile(t, `
int *advance(int *p) {
	return p + 1;
}
`)
	assert.Contains(t, asm, "advance:")
	assert.Contains(t, asm, "imul")
	assert.Contains(t, asm, "$4")
}

// TestStructBitfieldRoundTrip checks that a bitfield write followed by a
// read of the same field extracts exactly what was stored, which requires
// correct mask/shift emission on both the store and load paths.
func TestStructBitfieldRoundTrip(t *testing.T) {
	asm := compile(t, `
struct flags {
	unsigned a : 3;
	unsigned b : 5;
};

int roundtrip(void) {
	struct flags f;
	f.a = 5;
	f.b = 17;
	return f.a == 5 && f.b == 17;
}
`)
	assert.Contains(t, asm, "roundtrip:")
	// Both fields live in the same 4-byte storage unit; extracting an
	// unsigned bitfield such as "b" ends with a logical right shift.
	assert.Contains(t, asm, "shr")
}

// TestShortCircuitOrSuppressesRHS checks that the right operand of || is
// only evaluated when the left operand is false, by asserting a call to
// the right operand's function is guarded by a conditional jump.
func TestShortCircuitOrSuppressesRHS(t *testing.T) {
	asm := compile(t, `
int side_effect(void);

int check(int x) {
	return x || side_effect();
}
`)
	assert.Contains(t, asm, "check:")
	assert.Contains(t, asm, "call side_effect")
	assert.Contains(t, asm, "jne")
}

// TestVariadicCallNoFloatArgsClearsAL checks the SysV convention that a
// variadic call site loads %al with the count of vector-register
// arguments used, which is zero here since every vararg is an integer.
func TestVariadicCallNoFloatArgsClearsAL(t *testing.T) {
	asm := compile(t, `
int printf(const char *fmt, ...);

int report(int n) {
	return printf("n=%d\n", n);
}
`)
	assert.Contains(t, asm, "report:")
	assert.Contains(t, asm, "$0, %al")
}

// TestGenericSelectionResolvedAtParseTime checks that _Generic picks its
// branch while parsing: the non-matching branch's call must not appear
// anywhere in the emitted assembly.
func TestGenericSelectionResolvedAtParseTime(t *testing.T) {
	asm := compile(t, `
int only_int_branch(void);
int only_double_branch(void);

int pick(int x) {
	return _Generic(x, int: only_int_branch(), double: only_double_branch());
}
`)
	assert.Contains(t, asm, "pick:")
	assert.Contains(t, asm, "call only_int_branch")
	assert.NotContains(t, asm, "only_double_branch")
}

// TestRedeclarationWithConflictingTypeIsFatal checks that the compiler
// reports a fatal diagnostic rather than silently picking one of two
// conflicting top-level declarations for the same name.
func TestRedeclarationWithConflictingTypeIsFatal(t *testing.T) {
	err := compileExpectError(t, `
int x;
double x;
`)
	assert.Error(t, err)
}
