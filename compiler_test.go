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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func compileSource(t *testing.T, src string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.c")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing source: %v", err)
	}
	c := NewCompiler(CompilerOptions{})
	return c.Compile(path)
}

func TestRedeclarationConflictingTypeIsFatal(t *testing.T) {
	_, err := compileSource(t, "int x;\ndouble x;\n")
	if err == nil {
		t.Fatalf("expected a fatal diagnostic for conflicting redeclaration")
	}
}

func TestRedeclarationSameTypeIsAccepted(t *testing.T) {
	_, err := compileSource(t, "extern int x;\nint x;\nint main(void) { return x; }\n")
	if err != nil {
		t.Fatalf("compatible redeclaration should not error: %v", err)
	}
}

// TestVaArgStraightLineReadsSucceed exercises the working va_start/va_arg
// path: three variadic int reads following one named int parameter fit
// comfortably inside the six-GP-register budget.
func TestVaArgStraightLineReadsSucceed(t *testing.T) {
	asm, err := compileSource(t, `
#include <stdarg.h>

int sum3(int n, ...) {
	va_list ap;
	va_start(ap, n);
	int x = va_arg(ap, int);
	int y = va_arg(ap, int);
	int z = va_arg(ap, int);
	va_end(ap);
	return x + y + z;
}
`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !strings.Contains(asm, "sum3:") {
		t.Fatalf("asm missing sum3 label:\n%s", asm)
	}
}

// TestVaArgOverflowIsFatal exercises the bounds check genVaArg must apply:
// one named int parameter consumes GP slot 0, so the sixth straight-line
// va_arg(ap, int) call lands on slot 6, past the six-register budget, and
// must be a fatal diagnostic rather than a silent out-of-area read.
func TestVaArgOverflowIsFatal(t *testing.T) {
	_, err := compileSource(t, `
#include <stdarg.h>

int overflow(int a, ...) {
	va_list ap;
	va_start(ap, a);
	int v0 = va_arg(ap, int);
	int v1 = va_arg(ap, int);
	int v2 = va_arg(ap, int);
	int v3 = va_arg(ap, int);
	int v4 = va_arg(ap, int);
	int v5 = va_arg(ap, int);
	va_end(ap);
	return v0 + v1 + v2 + v3 + v4 + v5;
}
`)
	if err == nil {
		t.Fatalf("expected a fatal diagnostic for a va_arg past the register-save area")
	}
}

// TestFunctionPrototypeRedeclaredTwiceDoesNotHang guards against a bug
// where typesCompatible ran a function type back through decay()'s
// pointer-to-self wrapping, recursing on the same pair forever.
func TestFunctionPrototypeRedeclaredTwiceDoesNotHang(t *testing.T) {
	_, err := compileSource(t, `
int side_effect(void);
int side_effect(void);

int main(void) {
	return 0;
}
`)
	if err != nil {
		t.Fatalf("repeated identical prototype should not error: %v", err)
	}
}
