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
	"os"
)

// fatalError is the sentinel panic value used to unwind out of the
// parser/codegen recursion after the first fatal diagnostic, without any
// panic-mode resynchronization.
type fatalError struct {
	msg string
}

// Diagnostics centralizes error/warning reporting so the file stack,
// lexer, parser, and codegen never write to stderr directly.
type Diagnostics struct {
	WarnAsError bool
	Verbose     bool

	fatalCount int
	warnCount  int
}

// Errorf reports a fatal diagnostic and aborts the compilation by panicking
// with *fatalError; Compiler.Compile recovers it at the top level.
func (d *Diagnostics) Errorf(pos Position, format string, args ...any) {
	d.fatalCount++
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s: error: %s\n", pos, msg)
	panic(&fatalError{msg: msg})
}

// Warnf reports a warning, or escalates to Errorf when WarnAsError is set.
func (d *Diagnostics) Warnf(pos Position, format string, args ...any) {
	if d.WarnAsError {
		d.Errorf(pos, format, args...)
		return
	}
	d.warnCount++
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s: warning: %s\n", pos, msg)
}

// Logf prints a verbose trace message, visible only with -v.
func (d *Diagnostics) Logf(format string, args ...any) {
	if !d.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "cc8: "+format+"\n", args...)
}

// HasErrors reports whether any fatal diagnostic has been reported.
func (d *Diagnostics) HasErrors() bool {
	return d.fatalCount > 0
}
