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

// CompilerOptions configures a single translation, mirroring the cobra
// flags main.go exposes.
type CompilerOptions struct {
	WarnAsError bool
	Verbose     bool
}

// Compiler is the single explicit context threaded through the file
// stack, lexer, parser, and codegen, replacing the source's global
// mutable state that would otherwise be package globals: the file stack, lexer
// buffers, code-generator jump labels, and label counter all hang off
// this struct (or off values it owns) instead of package-level globals.
type Compiler struct {
	Opts   CompilerOptions
	Diag   *Diagnostics
	Src    *SourceStack
	Lex    *Lexer
	Labels LabelAllocator
	Scopes *ScopeStack
}

// NewCompiler creates a Compiler ready for Compile.
func NewCompiler(opts CompilerOptions) *Compiler {
	diag := &Diagnostics{WarnAsError: opts.WarnAsError, Verbose: opts.Verbose}
	return &Compiler{
		Opts: opts,
		Diag: diag,
	}
}

// Compile runs the full pipeline — lex, parse, codegen — over filename
// ("-" for stdin) and returns the generated assembly text.
func (c *Compiler) Compile(filename string) (asm string, err error) {
	c.Src = NewSourceStack(c.Diag)
	if pushErr := c.Src.PushFile(filename); pushErr != nil {
		return "", pushErr
	}
	c.Lex = NewLexer(c.Src, c.Diag)
	c.Scopes = NewScopeStack()

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*fatalError); ok {
				err = fmt.Errorf("%s", fe.msg)
				return
			}
			panic(r)
		}
	}()

	c.Diag.Logf("parsing %s", filename)
	p := NewParser(c)
	prog := p.ParseProgram()

	c.Diag.Logf("generating code")
	gen := NewCodegen(c)
	asm = gen.Emit(prog)
	return asm, nil
}
