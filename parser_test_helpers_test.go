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

// newTestParser builds a Parser over an in-memory source, wired the same
// way Compiler.Compile wires one, for tests that exercise the parser in
// isolation without running a full compilation.
func newTestParser(src string) *Parser {
	diag := &Diagnostics{}
	c := &Compiler{Diag: diag}
	c.Src = NewSourceStack(diag)
	c.Src.PushString("test.c", src)
	c.Lex = NewLexer(c.Src, diag)
	c.Scopes = NewScopeStack()
	return NewParser(c)
}
