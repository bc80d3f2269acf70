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

// Scope is one lexical level: an ordered mapping of names to variables,
// plus its own struct/union tag and typedef tables (only the file scope's
// tag/typedef tables are load-bearing for this subset, but every scope
// carries its own so a lookup can walk outward uniformly).
type Scope struct {
	vars     *OrderedMap[*NodeVar]
	tags     *OrderedMap[*Ctype]
	typedefs *OrderedMap[*Ctype]
}

func newScope() *Scope {
	return &Scope{
		vars:     NewOrderedMap[*NodeVar](),
		tags:     NewOrderedMap[*Ctype](),
		typedefs: NewOrderedMap[*Ctype](),
	}
}

// ScopeStack is the parser's stack of lexical scopes; entry pushes a
// fresh mapping, exit pops it, and a lookup walks outer scopes.
type ScopeStack struct {
	levels []*Scope
}

// NewScopeStack creates a stack with one (file) scope already pushed,
// seeded with the builtin typedefs <stdarg.h> would otherwise provide
// (there is no #include resolution to pull a real header in).
func NewScopeStack() *ScopeStack {
	s := &ScopeStack{}
	s.Push()
	s.DeclareTypedef("va_list", vaListType)
	return s
}

func (s *ScopeStack) Push() {
	s.levels = append(s.levels, newScope())
}

func (s *ScopeStack) Pop() {
	if len(s.levels) > 1 {
		s.levels = s.levels[:len(s.levels)-1]
	}
}

func (s *ScopeStack) top() *Scope {
	return s.levels[len(s.levels)-1]
}

// FileScope returns the outermost (file) scope.
func (s *ScopeStack) FileScope() *Scope {
	return s.levels[0]
}

// DeclareVar inserts name into the current scope.
func (s *ScopeStack) DeclareVar(name string, v *NodeVar) {
	s.top().vars.Put(name, v)
}

// LookupVar walks outward from the current scope.
func (s *ScopeStack) LookupVar(name string) (*NodeVar, bool) {
	for i := len(s.levels) - 1; i >= 0; i-- {
		if v, ok := s.levels[i].vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// LookupVarInCurrentScope looks up name without walking to outer scopes,
// for redeclaration checks against the scope a new declarator is about
// to be inserted into.
func (s *ScopeStack) LookupVarInCurrentScope(name string) (*NodeVar, bool) {
	return s.top().vars.Get(name)
}

// DeclareTag inserts a struct/union/enum tag into the current scope.
func (s *ScopeStack) DeclareTag(name string, t *Ctype) {
	s.top().tags.Put(name, t)
}

func (s *ScopeStack) LookupTag(name string) (*Ctype, bool) {
	for i := len(s.levels) - 1; i >= 0; i-- {
		if t, ok := s.levels[i].tags.Get(name); ok {
			return t, true
		}
	}
	return nil, false
}

// DeclareTypedef inserts a typedef name into the current scope.
func (s *ScopeStack) DeclareTypedef(name string, t *Ctype) {
	s.top().typedefs.Put(name, t)
}

// LookupTypedef walks outward; used by the declarator grammar's type-name
// lookahead predicate.
func (s *ScopeStack) LookupTypedef(name string) (*Ctype, bool) {
	for i := len(s.levels) - 1; i >= 0; i-- {
		if t, ok := s.levels[i].typedefs.Get(name); ok {
			return t, true
		}
	}
	return nil, false
}

// IsTypeName reports whether name is a typedef visible from the current
// scope, the predicate the declarator grammar needs to disambiguate a
// type-name from an expression.
func (s *ScopeStack) IsTypeName(name string) bool {
	_, ok := s.LookupTypedef(name)
	return ok
}
