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

// Node is the AST's tagged-variant marker. Each concrete type below is one
// variant; codegen and any other consumer dispatches with a type switch,
// which the Go compiler statically requires to name every case it cares
// about (the replacement for the source's kind-integer-plus-shared-struct
// idiom).
type Node interface {
	Position() Position
	Type() *Ctype
}

// NodeBase carries the fields every expression/statement node shares.
type NodeBase struct {
	Pos   Position
	CType *Ctype
}

func (n NodeBase) Position() Position { return n.Pos }
func (n NodeBase) Type() *Ctype        { return n.CType }

// NodeLiteral is an integer or floating-point constant. Data-section
// labels for floats are assigned lazily, at most once, on first codegen
// use, and memoized so repeated references share one label.
type NodeLiteral struct {
	NodeBase
	IVal    int64
	FVal    float64
	IsFloat bool
	Label   string
}

// NodeString is a string literal; its data-section label is likewise
// assigned lazily and memoized.
type NodeString struct {
	NodeBase
	Value    string
	Encoding Encoding
	Label    string
}

// InitEntry is one flattened scalar write into an aggregate being
// initialized: value expression, destination byte offset within the
// object, and the scalar type to store. Nested brace initializers and
// designators are flattened into these during parsing.
type InitEntry struct {
	Value  Node
	Offset int
	Type   *Ctype
}

// NodeVar is an identifier reference: a local (frame-relative, LOff < 0)
// or global (label-relative) object. The same *NodeVar pointer is shared
// by every reference to the variable, so Init (a local's deferred
// initializer list) can be cleared after its first emission to guarantee
// it runs exactly once even though the variable may be referenced many
// times in its scope.
type NodeVar struct {
	NodeBase
	Name    string
	IsLocal bool
	LOff    int    // locals only; < 0, relative to %rbp
	Label   string // globals only; assembler label
	Init    []*InitEntry
}

// NodeBinop covers the arithmetic/bitwise/comparison binary operators.
// Op is a keyword id or a literal operator byte (e.g. '+').
type NodeBinop struct {
	NodeBase
	Op          int
	Left, Right Node
}

// NodeLogical covers short-circuit && and ||.
type NodeLogical struct {
	NodeBase
	Op          int // KwLogAnd or KwLogOr
	Left, Right Node
}

// NodeAssign is a plain '=' assignment to an arbitrary lvalue.
type NodeAssign struct {
	NodeBase
	Left, Right Node
}

// NodeCompoundAssign covers += -= *= /= %= <<= >>= &= |= ^=.
type NodeCompoundAssign struct {
	NodeBase
	Op          int
	Left, Right Node
}

// NodeIncDec covers pre/post ++/--.
type NodeIncDec struct {
	NodeBase
	Op      int // KwInc or KwDec
	Operand Node
	Prefix  bool
}

// NodeUnary covers unary !, ~, +, -.
type NodeUnary struct {
	NodeBase
	Op      int
	Operand Node
}

// NodeAddr is address-of (&).
type NodeAddr struct {
	NodeBase
	Operand Node
}

// NodeDeref is dereference (*).
type NodeDeref struct {
	NodeBase
	Operand Node
}

// NodeCast is an explicit (T)expr or GNU ((T)){expr} parenthesized cast;
// NodeBase.CType is the target type.
type NodeCast struct {
	NodeBase
	Operand Node
}

// NodeConv is an implicit conversion the parser inserts whenever a binary
// or assignment operand's type differs from the result type.
type NodeConv struct {
	NodeBase
	Operand Node
}

// NodeIf covers if/else. Ternary uses the same shape (NodeTernary).
type NodeIf struct {
	NodeBase
	Cond, Then, Else Node
}

// NodeTernary is the ?: expression.
type NodeTernary struct {
	NodeBase
	Cond, Then, Else Node
}

type NodeFor struct {
	NodeBase
	Init, Cond, Step, Body Node
}

type NodeWhile struct {
	NodeBase
	Cond, Body Node
}

type NodeDo struct {
	NodeBase
	Cond, Body Node
}

// NodeCase is one case (or GNU range case LO ... HI) inside a switch.
type NodeCase struct {
	NodeBase
	Begin, End int64
	IsRange    bool
	Label      string
}

// NodeDefault is the switch's default: target.
type NodeDefault struct {
	NodeBase
	Label string
}

type NodeSwitch struct {
	NodeBase
	Tag     Node
	Body    Node
	Cases   []*NodeCase
	Default *NodeDefault
}

type NodeGoto struct {
	NodeBase
	Label    string
	Resolved string
}

type NodeLabel struct {
	NodeBase
	Name    string
	Emitted string
}

type NodeBreak struct{ NodeBase }
type NodeContinue struct{ NodeBase }

type NodeReturn struct {
	NodeBase
	Value Node
}

// NodeCall is a direct call (function name resolved at parse time).
type NodeCall struct {
	NodeBase
	FuncName string
	FuncType *Ctype
	Args     []Node
}

// NodeIndirectCall is a call through a function-pointer expression.
type NodeIndirectCall struct {
	NodeBase
	Func     Node
	FuncType *Ctype
	Args     []Node
}

// NodeStructRef is base.field / base->field (already normalized to a
// direct field reference on the base object); Field carries the field's
// offset within the base's type, so codegen never re-walks the struct.
type NodeStructRef struct {
	NodeBase
	Base  Node
	Field *Field
}

// NodeDecl is a declaration statement: a target variable plus its flat,
// offset-sorted, non-overlapping initializer list (last designator wins
// on a repeated offset, enforced at flattening time).
type NodeDecl struct {
	NodeBase
	Var      *NodeVar
	InitList []*InitEntry
}

// NodeBlock is a compound statement; its scope was already resolved at
// parse time so codegen only needs to walk Stmts in order.
type NodeBlock struct {
	NodeBase
	Stmts []Node
}

// NodeFuncDef is a function definition: name, type, parameters (each an
// lvar-node), locals in declaration order (frame layout depends on this
// order), and body.
type NodeFuncDef struct {
	NodeBase
	Name     string
	FuncType *Ctype
	Params   []*NodeVar
	Locals   []*NodeVar
	Body     Node
	IsStatic bool

	// codegen-filled bookkeeping.
	endLabel    string
	vaGPUsed    int
	vaFPUsed    int
	vaGPCursor  int
	vaFPCursor  int
}

type NodeVaStart struct {
	NodeBase
	Ap Node
}

// NodeVaArg's NodeBase.CType is the type being fetched.
type NodeVaArg struct {
	NodeBase
	Ap Node
}

type NodeVaEnd struct {
	NodeBase
	Ap Node
}

// Program is the parser's output: a list of top-level declarations, in
// the order functions/globals emit, in strict textual order.
type Program struct {
	Decls []Node // *NodeFuncDef or *NodeDecl (global variable)
}
