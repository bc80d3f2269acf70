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

import "sort"

// Initializer is the parser's intermediate representation of an
// initializer before it is flattened against a concrete type: either a
// single assignment-expression, or a (possibly designated) brace list.
type Initializer struct {
	Expr Node
	List []*initListItem
}

type designator struct {
	isField bool
	field   string
	index   int
}

type initListItem struct {
	designators []designator
	value       *Initializer
}

// parseInitializer parses one initializer, brace-enclosed or bare.
func (p *Parser) parseInitializer(ty *Ctype) *Initializer {
	if !p.is('{') {
		return &Initializer{Expr: p.parseAssign()}
	}
	p.next()
	init := &Initializer{}
	for !p.is('}') {
		item := p.parseInitListItem()
		init.List = append(init.List, item)
		if !p.accept(',') {
			break
		}
	}
	p.expect('}')
	return init
}

func (p *Parser) parseInitListItem() *initListItem {
	var ds []designator
	for p.is('.') || p.is('[') {
		if p.accept('.') {
			ds = append(ds, designator{isField: true, field: p.expectIdent()})
		} else {
			p.next()
			idx := p.parseConstantExpr()
			p.expect(']')
			ds = append(ds, designator{index: int(idx)})
		}
	}
	if len(ds) > 0 {
		p.expect('=')
	}
	return &initListItem{designators: ds, value: p.parseInitializerAny()}
}

// parseInitializerAny parses a nested initializer without knowing its
// target type yet (designator resolution against the type happens during
// flattening); a brace immediately ahead always opens a nested list.
func (p *Parser) parseInitializerAny() *Initializer {
	if !p.is('{') {
		return &Initializer{Expr: p.parseAssign()}
	}
	return p.parseInitializer(nil)
}

// flattenInitializer normalizes init against ty into a flat, offset-
// sorted, non-overlapping list of scalar writes, each relative to base.
// A later item whose range overlaps an earlier one supersedes it,
// implementing "last designator wins" for repeated/overlapping offsets.
func flattenInitializer(p *Parser, init *Initializer, ty *Ctype, base int) []*InitEntry {
	if init == nil {
		return nil
	}
	switch {
	case ty.Kind == CTArray && ty.Pointee != nil && (ty.Pointee.Kind == CTChar) && init.Expr != nil:
		if s, ok := init.Expr.(*NodeString); ok {
			if ty.Len < 0 {
				CompleteArray(ty, len(s.Value)+1)
			}
			return []*InitEntry{{Value: s, Offset: base, Type: ty}}
		}
	case IsStructOrUnion(ty):
		return flattenAggregate(p, init, ty, base)
	case ty.Kind == CTArray:
		return flattenAggregate(p, init, ty, base)
	}
	// Scalar target: a bare expression, or (C allows) a single-element
	// brace list wrapping one.
	expr := init.Expr
	if expr == nil && len(init.List) == 1 && init.List[0].value != nil {
		return flattenInitializer(p, init.List[0].value, ty, base)
	}
	if expr == nil {
		return nil
	}
	return []*InitEntry{{Value: p.convert(expr, ty), Offset: base, Type: ty}}
}

// flattenAggregate handles both struct/union and array targets: the two
// only differ in how a designator maps to a cursor position and how the
// cursor advances between un-designated items.
func flattenAggregate(p *Parser, init *Initializer, ty *Ctype, base int) []*InitEntry {
	var entries []*InitEntry
	if init.Expr != nil {
		// Whole-object initializer from another object of the same type
		// (e.g. "struct P q = p;"); codegen block-copies it as a unit.
		return []*InitEntry{{Value: p.convert(init.Expr, ty), Offset: base, Type: ty}}
	}

	isArray := ty.Kind == CTArray
	var fieldNames []string
	if !isArray {
		fieldNames = ty.Fields.Keys()
	}
	cursor := 0
	maxIndex := -1

	for _, item := range init.List {
		if len(item.designators) > 0 {
			cursor = resolveDesignatorCursor(p, ty, isArray, fieldNames, item.designators[0])
		}

		var elemType *Ctype
		var off int
		if isArray {
			elemType = ty.Pointee
			off = base + cursor*elemType.Size
			if cursor > maxIndex {
				maxIndex = cursor
			}
		} else {
			if cursor >= len(fieldNames) {
				break
			}
			f, _ := ty.Fields.Get(fieldNames[cursor])
			elemType = f.Type
			off = base + f.Offset
		}

		nestedInit := item.value
		if len(item.designators) > 1 {
			nestedInit = wrapRemainingDesignators(item.designators[1:], item.value)
		}
		nested := flattenInitializer(p, nestedInit, elemType, off)
		entries = overlayEntries(entries, nested, off, elemType.Size)
		cursor++
	}

	if isArray && ty.Len < 0 {
		CompleteArray(ty, maxIndex+1)
	}
	return entries
}

// resolveDesignatorCursor maps a single leading designator to its cursor
// position: an index for arrays, a field position for structs/unions.
func resolveDesignatorCursor(p *Parser, ty *Ctype, isArray bool, fieldNames []string, d designator) int {
	if isArray {
		if d.isField {
			p.errorf(Position{}, "field designator used on an array")
			return 0
		}
		return d.index
	}
	if !d.isField {
		p.errorf(Position{}, "array designator used on a struct/union")
		return 0
	}
	for i, name := range fieldNames {
		if name == d.field {
			return i
		}
	}
	p.errorf(Position{}, "no member named '%s'", d.field)
	return 0
}

// wrapRemainingDesignators re-wraps a multi-level designator's tail
// ("[2].x = v" after consuming "[2]") as a one-item nested initializer so
// the recursive flatten call resolves the rest against the inner type.
func wrapRemainingDesignators(rest []designator, value *Initializer) *Initializer {
	return &Initializer{List: []*initListItem{{designators: rest, value: value}}}
}

// overlayEntries merges nested (all falling within [off, off+size)) into
// entries, first discarding any previously accumulated entry whose start
// offset lies inside that window, so a repeated designator's later value
// wins; the result is kept sorted by offset.
func overlayEntries(entries []*InitEntry, nested []*InitEntry, off, size int) []*InitEntry {
	kept := entries[:0:0]
	for _, e := range entries {
		if e.Offset < off || e.Offset >= off+size {
			kept = append(kept, e)
		}
	}
	kept = append(kept, nested...)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Offset < kept[j].Offset })
	return kept
}
