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

import "github.com/samber/lo"

// OrderedMap is an insertion-order-preserving string-keyed map. Struct
// field tables and each lexical scope's variable, tag and typedef tables
// all need this: layout and shadowing rules depend on declaration order,
// which a plain Go map does not preserve.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Put inserts or overwrites the value for key, preserving the original
// insertion position on overwrite.
func (m *OrderedMap[V]) Put(key string, v V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get looks up key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

// Values returns the values in insertion (i.e. key) order.
func (m *OrderedMap[V]) Values() []V {
	return lo.Map(m.keys, func(k string, _ int) V {
		v, _ := m.values[k]
		return v
	})
}

// Entries returns key/value pairs in insertion order.
func (m *OrderedMap[V]) Entries() []lo.Tuple2[string, V] {
	return lo.Map(m.keys, func(k string, _ int) lo.Tuple2[string, V] {
		v, _ := m.values[k]
		return lo.Tuple2[string, V]{A: k, B: v}
	})
}

// Clone makes a shallow copy whose Put calls do not affect the original.
func (m *OrderedMap[V]) Clone() *OrderedMap[V] {
	c := NewOrderedMap[V]()
	for _, k := range m.keys {
		c.Put(k, m.values[k])
	}
	return c
}
