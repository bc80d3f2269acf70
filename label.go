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

// LabelAllocator hands out ".Lxxx" labels with a monotonically increasing
// counter, unique per compilation.
type LabelAllocator struct {
	next int
}

// New returns a fresh label.
func (la *LabelAllocator) New() string {
	n := la.next
	la.next++
	return fmt.Sprintf(".L%d", n)
}
