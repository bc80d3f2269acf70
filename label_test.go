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

import "testing"

func TestLabelAllocatorUniqueAndMonotonic(t *testing.T) {
	var la LabelAllocator
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		l := la.New()
		if seen[l] {
			t.Fatalf("label %q issued twice", l)
		}
		seen[l] = true
		if l[:2] != ".L" {
			t.Fatalf("label %q does not start with .L", l)
		}
	}
}

func TestLabelAllocatorIndependentPerInstance(t *testing.T) {
	var a, b LabelAllocator
	if a.New() != b.New() {
		t.Errorf("two fresh allocators should both start from the same first label")
	}
}
