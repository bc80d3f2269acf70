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

import "strings"

// tidyAssembly is a light textual cleanup pass over the emitted GNU AT&T
// text: collapsing runs of blank lines the line-by-line emitter leaves
// behind, and trimming trailing whitespace. It stands in for
// klauspost/asmfmt, which only understands Plan 9/Go assembly syntax and
// cannot be pointed at AT&T text; see DESIGN.md for why that dependency
// was kept conceptually (a formatting pass still runs) but not imported.
func tidyAssembly(asm string) string {
	lines := strings.Split(asm, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
