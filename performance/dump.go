// This file is part of MiniTX.
//
// MiniTX is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniTX is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniTX.  If not, see <https://www.gnu.org/licenses/>.

package performance

import (
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/jetsetilly/minitx/curated"
)

// DumpState writes a graphviz visualisation of the supplied object graph to
// the named file. Useful for inspecting the relationship of the machine's
// components after an emulation session.
//
// The output is in the dot format and can be rendered with:
//
//	dot -Tsvg state.dot > state.svg
func DumpState(filename string, state interface{}) error {
	f, err := os.Create(filename)
	if err != nil {
		return curated.Errorf("performance: %v", err)
	}
	defer f.Close()

	memviz.Map(f, state)

	return nil
}
