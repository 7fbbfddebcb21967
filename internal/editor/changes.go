/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

// ChangeKind classifies a state change for listeners.
type ChangeKind int

const (
	ChangeDocument ChangeKind = iota // whole document replaced (load, undo, redo)
	ChangePages                      // page added, removed or renamed
	ChangeActivePage
	ChangeBlock // ID is the block
	ChangeBlocks
	ChangeSelection
	ChangeMode // device mode, show-all or preview toggled
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeDocument:
		return "document"
	case ChangePages:
		return "pages"
	case ChangeActivePage:
		return "active_page"
	case ChangeBlock:
		return "block"
	case ChangeBlocks:
		return "blocks"
	case ChangeSelection:
		return "selection"
	case ChangeMode:
		return "mode"
	}
	return "unknown"
}

// Change is delivered to listeners after a mutation completed.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Subscribe registers fn for every change and returns a func that removes it.
// Listeners run synchronously on the mutating goroutine and may read the editor.
func (e *Editor) Subscribe(fn func(Change)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Editor) emit(changes ...Change) {
	e.subMu.Lock()
	fns := make([]func(Change), 0, len(e.subs))
	for i := 0; i < e.nextSub; i++ {
		if fn, ok := e.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.subMu.Unlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}
