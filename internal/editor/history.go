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

import (
	"log/slog"

	"pagecraft/internal/domain"
)

// Snapshot records the current pages as one undo step. Gesture owners call it
// once at gesture start (or release) and then stream UpdateBlock calls.
func (e *Editor) Snapshot() {
	e.mu.Lock()
	e.history.Snapshot(e.pages)
	e.mu.Unlock()
}

// Undo restores the previous snapshot. The selection is kept as is and
// resolves to nothing if the block is gone; a vanished active page falls back
// to the first page.
func (e *Editor) Undo() {
	e.restore("undo", e.history.Undo)
}

// Redo re-applies the next snapshot.
func (e *Editor) Redo() {
	e.restore("redo", e.history.Redo)
}

func (e *Editor) restore(op string, step func([]domain.Page) ([]domain.Page, bool)) {
	e.mu.Lock()
	pages, ok := step(e.pages)
	if !ok {
		e.mu.Unlock()
		return
	}
	e.pages = pages
	e.repairLocked()
	e.mu.Unlock()

	past, future := e.history.Stats()
	e.log.Debug(op, slog.Int("past", past), slog.Int("future", future))
	e.emit(Change{Kind: ChangeDocument})
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// HistoryStats returns the depth of the undo and redo stacks.
func (e *Editor) HistoryStats() (past, future int) { return e.history.Stats() }
