/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"

	"pagecraft/internal/domain"
)

// DefaultLimit is the number of past snapshots kept when Config.Limit is unset.
const DefaultLimit = 50

// Config controls the depth of the history.
type Config struct {
	// Limit caps the past stack; the oldest entries are evicted first.
	Limit int
}

// History is a bounded snapshot history of the whole page collection.
// Every entry is a deep copy, so later mutations of the live document never
// leak into it. There is no coalescing: each Snapshot call is one undo step.
// It is safe for concurrent use.
type History struct {
	cfg    Config
	mu     sync.Mutex
	past   [][]domain.Page // oldest first
	future [][]domain.Page // next redo first
}

func New(cfg Config) *History {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &History{cfg: cfg}
}

// Snapshot records pages as the newest undo step and invalidates redo.
func (h *History) Snapshot(pages []domain.Page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append(h.past, domain.ClonePages(pages))
	h.future = nil
	if n := len(h.past) - h.cfg.Limit; n > 0 {
		h.past = append([][]domain.Page(nil), h.past[n:]...)
	}
}

// Undo returns the previous snapshot and records current for redo.
// ok is false when there is nothing to undo.
func (h *History) Undo(current []domain.Page) (pages []domain.Page, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return nil, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([][]domain.Page{domain.ClonePages(current)}, h.future...)
	return domain.ClonePages(prev), true
}

// Redo returns the next snapshot and records current for undo.
func (h *History) Redo(current []domain.Page) (pages []domain.Page, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return nil, false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, domain.ClonePages(current))
	return domain.ClonePages(next), true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Stats returns the current stack depths for diagnostics.
func (h *History) Stats() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// Clear drops both stacks, e.g. after opening another document.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

// Limit returns the configured past cap.
func (h *History) Limit() int { return h.cfg.Limit }
