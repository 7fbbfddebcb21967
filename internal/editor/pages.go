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
	"fmt"
	"log/slog"

	"pagecraft/internal/domain"
)

// AddPage appends a new empty page, makes it active and clears the selection.
func (e *Editor) AddPage() string {
	e.mu.Lock()
	e.history.Snapshot(e.pages)
	p := domain.NewPage(fmt.Sprintf(e.opts.PageNameFormat, len(e.pages)+1))
	e.pages = append(e.pages, p)
	e.activePage = p.ID
	e.selected = domain.None[string]()
	e.mu.Unlock()

	e.log.Debug("page added", slog.String("page", p.ID), slog.String("name", p.Name))
	e.emit(Change{Kind: ChangePages, ID: p.ID}, Change{Kind: ChangeActivePage, ID: p.ID})
	return p.ID
}

// SetActivePage switches pages and clears the selection. Unknown ids are ignored.
func (e *Editor) SetActivePage(id string) {
	e.mu.Lock()
	if domain.FindPage(e.pages, id) == nil {
		e.mu.Unlock()
		return
	}
	e.activePage = id
	e.selected = domain.None[string]()
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeActivePage, ID: id})
}

// RenamePage sets the page name. Any string is accepted, including "";
// trimming and rejecting blank names is left to the presentation layer.
func (e *Editor) RenamePage(id, name string) {
	e.mu.Lock()
	p := domain.FindPage(e.pages, id)
	if p == nil {
		e.mu.Unlock()
		return
	}
	e.history.Snapshot(e.pages)
	p.Name = name
	e.mu.Unlock()
	e.emit(Change{Kind: ChangePages, ID: id})
}

// DeletePage removes a page unless it is the last one. Deleting the active
// page activates the first remaining page. Links to the deleted page elsewhere
// are left in place and behave as absent.
func (e *Editor) DeletePage(id string) {
	e.mu.Lock()
	idx := domain.PageIndex(e.pages, id)
	if idx < 0 || len(e.pages) <= 1 {
		e.mu.Unlock()
		return
	}
	e.history.Snapshot(e.pages)
	e.pages = append(e.pages[:idx:idx], e.pages[idx+1:]...)
	changes := []Change{{Kind: ChangePages, ID: id}}
	if e.activePage == id {
		e.activePage = e.pages[0].ID
		e.selected = domain.None[string]()
		changes = append(changes, Change{Kind: ChangeActivePage, ID: e.activePage})
	}
	e.mu.Unlock()

	e.log.Debug("page deleted", slog.String("page", id))
	e.emit(changes...)
}
