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

// SetDeviceMode switches the canvas width. Unknown modes are ignored.
func (e *Editor) SetDeviceMode(m domain.DeviceMode) {
	if m != domain.DeviceDesktop && m != domain.DeviceMobile {
		return
	}
	e.mu.Lock()
	if e.deviceMode == m {
		e.mu.Unlock()
		return
	}
	e.deviceMode = m
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeMode})
}

func (e *Editor) ToggleShowAllBlocks() {
	e.mu.Lock()
	e.showAll = !e.showAll
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeMode})
}

// TogglePreviewMode enters or leaves preview. The selection is cleared both ways.
func (e *Editor) TogglePreviewMode() {
	e.mu.Lock()
	e.preview = !e.preview
	e.selected = domain.None[string]()
	on := e.preview
	e.mu.Unlock()

	e.log.Debug("preview toggled", slog.Bool("on", on))
	e.emit(Change{Kind: ChangeMode}, Change{Kind: ChangeSelection})
}

func (e *Editor) PreviewMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview
}

// View is an immutable copy of the editor state for renderers.
type View struct {
	Pages           []domain.Page
	ActivePageID    string
	SelectedBlockID domain.Optional[string]
	DeviceMode      domain.DeviceMode
	ShowAllBlocks   bool
	PreviewMode     bool
	CanUndo         bool
	CanRedo         bool
}

// State returns a deep copy of the current state.
func (e *Editor) State() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		Pages:           domain.ClonePages(e.pages),
		ActivePageID:    e.activePage,
		SelectedBlockID: e.selectedLocked(),
		DeviceMode:      e.deviceMode,
		ShowAllBlocks:   e.showAll,
		PreviewMode:     e.preview,
		CanUndo:         e.history.CanUndo(),
		CanRedo:         e.history.CanRedo(),
	}
}

// Pages returns a deep copy of all pages in order.
func (e *Editor) Pages() []domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ClonePages(e.pages)
}

// ActivePage returns a copy of the active page.
func (e *Editor) ActivePage() domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked().Clone()
}

// Page looks up any page by id.
func (e *Editor) Page(id string) (domain.Page, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p := domain.FindPage(e.pages, id); p != nil {
		return p.Clone(), true
	}
	return domain.Page{}, false
}

// Block looks up a block on the active page.
func (e *Editor) Block(id string) (domain.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b := e.activeLocked().FindBlock(id); b != nil {
		return *b, true
	}
	return domain.Block{}, false
}

// SelectedBlock returns the selected block if it still exists on the active page.
func (e *Editor) SelectedBlock() (domain.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.selectedLocked().Get()
	if !ok {
		return domain.Block{}, false
	}
	return *e.activeLocked().FindBlock(id), true
}

// selectedLocked resolves the stored selection against the active page.
func (e *Editor) selectedLocked() domain.Optional[string] {
	if id, ok := e.selected.Get(); ok && e.activeLocked().FindBlock(id) != nil {
		return e.selected
	}
	return domain.None[string]()
}

// BlockView is how a renderer should draw one block of the active page.
type BlockView struct {
	Block       domain.Block
	Topmost     bool // highest ZIndex on the page, first in document order on ties
	Selected    bool
	Faded       bool // drawn at reduced opacity
	Outlined    bool // show-all outline
	Interactive bool // receives pointer input
}

// Visibility derives the per-block render flags for the active page, in
// document order. Outside show-all and preview, only the topmost and the
// selected block are drawn at full opacity and accept input.
func (e *Editor) Visibility() []BlockView {
	e.mu.Lock()
	defer e.mu.Unlock()
	page := e.activeLocked()
	top := domain.Topmost(page.Blocks)
	sel, hasSel := e.selectedLocked().Get()

	out := make([]BlockView, len(page.Blocks))
	for i, b := range page.Blocks {
		v := BlockView{Block: b, Topmost: i == top, Selected: hasSel && b.ID == sel}
		switch {
		case e.preview:
			v.Interactive = true
		case e.showAll:
			v.Outlined = true
			v.Interactive = true
		default:
			v.Interactive = v.Topmost || v.Selected
			v.Faded = !v.Interactive
		}
		out[i] = v
	}
	return out
}
