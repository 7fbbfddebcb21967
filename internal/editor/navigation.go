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
	"pagecraft/internal/vector"
)

// OverlayTolerance is how far from a block outline a show-all overlay pick
// still hits, in logical pixels.
const OverlayTolerance = 3

// OverlayRect is one entry of the show-all hit-testing overlay.
type OverlayRect struct {
	BlockID string
	Bounds  vector.Rect
}

// Overlay returns the show-all overlay rectangles in document order,
// independent of stacking. It is empty unless show-all is on and preview is off.
func (e *Editor) Overlay() []OverlayRect {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.showAll || e.preview {
		return nil
	}
	page := e.activeLocked()
	out := make([]OverlayRect, 0, len(page.Blocks))
	for _, b := range page.Blocks {
		out = append(out, OverlayRect{BlockID: b.ID, Bounds: vector.R(b.X, b.Y, b.Width, b.Height)})
	}
	return out
}

// PickOverlay selects the block whose outline lies under pt, letting users
// reach blocks hidden behind others. Later blocks in document order win.
// It reports whether a block was picked.
func (e *Editor) PickOverlay(pt vector.Pt) bool {
	rects := e.Overlay()
	for i := len(rects) - 1; i >= 0; i-- {
		if rects[i].Bounds.StrokeContains(pt, OverlayTolerance) {
			e.SelectBlock(domain.Some(rects[i].BlockID))
			return true
		}
	}
	return false
}

// ClickBlock follows a block's link in preview mode. Unlinked blocks, links
// to deleted pages and clicks outside preview do nothing.
func (e *Editor) ClickBlock(id string) {
	e.mu.Lock()
	if !e.preview {
		e.mu.Unlock()
		return
	}
	b := e.activeLocked().FindBlock(id)
	if b == nil {
		e.mu.Unlock()
		return
	}
	target, ok := b.LinkedPageID.Get()
	if !ok || domain.FindPage(e.pages, target) == nil {
		e.mu.Unlock()
		return
	}
	from := e.activePage
	e.activePage = target
	e.selected = domain.None[string]()
	e.mu.Unlock()

	e.log.Debug("navigate", slog.String("from", from), slog.String("to", target))
	e.emit(Change{Kind: ChangeActivePage, ID: target}, Change{Kind: ChangeSelection})
}

// Connector is a link arrow from a block to the tab of another page.
// Anchor is the top-center of the block; the tab end is placed by the renderer.
type Connector struct {
	BlockID string
	PageID  string
	Anchor  vector.Pt
}

// Connectors lists the link arrows of the active page. Links to missing
// pages are skipped, and nothing is drawn in preview.
func (e *Editor) Connectors() []Connector {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.preview {
		return nil
	}
	var out []Connector
	for _, b := range e.activeLocked().Blocks {
		target, ok := b.LinkedPageID.Get()
		if !ok || domain.FindPage(e.pages, target) == nil {
			continue
		}
		out = append(out, Connector{
			BlockID: b.ID,
			PageID:  target,
			Anchor:  vector.R(b.X, b.Y, b.Width, b.Height).TopCenter(),
		})
	}
	return out
}
