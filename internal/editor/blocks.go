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

// BlockPatch is a partial block update. Nil fields are left untouched.
// Optional fields take a *Optional so a patch can clear them.
type BlockPatch struct {
	X, Y          *float64
	Width, Height *float64
	TextX, TextY  *float64

	Text              *string
	FontFamily        *string
	FontSize          *int
	TextColor         *string
	BackgroundColor   *string
	BackgroundOpacity *int
	BackgroundImage   *domain.Optional[string]
	BackgroundSize    *domain.Optional[domain.BackgroundSize]
	ContentImage      *domain.Optional[string]
	ZIndex            *int
	LinkedPageID      *domain.Optional[string]
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }

// MovePatch moves a block to x,y.
func MovePatch(x, y float64) BlockPatch { return BlockPatch{X: &x, Y: &y} }

// BoundsPatch sets position and size together.
func BoundsPatch(x, y, w, h float64) BlockPatch {
	return BlockPatch{X: &x, Y: &y, Width: &w, Height: &h}
}

// TextOffsetPatch moves the text layer inside its block.
func TextOffsetPatch(x, y float64) BlockPatch { return BlockPatch{TextX: &x, TextY: &y} }

// apply merges p into b. pageID is the page holding b, used to reject self links.
func (p BlockPatch) apply(b *domain.Block, pageID string, minW, minH float64) {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = max(*p.Width, minW)
	}
	if p.Height != nil {
		b.Height = max(*p.Height, minH)
	}
	if p.TextX != nil {
		b.TextX = *p.TextX
	}
	if p.TextY != nil {
		b.TextY = *p.TextY
	}
	if p.Text != nil {
		b.Text = *p.Text
	}
	if p.FontFamily != nil {
		b.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil && *p.FontSize > 0 {
		b.FontSize = *p.FontSize
	}
	if p.TextColor != nil {
		b.TextColor = *p.TextColor
	}
	if p.BackgroundColor != nil {
		b.BackgroundColor = *p.BackgroundColor
	}
	if p.BackgroundOpacity != nil {
		b.BackgroundOpacity = domain.ClampOpacity(*p.BackgroundOpacity)
	}
	if p.BackgroundImage != nil {
		b.BackgroundImage = *p.BackgroundImage
	}
	if p.BackgroundSize != nil {
		if s, ok := p.BackgroundSize.Get(); !ok || s.Valid() {
			b.BackgroundSize = *p.BackgroundSize
		}
	}
	if p.ContentImage != nil {
		b.ContentImage = *p.ContentImage
	}
	if p.ZIndex != nil {
		b.ZIndex = *p.ZIndex
	}
	if p.LinkedPageID != nil {
		b.LinkedPageID = linkTarget(*p.LinkedPageID, pageID)
	}
}

// linkTarget drops a link that points at the block's own page.
func linkTarget(target domain.Optional[string], ownPage string) domain.Optional[string] {
	if id, ok := target.Get(); ok && id == ownPage {
		return domain.None[string]()
	}
	return target
}

// AddBlock places a new block with default size and style at a random spot
// in [100,300)x[100,200) on the active page, on top of the stack, and selects it.
func (e *Editor) AddBlock() string {
	e.mu.Lock()
	e.history.Snapshot(e.pages)
	page := e.activeLocked()
	x := 100 + e.opts.Rand()*200
	y := 100 + e.opts.Rand()*100
	b := domain.NewBlock(x, y, domain.MaxZ(page.Blocks)+1, e.opts.Style)
	page.Blocks = append(page.Blocks, b)
	e.selected = domain.Some(b.ID)
	pageID := page.ID
	e.mu.Unlock()

	e.log.Debug("block added", slog.String("page", pageID), slog.String("block", b.ID), slog.Int("z", b.ZIndex))
	e.emit(Change{Kind: ChangeBlocks, ID: pageID}, Change{Kind: ChangeSelection, ID: b.ID})
	return b.ID
}

// UpdateBlock merges patch into a block on the active page without recording
// history. Gesture owners snapshot once before their first update.
// It reports whether the block was found.
func (e *Editor) UpdateBlock(id string, patch BlockPatch) bool {
	e.mu.Lock()
	page := e.activeLocked()
	b := page.FindBlock(id)
	if b == nil {
		e.mu.Unlock()
		return false
	}
	patch.apply(b, page.ID, e.opts.MinWidth, e.opts.MinHeight)
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeBlock, ID: id})
	return true
}

// ApplyStyle records one undo step and applies patch. Used for discrete edits
// such as picking a color or font from the style panel.
func (e *Editor) ApplyStyle(id string, patch BlockPatch) {
	e.mu.Lock()
	page := e.activeLocked()
	b := page.FindBlock(id)
	if b == nil {
		e.mu.Unlock()
		return
	}
	e.history.Snapshot(e.pages)
	patch.apply(b, page.ID, e.opts.MinWidth, e.opts.MinHeight)
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeBlock, ID: id})
}

// ImageKind selects which image slot SetImage writes.
type ImageKind int

const (
	BackgroundImage ImageKind = iota
	ContentImage
)

// SetImage stores or clears an opaque image reference as one undo step.
func (e *Editor) SetImage(id string, kind ImageKind, ref domain.Optional[string]) {
	var patch BlockPatch
	switch kind {
	case BackgroundImage:
		patch.BackgroundImage = &ref
	case ContentImage:
		patch.ContentImage = &ref
	default:
		return
	}
	e.ApplyStyle(id, patch)
}

// DeleteBlock removes a block from the active page and drops it from the selection.
func (e *Editor) DeleteBlock(id string) {
	e.mu.Lock()
	page := e.activeLocked()
	idx := page.BlockIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	e.history.Snapshot(e.pages)
	page.Blocks = append(page.Blocks[:idx:idx], page.Blocks[idx+1:]...)
	changes := []Change{{Kind: ChangeBlocks, ID: page.ID}}
	if sel, ok := e.selected.Get(); ok && sel == id {
		e.selected = domain.None[string]()
		changes = append(changes, Change{Kind: ChangeSelection})
	}
	e.mu.Unlock()

	e.log.Debug("block deleted", slog.String("block", id))
	e.emit(changes...)
}

// SelectBlock sets or clears the selection. Ids not on the active page clear it.
func (e *Editor) SelectBlock(id domain.Optional[string]) {
	e.mu.Lock()
	if v, ok := id.Get(); ok && e.activeLocked().FindBlock(v) == nil {
		id = domain.None[string]()
	}
	if e.selected == id {
		e.mu.Unlock()
		return
	}
	e.selected = id
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeSelection, ID: id.OrElse("")})
}

// BringToFront raises a block above every other block on the active page.
func (e *Editor) BringToFront(id string) {
	e.mu.Lock()
	page := e.activeLocked()
	b := page.FindBlock(id)
	if b == nil {
		e.mu.Unlock()
		return
	}
	b.ZIndex = domain.MaxZ(page.Blocks) + 1
	e.mu.Unlock()
	e.emit(Change{Kind: ChangeBlock, ID: id})
}

// LinkBlockToPage sets or clears the navigation target of a block on the
// active page. A link to the block's own page is stored as no link. The
// target is not checked; a link to a missing page is inert.
func (e *Editor) LinkBlockToPage(id string, target domain.Optional[string]) {
	e.mu.Lock()
	page := e.activeLocked()
	b := page.FindBlock(id)
	if b == nil {
		e.mu.Unlock()
		return
	}
	e.history.Snapshot(e.pages)
	b.LinkedPageID = linkTarget(target, page.ID)
	e.mu.Unlock()

	e.log.Debug("block linked", slog.String("block", id), slog.String("target", target.OrElse("")))
	e.emit(Change{Kind: ChangeBlock, ID: id})
}
