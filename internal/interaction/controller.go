/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package interaction turns pointer events into editor mutations. A gesture
// (one press, any number of moves, one release) becomes exactly one undo
// step: resizes and text drags snapshot on press, block drags on release.
package interaction

import (
	"log/slog"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	applog "pagecraft/internal/log"
	"pagecraft/internal/vector"
)

// Document is the slice of the editor the controller drives.
type Document interface {
	Block(id string) (domain.Block, bool)
	ActivePage() domain.Page
	UpdateBlock(id string, patch editor.BlockPatch) bool
	SelectBlock(id domain.Optional[string])
	BringToFront(id string)
	Snapshot()
	PreviewMode() bool
	MinSize() (w, h float64)
}

var _ Document = (*editor.Editor)(nil)

// State of the pointer state machine.
type State int

const (
	Idle State = iota
	DraggingBlock
	ResizingBlock
	DraggingText
)

func (s State) String() string {
	switch s {
	case DraggingBlock:
		return "dragging_block"
	case ResizingBlock:
		return "resizing_block"
	case DraggingText:
		return "dragging_text"
	}
	return "idle"
}

// Button identifies the pressed pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Options configures a Controller.
type Options struct {
	// Snap aligns dragged blocks to their neighbours. The zero value disables it.
	Snap   vector.SnapOptions
	Logger *slog.Logger
}

// Controller owns the single active gesture. Pointer capture is global: once
// a gesture starts, moves and the release are routed here regardless of
// which block the pointer is over. It is driven from the UI goroutine and is
// not safe for concurrent use.
type Controller struct {
	doc  Document
	opts Options
	log  *slog.Logger

	state     State
	blockID   string
	dir       vector.Dir
	offset    vector.Pt // pointer minus the dragged origin
	dragStart vector.Pt // last pointer position while resizing
	moved     bool
	guides    []vector.GuideLine
	focused   domain.Optional[string]
}

// OptionsFromConfig maps the snap section of the user config.
func OptionsFromConfig(cfg config.AppConfig) Options {
	sc := cfg.Editor.Snap
	return Options{Snap: vector.SnapOptions{Threshold: sc.Threshold, SnapToEdges: sc.Edges, SnapToCenters: sc.Centers}}
}

func NewController(doc Document, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("interaction")
	}
	return &Controller{doc: doc, opts: opts, log: opts.Logger}
}

// State returns the current gesture state and the block it acts on.
func (c *Controller) State() (State, string) {
	return c.state, c.blockID
}

// ResizeDir returns the active handle while resizing.
func (c *Controller) ResizeDir() vector.Dir {
	if c.state != ResizingBlock {
		return ""
	}
	return c.dir
}

// Guides returns the smart guides of the last drag move, for drawing.
func (c *Controller) Guides() []vector.GuideLine {
	return append([]vector.GuideLine(nil), c.guides...)
}

// PointerDown starts a gesture on blockID. Presses are ignored in preview,
// for non-primary buttons and on controls. Any press during an active
// gesture first releases it, even one that starts nothing. It reports
// whether a gesture started.
func (c *Controller) PointerDown(blockID string, target Target, pt vector.Pt, button Button) bool {
	if c.state != Idle {
		c.PointerUp()
	}
	if c.doc.PreviewMode() || button != ButtonPrimary {
		return false
	}
	switch target.Kind {
	case TargetBody, TargetHandle, TargetText:
	default:
		return false
	}
	b, ok := c.doc.Block(blockID)
	if !ok {
		return false
	}

	switch target.Kind {
	case TargetBody:
		c.doc.SelectBlock(domain.Some(blockID))
		c.doc.BringToFront(blockID)
		c.offset = pt.Sub(vector.Pt{X: b.X, Y: b.Y})
		c.begin(DraggingBlock, blockID)
	case TargetHandle:
		if !target.Dir.Valid() {
			return false
		}
		c.doc.Snapshot()
		c.dir = target.Dir
		c.dragStart = pt
		c.begin(ResizingBlock, blockID)
	case TargetText:
		if id, ok := c.focused.Get(); ok && id == blockID {
			return false
		}
		c.doc.Snapshot()
		c.doc.SelectBlock(domain.Some(blockID))
		c.offset = pt.Sub(vector.Pt{X: b.X + b.TextX, Y: b.Y + b.TextY})
		c.begin(DraggingText, blockID)
	}
	return true
}

func (c *Controller) begin(s State, blockID string) {
	c.state = s
	c.blockID = blockID
	c.moved = false
	c.guides = nil
	c.log.Debug("gesture start", slog.String("state", s.String()), slog.String("block", blockID))
}

// PointerMove updates the block of the active gesture. It never records history.
func (c *Controller) PointerMove(pt vector.Pt) {
	if c.state == Idle {
		return
	}
	b, ok := c.doc.Block(c.blockID)
	if !ok {
		// block vanished mid-gesture (undo from another input); drop the gesture
		c.reset()
		return
	}
	c.moved = true
	switch c.state {
	case DraggingBlock:
		pos := pt.Sub(c.offset)
		moving := vector.R(pos.X, pos.Y, b.Width, b.Height)
		moving, c.guides = vector.ComputeSmartGuides(moving, c.anchors(b.ID), c.opts.Snap)
		c.doc.UpdateBlock(b.ID, editor.MovePatch(moving.X, moving.Y))
	case ResizingBlock:
		d := pt.Sub(c.dragStart)
		minW, minH := c.doc.MinSize()
		r := vector.Resize(vector.R(b.X, b.Y, b.Width, b.Height), c.dir, d.X, d.Y, minW, minH)
		c.doc.UpdateBlock(b.ID, editor.BoundsPatch(r.X, r.Y, r.W, r.H))
		c.dragStart = pt
	case DraggingText:
		c.doc.UpdateBlock(b.ID, editor.TextOffsetPatch(pt.X-c.offset.X-b.X, pt.Y-c.offset.Y-b.Y))
	}
}

// anchors returns the other blocks of the active page as snap targets.
func (c *Controller) anchors(skip string) []vector.Anchor {
	if !c.opts.Snap.Enabled() {
		return nil
	}
	page := c.doc.ActivePage()
	out := make([]vector.Anchor, 0, len(page.Blocks))
	for _, o := range page.Blocks {
		if o.ID == skip {
			continue
		}
		out = append(out, vector.Anchor{Rect: vector.R(o.X, o.Y, o.Width, o.Height), Weight: 1})
	}
	return out
}

// PointerUp ends the active gesture. A block drag records its undo step
// here; a text press without movement focuses the text for editing.
func (c *Controller) PointerUp() {
	switch c.state {
	case Idle:
		return
	case DraggingBlock:
		c.doc.Snapshot()
	case DraggingText:
		if !c.moved {
			c.focused = domain.Some(c.blockID)
		}
	}
	c.log.Debug("gesture end", slog.String("state", c.state.String()), slog.String("block", c.blockID), slog.Bool("moved", c.moved))
	c.reset()
}

// Cancel ends the gesture the same way a release does; the last geometry stays.
func (c *Controller) Cancel() { c.PointerUp() }

func (c *Controller) reset() {
	c.state = Idle
	c.blockID = ""
	c.dir = ""
	c.moved = false
	c.guides = nil
}

// SetTextFocus marks which block's text is being edited, or none.
func (c *Controller) SetTextFocus(id domain.Optional[string]) {
	c.focused = id
}

// TextFocus returns the block whose text is being edited.
func (c *Controller) TextFocus() domain.Optional[string] {
	return c.focused
}

// CommitText stores edited text when the text layer loses focus. Like other
// in-place edits it does not record history.
func (c *Controller) CommitText(id, text string) {
	c.doc.UpdateBlock(id, editor.BlockPatch{Text: &text})
	if f, ok := c.focused.Get(); ok && f == id {
		c.focused = domain.None[string]()
	}
}
