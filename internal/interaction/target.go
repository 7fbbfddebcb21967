/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"pagecraft/internal/domain"
	"pagecraft/internal/vector"
)

// TargetKind says which part of a block a pointer press landed on.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetBody
	TargetHandle
	TargetText
	TargetControl // delete button, link points and other chrome; never starts a gesture
)

func (k TargetKind) String() string {
	switch k {
	case TargetBody:
		return "body"
	case TargetHandle:
		return "handle"
	case TargetText:
		return "text"
	case TargetControl:
		return "control"
	}
	return "none"
}

// Target is the result of a hit test. Dir is set for handles only.
type Target struct {
	Kind TargetKind
	Dir  vector.Dir
}

func Body() Target               { return Target{Kind: TargetBody} }
func Handle(d vector.Dir) Target { return Target{Kind: TargetHandle, Dir: d} }
func Text() Target               { return Target{Kind: TargetText} }
func Control() Target            { return Target{Kind: TargetControl} }

// TextPadding is the inset of the text layer from the block edges.
const TextPadding = 8

// TextRect returns the text layer bounds: the padded block rectangle shifted
// by the text offset and clipped to the block.
func TextRect(b domain.Block) vector.Rect {
	inner := vector.R(b.X+b.TextX, b.Y+b.TextY, b.Width, b.Height).Inset(TextPadding, TextPadding)
	x0 := max(inner.X, b.X)
	y0 := max(inner.Y, b.Y)
	x1 := min(inner.X+inner.W, b.X+b.Width)
	y1 := min(inner.Y+inner.H, b.Y+b.Height)
	return vector.R(x0, y0, max(0, x1-x0), max(0, y1-y0))
}

// HitTest classifies pt against block b. Handles win over the text layer,
// which wins over the body. While the block's text is focused its handles are
// hidden, so presses near the edges place the caret instead.
func HitTest(b domain.Block, pt vector.Pt, focusedText bool) Target {
	bounds := vector.R(b.X, b.Y, b.Width, b.Height)
	if !bounds.Contains(pt) {
		return Target{}
	}
	if !focusedText {
		if d, ok := vector.HandleAt(bounds, pt); ok {
			return Handle(d)
		}
	}
	if t := TextRect(b); t.W > 0 && t.H > 0 && t.Contains(pt) {
		return Text()
	}
	return Body()
}
