/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

// The scene is the toolkit-neutral half of the canvas: it turns editor state
// into screen geometry and routes screen points back to blocks. The Fyne
// widget only draws what BuildScene returns.

import (
	"image/color"
	"sort"
	"strconv"
	"strings"

	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/interaction"
	"pagecraft/internal/vector"
)

// Zoom limits of the canvas.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// FadedAlpha is the opacity of blocks that are neither topmost nor selected.
const FadedAlpha = 0.35

// Viewport maps canvas coordinates (logical pixels) to widget coordinates.
type Viewport struct {
	Zoom   float64
	Offset vector.Pt // screen position of the canvas origin
}

// DefaultViewport shows the canvas at 100%, below the page tabs.
func DefaultViewport() Viewport { return Viewport{Zoom: 1, Offset: vector.Pt{X: 24, Y: 48}} }

func (v Viewport) ToScreen(p vector.Pt) vector.Pt {
	return vector.Pt{X: v.Offset.X + p.X*v.Zoom, Y: v.Offset.Y + p.Y*v.Zoom}
}

func (v Viewport) ToCanvas(p vector.Pt) vector.Pt {
	return vector.Pt{X: (p.X - v.Offset.X) / v.Zoom, Y: (p.Y - v.Offset.Y) / v.Zoom}
}

func (v Viewport) RectToScreen(r vector.Rect) vector.Rect {
	o := v.ToScreen(vector.Pt{X: r.X, Y: r.Y})
	return vector.R(o.X, o.Y, r.W*v.Zoom, r.H*v.Zoom)
}

// ZoomAt scales by factor keeping the canvas point under screen fixed.
func (v Viewport) ZoomAt(screen vector.Pt, factor float64) Viewport {
	z := min(MaxZoom, max(MinZoom, v.Zoom*factor))
	c := v.ToCanvas(screen)
	return Viewport{Zoom: z, Offset: vector.Pt{X: screen.X - c.X*z, Y: screen.Y - c.Y*z}}
}

// Item is one block ready to draw, in screen coordinates.
type Item struct {
	View    editor.BlockView
	Screen  vector.Rect
	Text    vector.Rect
	Alpha   float64
	Handles []vector.Rect
}

// ConnectorLine runs from a block's top-center to a page tab.
type ConnectorLine struct {
	BlockID  string
	PageID   string
	From, To vector.Pt
}

// Scene is everything the canvas draws for one frame.
type Scene struct {
	Canvas     vector.Rect
	Items      []Item // paint order, bottom first
	Overlay    []vector.Rect
	Guides     []vector.GuideLine
	Connectors []ConnectorLine
	Preview    bool
}

// Source is the editor surface the scene reads.
type Source interface {
	State() editor.View
	Visibility() []editor.BlockView
	Overlay() []editor.OverlayRect
	Connectors() []editor.Connector
}

var _ Source = (*editor.Editor)(nil)

// BuildScene lays out the active page. tabs maps page ids to the screen
// position of their tab; connectors to pages without a tab are skipped.
// Guides come from the active gesture of ctl, which may be nil.
func BuildScene(src Source, ctl *interaction.Controller, vp Viewport, tabs map[string]vector.Pt) Scene {
	st := src.State()
	mode := st.DeviceMode
	sc := Scene{
		Canvas:  vp.RectToScreen(vector.R(0, 0, mode.CanvasWidth(), mode.CanvasMinHeight())),
		Preview: st.PreviewMode,
	}
	var focused domain.Optional[string]
	if ctl != nil {
		focused = ctl.TextFocus()
	}

	views := src.Visibility()
	sort.SliceStable(views, func(i, j int) bool { return views[i].Block.ZIndex < views[j].Block.ZIndex })
	for _, v := range views {
		b := v.Block
		it := Item{
			View:   v,
			Screen: vp.RectToScreen(vector.R(b.X, b.Y, b.Width, b.Height)),
			Text:   vp.RectToScreen(interaction.TextRect(b)),
			Alpha:  1,
		}
		if v.Faded {
			it.Alpha = FadedAlpha
		}
		if id, ok := focused.Get(); v.Selected && !st.PreviewMode && !(ok && id == b.ID) {
			bounds := vector.R(b.X, b.Y, b.Width, b.Height)
			for _, d := range vector.Dirs {
				it.Handles = append(it.Handles, vp.RectToScreen(vector.HandleRect(bounds, d)))
			}
		}
		sc.Items = append(sc.Items, it)
	}

	for _, o := range src.Overlay() {
		sc.Overlay = append(sc.Overlay, vp.RectToScreen(o.Bounds))
	}
	if ctl != nil {
		for _, g := range ctl.Guides() {
			g.From, g.To = vp.ToScreen(g.From), vp.ToScreen(g.To)
			sc.Guides = append(sc.Guides, g)
		}
	}
	for _, c := range src.Connectors() {
		to, ok := tabs[c.PageID]
		if !ok {
			continue
		}
		sc.Connectors = append(sc.Connectors, ConnectorLine{BlockID: c.BlockID, PageID: c.PageID, From: vp.ToScreen(c.Anchor), To: to})
	}
	return sc
}

// Pick returns the top-most interactive block under the screen point and
// the part of it that was hit.
func (s Scene) Pick(screen vector.Pt, vp Viewport, focused domain.Optional[string]) (string, interaction.Target, bool) {
	pt := vp.ToCanvas(screen)
	fid, hasFocus := focused.Get()
	for i := len(s.Items) - 1; i >= 0; i-- {
		it := s.Items[i]
		if !it.View.Interactive {
			continue
		}
		b := it.View.Block
		if t := interaction.HitTest(b, pt, hasFocus && fid == b.ID); t.Kind != interaction.TargetNone {
			return b.ID, t, true
		}
	}
	return "", interaction.Target{}, false
}

// ParseColor reads #rgb or #rrggbb. Anything else yields fallback.
func ParseColor(s string, fallback color.NRGBA) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// WithAlpha scales the alpha channel of c by a in [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(float64(c.A)*min(1, max(0, a)) + 0.5)
	return c
}

// TabRect is the screen rectangle of the i-th page tab drawn along the top
// of the canvas widget.
func TabRect(i int) vector.Rect {
	const w, h, gap = 120, 24, 6
	return vector.R(float64(gap+i*(w+gap)), 4, w, h)
}

// Tabs returns the connector endpoint (bottom center) of every page tab.
func Tabs(pages []domain.Page) map[string]vector.Pt {
	out := make(map[string]vector.Pt, len(pages))
	for i, p := range pages {
		r := TabRect(i)
		out[p.ID] = vector.Pt{X: r.X + r.W/2, Y: r.Y + r.H}
	}
	return out
}

// TabAt returns the page whose tab contains the screen point.
func TabAt(pages []domain.Page, screen vector.Pt) (string, bool) {
	for i, p := range pages {
		if TabRect(i).Contains(screen) {
			return p.ID, true
		}
	}
	return "", false
}
