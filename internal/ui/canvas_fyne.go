//go:build fyne && cgo

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

import (
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/imageref"
	"pagecraft/internal/interaction"
	"pagecraft/internal/textlayout"
	"pagecraft/internal/vector"
)

var (
	colBackdrop  = color.NRGBA{R: 30, G: 30, B: 34, A: 255}
	colCanvas    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	colSelection = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	colOutline   = color.NRGBA{R: 255, G: 140, B: 0, A: 220}
	colGuide     = color.NRGBA{R: 255, G: 0, B: 200, A: 220}
	colConnector = color.NRGBA{R: 90, G: 120, B: 255, A: 200}
	colTab       = color.NRGBA{R: 60, G: 60, B: 66, A: 255}
	colTabActive = color.NRGBA{R: 0, G: 120, B: 200, A: 255}
	colTabText   = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colText      = color.NRGBA{R: 26, G: 26, B: 46, A: 255}
	colFill      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// BlockCanvas draws the active page and turns mouse input into gestures.
// Empty space pans, the wheel zooms around the pointer.
type BlockCanvas struct {
	widget.BaseWidget

	ed    *editor.Editor
	ctl   *interaction.Controller
	fonts *textlayout.FontLibrary
	log   *slog.Logger

	vp      Viewport
	panning bool
	images  map[string]image.Image

	// OnTextFocus fires when a click focuses a block's text for editing.
	OnTextFocus func(id string)
	// OnTextBlur fires before focus leaves a block's text.
	OnTextBlur func(id string)
}

func NewBlockCanvas(ed *editor.Editor, ctl *interaction.Controller, fonts *textlayout.FontLibrary, l *slog.Logger) *BlockCanvas {
	c := &BlockCanvas{ed: ed, ctl: ctl, fonts: fonts, log: l, vp: DefaultViewport(), images: map[string]image.Image{}}
	c.ExtendBaseWidget(c)
	return c
}

// ResetView restores zoom and pan.
func (c *BlockCanvas) ResetView() {
	c.vp = DefaultViewport()
	c.Refresh()
}

func (c *BlockCanvas) scene() Scene {
	return BuildScene(c.ed, c.ctl, c.vp, Tabs(c.ed.Pages()))
}

func toPt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func toButton(b desktop.MouseButton) interaction.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return interaction.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return interaction.ButtonMiddle
	}
	return interaction.ButtonPrimary
}

func (c *BlockCanvas) blur() {
	if id, ok := c.ctl.TextFocus().Get(); ok {
		if c.OnTextBlur != nil {
			c.OnTextBlur(id)
		}
		c.ctl.SetTextFocus(domain.None[string]())
	}
}

// MouseDown releases any running gesture, then routes the press to page
// tabs, preview navigation, the show-all overlay or the gesture controller.
func (c *BlockCanvas) MouseDown(e *desktop.MouseEvent) {
	c.ctl.PointerUp()
	screen := toPt(e.Position)
	st := c.ed.State()
	if id, ok := TabAt(st.Pages, screen); ok {
		c.blur()
		c.ed.SetActivePage(id)
		return
	}
	sc := c.scene()
	if st.PreviewMode {
		if id, _, ok := sc.Pick(screen, c.vp, domain.None[string]()); ok {
			c.ed.ClickBlock(id)
		}
		return
	}
	if st.ShowAllBlocks && c.ed.PickOverlay(c.vp.ToCanvas(screen)) {
		c.blur()
		return
	}
	focused := c.ctl.TextFocus()
	id, target, ok := sc.Pick(screen, c.vp, focused)
	if !ok {
		c.blur()
		c.ed.SelectBlock(domain.None[string]())
		c.panning = e.Button == desktop.MouseButtonPrimary
		return
	}
	if f, has := focused.Get(); has && f != id {
		c.blur()
	}
	c.ctl.PointerDown(id, target, c.vp.ToCanvas(screen), toButton(e.Button))
	c.Refresh()
}

func (c *BlockCanvas) MouseUp(*desktop.MouseEvent) { c.release() }

func (c *BlockCanvas) Dragged(e *fyne.DragEvent) {
	if c.panning {
		c.vp.Offset = c.vp.Offset.Add(vector.Pt{X: float64(e.Dragged.DX), Y: float64(e.Dragged.DY)})
		c.Refresh()
		return
	}
	c.ctl.PointerMove(c.vp.ToCanvas(toPt(e.Position)))
	c.Refresh()
}

func (c *BlockCanvas) DragEnd() { c.release() }

func (c *BlockCanvas) release() {
	c.panning = false
	before := c.ctl.TextFocus()
	c.ctl.PointerUp()
	if id, ok := c.ctl.TextFocus().Get(); ok && before != c.ctl.TextFocus() && c.OnTextFocus != nil {
		c.OnTextFocus(id)
	}
	c.Refresh()
}

// Scrolled zooms around the pointer.
func (c *BlockCanvas) Scrolled(e *fyne.ScrollEvent) {
	factor := 1 + float64(e.Scrolled.DY)*0.005
	if factor <= 0 {
		return
	}
	c.vp = c.vp.ZoomAt(toPt(e.Position), factor)
	c.Refresh()
}

func (c *BlockCanvas) MinSize() fyne.Size { return fyne.NewSize(640, 480) }

func (c *BlockCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &blockCanvasRenderer{c: c, bg: canvas.NewRectangle(colBackdrop)}
}

// image decodes a data URI once per distinct value.
func (c *BlockCanvas) image(uri string) image.Image {
	if img, ok := c.images[uri]; ok {
		return img
	}
	img, err := imageref.Image(uri)
	if err != nil {
		c.log.Warn("image not drawable", slog.Any("err", err))
	}
	c.images[uri] = img
	return img
}

// blockCanvasRenderer rebuilds its objects from the scene on every refresh.
type blockCanvasRenderer struct {
	c       *BlockCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *blockCanvasRenderer) Destroy()                     {}
func (r *blockCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *blockCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *blockCanvasRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *blockCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}

	st := r.c.ed.State()
	sc := r.c.scene()
	page := rectObj(sc.Canvas, colCanvas, color.Transparent, 0)
	objs = append(objs, page)

	for _, it := range sc.Items {
		objs = append(objs, r.blockObjects(it, st.PreviewMode)...)
	}
	for _, o := range sc.Overlay {
		objs = append(objs, rectObj(o, color.Transparent, colOutline, 1))
	}
	for _, g := range sc.Guides {
		objs = append(objs, lineObj(g.From, g.To, colGuide, 1))
	}
	for _, cn := range sc.Connectors {
		objs = append(objs, lineObj(cn.From, cn.To, colConnector, 1.5))
	}
	for i, p := range st.Pages {
		fill := colTab
		if p.ID == st.ActivePageID {
			fill = colTabActive
		}
		tr := TabRect(i)
		objs = append(objs, rectObj(tr, fill, color.Transparent, 0))
		label := canvas.NewText(p.Name, colTabText)
		label.TextSize = 12
		label.Move(fyne.NewPos(float32(tr.X+6), float32(tr.Y+4)))
		objs = append(objs, label)
	}
	r.objects = objs
}

func (r *blockCanvasRenderer) blockObjects(it Item, preview bool) []fyne.CanvasObject {
	b := it.View.Block
	zoom := r.c.vp.Zoom
	fill := ParseColor(b.BackgroundColor, colFill)
	fill = WithAlpha(fill, float64(b.BackgroundOpacity)/100*it.Alpha)

	stroke, width := color.Color(color.Transparent), float32(0)
	switch {
	case it.View.Selected && !preview:
		stroke, width = colSelection, 2
	case it.View.Outlined:
		stroke, width = colOutline, 1
	}
	out := []fyne.CanvasObject{rectObj(it.Screen, fill, stroke, width)}

	if uri, ok := b.BackgroundImage.Get(); ok {
		if img := r.c.image(uri); img != nil {
			ci := canvas.NewImageFromImage(img)
			ci.FillMode = canvas.ImageFillContain
			if b.EffectiveBackgroundSize() == domain.BackgroundCover {
				ci.FillMode = canvas.ImageFillStretch
			}
			ci.Translucency = 1 - it.Alpha
			place(ci, it.Screen)
			out = append(out, ci)
		}
	}
	if uri, ok := b.ContentImage.Get(); ok {
		if img := r.c.image(uri); img != nil {
			ci := canvas.NewImageFromImage(img)
			ci.FillMode = canvas.ImageFillContain
			ci.Translucency = 1 - it.Alpha
			place(ci, it.Screen.Inset(interaction.TextPadding*zoom, interaction.TextPadding*zoom))
			out = append(out, ci)
		}
	}

	if b.Text != "" && it.Text.W > 0 {
		tc := WithAlpha(ParseColor(b.TextColor, colText), it.Alpha)
		face := r.c.fonts.Face(b.FontFamily, float64(b.FontSize))
		lh := textlayout.MetricsOf(face).LineHeight * zoom
		y := it.Text.Y
		for _, line := range textlayout.Wrap(face, b.Text, it.Text.W/zoom) {
			if y+lh > it.Screen.Y+it.Screen.H {
				break
			}
			t := canvas.NewText(line, tc)
			t.TextSize = float32(float64(b.FontSize) * zoom)
			if textlayout.Class(b.FontFamily) == textlayout.ClassMono {
				t.TextStyle = fyne.TextStyle{Monospace: true}
			}
			t.Move(fyne.NewPos(float32(it.Text.X), float32(y)))
			out = append(out, t)
			y += lh
		}
	}

	for _, h := range it.Handles {
		out = append(out, rectObj(h, colSelection, color.White, 1))
	}
	return out
}

func place(o fyne.CanvasObject, r vector.Rect) {
	o.Move(fyne.NewPos(float32(r.X), float32(r.Y)))
	o.Resize(fyne.NewSize(float32(r.W), float32(r.H)))
}

func rectObj(r vector.Rect, fill, stroke color.Color, width float32) *canvas.Rectangle {
	rect := canvas.NewRectangle(fill)
	rect.StrokeColor = stroke
	rect.StrokeWidth = width
	place(rect, r)
	return rect
}

func lineObj(from, to vector.Pt, c color.Color, width float32) *canvas.Line {
	l := canvas.NewLine(c)
	l.StrokeWidth = width
	l.Position1 = fyne.NewPos(float32(from.X), float32(from.Y))
	l.Position2 = fyne.NewPos(float32(to.X), float32(to.Y))
	return l
}
