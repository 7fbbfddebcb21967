/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"pagecraft/internal/domain"
	"pagecraft/internal/imageref"
	applog "pagecraft/internal/log"
	"pagecraft/internal/storage"
	"pagecraft/internal/textlayout"
	"pagecraft/internal/vector"
)

// PNGOptions controls raster export.
// - Scale: output pixels per logical pixel; defaults to 1
// - Fonts: font library for block text; a fresh one with the Go fonts when nil
// - Pages: if empty, export all
type PNGOptions struct {
	Scale float64
	Fonts *textlayout.FontLibrary
	Pages []int
}

func (o PNGOptions) withDefaults() PNGOptions {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Fonts == nil {
		o.Fonts = textlayout.NewFontLibrary()
	}
	return o
}

// PNGPageName is the file name of the rasterized page at index i.
func PNGPageName(i int) string { return fmt.Sprintf("page-%d.png", i+1) }

// ExportPNGPages rasterizes each selected page into outDir and returns the files.
func ExportPNGPages(h *storage.Handle, outDir string, opt PNGOptions) ([]string, error) {
	if h == nil {
		return nil, errNoHandle
	}
	dir, err := resolveDir(h, outDir)
	if err != nil {
		return nil, err
	}
	opt = opt.withDefaults()
	var files []string
	for _, i := range pageIndexes(len(h.Doc.Pages), opt.Pages) {
		name := filepath.Join(dir, PNGPageName(i))
		f, err := os.Create(name)
		if err != nil {
			return files, fmt.Errorf("create png: %w", err)
		}
		if err := WritePagePNG(f, h.Doc, i, opt); err != nil {
			_ = f.Close()
			return files, err
		}
		if err := f.Close(); err != nil {
			return files, fmt.Errorf("close png: %w", err)
		}
		files = append(files, name)
	}
	return files, nil
}

// WritePagePNG encodes the rasterized page at index i to w.
func WritePagePNG(w io.Writer, doc domain.Document, i int, opt PNGOptions) error {
	img, err := RenderPage(doc, i, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// RenderPage rasterizes the page at index i. Blocks are painted bottom to
// top; each block clips its own images and text.
func RenderPage(doc domain.Document, i int, opt PNGOptions) (*image.RGBA, error) {
	if i < 0 || i >= len(doc.Pages) {
		return nil, fmt.Errorf("page index %d out of range", i)
	}
	opt = opt.withDefaults()
	pg := doc.Pages[i]
	ext := extentOf(pg, doc.DeviceMode)
	s := opt.Scale
	img := image.NewRGBA(image.Rect(0, 0, px(ext.Bounds.W*s), px(ext.Bounds.H*s)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	log := applog.WithOperation(applog.WithComponent("export"), "png")
	for _, b := range paintOrder(pg) {
		box := scaleRect(vector.R(b.X, b.Y, b.Width, b.Height).Translate(ext.Offset), s)
		clip, ok := img.SubImage(toImageRect(box)).(*image.RGBA)
		if !ok || clip.Bounds().Empty() {
			continue
		}
		bg := parseHex(b.BackgroundColor, white)
		alpha := uint8(math.Round(float64(domain.ClampOpacity(b.BackgroundOpacity)) * 255 / 100))
		draw.Draw(clip, clip.Bounds(), image.NewUniform(color.NRGBA{R: uint8(bg.R), G: uint8(bg.G), B: uint8(bg.B), A: alpha}), image.Point{}, draw.Over)

		if uri, ok := b.BackgroundImage.Get(); ok {
			if src, err := imageref.Image(uri); err != nil {
				log.Warn("skipping background image", slog.String("block", b.ID), slog.Any("err", err))
			} else {
				sb := src.Bounds()
				r := fitImage(box, float64(sb.Dx()), float64(sb.Dy()), b.EffectiveBackgroundSize())
				xdraw.ApproxBiLinear.Scale(clip, toImageRect(r), src, sb, draw.Over, &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: alpha})})
			}
		}
		if uri, ok := b.ContentImage.Get(); ok {
			if src, err := imageref.Image(uri); err != nil {
				log.Warn("skipping content image", slog.String("block", b.ID), slog.Any("err", err))
			} else {
				sb := src.Bounds()
				r := fitImage(box.Inset(textPadding*s, textPadding*s), float64(sb.Dx()), float64(sb.Dy()), domain.BackgroundContain)
				xdraw.ApproxBiLinear.Scale(clip, toImageRect(r), src, sb, draw.Over, nil)
			}
		}
		if b.Text != "" {
			drawText(clip, opt.Fonts, b, box, s)
		}
	}
	return img, nil
}

func drawText(dst *image.RGBA, fonts *textlayout.FontLibrary, b domain.Block, box vector.Rect, s float64) {
	size := float64(b.FontSize)
	if size <= 0 {
		size = float64(domain.DefaultBlockStyle().FontSize)
	}
	face := fonts.Face(b.FontFamily, size*s)
	m := textlayout.MetricsOf(face)
	fg := parseHex(b.TextColor, black)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: uint8(fg.R), G: uint8(fg.G), B: uint8(fg.B), A: 255}),
		Face: face,
	}
	x := box.X + (textPadding+b.TextX)*s
	y := box.Y + (textPadding+b.TextY)*s + m.Ascent
	for _, line := range textlayout.Wrap(face, b.Text, box.W-2*textPadding*s) {
		d.Dot = fixed.P(px(x), px(y))
		d.DrawString(line)
		y += m.LineHeight
	}
}

func scaleRect(r vector.Rect, s float64) vector.Rect {
	return vector.R(r.X*s, r.Y*s, r.W*s, r.H*s)
}

func toImageRect(r vector.Rect) image.Rectangle {
	return image.Rect(px(r.X), px(r.Y), px(r.X+r.W), px(r.Y+r.H))
}

func px(v float64) int { return int(math.Round(v)) }
