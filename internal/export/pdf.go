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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jung-kurt/gofpdf"
	"pagecraft/internal/domain"
	"pagecraft/internal/imageref"
	applog "pagecraft/internal/log"
	"pagecraft/internal/storage"
	"pagecraft/internal/vector"
)

// PDFOptions controls PDF export behavior.
// One logical pixel maps to one point. Each document page becomes a PDF page
// sized to its content; blocks linked to an exported page become internal
// link annotations so the PDF navigates like preview mode.
type PDFOptions struct {
	Title   string
	Outline bool  // add a bookmark per page
	Pages   []int // if empty, export all pages
}

// ExportPDF writes the document of h to outPath and returns the final path.
// Relative paths land in the document's exports folder.
func ExportPDF(h *storage.Handle, outPath string, opt PDFOptions) (string, error) {
	if h == nil {
		return "", errNoHandle
	}
	out, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, h.Doc, opt); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}

// WritePDF renders doc as a multi-page PDF to w.
func WritePDF(w io.Writer, doc domain.Document, opt PDFOptions) error {
	l := applog.WithOperation(applog.WithComponent("export"), "pdf")
	mode := doc.DeviceMode
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: gofpdf.SizeType{Wd: mode.CanvasWidth(), Ht: mode.CanvasMinHeight()}})
	title := opt.Title
	if title == "" {
		title = "PageCraft document"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("pagecraft", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	indexes := pageIndexes(len(doc.Pages), opt.Pages)
	links := make(map[string]int, len(indexes))
	for _, i := range indexes {
		links[doc.Pages[i].ID] = pdf.AddLink()
	}
	imgs := &pdfImages{pdf: pdf, names: map[string]imageEntry{}, log: l}

	for _, i := range indexes {
		pg := doc.Pages[i]
		ext := extentOf(pg, mode)
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: ext.Bounds.W, Ht: ext.Bounds.H})
		pdf.SetLink(links[pg.ID], 0, -1)
		if opt.Outline {
			pdf.Bookmark(tr(pg.Name), 0, 0)
		}
		for _, b := range paintOrder(pg) {
			box := vector.R(b.X, b.Y, b.Width, b.Height).Translate(ext.Offset)
			drawBlockPDF(pdf, tr, imgs, b, box)
			if target, ok := b.LinkedPageID.Get(); ok {
				if link, ok := links[target]; ok {
					pdf.Link(box.X, box.Y, box.W, box.H, link)
				}
			}
		}
	}
	if pdf.Err() {
		return fmt.Errorf("build pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Debug("pdf rendered", slog.Int("pages", len(indexes)), slog.Int("images", len(imgs.names)))
	return nil
}

func drawBlockPDF(pdf *gofpdf.Fpdf, tr func(string) string, imgs *pdfImages, b domain.Block, box vector.Rect) {
	bg := parseHex(b.BackgroundColor, white)
	alpha := float64(domain.ClampOpacity(b.BackgroundOpacity)) / 100
	pdf.SetAlpha(alpha, "Normal")
	pdf.SetFillColor(bg.R, bg.G, bg.B)
	pdf.Rect(box.X, box.Y, box.W, box.H, "F")
	if uri, ok := b.BackgroundImage.Get(); ok {
		if img, ok := imgs.get(uri); ok {
			r := fitImage(box, img.w, img.h, b.EffectiveBackgroundSize())
			pdf.ClipRect(box.X, box.Y, box.W, box.H, false)
			pdf.ImageOptions(img.name, r.X, r.Y, r.W, r.H, false, img.opts, 0, "")
			pdf.ClipEnd()
		}
	}
	pdf.SetAlpha(1, "Normal")

	if uri, ok := b.ContentImage.Get(); ok {
		if img, ok := imgs.get(uri); ok {
			r := fitImage(box.Inset(textPadding, textPadding), img.w, img.h, domain.BackgroundContain)
			pdf.ImageOptions(img.name, r.X, r.Y, r.W, r.H, false, img.opts, 0, "")
		}
	}

	if b.Text == "" {
		return
	}
	size := float64(b.FontSize)
	if size <= 0 {
		size = float64(domain.DefaultBlockStyle().FontSize)
	}
	fg := parseHex(b.TextColor, black)
	pdf.SetTextColor(fg.R, fg.G, fg.B)
	pdf.SetFont(pdfFont(b.FontFamily), "", size)
	text := box.Inset(textPadding, textPadding).Translate(vector.Pt{X: b.TextX, Y: b.TextY})
	pdf.ClipRect(box.X, box.Y, box.W, box.H, false)
	pdf.SetXY(text.X, text.Y)
	pdf.MultiCell(max(text.W, 1), size*1.2, tr(b.Text), "", "L", false)
	pdf.ClipEnd()
}

// pdfFont maps the palette onto the PDF core fonts so text stays vector
// without embedding.
func pdfFont(family string) string {
	switch family {
	case "JetBrains Mono":
		return "Courier"
	case "Georgia", "Times New Roman":
		return "Times"
	}
	return "Helvetica"
}

type imageEntry struct {
	name string
	opts gofpdf.ImageOptions
	w, h float64
}

// pdfImages registers each distinct data URI once.
type pdfImages struct {
	pdf   *gofpdf.Fpdf
	names map[string]imageEntry
	log   *slog.Logger
}

func (p *pdfImages) get(uri string) (imageEntry, bool) {
	if e, ok := p.names[uri]; ok {
		return e, e.name != ""
	}
	e, err := p.register(uri)
	if err != nil {
		p.log.Warn("skipping image", slog.Any("err", err))
	}
	p.names[uri] = e
	return e, err == nil
}

func (p *pdfImages) register(uri string) (imageEntry, error) {
	mime, data, err := imageref.Decode(uri)
	if err != nil {
		return imageEntry{}, err
	}
	var typ string
	switch mime {
	case "image/png":
		typ = "PNG"
	case "image/jpeg":
		typ = "JPG"
	case "image/gif":
		typ = "GIF"
	default:
		return imageEntry{}, fmt.Errorf("unsupported image type %s", mime)
	}
	w, h, err := imageref.Size(data)
	if err != nil {
		return imageEntry{}, err
	}
	e := imageEntry{name: fmt.Sprintf("img%d", len(p.names)+1), opts: gofpdf.ImageOptions{ImageType: typ}, w: float64(w), h: float64(h)}
	p.pdf.RegisterImageOptionsReader(e.name, e.opts, bytes.NewReader(data))
	if p.pdf.Err() {
		err := p.pdf.Error()
		p.pdf.ClearError()
		return imageEntry{}, fmt.Errorf("register image: %w", err)
	}
	return e, nil
}
