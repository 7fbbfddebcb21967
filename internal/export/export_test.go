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
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/imageref"
	"pagecraft/internal/storage"
	"pagecraft/internal/vector"
)

// sampleDocument has two pages linking to each other, one image block and
// one dangling link.
func sampleDocument(t *testing.T) domain.Document {
	t.Helper()
	home := domain.NewPage("Home & Start")
	next := domain.NewPage("Next")
	st := domain.DefaultBlockStyle()

	cta := domain.NewBlock(100, 100, 1, st)
	cta.Text = "Go next <now>"
	cta.BackgroundColor = "#ff0000"
	cta.LinkedPageID = domain.Some(next.ID)

	pic := domain.NewBlock(400, 100, 2, st)
	pic.BackgroundImage = domain.Some(pngURI(t))
	pic.BackgroundSize = domain.Some(domain.BackgroundContain)
	pic.ContentImage = domain.Some(pngURI(t))

	gone := domain.NewBlock(-40, 600, 3, st)
	gone.LinkedPageID = domain.Some("missing")
	home.Blocks = append(home.Blocks, cta, pic, gone)

	back := domain.NewBlock(100, 100, 1, st)
	back.Text = "Back"
	back.FontFamily = "JetBrains Mono"
	back.LinkedPageID = domain.Some(home.ID)
	next.Blocks = append(next.Blocks, back)

	return domain.Document{Version: domain.DocumentVersion, Pages: []domain.Page{home, next}, ActivePageID: home.ID, DeviceMode: domain.DeviceDesktop}
}

func pngURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	uri, err := imageref.FromBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return uri
}

func sampleHandle(t *testing.T) *storage.Handle {
	t.Helper()
	h, err := storage.Create(t.TempDir(), sampleDocument(t))
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return h
}

func TestExportPDF_CreatesFile(t *testing.T) {
	h := sampleHandle(t)
	out, err := ExportPDF(h, "doc.pdf", PDFOptions{Outline: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(h.Root, storage.ExportsDirName, "doc.pdf"); out != want {
		t.Fatalf("relative path should land in exports: %s", out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
	if !bytes.Contains(data, []byte("/Subtype /Link")) {
		t.Fatalf("expected link annotations for linked blocks")
	}
}

func TestWritePDF_PageSelection(t *testing.T) {
	doc := sampleDocument(t)
	var all, one bytes.Buffer
	if err := WritePDF(&all, doc, PDFOptions{}); err != nil {
		t.Fatalf("all: %v", err)
	}
	if err := WritePDF(&one, doc, PDFOptions{Pages: []int{1, 7}}); err != nil {
		t.Fatalf("one: %v", err)
	}
	if c := pdfPageCount(all.Bytes()); c != 2 {
		t.Fatalf("expected 2 pages, got %d", c)
	}
	if c := pdfPageCount(one.Bytes()); c != 1 {
		t.Fatalf("expected 1 page, got %d", c)
	}
}

func pdfPageCount(data []byte) int {
	return bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
}

func TestWritePageSVG(t *testing.T) {
	doc := sampleDocument(t)
	var buf bytes.Buffer
	if err := WritePageSVG(&buf, doc, 0, SVGOptions{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		`<title>Home &amp; Start</title>`,
		`xlink:href="page-2.svg"`,
		`Go next &lt;now&gt;`,
		`fill="#ff0000"`,
		`preserveAspectRatio="xMidYMid meet"`,
		`data:image/png;base64,`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	// dangling link is not wrapped in an anchor
	if strings.Count(s, "<a ") != 1 {
		t.Fatalf("expected exactly one anchor, got %d", strings.Count(s, "<a "))
	}
	buf.Reset()
	if err := WritePageSVG(&buf, doc, 0, SVGOptions{OmitImages: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<image") {
		t.Fatalf("images should be omitted")
	}
	if err := WritePageSVG(&buf, doc, 5, SVGOptions{}); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestExportSVGPages(t *testing.T) {
	h := sampleHandle(t)
	files, err := ExportSVGPages(h, "svg", SVGOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[1]) != "page-2.svg" {
		t.Fatalf("unexpected files: %v", files)
	}
	for _, f := range files {
		if st, err := os.Stat(f); err != nil || st.Size() == 0 {
			t.Fatalf("bad file %s: %v", f, err)
		}
	}
}

func TestGraph(t *testing.T) {
	doc := sampleDocument(t)
	extra := domain.NewBlock(0, 300, 4, domain.DefaultBlockStyle())
	extra.LinkedPageID = domain.Some(doc.Pages[1].ID)
	doc.Pages[0].Blocks = append(doc.Pages[0].Blocks, extra)

	edges, dangling := Graph(doc)
	if dangling != 1 {
		t.Fatalf("dangling = %d", dangling)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 distinct edges, got %+v", edges)
	}
	if edges[0].From != doc.Pages[0].ID || edges[0].Count != 2 {
		t.Fatalf("home->next should aggregate two links: %+v", edges[0])
	}

	var buf bytes.Buffer
	if err := WriteGraphSVG(&buf, doc); err != nil {
		t.Fatalf("graph: %v", err)
	}
	s := buf.String()
	if strings.Count(s, `class="link"`) != 2 || strings.Count(s, `class="page"`) != 2 {
		t.Fatalf("unexpected graph svg:\n%s", s)
	}
	if !strings.Contains(s, "1 dangling link(s)") || !strings.Contains(s, `stroke-width="3"`) {
		t.Fatalf("expected dangling note and active page highlight")
	}
}

func TestRenderPage(t *testing.T) {
	doc := sampleDocument(t)
	img, err := RenderPage(doc, 0, PNGOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// the gone block at x=-40 pushes the origin left by 40+Margin
	ox, oy := 40+Margin, Margin
	if b := img.Bounds(); b.Dx() != 1200+40+2*Margin || b.Dy() != 800+2*Margin {
		t.Fatalf("unexpected bounds %v", b)
	}
	if c := img.RGBAAt(ox+100+150, oy+100+80); c != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("expected red block fill, got %v", c)
	}
	if c := img.RGBAAt(ox+400+100, oy+100+50); c.B < 200 || c.R > 50 {
		t.Fatalf("expected blue image pixels, got %v", c)
	}
	if c := img.RGBAAt(5, 5); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("expected white margin, got %v", c)
	}

	doc.Pages[0].Blocks[0].BackgroundOpacity = 0
	img, _ = RenderPage(doc, 0, PNGOptions{})
	if c := img.RGBAAt(ox+100+150, oy+100+80); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("transparent block should show the page, got %v", c)
	}

	half, _ := RenderPage(doc, 0, PNGOptions{Scale: 0.5})
	if half.Bounds().Dx() != (1200+40+2*Margin)/2 {
		t.Fatalf("scale not applied: %v", half.Bounds())
	}
}

func TestExportPNGPages(t *testing.T) {
	h := sampleHandle(t)
	files, err := ExportPNGPages(h, "png", PNGOptions{Pages: []int{1}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "page-2.png" {
		t.Fatalf("unexpected files: %v", files)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestFitImage(t *testing.T) {
	box := vector.R(0, 0, 200, 100)
	if r := fitImage(box, 100, 100, domain.BackgroundCover); r.W != 200 || r.H != 200 || r.Y != -50 {
		t.Fatalf("cover = %+v", r)
	}
	if r := fitImage(box, 100, 100, domain.BackgroundContain); r.W != 100 || r.H != 100 || r.X != 50 {
		t.Fatalf("contain = %+v", r)
	}
	if r := fitImage(box, 40, 20, domain.BackgroundAuto); r.W != 40 || r.H != 20 {
		t.Fatalf("auto = %+v", r)
	}
	if r := fitImage(box, 100, 50, domain.Background50); r.W != 100 || r.H != 50 {
		t.Fatalf("50%% = %+v", r)
	}
}

func TestParseHex(t *testing.T) {
	if c := parseHex("#fff", black); c != white {
		t.Fatalf("short hex = %v", c)
	}
	if c := parseHex("1a1a2e", white); c != (rgb{0x1a, 0x1a, 0x2e}) {
		t.Fatalf("bare hex = %v", c)
	}
	if c := parseHex("red", black); c != black {
		t.Fatalf("invalid should fall back")
	}
}
