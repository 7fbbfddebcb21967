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
	"html"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"pagecraft/internal/domain"
	"pagecraft/internal/storage"
	"pagecraft/internal/vector"
)

// SVGOptions controls per-page SVG export.
// Coordinates match the canvas (logical pixels). Linked blocks are wrapped
// in anchors pointing at the sibling page file, so a folder of exported
// pages can be clicked through in a browser.
type SVGOptions struct {
	OmitImages bool
	Pages      []int
}

// SVGPageName is the file name of the exported page at index i.
func SVGPageName(i int) string { return fmt.Sprintf("page-%d.svg", i+1) }

// ExportSVGPages writes one SVG per selected page into outDir and returns the files.
func ExportSVGPages(h *storage.Handle, outDir string, opt SVGOptions) ([]string, error) {
	if h == nil {
		return nil, errNoHandle
	}
	dir, err := resolveDir(h, outDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, i := range pageIndexes(len(h.Doc.Pages), opt.Pages) {
		var buf bytes.Buffer
		if err := WritePageSVG(&buf, h.Doc, i, opt); err != nil {
			return files, err
		}
		name := filepath.Join(dir, SVGPageName(i))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return files, fmt.Errorf("write svg: %w", err)
		}
		files = append(files, name)
	}
	return files, nil
}

// WritePageSVG renders the page at index i.
func WritePageSVG(w io.Writer, doc domain.Document, i int, opt SVGOptions) error {
	if i < 0 || i >= len(doc.Pages) {
		return fmt.Errorf("page index %d out of range", i)
	}
	pg := doc.Pages[i]
	ext := extentOf(pg, doc.DeviceMode)
	exported := make(map[string]int)
	for _, j := range pageIndexes(len(doc.Pages), opt.Pages) {
		exported[doc.Pages[j].ID] = j
	}

	var buf bytes.Buffer
	wf := func(format string, args ...any) { fmt.Fprintf(&buf, format, args...) }

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n",
		ext.Bounds.W, ext.Bounds.H, ext.Bounds.W, ext.Bounds.H)
	wf("  <title>%s</title>\n", html.EscapeString(pg.Name))
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", ext.Bounds.W, ext.Bounds.H)

	for n, b := range paintOrder(pg) {
		box := vector.R(b.X, b.Y, b.Width, b.Height).Translate(ext.Offset)
		indent := "  "
		target, linked := b.LinkedPageID.Get()
		j, ok := exported[target]
		if linked && ok {
			wf("  <a xlink:href=\"%s\">\n", SVGPageName(j))
			indent = "    "
		}
		clip := fmt.Sprintf("clip-%d", n)
		wf("%s<g id=\"%s\">\n", indent, html.EscapeString(b.ID))
		wf("%s  <clipPath id=\"%s\"><rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\"/></clipPath>\n", indent, clip, box.X, box.Y, box.W, box.H)
		bg := parseHex(b.BackgroundColor, white)
		opacity := float64(domain.ClampOpacity(b.BackgroundOpacity)) / 100
		wf("%s  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" fill-opacity=\"%g\"/>\n", indent, box.X, box.Y, box.W, box.H, bg.hex(), opacity)
		if uri, ok := b.BackgroundImage.Get(); ok && !opt.OmitImages {
			wf("%s  <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"%s\" opacity=\"%g\" clip-path=\"url(#%s)\" xlink:href=\"%s\"/>\n",
				indent, box.X, box.Y, box.W, box.H, aspectFor(b.EffectiveBackgroundSize()), opacity, clip, html.EscapeString(uri))
		}
		if uri, ok := b.ContentImage.Get(); ok && !opt.OmitImages {
			r := box.Inset(textPadding, textPadding)
			wf("%s  <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid meet\" xlink:href=\"%s\"/>\n",
				indent, r.X, r.Y, r.W, r.H, html.EscapeString(uri))
		}
		if b.Text != "" {
			writeSVGText(wf, indent+"  ", b, box, clip)
		}
		wf("%s</g>\n", indent)
		if linked && ok {
			wf("  </a>\n")
		}
	}
	wf("</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func writeSVGText(wf func(string, ...any), indent string, b domain.Block, box vector.Rect, clip string) {
	size := float64(b.FontSize)
	if size <= 0 {
		size = float64(domain.DefaultBlockStyle().FontSize)
	}
	x := box.X + textPadding + b.TextX
	y := box.Y + textPadding + b.TextY + size
	fg := parseHex(b.TextColor, black)
	wf("%s<text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"%g\" fill=\"%s\" clip-path=\"url(#%s)\">", indent, x, y, html.EscapeString(b.FontFamily), size, fg.hex(), clip)
	for i, line := range strings.Split(b.Text, "\n") {
		if i == 0 {
			wf("<tspan x=\"%g\">%s</tspan>", x, html.EscapeString(line))
			continue
		}
		wf("<tspan x=\"%g\" dy=\"%g\">%s</tspan>", x, size*1.2, html.EscapeString(line))
	}
	wf("</text>\n")
}

// aspectFor approximates background sizing with SVG aspect ratio rules.
// Percentage and auto sizes fall back to contain.
func aspectFor(s domain.BackgroundSize) string {
	if s == domain.BackgroundCover {
		return "xMidYMid slice"
	}
	return "xMidYMid meet"
}

// Page graph layout, in logical pixels.
const (
	graphNodeW = 160
	graphNodeH = 56
	graphGap   = 72
)

// ExportGraphSVG writes the page link graph of h to outPath and returns the final path.
func ExportGraphSVG(h *storage.Handle, outPath string) (string, error) {
	if h == nil {
		return "", errNoHandle
	}
	out, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteGraphSVG(&buf, h.Doc); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	return out, nil
}

// GraphEdge is a page-to-page link aggregated over blocks.
type GraphEdge struct {
	From, To string
	Count    int
}

// Graph returns the distinct page links of doc in document order.
// Links to missing pages are counted in dangling instead.
func Graph(doc domain.Document) (edges []GraphEdge, dangling int) {
	seen := make(map[[2]string]int)
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			target, ok := b.LinkedPageID.Get()
			if !ok {
				continue
			}
			if domain.FindPage(doc.Pages, target) == nil {
				dangling++
				continue
			}
			key := [2]string{p.ID, target}
			if i, ok := seen[key]; ok {
				edges[i].Count++
				continue
			}
			seen[key] = len(edges)
			edges = append(edges, GraphEdge{From: p.ID, To: target, Count: 1})
		}
	}
	return edges, dangling
}

// WriteGraphSVG draws pages as boxes on a grid and links as arrows.
// The active page is drawn with a heavier outline.
func WriteGraphSVG(w io.Writer, doc domain.Document) error {
	n := len(doc.Pages)
	cols := max(1, int(math.Ceil(math.Sqrt(float64(n)))))
	rows := max(1, (n+cols-1)/cols)
	width := float64(cols)*(graphNodeW+graphGap) + graphGap
	height := float64(rows)*(graphNodeH+graphGap) + graphGap

	nodes := make(map[string]vector.Rect, n)
	for i, p := range doc.Pages {
		x := graphGap + float64(i%cols)*(graphNodeW+graphGap)
		y := graphGap + float64(i/cols)*(graphNodeH+graphGap)
		nodes[p.ID] = vector.R(x, y, graphNodeW, graphNodeH)
	}

	var buf bytes.Buffer
	wf := func(format string, args ...any) { fmt.Fprintf(&buf, format, args...) }
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", width, height, width, height)
	wf("  <defs><marker id=\"arrow\" viewBox=\"0 0 10 10\" refX=\"10\" refY=\"5\" markerWidth=\"8\" markerHeight=\"8\" orient=\"auto-start-reverse\"><path d=\"M 0 0 L 10 5 L 0 10 z\" fill=\"#6366f1\"/></marker></defs>\n")
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", width, height)

	edges, dangling := Graph(doc)
	for _, e := range edges {
		from, to := nodes[e.From], nodes[e.To]
		a, b := edgeEndpoints(from, to)
		wf("  <line class=\"link\" x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"#6366f1\" stroke-width=\"%g\" marker-end=\"url(#arrow)\"/>\n",
			a.X, a.Y, b.X, b.Y, min(1+float64(e.Count-1)*0.5, 4))
	}
	for _, p := range doc.Pages {
		r := nodes[p.ID]
		stroke := 1.0
		if p.ID == doc.ActivePageID {
			stroke = 3
		}
		wf("  <g class=\"page\" id=\"%s\">\n", html.EscapeString(p.ID))
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"6\" fill=\"#f8fafc\" stroke=\"#1a1a2e\" stroke-width=\"%g\"/>\n", r.X, r.Y, r.W, r.H, stroke)
		c := r.Center()
		wf("    <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" font-family=\"Inter, Helvetica, sans-serif\" font-size=\"14\">%s</text>\n", c.X, c.Y, html.EscapeString(p.Name))
		wf("    <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" font-family=\"Inter, Helvetica, sans-serif\" font-size=\"10\" fill=\"#64748b\">%d blocks</text>\n", c.X, c.Y+16, len(p.Blocks))
		wf("  </g>\n")
	}
	if dangling > 0 {
		wf("  <text x=\"%d\" y=\"%g\" font-family=\"Inter, Helvetica, sans-serif\" font-size=\"11\" fill=\"#b91c1c\">%d dangling link(s)</text>\n", graphGap, height-graphGap/2, dangling)
	}
	wf("</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// edgeEndpoints returns the points where the segment between the centers of
// from and to leaves each rectangle.
func edgeEndpoints(from, to vector.Rect) (vector.Pt, vector.Pt) {
	a, b := from.Center(), to.Center()
	d := b.Sub(a)
	if d.X == 0 && d.Y == 0 {
		return a, b
	}
	t := boundaryT(d, from.W/2, from.H/2)
	s := boundaryT(d, to.W/2, to.H/2)
	return vector.Pt{X: a.X + d.X*t, Y: a.Y + d.Y*t}, vector.Pt{X: b.X - d.X*s, Y: b.Y - d.Y*s}
}

func boundaryT(d vector.Pt, hw, hh float64) float64 {
	t := math.Inf(1)
	if d.X != 0 {
		t = min(t, hw/math.Abs(d.X))
	}
	if d.Y != 0 {
		t = min(t, hh/math.Abs(d.Y))
	}
	return t
}
