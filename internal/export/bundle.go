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
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"pagecraft/internal/domain"
	"pagecraft/internal/storage"
)

// BundleOptions controls the prototype bundle.
type BundleOptions struct {
	IncludeDocument bool // add document.json so the bundle can be reopened
	Pages           []int
}

// ExportBundle packages the linked page SVGs, the page graph and an
// index.html into a single ZIP that can be unpacked and clicked through in a
// browser. Relative paths land in the exports folder; ".zip" is enforced.
func ExportBundle(h *storage.Handle, outPath string, opt BundleOptions) (string, error) {
	if h == nil {
		return "", errNoHandle
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath += ".zip"
	}
	out, err := resolveOut(h, outPath)
	if err != nil {
		return "", err
	}
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(f)
	if err := writeBundle(zw, h.Doc, opt); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("finalize zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close zip: %w", err)
	}
	return out, nil
}

func writeBundle(zw *zip.Writer, doc domain.Document, opt BundleOptions) error {
	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("zip write %s: %w", name, err)
		}
		return nil
	}

	indexes := pageIndexes(len(doc.Pages), opt.Pages)
	svgOpt := SVGOptions{Pages: opt.Pages}
	for _, i := range indexes {
		var buf bytes.Buffer
		if err := WritePageSVG(&buf, doc, i, svgOpt); err != nil {
			return err
		}
		if err := add(SVGPageName(i), buf.Bytes()); err != nil {
			return err
		}
	}
	var graph bytes.Buffer
	if err := WriteGraphSVG(&graph, doc); err != nil {
		return err
	}
	if err := add("graph.svg", graph.Bytes()); err != nil {
		return err
	}
	if err := add("index.html", bundleIndex(doc, indexes)); err != nil {
		return err
	}
	if opt.IncludeDocument {
		data, err := storage.Encode(doc)
		if err != nil {
			return err
		}
		if err := add(storage.DocumentFileName, data); err != nil {
			return err
		}
	}
	return nil
}

// bundleIndex lists the pages with the active page first.
func bundleIndex(doc domain.Document, indexes []int) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>PageCraft prototype</title></head><body>\n<ul>\n")
	order := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if doc.Pages[i].ID == doc.ActivePageID {
			order = append([]int{i}, order...)
			continue
		}
		order = append(order, i)
	}
	for _, i := range order {
		fmt.Fprintf(&b, "  <li><a href=\"%s\">%s</a></li>\n", SVGPageName(i), html.EscapeString(doc.Pages[i].Name))
	}
	b.WriteString("</ul>\n<p><a href=\"graph.svg\">Page graph</a></p>\n</body></html>\n")
	return []byte(b.String())
}

// bundleName returns the default bundle file name for a document root.
func bundleName(root string) string {
	base := filepath.Base(filepath.Clean(root))
	if base == "." || base == string(filepath.Separator) {
		base = "prototype"
	}
	return base + ".zip"
}
