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
	"path/filepath"
	"strings"

	"pagecraft/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Formats understood by BatchExport.
const (
	FormatPDF    = "pdf"
	FormatSVG    = "svg"
	FormatPNG    = "png"
	FormatGraph  = "graph"
	FormatBundle = "bundle"
)

// BatchOptions controls batch export across multiple formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <document>/exports/<preset>/.
//   - Single-file outputs (pdf, graph, bundle) are written directly into OutDir.
//   - Per-page outputs go to png/ or svg/ subfolders inside OutDir.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // empty means preset defaults
	Pages   []int    // zero-based indices; empty means all pages
	Scale   float64  // raster scale for png; preset default when zero
	OutDir  string
}

// BatchExport runs exports according to the given preset and returns the
// files written.
func BatchExport(h *storage.Handle, opt BatchOptions) ([]string, error) {
	if h == nil {
		return nil, errNoHandle
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "batch"
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(h.Root, storage.ExportsDirName, baseOut)
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = presetScale(opt.Preset)
	}

	var files []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatPDF:
			out, err := ExportPDF(h, filepath.Join(baseOut, "document.pdf"), PDFOptions{Outline: true, Pages: opt.Pages})
			if err != nil {
				return files, fmt.Errorf("pdf: %w", err)
			}
			files = append(files, out)
		case FormatSVG:
			out, err := ExportSVGPages(h, filepath.Join(baseOut, "svg"), SVGOptions{Pages: opt.Pages})
			if err != nil {
				return files, fmt.Errorf("svg: %w", err)
			}
			files = append(files, out...)
		case FormatPNG:
			out, err := ExportPNGPages(h, filepath.Join(baseOut, "png"), PNGOptions{Scale: scale, Pages: opt.Pages})
			if err != nil {
				return files, fmt.Errorf("png: %w", err)
			}
			files = append(files, out...)
		case FormatGraph:
			out, err := ExportGraphSVG(h, filepath.Join(baseOut, "graph.svg"))
			if err != nil {
				return files, fmt.Errorf("graph: %w", err)
			}
			files = append(files, out)
		case FormatBundle:
			out, err := ExportBundle(h, filepath.Join(baseOut, bundleName(h.Root)), BundleOptions{IncludeDocument: true, Pages: opt.Pages})
			if err != nil {
				return files, fmt.Errorf("bundle: %w", err)
			}
			files = append(files, out)
		default:
			return files, fmt.Errorf("unknown format: %s", f)
		}
	}
	return files, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatSVG, FormatPNG, FormatGraph, FormatBundle}
	case PresetPrint:
		return []string{FormatPDF, FormatPNG}
	default:
		return []string{FormatPDF}
	}
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
