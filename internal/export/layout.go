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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"pagecraft/internal/domain"
	"pagecraft/internal/storage"
	"pagecraft/internal/vector"
)

// Margin is the empty border, in logical pixels, kept around page content.
const Margin = 24

// textPadding matches the inset used by the editor's text layer.
const textPadding = 8

var errNoHandle = errors.New("document handle is nil")

// rgb is an 8-bit color parsed from a block's hex string.
type rgb struct{ R, G, B int }

// parseHex accepts #rgb and #rrggbb. Anything else yields fallback.
func parseHex(s string, fallback rgb) rgb {
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
	return rgb{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}
}

func (c rgb) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

var (
	black = rgb{0, 0, 0}
	white = rgb{255, 255, 255}
)

// pageExtent is the drawable area of a page: the device canvas united with
// the bounds of every block, grown by Margin. Offset shifts canvas
// coordinates so that nothing lands at a negative position.
type pageExtent struct {
	Bounds vector.Rect
	Offset vector.Pt
}

func extentOf(p domain.Page, mode domain.DeviceMode) pageExtent {
	r := vector.R(0, 0, mode.CanvasWidth(), mode.CanvasMinHeight())
	for _, b := range p.Blocks {
		r = r.Union(vector.R(b.X, b.Y, b.Width, b.Height))
	}
	r = r.Inset(-Margin, -Margin)
	return pageExtent{
		Bounds: vector.R(0, 0, r.W, r.H),
		Offset: vector.Pt{X: -r.X, Y: -r.Y},
	}
}

// paintOrder returns the page's blocks sorted bottom to top. Equal z keeps
// document order.
func paintOrder(p domain.Page) []domain.Block {
	out := make([]domain.Block, len(p.Blocks))
	copy(out, p.Blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// resolveOut places relative output paths under the document's exports folder.
func resolveOut(h *storage.Handle, out string) (string, error) {
	if !filepath.IsAbs(out) {
		out = filepath.Join(h.Root, storage.ExportsDirName, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return out, nil
}

// resolveDir is resolveOut for a directory.
func resolveDir(h *storage.Handle, dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(h.Root, storage.ExportsDirName, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return dir, nil
}

// pageIndexes selects pages by index. Empty selects all; out-of-range entries are dropped.
func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, len(specific))
	for _, i := range specific {
		if i >= 0 && i < total {
			out = append(out, i)
		}
	}
	return out
}

// fitImage places an iw x ih image inside box according to size, centered.
// The result may exceed box; callers clip.
func fitImage(box vector.Rect, iw, ih float64, size domain.BackgroundSize) vector.Rect {
	if iw <= 0 || ih <= 0 {
		return box
	}
	var s float64
	switch size {
	case domain.BackgroundContain:
		s = min(box.W/iw, box.H/ih)
	case domain.BackgroundAuto:
		s = 1
	case domain.Background50, domain.Background75, domain.Background100, domain.Background125, domain.Background150:
		pct, _ := strconv.ParseFloat(strings.TrimSuffix(string(size), "%"), 64)
		s = box.W * pct / 100 / iw
	default:
		s = max(box.W/iw, box.H/ih)
	}
	w, h := iw*s, ih*s
	return vector.R(box.X+(box.W-w)/2, box.Y+(box.H-h)/2, w, h)
}
