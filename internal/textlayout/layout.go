/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and line-breaks block text for raster export.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
)

// Metrics provides font metrics in pixels for a face.
type Metrics struct {
	Ascent, Descent, LineHeight float64
}

// MetricsOf reads the metrics of face.
func MetricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		Ascent:     float64(m.Ascent.Round()),
		Descent:    float64(m.Descent.Round()),
		LineHeight: float64(m.Height.Round()),
	}
}

// Measure returns the advance width of s in pixels.
func Measure(face font.Face, s string) float64 {
	return advance(&font.Drawer{Face: face}, s)
}

// Wrap breaks text into lines no wider than maxWidth. Explicit newlines are
// kept, runs of spaces collapse, and a word wider than maxWidth stays on a
// line of its own. A non-positive maxWidth disables wrapping.
func Wrap(face font.Face, text string, maxWidth float64) []string {
	if text == "" {
		return nil
	}
	d := &font.Drawer{Face: face}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			cand := cur + " " + w
			if maxWidth > 0 && advance(d, cand) > maxWidth {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = cand
		}
		lines = append(lines, cur)
	}
	return lines
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}
