/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Smart guides snap a dragged block to the edges and centers of its
// neighbours. Snapping is independent per axis and deterministic, so the
// interaction layer can test it without a renderer.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
// A zero Threshold disables snapping.
type SnapOptions struct {
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Enabled reports whether snapping would ever move a rectangle.
func (o SnapOptions) Enabled() bool {
	return o.Threshold > 0 && (o.SnapToEdges || o.SnapToCenters)
}

// Anchor is a static reference rect. Weight biases ties (higher wins); use 1 when unsure.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine is a visual guide produced by a snap.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

// snapCandidate tracks the best alignment found so far on one axis.
type snapCandidate struct {
	delta float64
	score float64
	guide GuideLine
	found bool
}

func (c *snapCandidate) offer(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / max(1, weight)
	if !c.found || score < c.score {
		*c = snapCandidate{delta: delta, score: score, guide: g, found: true}
	}
}

// ComputeSmartGuides snaps moving against anchors and returns the adjusted
// rectangle plus guides to draw. Size is never changed.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if !opts.Enabled() {
		return moving, nil
	}
	var bx, by snapCandidate
	mx := [3]float64{moving.X, moving.X + moving.W/2, moving.X + moving.W}
	my := [3]float64{moving.Y, moving.Y + moving.H/2, moving.Y + moving.H}

	for _, a := range anchors {
		ax := [3]float64{a.Rect.X, a.Rect.X + a.Rect.W/2, a.Rect.X + a.Rect.W}
		ay := [3]float64{a.Rect.Y, a.Rect.Y + a.Rect.H/2, a.Rect.Y + a.Rect.H}
		if opts.SnapToEdges {
			// start/end of the moving rect against start/end of the anchor,
			// covering both flush alignment and abutting.
			for _, i := range [2]int{0, 2} {
				for _, j := range [2]int{0, 2} {
					bx.offer(mx[i]-ax[j], opts.Threshold, a.Weight, verticalGuide(ax[j], moving, a.Rect, "edge"))
					by.offer(my[i]-ay[j], opts.Threshold, a.Weight, horizontalGuide(ay[j], moving, a.Rect, "edge"))
				}
			}
		}
		if opts.SnapToCenters {
			bx.offer(mx[1]-ax[1], opts.Threshold, a.Weight, verticalGuide(ax[1], moving, a.Rect, "center"))
			by.offer(my[1]-ay[1], opts.Threshold, a.Weight, horizontalGuide(ay[1], moving, a.Rect, "center"))
		}
	}

	var guides []GuideLine
	snapped := moving
	if bx.found {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.found {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return snapped, guides
}

func verticalGuide(x float64, a, b Rect, kind string) GuideLine {
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: "vertical",
		Kind:        kind,
		Position:    x,
		From:        Pt{x, min(a.Y, b.Y)},
		To:          Pt{x, max(a.Y+a.H, b.Y+b.H)},
	}
}

func horizontalGuide(y float64, a, b Rect, kind string) GuideLine {
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: "horizontal",
		Kind:        kind,
		Position:    y,
		From:        Pt{min(a.X, b.X), y},
		To:          Pt{max(a.X+a.W, b.X+b.W), y},
	}
}
