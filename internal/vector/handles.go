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

import "strings"

// Dir names a resize handle by compass direction: n, s, e, w or a corner.
type Dir string

const (
	DirN  Dir = "n"
	DirS  Dir = "s"
	DirE  Dir = "e"
	DirW  Dir = "w"
	DirNE Dir = "ne"
	DirNW Dir = "nw"
	DirSE Dir = "se"
	DirSW Dir = "sw"
)

// Dirs lists all handles. Corners come first so they win hit tests over edges.
var Dirs = []Dir{DirNW, DirNE, DirSW, DirSE, DirN, DirS, DirW, DirE}

// Valid reports whether d is one of the eight handles.
func (d Dir) Valid() bool {
	for _, v := range Dirs {
		if v == d {
			return true
		}
	}
	return false
}

// Has reports whether the direction includes the axis letter ("n", "s", "e", "w").
func (d Dir) Has(axis string) bool { return strings.Contains(string(d), axis) }

// Handle sizes in logical pixels, measured inside the block bounds.
const (
	CornerHandleSize = 12
	EdgeHandleLong   = 24
	EdgeHandleShort  = 8
)

// HandleRect returns the hit rectangle of handle d on block bounds r.
func HandleRect(r Rect, d Dir) Rect {
	cx := r.X + r.W/2 - EdgeHandleLong/2
	cy := r.Y + r.H/2 - EdgeHandleLong/2
	switch d {
	case DirNW:
		return R(r.X, r.Y, CornerHandleSize, CornerHandleSize)
	case DirNE:
		return R(r.X+r.W-CornerHandleSize, r.Y, CornerHandleSize, CornerHandleSize)
	case DirSW:
		return R(r.X, r.Y+r.H-CornerHandleSize, CornerHandleSize, CornerHandleSize)
	case DirSE:
		return R(r.X+r.W-CornerHandleSize, r.Y+r.H-CornerHandleSize, CornerHandleSize, CornerHandleSize)
	case DirN:
		return R(cx, r.Y, EdgeHandleLong, EdgeHandleShort)
	case DirS:
		return R(cx, r.Y+r.H-EdgeHandleShort, EdgeHandleLong, EdgeHandleShort)
	case DirW:
		return R(r.X, cy, EdgeHandleShort, EdgeHandleLong)
	case DirE:
		return R(r.X+r.W-EdgeHandleShort, cy, EdgeHandleShort, EdgeHandleLong)
	}
	return Rect{}
}

// HandleAt returns the handle under p, if any.
func HandleAt(r Rect, p Pt) (Dir, bool) {
	for _, d := range Dirs {
		if HandleRect(r, d).Contains(p) {
			return d, true
		}
	}
	return "", false
}

// Resize applies an incremental pointer delta to r for handle d.
// Edges opposite the handle stay anchored; width and height never drop below
// minW and minH. The moved origin follows the raw delta, so a clamped
// shrink from the west or north still shifts the origin.
func Resize(r Rect, d Dir, dx, dy, minW, minH float64) Rect {
	out := r
	if d.Has("e") {
		out.W = max(minW, r.W+dx)
	}
	if d.Has("w") {
		out.W = max(minW, r.W-dx)
		out.X = r.X + dx
	}
	if d.Has("s") {
		out.H = max(minH, r.H+dy)
	}
	if d.Has("n") {
		out.H = max(minH, r.H-dy)
		out.Y = r.Y + dy
	}
	return out
}
