/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"io"
	"log/slog"
	"testing"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/vector"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// setup returns an editor with one block at 100,100 sized 200x100 and a controller.
func setup(t *testing.T, opts Options) (*editor.Editor, *Controller, string) {
	t.Helper()
	ed := editor.New(editor.Options{Logger: quiet(), Rand: func() float64 { return 0 }})
	id := ed.AddBlock()
	opts.Logger = quiet()
	return ed, NewController(ed, opts), id
}

func bounds(t *testing.T, ed *editor.Editor, id string) vector.Rect {
	t.Helper()
	b, ok := ed.Block(id)
	if !ok {
		t.Fatalf("block %q missing", id)
	}
	return vector.R(b.X, b.Y, b.Width, b.Height)
}

func TestDragBlockSnapshotsOnRelease(t *testing.T) {
	ed, c, id := setup(t, Options{})
	past, _ := ed.HistoryStats()

	if !c.PointerDown(id, Body(), vector.Pt{X: 150, Y: 120}, ButtonPrimary) {
		t.Fatalf("drag did not start")
	}
	if st, bid := c.State(); st != DraggingBlock || bid != id {
		t.Fatalf("unexpected state %v %q", st, bid)
	}
	c.PointerMove(vector.Pt{X: 160, Y: 130})
	c.PointerMove(vector.Pt{X: 200, Y: 170})
	if p, _ := ed.HistoryStats(); p != past {
		t.Fatalf("moves must not snapshot")
	}
	if r := bounds(t, ed, id); r.X != 150 || r.Y != 150 {
		t.Fatalf("block should follow the pointer keeping the grab offset: %+v", r)
	}
	c.PointerUp()
	if p, _ := ed.HistoryStats(); p != past+1 {
		t.Fatalf("release should record one undo step")
	}
	if st, _ := c.State(); st != Idle {
		t.Fatalf("expected idle after release")
	}
}

func TestDragSelectsAndRaises(t *testing.T) {
	ed, c, a := setup(t, Options{})
	b := ed.AddBlock()
	c.PointerDown(a, Body(), vector.Pt{X: 110, Y: 110}, ButtonPrimary)
	if sel, _ := ed.State().SelectedBlockID.Get(); sel != a {
		t.Fatalf("drag should select the block")
	}
	ba, _ := ed.Block(a)
	bb, _ := ed.Block(b)
	if ba.ZIndex <= bb.ZIndex {
		t.Fatalf("drag should bring the block to front")
	}
}

func TestResizeNorthWestGesture(t *testing.T) {
	ed, c, id := setup(t, Options{})
	past, _ := ed.HistoryStats()

	c.PointerDown(id, Handle(vector.DirNW), vector.Pt{X: 100, Y: 100}, ButtonPrimary)
	if p, _ := ed.HistoryStats(); p != past+1 {
		t.Fatalf("resize should snapshot on press")
	}
	if c.ResizeDir() != vector.DirNW {
		t.Fatalf("expected nw resize")
	}
	c.PointerMove(vector.Pt{X: 80, Y: 90})
	r := bounds(t, ed, id)
	if r.X != 80 || r.Y != 90 || r.W != 220 || r.H != 110 {
		t.Fatalf("unexpected bounds after nw resize: %+v", r)
	}
	c.PointerUp()
	if p, _ := ed.HistoryStats(); p != past+1 {
		t.Fatalf("release after resize must not snapshot again")
	}
	ed.Undo()
	if r := bounds(t, ed, id); r != vector.R(100, 100, 200, 100) {
		t.Fatalf("one undo should revert the whole gesture: %+v", r)
	}
}

func TestResizeIncrementalDeltas(t *testing.T) {
	ed, c, id := setup(t, Options{})
	c.PointerDown(id, Handle(vector.DirSE), vector.Pt{X: 300, Y: 200}, ButtonPrimary)
	c.PointerMove(vector.Pt{X: 310, Y: 210})
	c.PointerMove(vector.Pt{X: 320, Y: 220})
	c.PointerUp()
	if r := bounds(t, ed, id); r.W != 220 || r.H != 120 {
		t.Fatalf("deltas should accumulate from the last move: %+v", r)
	}
}

func TestResizeNeverBelowMinimum(t *testing.T) {
	ed, c, id := setup(t, Options{})
	for _, d := range vector.Dirs {
		c.PointerDown(id, Handle(d), vector.Pt{}, ButtonPrimary)
		c.PointerMove(vector.Pt{X: 5000, Y: 5000})
		c.PointerMove(vector.Pt{X: -5000, Y: -5000})
		c.PointerMove(vector.Pt{X: 3000, Y: -7000})
		c.PointerUp()
		if r := bounds(t, ed, id); r.W < 50 || r.H < 30 {
			t.Fatalf("%s: block below minimum: %+v", d, r)
		}
	}
}

func TestTextDrag(t *testing.T) {
	ed, c, id := setup(t, Options{})
	past, _ := ed.HistoryStats()
	c.PointerDown(id, Text(), vector.Pt{X: 120, Y: 120}, ButtonPrimary)
	if p, _ := ed.HistoryStats(); p != past+1 {
		t.Fatalf("text drag should snapshot on press")
	}
	c.PointerMove(vector.Pt{X: 130, Y: 145})
	c.PointerUp()
	b, _ := ed.Block(id)
	if b.TextX != 10 || b.TextY != 25 || b.X != 100 {
		t.Fatalf("text layer should move, block should not: %+v", b)
	}
	if c.TextFocus().IsSet() {
		t.Fatalf("a drag should not focus the text")
	}
}

func TestTextClickFocusesAndFocusedPressIsNotAGesture(t *testing.T) {
	ed, c, id := setup(t, Options{})
	c.PointerDown(id, Text(), vector.Pt{X: 120, Y: 120}, ButtonPrimary)
	c.PointerUp()
	if f, _ := c.TextFocus().Get(); f != id {
		t.Fatalf("click on text should focus it")
	}
	past, _ := ed.HistoryStats()
	if c.PointerDown(id, Text(), vector.Pt{X: 125, Y: 120}, ButtonPrimary) {
		t.Fatalf("press on focused text must not start a gesture")
	}
	if p, _ := ed.HistoryStats(); p != past {
		t.Fatalf("no snapshot expected")
	}
	c.CommitText(id, "Hello")
	b, _ := ed.Block(id)
	if b.Text != "Hello" || c.TextFocus().IsSet() {
		t.Fatalf("commit should store text and drop focus: %+v", b)
	}
	if p, _ := ed.HistoryStats(); p != past {
		t.Fatalf("commit must not snapshot")
	}
}

func TestIgnoredPresses(t *testing.T) {
	ed, c, id := setup(t, Options{})
	if c.PointerDown(id, Body(), vector.Pt{}, ButtonSecondary) {
		t.Fatalf("secondary button must be ignored")
	}
	if c.PointerDown(id, Control(), vector.Pt{}, ButtonPrimary) {
		t.Fatalf("controls must be ignored")
	}
	if c.PointerDown("missing", Body(), vector.Pt{}, ButtonPrimary) {
		t.Fatalf("unknown blocks must be ignored")
	}
	if c.PointerDown(id, Handle("x"), vector.Pt{}, ButtonPrimary) {
		t.Fatalf("invalid handles must be ignored")
	}
	ed.TogglePreviewMode()
	if c.PointerDown(id, Body(), vector.Pt{}, ButtonPrimary) {
		t.Fatalf("preview must ignore presses")
	}
	if st, _ := c.State(); st != Idle {
		t.Fatalf("expected idle")
	}
}

func TestSecondPressReleasesActiveGesture(t *testing.T) {
	ed, c, a := setup(t, Options{})
	b := ed.AddBlock()
	past, _ := ed.HistoryStats()
	c.PointerDown(a, Body(), vector.Pt{X: 110, Y: 110}, ButtonPrimary)
	c.PointerMove(vector.Pt{X: 120, Y: 110})
	c.PointerDown(b, Body(), vector.Pt{X: 110, Y: 110}, ButtonPrimary)
	if p, _ := ed.HistoryStats(); p != past+1 {
		t.Fatalf("forced release should record the first drag")
	}
	if st, id := c.State(); st != DraggingBlock || id != b {
		t.Fatalf("second gesture should be active, got %v %q", st, id)
	}
}

func TestPressThatStartsNothingStillReleases(t *testing.T) {
	cases := []struct {
		name   string
		target Target
		button Button
	}{
		{"empty", Target{}, ButtonPrimary},
		{"control", Control(), ButtonPrimary},
		{"secondary", Body(), ButtonSecondary},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ed, c, id := setup(t, Options{})
			past, _ := ed.HistoryStats()
			c.PointerDown(id, Body(), vector.Pt{X: 110, Y: 110}, ButtonPrimary)
			c.PointerMove(vector.Pt{X: 130, Y: 120})
			if c.PointerDown(id, tc.target, vector.Pt{X: 500, Y: 500}, tc.button) {
				t.Fatalf("press should not start a gesture")
			}
			if st, _ := c.State(); st != Idle {
				t.Fatalf("expected idle, got %v", st)
			}
			if p, _ := ed.HistoryStats(); p != past+1 {
				t.Fatalf("release should record the drag, past=%d want %d", p, past+1)
			}
			if r := bounds(t, ed, id); r.X != 120 || r.Y != 110 {
				t.Fatalf("drag geometry lost: %+v", r)
			}
		})
	}
}

func TestCancelCommitsLastGeometry(t *testing.T) {
	ed, c, id := setup(t, Options{})
	c.PointerDown(id, Body(), vector.Pt{X: 100, Y: 100}, ButtonPrimary)
	c.PointerMove(vector.Pt{X: 140, Y: 100})
	c.Cancel()
	if r := bounds(t, ed, id); r.X != 140 {
		t.Fatalf("cancel should keep the last geometry: %+v", r)
	}
	c.PointerMove(vector.Pt{X: 500, Y: 500})
	if r := bounds(t, ed, id); r.X != 140 {
		t.Fatalf("moves after release must be ignored")
	}
}

func TestMoveAfterBlockVanishedResetsGesture(t *testing.T) {
	ed, c, id := setup(t, Options{})
	c.PointerDown(id, Handle(vector.DirE), vector.Pt{X: 300, Y: 150}, ButtonPrimary)
	ed.Undo()
	ed.Undo()
	c.PointerMove(vector.Pt{X: 320, Y: 150})
	if st, _ := c.State(); st != Idle {
		t.Fatalf("gesture on a vanished block should end")
	}
}

func TestDragSnapsToNeighbour(t *testing.T) {
	ed, c, a := setup(t, Options{Snap: vector.SnapOptions{Threshold: 6, SnapToEdges: true}})
	b := ed.AddBlock()
	ed.UpdateBlock(b, editor.BoundsPatch(100, 400, 200, 100))

	c.PointerDown(a, Body(), vector.Pt{X: 100, Y: 100}, ButtonPrimary)
	c.PointerMove(vector.Pt{X: 103, Y: 300})
	r := bounds(t, ed, a)
	if r.X != 100 {
		t.Fatalf("expected x snapped to neighbour edge 100, got %v", r.X)
	}
	if len(c.Guides()) == 0 {
		t.Fatalf("expected guides while snapping")
	}
	c.PointerUp()
	if len(c.Guides()) != 0 {
		t.Fatalf("guides should clear on release")
	}
}

func TestHitTest(t *testing.T) {
	b := domain.Block{X: 0, Y: 0, Width: 200, Height: 100}
	cases := []struct {
		pt      vector.Pt
		focused bool
		want    Target
	}{
		{vector.Pt{X: 2, Y: 2}, false, Handle(vector.DirNW)},
		{vector.Pt{X: 198, Y: 50}, false, Handle(vector.DirE)},
		{vector.Pt{X: 100, Y: 50}, false, Text()},
		{vector.Pt{X: 40, Y: 4}, false, Body()},
		{vector.Pt{X: 2, Y: 2}, true, Body()},
		{vector.Pt{X: 9, Y: 9}, true, Text()},
		{vector.Pt{X: 300, Y: 50}, false, Target{}},
	}
	for _, tc := range cases {
		if got := HitTest(b, tc.pt, tc.focused); got != tc.want {
			t.Fatalf("HitTest(%v, focused=%v) = %+v want %+v", tc.pt, tc.focused, got, tc.want)
		}
	}
}

func TestTextRectFollowsOffset(t *testing.T) {
	r := TextRect(domain.Block{X: 10, Y: 10, Width: 200, Height: 100, TextX: 50, TextY: 20})
	if r.X != 68 || r.Y != 38 || r.X+r.W != 210 || r.Y+r.H != 110 {
		t.Fatalf("unexpected text rect: %+v", r)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	if OptionsFromConfig(cfg).Snap.Enabled() {
		t.Fatalf("snapping is off by default")
	}
	cfg.Editor.Snap = config.SnapConfig{Threshold: 6, Edges: true}
	o := OptionsFromConfig(cfg)
	if !o.Snap.Enabled() || o.Snap.Threshold != 6 || !o.Snap.SnapToEdges || o.Snap.SnapToCenters {
		t.Fatalf("unexpected snap options: %+v", o.Snap)
	}
}
