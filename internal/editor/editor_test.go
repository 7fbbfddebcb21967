/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/vector"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	return New(Options{
		Rand:   func() float64 { return 0.5 },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func checkInvariants(t *testing.T, e *Editor) {
	t.Helper()
	st := e.State()
	if len(st.Pages) == 0 {
		t.Fatalf("editor has no pages")
	}
	if domain.FindPage(st.Pages, st.ActivePageID) == nil {
		t.Fatalf("active page %q does not resolve", st.ActivePageID)
	}
}

func TestNewEditorStartsWithOnePage(t *testing.T) {
	e := newTestEditor(t)
	pages := e.Pages()
	if len(pages) != 1 || pages[0].Name != "Page 1" || len(pages[0].Blocks) != 0 {
		t.Fatalf("unexpected initial pages: %+v", pages)
	}
	checkInvariants(t, e)
	if e.CanUndo() || e.CanRedo() {
		t.Fatalf("fresh editor should have no history")
	}
}

func TestAddBlockScenario(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	page := e.ActivePage()
	if len(page.Blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(page.Blocks))
	}
	b := page.Blocks[0]
	if b.ID != id || b.Width != 200 || b.Height != 100 || b.ZIndex != 1 {
		t.Fatalf("unexpected block: %+v", b)
	}
	if b.X != 200 || b.Y != 150 {
		t.Fatalf("placement should use the random source: %v,%v", b.X, b.Y)
	}
	if sel, ok := e.State().SelectedBlockID.Get(); !ok || sel != id {
		t.Fatalf("new block should be selected, got %q", sel)
	}
	if id2 := e.AddBlock(); e.ActivePage().Blocks[1].ZIndex != 2 || id2 == id {
		t.Fatalf("second block should stack above the first")
	}
}

func TestAddBlockPlacementRange(t *testing.T) {
	for _, r := range []float64{0, 0.999999} {
		e := New(Options{Rand: func() float64 { return r }, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		e.AddBlock()
		b := e.ActivePage().Blocks[0]
		if b.X < 100 || b.X >= 300 || b.Y < 100 || b.Y >= 200 {
			t.Fatalf("block placed out of range: %v,%v", b.X, b.Y)
		}
	}
}

func TestAddPageActivatesAndClearsSelection(t *testing.T) {
	e := newTestEditor(t)
	e.AddBlock()
	id := e.AddPage()
	st := e.State()
	if st.ActivePageID != id || len(st.Pages) != 2 || st.Pages[1].Name != "Page 2" {
		t.Fatalf("unexpected state after AddPage: %+v", st)
	}
	if st.SelectedBlockID.IsSet() {
		t.Fatalf("selection should be cleared")
	}
}

func TestPageNameFormat(t *testing.T) {
	e := New(Options{PageNameFormat: "Screen %d", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	e.AddPage()
	if p := e.Pages(); p[0].Name != "Screen 1" || p[1].Name != "Screen 2" {
		t.Fatalf("unexpected names: %q %q", p[0].Name, p[1].Name)
	}
}

func TestSetActivePage(t *testing.T) {
	e := newTestEditor(t)
	first := e.ActivePage().ID
	e.AddPage()
	e.AddBlock()
	e.SetActivePage(first)
	if st := e.State(); st.ActivePageID != first || st.SelectedBlockID.IsSet() {
		t.Fatalf("unexpected state: %+v", st)
	}
	e.SetActivePage("missing")
	if e.ActivePage().ID != first {
		t.Fatalf("unknown id should be ignored")
	}
}

func TestDeleteLastPageIsNoop(t *testing.T) {
	e := newTestEditor(t)
	e.DeletePage(e.ActivePage().ID)
	if len(e.Pages()) != 1 || e.CanUndo() {
		t.Fatalf("deleting the last page must do nothing")
	}
	checkInvariants(t, e)
}

func TestDeleteActivePageScenario(t *testing.T) {
	e := newTestEditor(t)
	a := e.ActivePage().ID
	b := e.AddPage()
	e.DeletePage(b)
	if st := e.State(); st.ActivePageID != a || len(st.Pages) != 1 {
		t.Fatalf("expected remaining page %q active, got %+v", a, st)
	}

	b = e.AddPage()
	e.SetActivePage(a)
	e.DeletePage(a)
	if e.ActivePage().ID != b {
		t.Fatalf("expected %q active", b)
	}
	checkInvariants(t, e)
}

func TestDeletePageLeavesLinksDangling(t *testing.T) {
	e := newTestEditor(t)
	a := e.ActivePage().ID
	x := e.AddBlock()
	b := e.AddPage()
	e.SetActivePage(a)
	e.LinkBlockToPage(x, domain.Some(b))
	e.DeletePage(b)

	blk, _ := e.Block(x)
	if got, _ := blk.LinkedPageID.Get(); got != b {
		t.Fatalf("link should be left in place, got %q", got)
	}
	if len(e.Connectors()) != 0 {
		t.Fatalf("dangling links must not produce connectors")
	}
	e.TogglePreviewMode()
	e.ClickBlock(x)
	if e.ActivePage().ID != a {
		t.Fatalf("navigating a dangling link must be a no-op")
	}
}

func TestRenamePage(t *testing.T) {
	e := newTestEditor(t)
	id := e.ActivePage().ID
	e.RenamePage(id, "Intro")
	if e.ActivePage().Name != "Intro" || !e.CanUndo() {
		t.Fatalf("rename not applied or not recorded")
	}
	e.RenamePage(id, "")
	if e.ActivePage().Name != "" {
		t.Fatalf("empty names are accepted by the engine")
	}
	e.Undo()
	if e.ActivePage().Name != "Intro" {
		t.Fatalf("undo should restore the previous name")
	}
	past, _ := e.HistoryStats()
	e.RenamePage("missing", "x")
	if p, _ := e.HistoryStats(); p != past {
		t.Fatalf("unknown page must not snapshot")
	}
}

func TestUpdateBlockClampsAndDoesNotSnapshot(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	past, _ := e.HistoryStats()

	ok := e.UpdateBlock(id, BlockPatch{
		Width:             Ptr(10.0),
		Height:            Ptr(-5.0),
		BackgroundOpacity: Ptr(150),
		FontSize:          Ptr(0),
		Text:              Ptr("hello"),
	})
	if !ok {
		t.Fatalf("UpdateBlock did not find block")
	}
	b, _ := e.Block(id)
	if b.Width != 50 || b.Height != 30 {
		t.Fatalf("size should clamp to minimum, got %vx%v", b.Width, b.Height)
	}
	if b.BackgroundOpacity != 100 || b.FontSize != 16 || b.Text != "hello" {
		t.Fatalf("unexpected block after patch: %+v", b)
	}
	if p, _ := e.HistoryStats(); p != past {
		t.Fatalf("UpdateBlock must not record history")
	}
	if e.UpdateBlock("missing", MovePatch(1, 1)) {
		t.Fatalf("unknown id should report false")
	}
}

func TestUpdateBlockOptionalFields(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	e.UpdateBlock(id, BlockPatch{
		BackgroundImage: Ptr(domain.Some("data:image/png;base64,AAAA")),
		BackgroundSize:  Ptr(domain.Some(domain.BackgroundSize("bogus"))),
	})
	b, _ := e.Block(id)
	if !b.BackgroundImage.IsSet() {
		t.Fatalf("background image should be set")
	}
	if b.BackgroundSize.IsSet() {
		t.Fatalf("invalid background size should be ignored")
	}
	e.UpdateBlock(id, BlockPatch{BackgroundImage: Ptr(domain.None[string]())})
	b, _ = e.Block(id)
	if b.BackgroundImage.IsSet() {
		t.Fatalf("patch should clear the image")
	}
}

func TestSetImageRecordsHistory(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	past, _ := e.HistoryStats()
	e.SetImage(id, ContentImage, domain.Some("data:image/gif;base64,R0lG"))
	if p, _ := e.HistoryStats(); p != past+1 {
		t.Fatalf("SetImage should snapshot once")
	}
	b, _ := e.Block(id)
	if !b.ContentImage.IsSet() || b.BackgroundImage.IsSet() {
		t.Fatalf("wrong image slot: %+v", b)
	}
	e.Undo()
	b, _ = e.Block(id)
	if b.ContentImage.IsSet() {
		t.Fatalf("undo should remove the image")
	}
}

func TestApplyStyleIsOneUndoStep(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	before, _ := e.Block(id)
	past, _ := e.HistoryStats()

	e.ApplyStyle(id, BlockPatch{
		FontFamily:        Ptr("Georgia"),
		FontSize:          Ptr(28),
		BackgroundColor:   Ptr("#112233"),
		BackgroundOpacity: Ptr(150),
	})
	if p, _ := e.HistoryStats(); p != past+1 {
		t.Fatalf("a style patch should be one history entry, past=%d", p)
	}
	b, _ := e.Block(id)
	if b.FontFamily != "Georgia" || b.FontSize != 28 || b.BackgroundColor != "#112233" || b.BackgroundOpacity != 100 {
		t.Fatalf("style not applied: %+v", b)
	}

	e.Undo()
	b, _ = e.Block(id)
	if b != before {
		t.Fatalf("undo should restore the previous style:\n got %+v\nwant %+v", b, before)
	}

	e.ApplyStyle("missing", BlockPatch{FontSize: Ptr(10)})
	if p, _ := e.HistoryStats(); p != past {
		t.Fatalf("unknown block must not snapshot, past=%d", p)
	}
}

func TestDeleteBlockClearsSelection(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	e.DeleteBlock(id)
	if len(e.ActivePage().Blocks) != 0 {
		t.Fatalf("block not deleted")
	}
	if _, ok := e.SelectedBlock(); ok || e.State().SelectedBlockID.IsSet() {
		t.Fatalf("selection should be cleared")
	}
}

func TestSelectBlock(t *testing.T) {
	e := newTestEditor(t)
	a := e.AddBlock()
	e.AddBlock()
	e.SelectBlock(domain.Some(a))
	if b, ok := e.SelectedBlock(); !ok || b.ID != a {
		t.Fatalf("select failed")
	}
	e.SelectBlock(domain.Some("missing"))
	if e.State().SelectedBlockID.IsSet() {
		t.Fatalf("unknown id should clear the selection")
	}
	if e.CanRedo() {
		t.Fatalf("selection must not touch history")
	}
}

func TestBringToFront(t *testing.T) {
	e := newTestEditor(t)
	a := e.AddBlock()
	e.AddBlock()
	e.AddBlock()
	e.BringToFront(a)
	page := e.ActivePage()
	var za int
	for _, b := range page.Blocks {
		if b.ID == a {
			za = b.ZIndex
		}
	}
	for _, b := range page.Blocks {
		if b.ID != a && b.ZIndex >= za {
			t.Fatalf("block %q z=%d not below raised block z=%d", b.ID, b.ZIndex, za)
		}
	}
}

func TestLinkToOwnPageIsCleared(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	e.LinkBlockToPage(id, domain.Some(e.ActivePage().ID))
	b, _ := e.Block(id)
	if b.LinkedPageID.IsSet() {
		t.Fatalf("self link should be stored as cleared")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	e := newTestEditor(t)
	before := e.Pages()

	a := e.AddBlock()
	e.UpdateBlock(a, MovePatch(10, 10))
	p2 := e.AddPage()
	e.RenamePage(p2, "Second")
	e.SetActivePage(before[0].ID)
	e.LinkBlockToPage(a, domain.Some(p2))
	e.AddBlock()
	e.DeleteBlock(a)

	for i := 0; i < 6; i++ {
		e.Undo()
	}
	if got := e.Pages(); !reflect.DeepEqual(got, before) {
		t.Fatalf("pages after undo differ:\n got %+v\nwant %+v", got, before)
	}
	checkInvariants(t, e)
	if e.CanUndo() {
		t.Fatalf("history should be exhausted")
	}
}

func TestRedoClearedByNewAction(t *testing.T) {
	e := newTestEditor(t)
	e.AddBlock()
	e.Undo()
	if !e.CanRedo() {
		t.Fatalf("expected redo")
	}
	e.AddPage()
	if e.CanRedo() {
		t.Fatalf("new action must clear redo")
	}
	before := e.Pages()
	e.Redo()
	if !reflect.DeepEqual(e.Pages(), before) {
		t.Fatalf("redo after invalidation must be a no-op")
	}
}

func TestUndoRedoBlock(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	e.Undo()
	if len(e.ActivePage().Blocks) != 0 {
		t.Fatalf("undo should remove the block")
	}
	if _, ok := e.SelectedBlock(); ok {
		t.Fatalf("stale selection must resolve to nothing")
	}
	e.Redo()
	if _, ok := e.Block(id); !ok {
		t.Fatalf("redo should restore the block")
	}
}

func TestHistoryBound(t *testing.T) {
	e := newTestEditor(t)
	for i := 0; i < 60; i++ {
		e.AddBlock()
	}
	if past, _ := e.HistoryStats(); past != 50 {
		t.Fatalf("expected 50 past entries, got %d", past)
	}
	for e.CanUndo() {
		e.Undo()
	}
	if n := len(e.ActivePage().Blocks); n != 10 {
		t.Fatalf("oldest reachable state should have 10 blocks, got %d", n)
	}
}

func TestUndoAddPageRepairsActivePage(t *testing.T) {
	e := newTestEditor(t)
	first := e.ActivePage().ID
	e.AddPage()
	e.Undo()
	if e.ActivePage().ID != first {
		t.Fatalf("active page should fall back to the first page")
	}
	checkInvariants(t, e)
}

func TestPreviewNavigationScenario(t *testing.T) {
	e := newTestEditor(t)
	a := e.ActivePage().ID
	x := e.AddBlock()
	b := e.AddPage()
	e.SetActivePage(a)
	e.LinkBlockToPage(x, domain.Some(b))

	e.ClickBlock(x)
	if e.ActivePage().ID != a {
		t.Fatalf("clicks outside preview must not navigate")
	}
	e.TogglePreviewMode()
	e.ClickBlock(x)
	st := e.State()
	if st.ActivePageID != b || st.SelectedBlockID.IsSet() {
		t.Fatalf("expected navigation to %q with no selection, got %+v", b, st)
	}
}

func TestTogglePreviewClearsSelection(t *testing.T) {
	e := newTestEditor(t)
	id := e.AddBlock()
	e.TogglePreviewMode()
	if e.State().SelectedBlockID.IsSet() {
		t.Fatalf("entering preview should clear selection")
	}
	e.TogglePreviewMode()
	e.SelectBlock(domain.Some(id))
	e.TogglePreviewMode()
	if e.State().SelectedBlockID.IsSet() || !e.PreviewMode() {
		t.Fatalf("unexpected state")
	}
}

func TestVisibilityDefault(t *testing.T) {
	e := newTestEditor(t)
	a := e.AddBlock()
	b := e.AddBlock()
	e.SelectBlock(domain.None[string]())

	vs := e.Visibility()
	if vs[0].Block.ID != a || !vs[0].Faded || vs[0].Interactive {
		t.Fatalf("lower block should be faded: %+v", vs[0])
	}
	if vs[1].Block.ID != b || vs[1].Faded || !vs[1].Topmost {
		t.Fatalf("top block should be visible: %+v", vs[1])
	}

	e.SelectBlock(domain.Some(a))
	vs = e.Visibility()
	if vs[0].Faded || !vs[0].Selected || !vs[0].Interactive {
		t.Fatalf("selected block should not be faded: %+v", vs[0])
	}
}

func TestVisibilityTieGoesToFirstBlock(t *testing.T) {
	e := newTestEditor(t)
	a := e.AddBlock()
	b := e.AddBlock()
	e.UpdateBlock(b, BlockPatch{ZIndex: Ptr(1)})
	e.SelectBlock(domain.None[string]())
	vs := e.Visibility()
	if !vs[0].Topmost || vs[0].Block.ID != a || vs[1].Topmost {
		t.Fatalf("tie should resolve to first block: %+v", vs)
	}
}

func TestVisibilityShowAllAndPreview(t *testing.T) {
	e := newTestEditor(t)
	e.AddBlock()
	e.AddBlock()
	e.ToggleShowAllBlocks()
	for _, v := range e.Visibility() {
		if v.Faded || !v.Outlined || !v.Interactive {
			t.Fatalf("show-all should draw every block outlined: %+v", v)
		}
	}
	e.ToggleShowAllBlocks()
	e.TogglePreviewMode()
	for _, v := range e.Visibility() {
		if v.Faded || v.Outlined || v.Selected {
			t.Fatalf("preview should draw every block plainly: %+v", v)
		}
	}
}

func TestOverlayPickReachesHiddenBlock(t *testing.T) {
	e := newTestEditor(t)
	a := e.AddBlock()
	b := e.AddBlock()
	e.UpdateBlock(a, BoundsPatch(0, 0, 200, 100))
	e.UpdateBlock(b, BoundsPatch(50, 20, 200, 100))

	if e.Overlay() != nil {
		t.Fatalf("overlay should be empty outside show-all")
	}
	e.ToggleShowAllBlocks()
	ov := e.Overlay()
	if len(ov) != 2 || ov[0].BlockID != a || ov[1].BlockID != b {
		t.Fatalf("overlay should follow document order: %+v", ov)
	}
	// right edge of a lies inside b
	if !e.PickOverlay(vector.Pt{X: 200, Y: 50}) {
		t.Fatalf("expected a pick on a's outline")
	}
	if sel, _ := e.State().SelectedBlockID.Get(); sel != a {
		t.Fatalf("expected %q selected, got %q", a, sel)
	}
	// interior of both blocks is not an outline
	if e.PickOverlay(vector.Pt{X: 120, Y: 60}) {
		t.Fatalf("interior points should not pick")
	}
}

func TestConnectors(t *testing.T) {
	e := newTestEditor(t)
	a := e.ActivePage().ID
	x := e.AddBlock()
	e.UpdateBlock(x, BoundsPatch(100, 40, 200, 100))
	b := e.AddPage()
	e.SetActivePage(a)
	e.LinkBlockToPage(x, domain.Some(b))

	cs := e.Connectors()
	if len(cs) != 1 || cs[0].BlockID != x || cs[0].PageID != b {
		t.Fatalf("unexpected connectors: %+v", cs)
	}
	if cs[0].Anchor != (vector.Pt{X: 200, Y: 40}) {
		t.Fatalf("anchor should be the top center, got %+v", cs[0].Anchor)
	}
	e.TogglePreviewMode()
	if len(e.Connectors()) != 0 {
		t.Fatalf("no connectors in preview")
	}
}

func TestSubscribe(t *testing.T) {
	e := newTestEditor(t)
	var got []ChangeKind
	unsub := e.Subscribe(func(c Change) { got = append(got, c.Kind) })
	e.AddBlock()
	if len(got) == 0 || got[0] != ChangeBlocks {
		t.Fatalf("expected block change, got %v", got)
	}
	unsub()
	n := len(got)
	e.AddPage()
	if len(got) != n {
		t.Fatalf("listener called after unsubscribe")
	}
}

func TestSubscriberMayReadEditor(t *testing.T) {
	e := newTestEditor(t)
	var pages int
	e.Subscribe(func(Change) { pages = len(e.Pages()) })
	e.AddPage()
	if pages != 2 {
		t.Fatalf("listener saw %d pages", pages)
	}
}

func TestLoadAndDocument(t *testing.T) {
	e := newTestEditor(t)
	p1 := domain.NewPage("One")
	p1.Blocks = append(p1.Blocks, domain.NewBlock(0, 0, 1, domain.DefaultBlockStyle()))
	p2 := domain.NewPage("Two")
	doc := domain.Document{Pages: []domain.Page{p1, p2}, ActivePageID: "gone", DeviceMode: domain.DeviceMobile}

	e.AddBlock()
	if err := e.Load(doc); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.CanUndo() {
		t.Fatalf("load should clear history")
	}
	got := e.Document()
	if got.ActivePageID != p1.ID || got.DeviceMode != domain.DeviceMobile || got.Version != domain.DocumentVersion {
		t.Fatalf("unexpected document: %+v", got)
	}
	if !reflect.DeepEqual(got.Pages, doc.Pages) {
		t.Fatalf("pages changed on load")
	}
	if err := e.Load(domain.Document{}); err == nil {
		t.Fatalf("empty document should be rejected")
	}
}

func TestSetDeviceMode(t *testing.T) {
	e := newTestEditor(t)
	e.SetDeviceMode(domain.DeviceMobile)
	if e.State().DeviceMode != domain.DeviceMobile {
		t.Fatalf("mode not set")
	}
	e.SetDeviceMode("tablet")
	if e.State().DeviceMode != domain.DeviceMobile {
		t.Fatalf("unknown mode should be ignored")
	}
}
