/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/export"
	"pagecraft/internal/storage"
)

func newSession(t *testing.T) (*Session, *editor.Editor) {
	t.Helper()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	ed := editor.New(editor.Options{Rand: func() float64 { return 0 }, Logger: l})
	return NewSession(config.Defaults(), ed, l), ed
}

func TestSessionOpenCreatesAndSaves(t *testing.T) {
	ctx := context.Background()
	s, ed := newSession(t)
	dir := filepath.Join(t.TempDir(), "site")
	if err := s.Save(ctx); err != errNoDocument {
		t.Fatalf("save without a document should fail, got %v", err)
	}
	pending, err := s.Open(ctx, dir)
	if err != nil || pending {
		t.Fatalf("open: pending=%v err=%v", pending, err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, storage.DocumentFileName)); err != nil {
		t.Fatalf("document not created: %v", err)
	}
	if s.Dirty() {
		t.Fatalf("fresh document should be clean")
	}

	home := ed.ActivePage().ID
	other := ed.AddPage()
	ed.SetActivePage(home)
	id := ed.AddBlock()
	text := "contact us"
	ed.UpdateBlock(id, editor.BlockPatch{Text: &text})
	ed.LinkBlockToPage(id, domain.Some(other))
	if !s.Dirty() {
		t.Fatalf("edits should mark the session dirty")
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Dirty() {
		t.Fatalf("save should clear dirty")
	}

	links, err := s.Backlinks(ctx, other)
	if err != nil || len(links) != 1 || links[0].BlockID != id {
		t.Fatalf("backlinks = %+v, %v", links, err)
	}
	hits, err := s.Search(ctx, "contact")
	if err != nil || len(hits) != 1 {
		t.Fatalf("search = %+v, %v", hits, err)
	}

	h, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if domain.OwnerPage(h.Doc.Pages, id) == nil {
		t.Fatalf("saved document lacks the block")
	}
}

func TestSessionRestoreAutosave(t *testing.T) {
	ctx := context.Background()
	s, ed := newSession(t)
	dir := t.TempDir()
	if _, err := s.Open(ctx, dir); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	id := ed.AddBlock()
	snap := *s.Handle()
	snap.Doc = ed.Document()
	if _, err := storage.AutosaveCrash(&snap); err != nil {
		t.Fatal(err)
	}
	ed.DeleteBlock(id)

	s2, ed2 := newSession(t)
	pending, err := s2.Open(ctx, dir)
	if err != nil || !pending {
		t.Fatalf("expected a pending autosave: %v %v", pending, err)
	}
	defer s2.Close()
	ok, err := s2.RestoreAutosave(ctx)
	if err != nil || !ok {
		t.Fatalf("restore: %v %v", ok, err)
	}
	if _, found := ed2.Block(id); !found {
		t.Fatalf("restored document should contain the autosaved block")
	}
}

func TestSessionExportUsesLiveDocument(t *testing.T) {
	ctx := context.Background()
	s, ed := newSession(t)
	dir := t.TempDir()
	if _, err := s.Open(ctx, dir); err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ed.AddPage()

	files, err := s.Export(export.PresetPrint)
	if err != nil || len(files) == 0 {
		t.Fatalf("export: %v %v", files, err)
	}
	if len(s.Handle().Doc.Pages) != 1 {
		t.Fatalf("export must not touch the saved document")
	}
}

func TestSessionSaveAsWithoutDocument(t *testing.T) {
	ctx := context.Background()
	s, ed := newSession(t)
	id := ed.AddBlock()
	dir := filepath.Join(t.TempDir(), "fresh")
	if err := s.SaveAs(ctx, dir); err != nil {
		t.Fatalf("save as: %v", err)
	}
	defer s.Close()
	if s.Handle() == nil || s.Dirty() {
		t.Fatalf("save as should adopt the new document")
	}
	h, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if domain.OwnerPage(h.Doc.Pages, id) == nil {
		t.Fatalf("unsaved editor content should be written")
	}
}
