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
	"errors"
	"log/slog"
	"path/filepath"

	"pagecraft/internal/config"
	"pagecraft/internal/crash"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/export"
	"pagecraft/internal/storage"
)

var errNoDocument = errors.New("no document open")

// Session ties an editor to the document directory it was loaded from,
// the link index and the crash handler.
type Session struct {
	cfg config.AppConfig
	ed  *editor.Editor
	log *slog.Logger

	h     *storage.Handle
	ix    *storage.Index
	dirty bool
}

func NewSession(cfg config.AppConfig, ed *editor.Editor, l *slog.Logger) *Session {
	s := &Session{cfg: cfg, ed: ed, log: l}
	ed.Subscribe(func(ch editor.Change) {
		switch ch.Kind {
		case editor.ChangeSelection, editor.ChangeMode, editor.ChangeActivePage:
		default:
			s.dirty = true
		}
	})
	return s
}

// Handle returns the open document, or nil.
func (s *Session) Handle() *storage.Handle { return s.h }

// Dirty reports unsaved edits.
func (s *Session) Dirty() bool { return s.dirty }

// Open loads the document in dir into the editor, creating a new one when
// the directory is empty. It reports whether crash autosaves are waiting.
func (s *Session) Open(ctx context.Context, dir string) (pendingAutosave bool, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	seed := editor.New(editor.OptionsFromConfig(s.cfg)).Document()
	h, created, err := storage.OpenOrCreate(abs, seed)
	if err != nil {
		return false, err
	}
	if err := s.ed.Load(h.Doc); err != nil {
		return false, err
	}
	s.Close()
	h.Keep = s.cfg.Storage.BackupsKeep
	s.h = h
	s.dirty = false
	s.log.Info("document open", slog.String("root", abs), slog.Bool("created", created), slog.Bool("recovered", h.Recovered))

	s.openIndex(ctx)
	crash.Register(h, s.ed.Document)

	saves, err := storage.CrashAutosaves(abs)
	if err != nil {
		s.log.Warn("list crash autosaves failed", slog.Any("err", err))
	}
	return len(saves) > 0, nil
}

// Save writes the editor document and refreshes the index.
func (s *Session) Save(ctx context.Context) error {
	if s.h == nil {
		return errNoDocument
	}
	s.h.Doc = s.ed.Document()
	if err := storage.SaveContext(ctx, s.h); err != nil {
		return err
	}
	s.dirty = false
	s.reindex(ctx)
	return nil
}

// SaveAs moves the document to dir and saves it there. Without an open
// document the editor content becomes a new document in dir.
func (s *Session) SaveAs(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if s.h == nil {
		h, err := storage.Create(abs, s.ed.Document())
		if err != nil {
			return err
		}
		h.Keep = s.cfg.Storage.BackupsKeep
		s.h = h
		crash.Register(h, s.ed.Document)
	} else {
		s.h.Doc = s.ed.Document()
		if err := storage.SaveAs(s.h, abs); err != nil {
			return err
		}
	}
	s.dirty = false
	s.openIndex(ctx)
	return nil
}

// RestoreAutosave replaces the document with the newest crash autosave.
func (s *Session) RestoreAutosave(ctx context.Context) (bool, error) {
	if s.h == nil {
		return false, errNoDocument
	}
	ok, err := storage.RestoreCrashAutosave(s.h)
	if err != nil || !ok {
		return ok, err
	}
	if err := s.ed.Load(s.h.Doc); err != nil {
		return false, err
	}
	s.dirty = false
	s.reindex(ctx)
	return true, nil
}

// openIndex (re)opens the link index of the current document.
func (s *Session) openIndex(ctx context.Context) {
	if s.ix != nil {
		_ = s.ix.Close()
		s.ix = nil
	}
	if !s.cfg.Storage.IndexEnabled || s.h == nil {
		return
	}
	ix, rebuilt, err := storage.OpenOrRebuildIndex(ctx, s.h.Root, s.h.Doc)
	if err != nil {
		s.log.Warn("link index unavailable", slog.Any("err", err))
		return
	}
	if rebuilt {
		s.log.Info("link index rebuilt", slog.String("root", s.h.Root))
	}
	s.ix = ix
}

func (s *Session) reindex(ctx context.Context) {
	if s.ix == nil {
		return
	}
	if err := s.ix.Update(ctx, s.h.Doc); err != nil {
		s.log.Warn("index update failed", slog.Any("err", err))
	}
}

// Backlinks lists saved links into pageID. Without an index it is empty.
func (s *Session) Backlinks(ctx context.Context, pageID string) ([]storage.Link, error) {
	if s.ix == nil {
		return nil, nil
	}
	return s.ix.Backlinks(ctx, pageID)
}

// Dangling lists saved links to pages that no longer exist.
func (s *Session) Dangling(ctx context.Context) ([]storage.Link, error) {
	if s.ix == nil {
		return nil, nil
	}
	return s.ix.DanglingLinks(ctx)
}

// Search finds saved blocks by text.
func (s *Session) Search(ctx context.Context, query string) ([]storage.TextHit, error) {
	if s.ix == nil {
		return nil, nil
	}
	return s.ix.SearchText(ctx, query, 0)
}

// Export runs a preset on the current editor state without saving it.
func (s *Session) Export(preset export.PresetName) ([]string, error) {
	if s.h == nil {
		return nil, errNoDocument
	}
	snap := *s.h
	snap.Doc = s.ed.Document()
	return export.BatchExport(&snap, export.BatchOptions{Preset: preset})
}

// Document is the live editor document.
func (s *Session) Document() domain.Document { return s.ed.Document() }

// Close releases the index and unregisters the crash source.
func (s *Session) Close() {
	if s.ix != nil {
		_ = s.ix.Close()
		s.ix = nil
	}
	if s.h != nil {
		crash.Register(nil, nil)
		s.h = nil
	}
}
