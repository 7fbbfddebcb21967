/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor holds the live document of a page editing session and the
// mutation API every caller goes through: the pointer controller, the
// desktop shell, the CLI and tests. There is no global instance; the
// application root creates an Editor and hands it to its collaborators.
//
// Mutations never fail. Unknown ids, deleting the last page and undo on an
// empty history are no-ops; out-of-range sizes and opacities are clamped.
package editor

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/undo"
)

// Options configures a new Editor. Zero values fall back to defaults.
type Options struct {
	HistoryLimit   int
	MinWidth       float64
	MinHeight      float64
	PageNameFormat string // one %d, replaced by the 1-based page count
	Style          domain.BlockStyle
	DeviceMode     domain.DeviceMode
	// Rand returns values in [0,1) used to place new blocks.
	Rand   func() float64
	Logger *slog.Logger
}

// OptionsFromConfig maps the user configuration onto editor options.
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		HistoryLimit:   cfg.Editor.HistoryLimit,
		MinWidth:       cfg.Editor.MinBlockWidth,
		MinHeight:      cfg.Editor.MinBlockHeight,
		PageNameFormat: cfg.Editor.PageNameFormat,
		Style:          cfg.Editor.Style(),
		DeviceMode:     domain.DeviceMode(cfg.General.DeviceMode),
	}
}

func (o Options) withDefaults() Options {
	if o.MinWidth < domain.MinBlockWidth {
		o.MinWidth = domain.MinBlockWidth
	}
	if o.MinHeight < domain.MinBlockHeight {
		o.MinHeight = domain.MinBlockHeight
	}
	if o.PageNameFormat == "" {
		o.PageNameFormat = "Page %d"
	}
	if o.Style == (domain.BlockStyle{}) {
		o.Style = domain.DefaultBlockStyle()
	}
	if o.DeviceMode != domain.DeviceMobile {
		o.DeviceMode = domain.DeviceDesktop
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	if o.Logger == nil {
		o.Logger = applog.WithComponent("editor")
	}
	return o
}

// Editor is the state container of one editing session.
// It is safe for concurrent use; change listeners run after the lock is released.
type Editor struct {
	opts    Options
	log     *slog.Logger
	history *undo.History

	mu         sync.Mutex
	pages      []domain.Page
	activePage string
	selected   domain.Optional[string]
	deviceMode domain.DeviceMode
	showAll    bool
	preview    bool

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New returns an editor holding a single empty page.
func New(opts Options) *Editor {
	opts = opts.withDefaults()
	first := domain.NewPage(fmt.Sprintf(opts.PageNameFormat, 1))
	return &Editor{
		opts:       opts,
		log:        opts.Logger,
		history:    undo.New(undo.Config{Limit: opts.HistoryLimit}),
		pages:      []domain.Page{first},
		activePage: first.ID,
		deviceMode: opts.DeviceMode,
		subs:       make(map[int]func(Change)),
	}
}

// Load replaces the document with doc and clears history and transient state.
// The active page falls back to the first page when doc names none or an unknown one.
func (e *Editor) Load(doc domain.Document) error {
	if err := domain.Validate(doc.Pages); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	e.mu.Lock()
	e.pages = domain.ClonePages(doc.Pages)
	e.activePage = doc.ActivePageID
	e.repairLocked()
	e.selected = domain.None[string]()
	if doc.DeviceMode == domain.DeviceMobile {
		e.deviceMode = domain.DeviceMobile
	} else {
		e.deviceMode = domain.DeviceDesktop
	}
	e.showAll, e.preview = false, false
	e.history.Clear()
	n := len(e.pages)
	e.mu.Unlock()

	e.log.Debug("document loaded", slog.Int("pages", n))
	e.emit(Change{Kind: ChangeDocument})
	return nil
}

// Document returns the persistable part of the state.
func (e *Editor) Document() domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Document{
		Version:      domain.DocumentVersion,
		Pages:        domain.ClonePages(e.pages),
		ActivePageID: e.activePage,
		DeviceMode:   e.deviceMode,
	}
}

// MinSize returns the minimum block width and height enforced by the editor.
func (e *Editor) MinSize() (w, h float64) { return e.opts.MinWidth, e.opts.MinHeight }

// repairLocked re-resolves the active page after the page list was replaced.
func (e *Editor) repairLocked() {
	if domain.FindPage(e.pages, e.activePage) == nil {
		e.activePage = e.pages[0].ID
	}
}

// activeLocked returns the active page. The invariant guarantees it exists.
func (e *Editor) activeLocked() *domain.Page {
	return domain.FindPage(e.pages, e.activePage)
}
