//go:build fyne && cgo

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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pagecraft/internal/config"
	"pagecraft/internal/crash"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/export"
	"pagecraft/internal/imageref"
	"pagecraft/internal/interaction"
	applog "pagecraft/internal/log"
	"pagecraft/internal/textlayout"
	"pagecraft/internal/version"
)

const noLink = "(no link)"

// Run starts the desktop editor. docDir, when set, is opened (or created) at start.
func Run(docDir string) error {
	cfg, cfgErr := config.Load()
	applog.Init(applog.FromConfig(cfg.Logging))
	l := applog.WithComponent("ui")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	l.Info("starting UI", slog.String("version", version.String()))
	crash.SetAutosave(cfg.Storage.AutosaveOnCrash)
	defer crash.Recover()

	ctx := context.Background()
	ed := editor.New(editor.OptionsFromConfig(cfg))
	ctl := interaction.NewController(ed, interaction.OptionsFromConfig(cfg))
	sess := NewSession(cfg, ed, l)
	defer sess.Close()

	fyneApp := app.NewWithID("pagecraft")
	w := fyneApp.NewWindow("PageCraft")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	setStatus := func(format string, args ...any) { status.SetText(fmt.Sprintf(format, args...)) }

	cv := NewBlockCanvas(ed, ctl, textlayout.NewFontLibrary(), applog.WithComponent("canvas"))

	// Pages (left)
	var pages []domain.Page
	pagesList := widget.NewList(
		func() int { return len(pages) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(pages) {
				o.(*widget.Label).SetText(pages[i].Name)
			}
		},
	)
	syncingPages := false
	pagesList.OnSelected = func(i widget.ListItemID) {
		if syncingPages || i < 0 || int(i) >= len(pages) {
			return
		}
		ed.SetActivePage(pages[i].ID)
	}
	backlinksLabel := widget.NewLabel("")
	backlinksLabel.Wrapping = fyne.TextWrapWord

	renamePage := func() {
		cur := ed.ActivePage()
		entry := widget.NewEntry()
		entry.SetText(cur.Name)
		dialog.ShowForm("Rename Page", "Rename", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", entry)}, func(ok bool) {
			if ok {
				ed.RenamePage(cur.ID, entry.Text)
			}
		}, w)
	}
	deletePage := func() {
		cur := ed.ActivePage()
		if len(ed.Pages()) <= 1 {
			setStatus("A document keeps at least one page")
			return
		}
		dialog.ShowConfirm("Delete Page", fmt.Sprintf("Delete %q? Links to it will stop working.", cur.Name), func(ok bool) {
			if ok {
				ed.DeletePage(cur.ID)
			}
		}, w)
	}
	left := container.NewBorder(
		container.NewVBox(widget.NewLabel("Pages"), widget.NewSeparator()),
		container.NewVBox(
			container.NewHBox(
				widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() { ed.AddPage() }),
				widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), renamePage),
				widget.NewButtonWithIcon("", theme.DeleteIcon(), deletePage),
			),
			widget.NewSeparator(),
			backlinksLabel,
		),
		nil, nil, pagesList,
	)

	// Style panel (right)
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetPlaceHolder("Block text")
	textEntry.Wrapping = fyne.TextWrapWord
	fontSel := widget.NewSelect(domain.FontFamilies, nil)
	sizeOpts := make([]string, len(domain.FontSizes))
	for i, s := range domain.FontSizes {
		sizeOpts[i] = strconv.Itoa(s)
	}
	sizeSel := widget.NewSelect(sizeOpts, nil)
	textColor := widget.NewEntry()
	bgColor := widget.NewEntry()
	opacity := widget.NewSlider(0, 100)
	bgSizeOpts := make([]string, len(domain.BackgroundSizes))
	for i, s := range domain.BackgroundSizes {
		bgSizeOpts[i] = string(s)
	}
	bgSizeSel := widget.NewSelect(bgSizeOpts, nil)
	linkSel := widget.NewSelect(nil, nil)
	var linkIDs []string

	selected := func() (domain.Block, bool) { return ed.SelectedBlock() }
	syncingStyle := false
	applyStyle := func(patch editor.BlockPatch) {
		if syncingStyle {
			return
		}
		if b, ok := selected(); ok {
			ed.ApplyStyle(b.ID, patch)
		}
	}
	commitText := func(id string) { ctl.CommitText(id, textEntry.Text) }

	fontSel.OnChanged = func(v string) { applyStyle(editor.BlockPatch{FontFamily: &v}) }
	sizeSel.OnChanged = func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			applyStyle(editor.BlockPatch{FontSize: &n})
		}
	}
	textColor.OnSubmitted = func(v string) { applyStyle(editor.BlockPatch{TextColor: editor.Ptr(strings.TrimSpace(v))}) }
	bgColor.OnSubmitted = func(v string) { applyStyle(editor.BlockPatch{BackgroundColor: editor.Ptr(strings.TrimSpace(v))}) }
	opacity.OnChangeEnded = func(v float64) { applyStyle(editor.BlockPatch{BackgroundOpacity: editor.Ptr(int(v))}) }
	bgSizeSel.OnChanged = func(v string) {
		applyStyle(editor.BlockPatch{BackgroundSize: editor.Ptr(domain.Some(domain.BackgroundSize(v)))})
	}
	linkSel.OnChanged = func(v string) {
		if syncingStyle {
			return
		}
		b, ok := selected()
		if !ok {
			return
		}
		target := domain.None[string]()
		if i := linkSel.SelectedIndex(); i > 0 && i-1 < len(linkIDs) {
			target = domain.Some(linkIDs[i-1])
		}
		ed.LinkBlockToPage(b.ID, target)
	}
	textEntry.OnSubmitted = func(string) {
		if b, ok := selected(); ok {
			commitText(b.ID)
		}
	}

	pickImage := func(kind editor.ImageKind) {
		b, ok := selected()
		if !ok {
			return
		}
		open := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if r == nil {
				return
			}
			defer r.Close()
			data, err := io.ReadAll(io.LimitReader(r, imageref.MaxBytes+1))
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			uri, err := imageref.FromBytes(data)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			ed.SetImage(b.ID, kind, domain.Some(uri))
			setStatus("Image set on block")
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"}))
		open.Show()
	}
	clearImages := func() {
		if b, ok := selected(); ok {
			none := domain.None[string]()
			ed.ApplyStyle(b.ID, editor.BlockPatch{BackgroundImage: &none, ContentImage: &none})
		}
	}

	styleForm := widget.NewForm(
		widget.NewFormItem("Font", fontSel),
		widget.NewFormItem("Size", sizeSel),
		widget.NewFormItem("Text color", textColor),
		widget.NewFormItem("Background", bgColor),
		widget.NewFormItem("Opacity", opacity),
		widget.NewFormItem("Image fit", bgSizeSel),
		widget.NewFormItem("Links to", linkSel),
	)
	styleBox := container.NewVBox(
		widget.NewLabel("Block"),
		widget.NewSeparator(),
		textEntry,
		widget.NewButton("Apply text", func() {
			if b, ok := selected(); ok {
				commitText(b.ID)
			}
		}),
		styleForm,
		container.NewGridWithColumns(2,
			widget.NewButtonWithIcon("Background", theme.FileImageIcon(), func() { pickImage(editor.BackgroundImage) }),
			widget.NewButtonWithIcon("Content", theme.FileImageIcon(), func() { pickImage(editor.ContentImage) }),
		),
		widget.NewButton("Clear images", clearImages),
		widget.NewButtonWithIcon("Delete block", theme.DeleteIcon(), func() {
			if b, ok := selected(); ok {
				ed.DeleteBlock(b.ID)
			}
		}),
	)
	right := container.NewVScroll(styleBox)

	cv.OnTextFocus = func(string) {
		w.Canvas().Focus(textEntry)
	}
	cv.OnTextBlur = commitText

	// refresh pulls everything from the editor; listeners can fire from any
	// goroutine so the work is queued on the UI thread.
	refreshing := false
	refresh := func() {
		if refreshing {
			return
		}
		refreshing = true
		defer func() { refreshing = false }()

		st := ed.State()
		pages = st.Pages
		syncingPages = true
		pagesList.Refresh()
		if i := domain.PageIndex(pages, st.ActivePageID); i >= 0 {
			pagesList.Select(widget.ListItemID(i))
		}
		syncingPages = false

		if links, err := sess.Backlinks(ctx, st.ActivePageID); err == nil && len(links) > 0 {
			names := make([]string, 0, len(links))
			for _, lk := range links {
				names = append(names, lk.FromName)
			}
			backlinksLabel.SetText("Linked from: " + strings.Join(names, ", "))
		} else {
			backlinksLabel.SetText("")
		}

		syncingStyle = true
		linkIDs = linkIDs[:0]
		opts := []string{noLink}
		for _, p := range pages {
			if p.ID == st.ActivePageID {
				continue
			}
			linkIDs = append(linkIDs, p.ID)
			opts = append(opts, p.Name)
		}
		linkSel.Options = opts
		if b, ok := ed.SelectedBlock(); ok {
			styleBox.Show()
			if f, has := ctl.TextFocus().Get(); !has || f != b.ID {
				textEntry.SetText(b.Text)
			}
			fontSel.SetSelected(b.FontFamily)
			sizeSel.SetSelected(strconv.Itoa(b.FontSize))
			textColor.SetText(b.TextColor)
			bgColor.SetText(b.BackgroundColor)
			opacity.SetValue(float64(b.BackgroundOpacity))
			bgSizeSel.SetSelected(string(b.EffectiveBackgroundSize()))
			linkSel.SetSelectedIndex(0)
			if target, ok := b.LinkedPageID.Get(); ok {
				for i, id := range linkIDs {
					if id == target {
						linkSel.SetSelectedIndex(i + 1)
					}
				}
			}
		} else {
			styleBox.Hide()
		}
		syncingStyle = false

		title := "PageCraft"
		if h := sess.Handle(); h != nil {
			title += " - " + filepath.Base(h.Root)
		}
		if sess.Dirty() {
			title += " *"
		}
		mode := string(st.DeviceMode)
		if st.PreviewMode {
			mode += ", preview"
		}
		if st.ShowAllBlocks {
			mode += ", all blocks"
		}
		w.SetTitle(title)
		past, future := ed.HistoryStats()
		setStatus("%s | %s | undo %d redo %d", ed.ActivePage().Name, mode, past, future)
		cv.Refresh()
	}
	ed.Subscribe(func(editor.Change) { fyne.Do(refresh) })

	// Document actions
	openDir := func(dir string) {
		pending, err := sess.Open(ctx, dir)
		if err != nil {
			l.Error("open document failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		addRecentDocument(prefs, sess.Handle().Root)
		cv.ResetView()
		refresh()
		if sess.Handle().Recovered {
			dialog.ShowInformation("Recovered", "The document file was damaged and has been restored from the latest backup.", w)
		}
		if pending {
			dialog.ShowConfirm("Restore", "Unsaved work from a crash was found. Restore it?", func(ok bool) {
				if !ok {
					return
				}
				if _, err := sess.RestoreAutosave(ctx); err != nil {
					dialog.ShowError(err, w)
					return
				}
				refresh()
			}, w)
		}
	}
	saveAs := func() {
		chooseFolder(w, "Save document as", func(dir string) {
			if err := sess.SaveAs(ctx, dir); err != nil {
				l.Error("save as failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			addRecentDocument(prefs, dir)
			refresh()
		})
	}
	save := func() {
		if sess.Handle() == nil {
			saveAs()
			return
		}
		if err := sess.Save(ctx); err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		refresh()
		setStatus("Saved %s", sess.Handle().Path)
	}
	exportPreset := func(p export.PresetName) {
		files, err := sess.Export(p)
		if err != nil {
			l.Error("export failed", slog.String("preset", string(p)), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		dialog.ShowInformation("Export", fmt.Sprintf("Wrote %d file(s) to %s", len(files), filepath.Dir(files[0])), w)
	}
	undo := func() { ctl.Cancel(); ed.Undo() }
	redo := func() { ctl.Cancel(); ed.Redo() }
	deleteSelected := func() {
		if _, focused := ctl.TextFocus().Get(); focused {
			return
		}
		if b, ok := selected(); ok {
			ed.DeleteBlock(b.ID)
		}
	}
	toggleDevice := func() {
		if ed.State().DeviceMode == domain.DeviceMobile {
			ed.SetDeviceMode(domain.DeviceDesktop)
		} else {
			ed.SetDeviceMode(domain.DeviceMobile)
		}
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() { ed.AddBlock() }),
		widget.NewToolbarAction(theme.ContentUndoIcon(), undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redo),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.VisibilityIcon(), func() { cv.blur(); ed.TogglePreviewMode() }),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), ed.ToggleShowAllBlocks),
		widget.NewToolbarAction(theme.ComputerIcon(), toggleDevice),
		widget.NewToolbarAction(theme.ZoomFitIcon(), cv.ResetView),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { exportPreset(export.PresetWeb) }),
	)

	// Menus
	newItem := fyne.NewMenuItem("New / Open Folder…", func() { chooseFolder(w, "Open document folder", openDir) })
	saveItem := fyne.NewMenuItem("Save", save)
	saveAsItem := fyne.NewMenuItem("Save As…", saveAs)
	var recentItems []*fyne.MenuItem
	for _, dir := range loadRecentDocuments(prefs) {
		recentItems = append(recentItems, fyne.NewMenuItem(dir, func() { openDir(dir) }))
	}
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("", recentItems...)
	recentItem.Disabled = len(recentItems) == 0
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
	fileMenu := fyne.NewMenu("File", newItem, recentItem, saveItem, saveAsItem)

	undoItem := fyne.NewMenuItem("Undo", undo)
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}
	redoItem := fyne.NewMenuItem("Redo", redo)
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}
	addBlockItem := fyne.NewMenuItem("Add Block", func() { ed.AddBlock() })
	addBlockItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyB, Modifier: fyne.KeyModifierControl}
	addPageItem := fyne.NewMenuItem("Add Page", func() { ed.AddPage() })
	searchItem := fyne.NewMenuItem("Find Text…", func() { showSearch(ctx, w, sess, ed) })
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem, fyne.NewMenuItemSeparator(), addBlockItem, addPageItem,
		fyne.NewMenuItem("Rename Page…", renamePage), fyne.NewMenuItem("Delete Page", deletePage),
		fyne.NewMenuItemSeparator(), searchItem)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Toggle Preview", func() { cv.blur(); ed.TogglePreviewMode() }),
		fyne.NewMenuItem("Toggle All Blocks", ed.ToggleShowAllBlocks),
		fyne.NewMenuItem("Toggle Device", toggleDevice),
		fyne.NewMenuItem("Reset Zoom", cv.ResetView),
	)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("Web preset (SVG, PNG, graph, bundle)", func() { exportPreset(export.PresetWeb) }),
		fyne.NewMenuItem("Print preset (PDF, PNG)", func() { exportPreset(export.PresetPrint) }),
	)
	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("About PageCraft", func() {
		dialog.ShowInformation("About", "PageCraft "+version.String(), w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, exportMenu, aboutMenu))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift}, func(fyne.Shortcut) { redo() })
	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		switch k.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			deleteSelected()
		case fyne.KeyEscape:
			switch {
			case ed.PreviewMode():
				ed.TogglePreviewMode()
			default:
				cv.blur()
				ctl.Cancel()
				ed.SelectBlock(domain.None[string]())
			}
		}
	})

	w.SetContent(container.NewBorder(toolbar, status, left, right, cv))
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if !sess.Dirty() || sess.Handle() == nil {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Save before closing?", func(ok bool) {
			if ok {
				if err := sess.Save(ctx); err != nil {
					dialog.ShowError(err, w)
					return
				}
			}
			w.Close()
		}, w)
	})

	if docDir != "" {
		openDir(docDir)
	} else {
		refresh()
	}
	w.ShowAndRun()
	return nil
}

func chooseFolder(w fyne.Window, title string, fn func(dir string)) {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if uri == nil {
			return
		}
		fn(uri.Path())
	}, w)
	fd.SetConfirmText(title)
	fd.Show()
}

// showSearch lists saved blocks matching a full-text query and jumps to a hit.
func showSearch(ctx context.Context, w fyne.Window, sess *Session, ed *editor.Editor) {
	query := widget.NewEntry()
	query.SetPlaceHolder("words to find")
	dialog.ShowForm("Find Text", "Find", "Cancel", []*widget.FormItem{widget.NewFormItem("Query", query)}, func(ok bool) {
		if !ok {
			return
		}
		hits, err := sess.Search(ctx, query.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if len(hits) == 0 {
			dialog.ShowInformation("Find Text", "No saved block matches.", w)
			return
		}
		list := widget.NewList(
			func() int { return len(hits) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(hits[i].Snippet) },
		)
		var d dialog.Dialog
		list.OnSelected = func(i widget.ListItemID) {
			ed.SetActivePage(hits[i].PageID)
			ed.SelectBlock(domain.Some(hits[i].BlockID))
			d.Hide()
		}
		scroll := container.NewVScroll(list)
		scroll.SetMinSize(fyne.NewSize(420, 240))
		d = dialog.NewCustom("Matches", "Close", scroll, w)
		d.Show()
	}, w)
}

// Recent documents, persisted in the app preferences.
const recentPrefsKey = "recent.documents"
const recentMax = 10

func loadRecentDocuments(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentDocument(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentDocuments(p) {
		// case-insensitive for Windows paths
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
