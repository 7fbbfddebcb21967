/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	"pagecraft/internal/export"
	"pagecraft/internal/imageref"
	"pagecraft/internal/storage"
	"pagecraft/internal/ui"
)

// resolvePage finds a page by id, exact name or 1-based position.
func resolvePage(pages []domain.Page, ref string) (domain.Page, error) {
	if p := domain.FindPage(pages, ref); p != nil {
		return *p, nil
	}
	for _, p := range pages {
		if p.Name == ref {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(pages) {
		return pages[n-1], nil
	}
	return domain.Page{}, fmt.Errorf("page %q not found", ref)
}

// focusBlock activates the page holding id so block operations reach it.
func focusBlock(ed *editor.Editor, id string) error {
	p := domain.OwnerPage(ed.Pages(), id)
	if p == nil {
		return fmt.Errorf("block %q not found", id)
	}
	ed.SetActivePage(p.ID)
	return nil
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <dir>",
		Short: "Create a document with one empty page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, _ := filepath.Abs(args[0])
			if _, err := os.Stat(filepath.Join(abs, storage.DocumentFileName)); err == nil {
				return fmt.Errorf("%s already holds a document", abs)
			}
			doc := editor.New(editor.OptionsFromConfig(a.cfg)).Document()
			if _, err := storage.Create(abs, doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created document at", abs)
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info <dir>",
		Aliases: []string{"open"},
		Short:   "Print a summary of a document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, ed, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			h := sess.Handle()
			st := ed.State()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Document:", h.Root)
			if h.Recovered {
				fmt.Fprintln(out, "Note: document.json was unreadable, loaded the latest backup")
			}
			active := domain.FindPage(st.Pages, st.ActivePageID)
			fmt.Fprintf(out, "Pages: %d (active: %s)\n", len(st.Pages), active.Name)
			fmt.Fprintln(out, "Device:", st.DeviceMode)
			for i, p := range st.Pages {
				links := 0
				for _, b := range p.Blocks {
					if b.LinkedPageID.IsSet() {
						links++
					}
				}
				fmt.Fprintf(out, "  %d. %s [%s] blocks=%d links=%d\n", i+1, p.Name, p.ID, len(p.Blocks), links)
			}
			edges, dangling := export.Graph(ed.Document())
			fmt.Fprintf(out, "Links: %d between pages, %d dangling\n", len(edges), dangling)
			if b, err := storage.Backups(h.Root); err == nil {
				fmt.Fprintf(out, "Backups: %d\n", len(b))
			}
			if saves, _ := storage.CrashAutosaves(h.Root); len(saves) > 0 {
				fmt.Fprintf(out, "Crash autosaves: %d (run: pagecraft restore %s)\n", len(saves), args[0])
			}
			return nil
		},
	}
}

func (a *app) addPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-page <dir> [name]",
		Short: "Append a page and make it active",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				id := ed.AddPage()
				if len(args) == 2 {
					ed.RenamePage(id, args[1])
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func (a *app) renamePageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-page <dir> <page> <name>",
		Short: "Rename a page",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				p, err := resolvePage(ed.Pages(), args[1])
				if err != nil {
					return err
				}
				ed.RenamePage(p.ID, args[2])
				return nil
			})
		},
	}
}

func (a *app) deletePageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-page <dir> <page>",
		Short: "Delete a page; links to it are kept but stop working",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				p, err := resolvePage(ed.Pages(), args[1])
				if err != nil {
					return err
				}
				if len(ed.Pages()) == 1 {
					return errors.New("cannot delete the last page")
				}
				ed.DeletePage(p.ID)
				return nil
			})
		},
	}
}

func (a *app) addBlockCmd() *cobra.Command {
	var page, text string
	var x, y float64
	cmd := &cobra.Command{
		Use:   "add-block <dir>",
		Short: "Add a block to a page and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				if page != "" {
					p, err := resolvePage(ed.Pages(), page)
					if err != nil {
						return err
					}
					ed.SetActivePage(p.ID)
				}
				id := ed.AddBlock()
				var patch editor.BlockPatch
				if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
					b, _ := ed.Block(id)
					if cmd.Flags().Changed("x") {
						b.X = x
					}
					if cmd.Flags().Changed("y") {
						b.Y = y
					}
					patch = editor.MovePatch(b.X, b.Y)
				}
				if text != "" {
					patch.Text = &text
				}
				ed.UpdateBlock(id, patch)
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "target page (id, name or number); defaults to the active page")
	cmd.Flags().StringVar(&text, "text", "", "block text")
	cmd.Flags().Float64Var(&x, "x", 0, "left edge in canvas pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge in canvas pixels")
	return cmd
}

func (a *app) styleCmd() *cobra.Command {
	var font, color, bg, fit, text string
	var size, opacity int
	cmd := &cobra.Command{
		Use:   "style <dir> <block>",
		Short: "Change text and style of a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch editor.BlockPatch
			if f.Changed("text") {
				patch.Text = &text
			}
			if f.Changed("font") {
				patch.FontFamily = &font
			}
			if f.Changed("size") {
				if size <= 0 {
					return fmt.Errorf("font size must be positive, got %d", size)
				}
				patch.FontSize = &size
			}
			if f.Changed("color") {
				patch.TextColor = &color
			}
			if f.Changed("bg") {
				patch.BackgroundColor = &bg
			}
			if f.Changed("opacity") {
				patch.BackgroundOpacity = &opacity
			}
			if f.Changed("fit") {
				s := domain.BackgroundSize(fit)
				if !s.Valid() {
					return fmt.Errorf("unknown image fit %q", fit)
				}
				patch.BackgroundSize = editor.Ptr(domain.Some(s))
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				if err := focusBlock(ed, args[1]); err != nil {
					return err
				}
				ed.ApplyStyle(args[1], patch)
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&text, "text", "", "block text")
	fl.StringVar(&font, "font", "", "font family, e.g. "+strings.Join(domain.FontFamilies, ", "))
	fl.IntVar(&size, "size", 0, "font size in pixels")
	fl.StringVar(&color, "color", "", "text color (#rrggbb)")
	fl.StringVar(&bg, "bg", "", "background color (#rrggbb)")
	fl.IntVar(&opacity, "opacity", 100, "background opacity 0-100")
	fl.StringVar(&fit, "fit", "", "background image fit: cover, contain, auto or a percentage")
	return cmd
}

func (a *app) linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <dir> <block> <page|none>",
		Short: "Link a block to a page, or clear its link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				if err := focusBlock(ed, args[1]); err != nil {
					return err
				}
				target := domain.None[string]()
				if args[2] != "none" {
					p, err := resolvePage(ed.Pages(), args[2])
					if err != nil {
						return err
					}
					if p.ID == ed.ActivePage().ID {
						return errors.New("a block cannot link to its own page")
					}
					target = domain.Some(p.ID)
				}
				ed.LinkBlockToPage(args[1], target)
				return nil
			})
		},
	}
}

func (a *app) imageCmd() *cobra.Command {
	var content, remove bool
	cmd := &cobra.Command{
		Use:   "image <dir> <block> [file]",
		Short: "Set or clear the background (or content) image of a block",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := editor.BackgroundImage
			if content {
				kind = editor.ContentImage
			}
			ref := domain.None[string]()
			switch {
			case remove:
			case len(args) == 3:
				uri, err := imageref.FromFile(args[2])
				if err != nil {
					return err
				}
				ref = domain.Some(uri)
			default:
				return errors.New("an image file or --clear is required")
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				if err := focusBlock(ed, args[1]); err != nil {
					return err
				}
				ed.SetImage(args[1], kind, ref)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&content, "content", false, "set the content image instead of the background")
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the image")
	return cmd
}

func (a *app) deleteBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-block <dir> <block>",
		Short: "Remove a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args[0], func(ed *editor.Editor) error {
				if err := focusBlock(ed, args[1]); err != nil {
					return err
				}
				ed.DeleteBlock(args[1])
				return nil
			})
		},
	}
}

func printLinks(cmd *cobra.Command, links []storage.Link) {
	out := cmd.OutOrStdout()
	for _, l := range links {
		fmt.Fprintf(out, "%s\t%s\t-> %s\n", l.FromName, l.BlockID, l.TargetPage)
	}
}

func (a *app) backlinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlinks <dir> <page>",
		Short: "List blocks linking to a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, ed, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			p, err := resolvePage(ed.Pages(), args[1])
			if err != nil {
				return err
			}
			links, err := sess.Backlinks(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			printLinks(cmd, links)
			return nil
		},
	}
}

func (a *app) danglingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dangling <dir>",
		Short: "List links to pages that no longer exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			links, err := sess.Dangling(cmd.Context())
			if err != nil {
				return err
			}
			printLinks(cmd, links)
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <dir> <query>...",
		Short: "Full-text search over block texts",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, ed, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			hits, err := sess.Search(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range hits {
				name := h.PageID
				if p, ok := ed.Page(h.PageID); ok {
					name = p.Name
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, h.BlockID, h.Snippet)
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var preset, out string
	var formats []string
	var pages []int
	var scale float64
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export pages as PDF, SVG, PNG, a link graph or a zip bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			idx := make([]int, 0, len(pages))
			for _, p := range pages {
				if p < 1 {
					return fmt.Errorf("page numbers start at 1, got %d", p)
				}
				idx = append(idx, p-1)
			}
			files, err := export.BatchExport(sess.Handle(), export.BatchOptions{
				Preset:  export.PresetName(preset),
				Formats: formats,
				Pages:   idx,
				Scale:   scale,
				OutDir:  out,
			})
			if err != nil {
				a.log.Error("export failed", slog.Any("err", err))
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&preset, "preset", "", "web or print")
	fl.StringSliceVar(&formats, "format", nil, "pdf, svg, png, graph or bundle (repeatable)")
	fl.IntSliceVar(&pages, "pages", nil, "page numbers to export, 1-based (default all)")
	fl.Float64Var(&scale, "scale", 0, "PNG scale factor")
	fl.StringVar(&out, "out", "", "output folder (relative paths go under <dir>/exports)")
	return cmd
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <dir>",
		Short: "Restore the newest crash autosave of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer sess.Close()
			ok, err := sess.RestoreAutosave(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No crash autosave found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restored crash autosave into", sess.Handle().Path)
			return nil
		},
	}
}

func (a *app) uiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [dir]",
		Short: "Launch the desktop editor (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}
