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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pagecraft/internal/config"
	"pagecraft/internal/crash"
	"pagecraft/internal/editor"
	applog "pagecraft/internal/log"
	"pagecraft/internal/storage"
	"pagecraft/internal/ui"
	"pagecraft/internal/version"
)

// app carries what every command needs once the config is loaded.
type app struct {
	cfg config.AppConfig
	log *slog.Logger
}

func main() {
	defer crash.Recover()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pagecraft",
		Short:         "PageCraft page editor",
		Long:          "Create pages of positioned blocks, link them together and export the result.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			applog.Init(applog.FromConfig(cfg.Logging))
			a.cfg = cfg
			a.log = applog.WithComponent("cli")
			if err != nil {
				a.log.Warn("config load failed, using defaults", slog.Any("err", err))
			}
			crash.SetAutosave(cfg.Storage.AutosaveOnCrash)
			a.log.Debug("start", slog.String("cmd", cmd.Name()), slog.Int("args", len(args)))
		},
	}
	root.SetVersionTemplate("PageCraft {{.Version}}\n")
	root.AddCommand(
		a.newCmd(), a.infoCmd(),
		a.addPageCmd(), a.renamePageCmd(), a.deletePageCmd(),
		a.addBlockCmd(), a.styleCmd(), a.linkCmd(), a.imageCmd(), a.deleteBlockCmd(),
		a.backlinksCmd(), a.danglingCmd(), a.searchCmd(),
		a.exportCmd(), a.restoreCmd(), a.uiCmd(),
	)
	return root
}

// open loads dir into a fresh editor session.
func (a *app) open(ctx context.Context, dir string) (*ui.Session, *editor.Editor, error) {
	if !hasDocument(dir) {
		return nil, nil, fmt.Errorf("no document in %s (create one with: pagecraft new %s)", dir, dir)
	}
	ed := editor.New(editor.OptionsFromConfig(a.cfg))
	sess := ui.NewSession(a.cfg, ed, a.log)
	if _, err := sess.Open(ctx, dir); err != nil {
		a.log.Error("open failed", slog.String("root", dir), slog.Any("err", err))
		return nil, nil, err
	}
	return sess, ed, nil
}

func hasDocument(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, storage.DocumentFileName)); err == nil {
		return true
	}
	b, _ := storage.Backups(dir)
	return len(b) > 0
}

// edit opens dir, applies fn and saves when fn succeeds.
func (a *app) edit(cmd *cobra.Command, dir string, fn func(ed *editor.Editor) error) error {
	ctx := cmd.Context()
	sess, ed, err := a.open(ctx, dir)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := fn(ed); err != nil {
		return err
	}
	if !sess.Dirty() {
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing changed")
		return nil
	}
	if err := sess.Save(ctx); err != nil {
		a.log.Error("save failed", slog.Any("err", err))
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
