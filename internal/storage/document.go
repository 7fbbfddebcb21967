/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
)

const (
	DocumentFileName = "document.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"

	// DefaultBackupsKeep is used when Handle.Keep is zero.
	DefaultBackupsKeep = 10

	backupStamp = "20060102-150405.000000"
)

// ErrInvalidDocument is returned when a document file fails schema or
// structural validation and no usable backup exists.
var ErrInvalidDocument = errors.New("invalid document")

// Handle is an open document directory. Root holds document.json plus the
// backups, exports and index folders.
type Handle struct {
	Root string
	Path string
	Doc  domain.Document
	// Keep caps the number of backups retained on save.
	Keep int
	// Recovered is set when Open fell back to a backup.
	Recovered bool
}

func logger() *slog.Logger { return applog.WithComponent("storage") }

// Create scaffolds a document directory at root and writes doc.
func Create(root string, doc domain.Document) (*Handle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	for _, d := range []string{root, filepath.Join(root, BackupsDirName), filepath.Join(root, ExportsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	h := &Handle{Root: root, Path: filepath.Join(root, DocumentFileName), Doc: doc}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads the document under root. A missing, unparsable or invalid file
// falls back to the newest backup that loads cleanly.
func Open(root string) (*Handle, error) {
	l := applog.WithOperation(logger(), "open").With(slog.String("root", root))
	path := filepath.Join(root, DocumentFileName)
	doc, err := readDocument(path)
	if err == nil {
		return &Handle{Root: root, Path: path, Doc: doc}, nil
	}
	l.Warn("document unreadable, trying backups", slog.Any("err", err))
	bdoc, bpath, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
	}
	l.Info("recovered from backup", slog.String("backup", bpath))
	return &Handle{Root: root, Path: path, Doc: bdoc, Recovered: true}, nil
}

// OpenOrCreate opens the document under root, or creates it from seed when
// the directory holds neither a document nor backups. created reports which.
func OpenOrCreate(root string, seed domain.Document) (h *Handle, created bool, err error) {
	_, derr := os.Stat(filepath.Join(root, DocumentFileName))
	if errors.Is(derr, os.ErrNotExist) {
		if b, _ := Backups(root); len(b) == 0 {
			h, err = Create(root, seed)
			return h, err == nil, err
		}
	}
	h, err = Open(root)
	return h, false, err
}

func readDocument(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}
	return Decode(data)
}

// Decode validates data against the document schema and the model
// invariants, then unmarshals it.
func Decode(data []byte) (domain.Document, error) {
	if err := ValidateJSON(data); err != nil {
		return domain.Document{}, err
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := domain.Validate(doc.Pages); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc, nil
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc domain.Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = domain.DocumentVersion
	}
	if doc.DeviceMode == "" {
		doc.DeviceMode = domain.DeviceDesktop
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes h.Doc transactionally: the current file is copied to a
// timestamped backup, the new content goes to a temp file which is then
// renamed over the target. Old backups beyond h.Keep are pruned.
func Save(h *Handle) error {
	return SaveContext(context.Background(), h)
}

// SaveContext is Save with a context carrying log attributes.
func SaveContext(ctx context.Context, h *Handle) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if h.Root == "" || h.Path == "" {
		return errors.New("invalid Handle: missing paths")
	}
	ctx = applog.WithDocument(ctx, h.Path)
	l := applog.WithOperation(logger(), "save")

	data, err := Encode(h.Doc)
	if err != nil {
		return err
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", DocumentFileName, time.Now().Format(backupStamp)))
		if cerr := copyFile(h.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
	}

	temp := filepath.Join(filepath.Dir(h.Path), fmt.Sprintf(".%s.tmp-%d-%d", DocumentFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp document: %w", werr)
	}
	if rerr := replaceFile(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		l.ErrorContext(ctx, "replace document failed", slog.Any("err", rerr))
		return fmt.Errorf("replace document: %w", rerr)
	}

	keep := h.Keep
	if keep <= 0 {
		keep = DefaultBackupsKeep
	}
	pruned, perr := pruneBackups(h.Root, keep)
	if perr != nil {
		l.WarnContext(ctx, "prune backups failed", slog.Any("err", perr))
	}
	l.InfoContext(ctx, "document saved", slog.Int("pages", len(h.Doc.Pages)), slog.Int("bytes", len(data)), slog.Int("pruned", pruned))
	return nil
}

// renameFn is swapped in tests.
var renameFn = os.Rename

// replaceFile renames src over dst. Only Windows needs dst removed first,
// elsewhere the rename is atomic and dst never goes missing.
func replaceFile(src, dst string) error {
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(dst); err == nil {
			_ = os.Remove(dst)
		}
	}
	return renameFn(src, dst)
}

// SaveAs moves the handle to newRoot, scaffolding it, and saves there.
func SaveAs(h *Handle, newRoot string) error {
	if h == nil {
		return errors.New("nil Handle")
	}
	if strings.TrimSpace(newRoot) == "" {
		return errors.New("new root is empty")
	}
	for _, d := range []string{newRoot, filepath.Join(newRoot, BackupsDirName), filepath.Join(newRoot, ExportsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	h.Root = newRoot
	h.Path = filepath.Join(newRoot, DocumentFileName)
	return Save(h)
}

// Backups lists backup files for root, oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, DocumentFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// the timestamp in the name sorts chronologically
	sort.Strings(out)
	return out, nil
}

func pruneBackups(root string, keep int) (int, error) {
	files, err := Backups(root)
	if err != nil {
		return 0, err
	}
	n := 0
	for len(files)-n > keep {
		if err := os.Remove(files[n]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// openFromLatestBackup returns the newest backup that decodes cleanly.
func openFromLatestBackup(root string) (domain.Document, string, error) {
	files, err := Backups(root)
	if err != nil {
		return domain.Document{}, "", err
	}
	if len(files) == 0 {
		return domain.Document{}, "", errors.New("no backups found")
	}
	var lastErr error
	for i := len(files) - 1; i >= 0; i-- {
		doc, err := readDocument(files[i])
		if err == nil {
			return doc, files[i], nil
		}
		lastErr = err
	}
	return domain.Document{}, "", fmt.Errorf("no usable backup: %w", lastErr)
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
