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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const crashAutosavePrefix = "crash-autosave-"

// AutosaveCrash writes the in-memory document of h next to the backups
// without touching document.json. The file is never pruned.
func AutosaveCrash(h *Handle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid Handle")
	}
	data, err := Encode(h.Doc)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, crashAutosavePrefix+time.Now().Format(backupStamp)+".json")
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash autosave: %w", err)
	}
	return path, nil
}

// CrashAutosaves lists crash autosaves for root, oldest first.
func CrashAutosaves(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		if name := e.Name(); !e.IsDir() && strings.HasPrefix(name, crashAutosavePrefix) && strings.HasSuffix(name, ".json") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// RestoreCrashAutosave replaces the document of h with the newest crash
// autosave and saves it. It reports false when there is none.
func RestoreCrashAutosave(h *Handle) (bool, error) {
	files, err := CrashAutosaves(h.Root)
	if err != nil || len(files) == 0 {
		return false, err
	}
	latest := files[len(files)-1]
	doc, err := readDocument(latest)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(latest), err)
	}
	h.Doc = doc
	if err := Save(h); err != nil {
		return false, err
	}
	return true, os.Remove(latest)
}
