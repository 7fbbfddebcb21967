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
	"os"
	"strings"
	"testing"
)

func TestAutosaveCrashAndRestore(t *testing.T) {
	h, err := Create(t.TempDir(), sampleDoc())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if files, _ := CrashAutosaves(h.Root); len(files) != 0 {
		t.Fatalf("expected no autosaves yet")
	}
	h.Doc.Pages[0].Name = "unsaved edit"
	path, err := AutosaveCrash(h)
	if err != nil {
		t.Fatalf("AutosaveCrash: %v", err)
	}
	if !strings.Contains(path, crashAutosavePrefix) {
		t.Fatalf("unexpected path %s", path)
	}
	// autosave does not touch the document file
	on, err := Open(h.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if on.Doc.Pages[0].Name == "unsaved edit" {
		t.Fatalf("document.json must not change on autosave")
	}

	ok, err := RestoreCrashAutosave(on)
	if err != nil || !ok {
		t.Fatalf("RestoreCrashAutosave = %v, %v", ok, err)
	}
	if on.Doc.Pages[0].Name != "unsaved edit" {
		t.Fatalf("restored name = %q", on.Doc.Pages[0].Name)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("autosave should be consumed")
	}
	if ok, _ := RestoreCrashAutosave(on); ok {
		t.Fatalf("nothing left to restore")
	}
}
