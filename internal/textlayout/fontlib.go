/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Built-in classes the block font palette maps onto.
const (
	ClassSans = "sans"
	ClassMono = "mono"
)

// FontLibrary stores OpenType fonts by family and caches faces per size.
// It starts with the Go fonts registered for the sans and mono classes;
// LoadTTF adds real families, which then win over the class fallback.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
	DPI   float64 // default 72 if zero
}

type faceKey struct {
	family string
	size   float64
}

// NewFontLibrary returns a library preloaded with the Go fonts.
func NewFontLibrary() *FontLibrary {
	fl := &FontLibrary{fonts: make(map[string]*opentype.Font), faces: make(map[faceKey]font.Face)}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		fl.fonts[ClassSans] = f
	}
	if f, err := opentype.Parse(gomono.TTF); err == nil {
		fl.fonts[ClassMono] = f
	}
	return fl
}

// LoadTTF loads a font file into the library under family.
func (fl *FontLibrary) LoadTTF(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[family] = f
	for k := range fl.faces {
		if k.family == family {
			delete(fl.faces, k)
		}
	}
	return nil
}

// Class maps a palette family to a built-in class.
func Class(family string) string {
	if family == "JetBrains Mono" {
		return ClassMono
	}
	return ClassSans
}

// Face resolves family at size pixels. Unknown families use their class
// font; if nothing parses, the fixed 7x13 bitmap face is returned.
func (fl *FontLibrary) Face(family string, size float64) font.Face {
	if size <= 0 {
		size = 12
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	key := faceKey{family: family, size: size}
	if f, ok := fl.faces[key]; ok {
		return f
	}
	otf, ok := fl.fonts[family]
	if !ok {
		otf, ok = fl.fonts[Class(family)]
	}
	if !ok {
		return basicfont.Face7x13
	}
	dpi := fl.DPI
	if dpi <= 0 {
		dpi = 72
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	fl.faces[key] = face
	return face
}
