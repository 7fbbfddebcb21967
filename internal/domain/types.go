/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the document model of the page editor: pages holding
// freely positioned blocks. Everything here is plain data; the editor package
// owns the single mutable instance and the history holds clones.

import "github.com/google/uuid"

// Minimum block size in logical pixels. Resizing never goes below these.
const (
	MinBlockWidth  = 50
	MinBlockHeight = 30
)

// Default geometry for newly added blocks.
const (
	DefaultBlockWidth  = 200
	DefaultBlockHeight = 100
)

// BackgroundSize controls how a background image is fitted into its block.
type BackgroundSize string

const (
	BackgroundCover   BackgroundSize = "cover"
	BackgroundContain BackgroundSize = "contain"
	BackgroundAuto    BackgroundSize = "auto"
	Background50      BackgroundSize = "50%"
	Background75      BackgroundSize = "75%"
	Background100     BackgroundSize = "100%"
	Background125     BackgroundSize = "125%"
	Background150     BackgroundSize = "150%"
)

// BackgroundSizes lists the values offered by the style panel, in menu order.
var BackgroundSizes = []BackgroundSize{
	BackgroundCover, BackgroundContain, Background50, Background75,
	Background100, Background125, Background150, BackgroundAuto,
}

// Valid reports whether s is one of the known sizes.
func (s BackgroundSize) Valid() bool {
	for _, v := range BackgroundSizes {
		if v == s {
			return true
		}
	}
	return false
}

// FontFamilies is the closed palette shown to users. The engine accepts any string.
var FontFamilies = []string{"Inter", "JetBrains Mono", "Georgia", "Arial", "Times New Roman"}

// FontSizes offered by the style panel.
var FontSizes = []int{10, 12, 14, 16, 18, 20, 24, 28, 32, 40, 48, 64}

// DeviceMode switches the canvas width the renderer uses. Not stored per page.
type DeviceMode string

const (
	DeviceDesktop DeviceMode = "desktop"
	DeviceMobile  DeviceMode = "mobile"
)

// CanvasWidth returns the logical canvas width for the mode.
func (m DeviceMode) CanvasWidth() float64 {
	if m == DeviceMobile {
		return 375
	}
	return 1200
}

// CanvasMinHeight returns the logical minimum canvas height for the mode.
func (m DeviceMode) CanvasMinHeight() float64 {
	if m == DeviceMobile {
		return 667
	}
	return 800
}

// Block is a positioned, styled rectangle on a page.
// X/Y are the top-left corner in canvas coordinates; TextX/TextY position the
// text layer relative to the block origin.
type Block struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	TextX  float64 `json:"textX"`
	TextY  float64 `json:"textY"`

	Text              string                   `json:"text"`
	FontFamily        string                   `json:"fontFamily"`
	FontSize          int                      `json:"fontSize"`
	TextColor         string                   `json:"textColor"`
	BackgroundColor   string                   `json:"backgroundColor"`
	BackgroundOpacity int                      `json:"backgroundOpacity"`
	BackgroundImage   Optional[string]         `json:"backgroundImage,omitzero"`
	BackgroundSize    Optional[BackgroundSize] `json:"backgroundSize,omitzero"`
	ContentImage      Optional[string]         `json:"contentImage,omitzero"`

	ZIndex       int              `json:"zIndex"`
	LinkedPageID Optional[string] `json:"linkedPageId,omitzero"`
}

// EffectiveBackgroundSize returns the background size, defaulting to cover.
func (b Block) EffectiveBackgroundSize() BackgroundSize {
	return b.BackgroundSize.OrElse(BackgroundCover)
}

// Page is a named canvas holding an ordered list of blocks.
// Block order is stable; stacking is governed by ZIndex.
type Page struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// BlockStyle groups the style defaults applied to new blocks.
type BlockStyle struct {
	FontFamily        string
	FontSize          int
	TextColor         string
	BackgroundColor   string
	BackgroundOpacity int
}

// DefaultBlockStyle is the style of a freshly added block.
func DefaultBlockStyle() BlockStyle {
	return BlockStyle{
		FontFamily:        "Inter",
		FontSize:          16,
		TextColor:         "#1a1a2e",
		BackgroundColor:   "#ffffff",
		BackgroundOpacity: 100,
	}
}

// NewID returns a fresh opaque identifier.
func NewID() string { return uuid.NewString() }

// NewPage creates an empty page with a fresh id.
func NewPage(name string) Page {
	return Page{ID: NewID(), Name: name, Blocks: []Block{}}
}

// NewBlock creates a block at x,y with default size and the given style.
func NewBlock(x, y float64, z int, st BlockStyle) Block {
	return Block{
		ID:                NewID(),
		X:                 x,
		Y:                 y,
		Width:             DefaultBlockWidth,
		Height:            DefaultBlockHeight,
		FontFamily:        st.FontFamily,
		FontSize:          st.FontSize,
		TextColor:         st.TextColor,
		BackgroundColor:   st.BackgroundColor,
		BackgroundOpacity: ClampOpacity(st.BackgroundOpacity),
		ZIndex:            z,
	}
}

// DocumentVersion is the current on-disk format version.
const DocumentVersion = 1

// Document is the persisted form of an editor session. Undo history and
// transient flags (selection, preview, show-all) are not part of it.
type Document struct {
	Version      int        `json:"version"`
	Pages        []Page     `json:"pages"`
	ActivePageID string     `json:"activePageId"`
	DeviceMode   DeviceMode `json:"deviceMode"`
}
