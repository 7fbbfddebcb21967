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

import (
	"errors"
	"fmt"
)

// Clone returns an independent copy of the block. All fields are values.
func (b Block) Clone() Block { return b }

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	out := Page{ID: p.ID, Name: p.Name, Blocks: make([]Block, len(p.Blocks))}
	copy(out.Blocks, p.Blocks)
	return out
}

// ClonePages returns a deep copy of a page collection.
func ClonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

// ClampOpacity limits a percentage to 0..100.
func ClampOpacity(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// ClampSize raises width and height to the block minimums.
func ClampSize(w, h float64) (float64, float64) {
	return max(w, MinBlockWidth), max(h, MinBlockHeight)
}

// PageIndex returns the index of the page with id, or -1.
func PageIndex(pages []Page, id string) int {
	for i := range pages {
		if pages[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPage returns a pointer into pages for id, or nil.
func FindPage(pages []Page, id string) *Page {
	if i := PageIndex(pages, id); i >= 0 {
		return &pages[i]
	}
	return nil
}

// BlockIndex returns the index of the block with id on the page, or -1.
func (p *Page) BlockIndex(id string) int {
	for i := range p.Blocks {
		if p.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// FindBlock returns a pointer to the block with id on the page, or nil.
func (p *Page) FindBlock(id string) *Block {
	if i := p.BlockIndex(id); i >= 0 {
		return &p.Blocks[i]
	}
	return nil
}

// MaxZ returns the highest ZIndex among blocks, or 0 when there are none.
func MaxZ(blocks []Block) int {
	m := 0
	for _, b := range blocks {
		if b.ZIndex > m {
			m = b.ZIndex
		}
	}
	return m
}

// Topmost returns the index of the block with the highest ZIndex.
// Ties go to the earliest block in document order. Returns -1 for no blocks.
func Topmost(blocks []Block) int {
	idx := -1
	for i, b := range blocks {
		if idx == -1 || b.ZIndex > blocks[idx].ZIndex {
			idx = i
		}
	}
	return idx
}

// OwnerPage returns the page holding the block id, or nil.
func OwnerPage(pages []Page, blockID string) *Page {
	for i := range pages {
		if pages[i].BlockIndex(blockID) >= 0 {
			return &pages[i]
		}
	}
	return nil
}

// ErrNoPages is returned by Validate when the collection is empty.
var ErrNoPages = errors.New("document has no pages")

// Validate checks the structural invariants of a page collection:
// at least one page, unique page and block ids, block sizes at or above the
// minimums, opacity in range, and no block linking to its own page.
// Dangling links are allowed.
func Validate(pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	pageIDs := make(map[string]struct{}, len(pages))
	blockIDs := make(map[string]struct{})
	for _, p := range pages {
		if p.ID == "" {
			return errors.New("page with empty id")
		}
		if _, dup := pageIDs[p.ID]; dup {
			return fmt.Errorf("duplicate page id %q", p.ID)
		}
		pageIDs[p.ID] = struct{}{}
		for _, b := range p.Blocks {
			if b.ID == "" {
				return fmt.Errorf("page %q: block with empty id", p.ID)
			}
			if _, dup := blockIDs[b.ID]; dup {
				return fmt.Errorf("duplicate block id %q", b.ID)
			}
			blockIDs[b.ID] = struct{}{}
			if b.Width < MinBlockWidth || b.Height < MinBlockHeight {
				return fmt.Errorf("block %q: size %gx%g below minimum", b.ID, b.Width, b.Height)
			}
			if b.BackgroundOpacity < 0 || b.BackgroundOpacity > 100 {
				return fmt.Errorf("block %q: opacity %d out of range", b.ID, b.BackgroundOpacity)
			}
			if target, ok := b.LinkedPageID.Get(); ok && target == p.ID {
				return fmt.Errorf("block %q links to its own page", b.ID)
			}
		}
	}
	return nil
}
