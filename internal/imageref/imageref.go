/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imageref turns image files into the data URIs stored on blocks and
// decodes them again for exporters.
package imageref

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/h2non/filetype"
)

// MaxBytes caps the size of an embedded image.
const MaxBytes = 16 << 20

var (
	ErrNotImage   = errors.New("not an image")
	ErrTooLarge   = errors.New("image too large")
	ErrNotDataURI = errors.New("not a base64 data URI")
)

// FromFile reads path and returns a data URI for it.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	uri, err := FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return uri, nil
}

// FromBytes sniffs the content type of data and encodes it as a data URI.
// Only image types are accepted.
func FromBytes(data []byte) (string, error) {
	if len(data) > MaxBytes {
		return "", ErrTooLarge
	}
	mime, err := Sniff(data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(mime) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}

// Sniff returns the MIME type of an image from its magic bytes.
func Sniff(data []byte) (string, error) {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	if !filetype.IsImage(head) {
		return "", ErrNotImage
	}
	t, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("match image type: %w", err)
	}
	return t.MIME.Value, nil
}

// Decode splits a base64 data URI into its MIME type and payload.
func Decode(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	if mime == "" {
		if mime, err = Sniff(data); err != nil {
			return "", nil, err
		}
	}
	return mime, data, nil
}

// Reader is a convenience for exporters that consume io.Reader.
func Reader(uri string) (string, io.Reader, error) {
	mime, data, err := Decode(uri)
	if err != nil {
		return "", nil, err
	}
	return mime, bytes.NewReader(data), nil
}

// Size returns the pixel dimensions of an encoded PNG, JPEG or GIF image.
func Size(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("image size: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Image decodes a data URI into an image.
func Image(uri string) (image.Image, error) {
	_, data, err := Decode(uri)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
