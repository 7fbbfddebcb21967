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
	"strings"
	"testing"
)

func TestEncodedDocumentConformsToSchema(t *testing.T) {
	data, err := Encode(sampleDoc())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := ValidateJSON(data); err != nil {
		t.Fatalf("document does not conform to schema: %v", err)
	}
	if strings.Contains(string(data), "contentImage") {
		t.Fatalf("absent optionals should be omitted: %s", data)
	}
}

func TestSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"no pages":      `{"version":1,"pages":[]}`,
		"small block":   `{"version":1,"pages":[{"id":"p","name":"A","blocks":[{"id":"b","x":0,"y":0,"width":10,"height":40,"zIndex":1}]}]}`,
		"opacity":       `{"version":1,"pages":[{"id":"p","name":"A","blocks":[{"id":"b","x":0,"y":0,"width":60,"height":40,"zIndex":1,"backgroundOpacity":101}]}]}`,
		"bad size enum": `{"version":1,"pages":[{"id":"p","name":"A","blocks":[{"id":"b","x":0,"y":0,"width":60,"height":40,"zIndex":1,"backgroundSize":"huge"}]}]}`,
		"device mode":   `{"version":1,"deviceMode":"tablet","pages":[{"id":"p","name":"A","blocks":[]}]}`,
		"not json":      `{`,
	}
	for name, doc := range cases {
		if err := ValidateJSON([]byte(doc)); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
	}
}

func TestSchemaAcceptsNullOptionals(t *testing.T) {
	doc := `{"version":1,"pages":[{"id":"p","name":"A","blocks":[{"id":"b","x":-20,"y":0,"width":60,"height":40,"zIndex":1,"linkedPageId":null,"backgroundImage":null}]}]}`
	if err := ValidateJSON([]byte(doc)); err != nil {
		t.Fatalf("null optionals should validate: %v", err)
	}
	if len(Schema()) == 0 {
		t.Fatalf("embedded schema is empty")
	}
}
