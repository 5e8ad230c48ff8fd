// Copyright 2018 The onyx-go Authors
// This file is part of the onyx-go library.
//
// The onyx-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The onyx-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the onyx-go library. If not, see <http://www.gnu.org/licenses/>.

package db

import (
	"encoding/json"
	"errors"
)

// Block is one content block of a message: plain text, a file reference or
// an action. The wire shape is a single-key JSON object discriminated by
// that key.
type Block interface {
	isBlock()
}

// TextBlock carries plain message text.
type TextBlock struct {
	Text string `json:"text"`
}

// FileBlock references an uploaded file by hash.
type FileBlock struct {
	File *FileData `json:"file"`
}

// ActionBlock carries a task-style action.
type ActionBlock struct {
	Action *ActionData `json:"action"`
}

func (*TextBlock) isBlock()   {}
func (*FileBlock) isBlock()   {}
func (*ActionBlock) isBlock() {}

// Blocks is the ordered block list of a message.
type Blocks []Block

var errUnknownBlock = errors.New("db: unknown message block shape")

// UnmarshalJSON decodes each element into the block variant matching its
// discriminating key. Unknown shapes fail the whole decode so that a
// malformed message is dropped at the protocol boundary instead of being
// stored half-parsed.
func (b *Blocks) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	blocks := make(Blocks, 0, len(raws))
	for _, raw := range raws {
		block, err := decodeBlock(raw)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
	}
	*b = blocks
	return nil
}

func decodeBlock(raw json.RawMessage) (Block, error) {
	var probe struct {
		Text   *string     `json:"text"`
		File   *FileData   `json:"file"`
		Action *ActionData `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch {
	case probe.Text != nil:
		return &TextBlock{Text: *probe.Text}, nil
	case probe.File != nil:
		return &FileBlock{File: probe.File}, nil
	case probe.Action != nil:
		return &ActionBlock{Action: probe.Action}, nil
	default:
		return nil, errUnknownBlock
	}
}
