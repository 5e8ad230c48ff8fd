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

// Package pss wraps a Swarm pss node as a messaging transport and models a
// joined topic as a bidirectional session.
package pss

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TopicLength is the fixed size of a pss topic identifier.
const TopicLength = 4

// Topic is the fixed-identity channel identifier of the pss network.
// Topics are derived remotely by the node (pss_stringToTopic) and travel in
// hex form.
type Topic [TopicLength]byte

// String implements fmt.Stringer and returns the 0x-prefixed hex form of
// the topic. This is also the conversation ID of the topic's conversation.
func (t Topic) String() string {
	return hexutil.Encode(t[:])
}

// MarshalJSON serializes the topic in hex form.
func (t Topic) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a topic from its hex form.
func (t *Topic) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	parsed, err := ParseTopic(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTopic converts the hex form of a topic back to its byte form.
func ParseTopic(s string) (Topic, error) {
	var t Topic
	b, err := hexutil.Decode(s)
	if err != nil {
		return t, err
	}
	if len(b) != TopicLength {
		return t, fmt.Errorf("invalid topic length: %d", len(b))
	}
	copy(t[:], b)
	return t, nil
}
