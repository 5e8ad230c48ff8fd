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

package pss

import (
	"encoding/json"
	"testing"
)

func TestTopicString(t *testing.T) {
	topic := Topic{0xde, 0xad, 0xbe, 0xef}
	if got, want := topic.String(), "0xdeadbeef"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseTopic(t *testing.T) {
	topic, err := ParseTopic("0xdeadbeef")
	if err != nil {
		t.Fatalf("ParseTopic failed: %v", err)
	}
	if topic != (Topic{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("unexpected topic %v", topic)
	}
	for _, bad := range []string{"", "deadbeef", "0xdead", "0xdeadbeefff", "0xzzzzzzzz"} {
		if _, err := ParseTopic(bad); err == nil {
			t.Errorf("ParseTopic(%q) should fail", bad)
		}
	}
}

func TestTopicJSON(t *testing.T) {
	topic := Topic{0x01, 0x02, 0x03, 0x04}
	data, err := json.Marshal(topic)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"0x01020304"` {
		t.Errorf("unexpected encoding %s", data)
	}
	var decoded Topic
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != topic {
		t.Errorf("roundtrip mismatch: %v", decoded)
	}
}
