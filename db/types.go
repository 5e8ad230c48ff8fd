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

// Profile is the public identity of a peer. The ID is the peer's
// hex-encoded public key and never changes; the remaining fields are
// provided by the peer itself through profile exchange.
type Profile struct {
	ID       string `json:"id"`
	Avatar   string `json:"avatar,omitempty"` // Swarm hash
	Name     string `json:"name,omitempty"`
	Bio      string `json:"bio,omitempty"`
	HasStake bool   `json:"hasStake,omitempty"`
}

// ContactState tracks the contact-request handshake. The zero value
// (no contact record) is the implicit "none" state.
type ContactState string

const (
	ContactSent     ContactState = "SENT"
	ContactReceived ContactState = "RECEIVED"
	ContactAccepted ContactState = "ACCEPTED"
)

// Contact is a known peer, keyed by its profile ID. ConvoID is set once a
// direct conversation topic exists with the peer.
type Contact struct {
	Profile *Profile     `json:"profile"`
	Address string       `json:"address,omitempty"`
	ConvoID string       `json:"convoID,omitempty"`
	State   ContactState `json:"state,omitempty"`
}

// ContactData is a Contact with its direct conversation denormalized in.
// It is a read-time join, never stored.
type ContactData struct {
	Contact
	Convo *ConversationData `json:"convo,omitempty"`
}

// ContactRequest is the pending side of an inbound contact request, kept
// until the request is accepted or deleted.
type ContactRequest struct {
	Address string `json:"address"`
	Topic   string `json:"topic"`
}

// ConvoType discriminates two-party direct conversations from multi-party
// channels.
type ConvoType string

const (
	ConvoDirect  ConvoType = "DIRECT"
	ConvoChannel ConvoType = "CHANNEL"
)

// Conversation is the stored state of one topic: its peers, its append-only
// message log and the read pointer of the local user.
type Conversation struct {
	ID                  string     `json:"id"` // topic hex
	Type                ConvoType  `json:"type"`
	Subject             string     `json:"subject,omitempty"`
	Dark                bool       `json:"dark"`
	Peers               []string   `json:"peers"`
	Messages            []*Message `json:"messages"`
	MessageCount        int        `json:"messageCount"`
	Pointer             int        `json:"pointer"`
	LastActiveTimestamp int64      `json:"lastActiveTimestamp"` // unix ms
}

// ConversationData is a Conversation with peer IDs resolved to full
// contacts, produced at read time.
type ConversationData struct {
	ID                  string         `json:"id"`
	Type                ConvoType      `json:"type"`
	Subject             string         `json:"subject,omitempty"`
	Dark                bool           `json:"dark"`
	Peers               []*ContactData `json:"peers"`
	Messages            []*Message     `json:"messages"`
	MessageCount        int            `json:"messageCount"`
	Pointer             int            `json:"pointer"`
	LastActiveTimestamp int64          `json:"lastActiveTimestamp"`
}

// MessageSource distinguishes user-authored messages from system notices.
type MessageSource string

const (
	SourceSystem MessageSource = "SYSTEM"
	SourceUser   MessageSource = "USER"
)

// Message is one entry of a conversation's log. Messages are appended and
// never mutated or removed; the timestamp is assigned at append time.
type Message struct {
	Sender    string        `json:"sender"`
	Timestamp int64         `json:"timestamp"` // unix ms
	Source    MessageSource `json:"source"`
	Blocks    Blocks        `json:"blocks"`
}

// FileData references an uploaded blob by Swarm hash. Blob bytes are never
// stored in the conversation state.
type FileData struct {
	Name        string `json:"name"`
	Hash        string `json:"hash"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// ActionState tracks a task-style action block.
type ActionState string

const (
	ActionPending ActionState = "PENDING"
	ActionDone    ActionState = "DONE"
)

// ActionData is the payload of an action block: a task assigned to a peer
// inside a conversation.
type ActionData struct {
	ID       string      `json:"id"`
	Assignee string      `json:"assignee"`
	Sender   string      `json:"sender,omitempty"`
	State    ActionState `json:"state"`
	Text     string      `json:"text,omitempty"`
}

// Action links an ActionData to the conversation it was created in.
type Action struct {
	ConvoID string      `json:"convoID"`
	Data    *ActionData `json:"data"`
}

// Viewer aggregates the local user's state for the API layer.
type Viewer struct {
	Channels []*ConversationData `json:"channels"`
	Contacts []*ContactData      `json:"contacts"`
	Profile  *Profile            `json:"profile"`
}
