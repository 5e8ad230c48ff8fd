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

// Package protocol implements the wire envelope of the onyx messaging
// protocol: typed application events wrapped with a random nonce for
// duplicate suppression over the pss transport.
package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mainframehq/onyx-go/db"
)

// Type identifies a protocol event.
type Type string

const (
	TypeChannelInvite   Type = "CHANNEL_INVITE"   // in p2p topic
	TypeContactRequest  Type = "CONTACT_REQUEST"  // in contact topic
	TypeProfileRequest  Type = "PROFILE_REQUEST"  // in channel
	TypeProfileResponse Type = "PROFILE_RESPONSE" // in channel
	TypeTopicJoined     Type = "TOPIC_JOINED"     // in channel or p2p topic
	TypeTopicMessage    Type = "TOPIC_MESSAGE"    // in channel or p2p topic
	TypeTopicTyping     Type = "TOPIC_TYPING"     // in channel or p2p topic
)

// PeerInfo identifies a peer on the transport: its public key and,
// optionally, a routing address hint. The address is withheld on dark
// channels.
type PeerInfo struct {
	Address string `json:"address"`
	PubKey  string `json:"pubKey"`
}

// ChannelInvitePayload describes a channel a peer is invited to join.
type ChannelInvitePayload struct {
	Topic   string     `json:"topic"` // topic hex
	Subject string     `json:"subject"`
	Peers   []PeerInfo `json:"peers"`
	Dark    bool       `json:"dark"`
}

// ContactRequestPayload is sent on the well-known contact topic of the
// target peer, announcing the requester and the fresh topic for the
// direct conversation.
type ContactRequestPayload struct {
	Address string      `json:"address"`
	Profile *db.Profile `json:"profile"`
	Topic   string      `json:"topic"` // topic hex
}

// ProfileResponsePayload answers a profile request.
type ProfileResponsePayload struct {
	Profile *db.Profile `json:"profile"`
}

// TopicJoinedPayload announces the sender's presence on a topic, carrying
// its latest profile and an optional routing address.
type TopicJoinedPayload struct {
	Address string      `json:"address"`
	Profile *db.Profile `json:"profile,omitempty"`
}

// TopicMessagePayload carries the content blocks of a conversation message.
type TopicMessagePayload struct {
	Blocks db.Blocks        `json:"blocks"`
	Source db.MessageSource `json:"source,omitempty"`
}

// TopicTypingPayload signals whether the sender is currently typing.
type TopicTypingPayload struct {
	Typing bool `json:"typing"`
}

// Event is one decoded protocol event. Payload holds the variant matching
// Type: *ChannelInvitePayload, *ContactRequestPayload, nil (profile
// request), *ProfileResponsePayload, *TopicJoinedPayload,
// *TopicMessagePayload or *TopicTypingPayload.
type Event struct {
	Type    Type
	Payload interface{}
}

// Received is an inbound event annotated with the public key of its sender,
// as reported by the transport subscription.
type Received struct {
	Sender string
	*Event
}

// Constructors for outbound events.

func ChannelInvite(payload *ChannelInvitePayload) *Event {
	return &Event{Type: TypeChannelInvite, Payload: payload}
}

func ContactRequest(payload *ContactRequestPayload) *Event {
	return &Event{Type: TypeContactRequest, Payload: payload}
}

func ProfileRequest() *Event {
	return &Event{Type: TypeProfileRequest}
}

func ProfileResponse(profile *db.Profile) *Event {
	return &Event{Type: TypeProfileResponse, Payload: &ProfileResponsePayload{Profile: profile}}
}

func TopicJoined(profile *db.Profile, address string) *Event {
	return &Event{Type: TypeTopicJoined, Payload: &TopicJoinedPayload{Address: address, Profile: profile}}
}

func TopicMessage(payload *TopicMessagePayload) *Event {
	return &Event{Type: TypeTopicMessage, Payload: payload}
}

func TopicTyping(typing bool) *Event {
	return &Event{Type: TypeTopicTyping, Payload: &TopicTypingPayload{Typing: typing}}
}

const nonceSize = 8

// seenNonces bounds the duplicate-suppression set. An LRU keeps the
// suppression effective within any realistic redelivery window while
// capping memory.
const seenNonces = 65536

type envelope struct {
	Nonce   string          `json:"nonce"`
	Payload json.RawMessage `json:"payload"`
}

type body struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Codec encodes and decodes protocol envelopes. The nonce set is shared by
// every topic of the process, so a message replayed across topics is still
// suppressed. Decode is safe for concurrent use.
type Codec struct {
	seen *lru.Cache[string, struct{}]
}

// NewCodec returns a codec with an empty nonce set.
func NewCodec() *Codec {
	seen, err := lru.New[string, struct{}](seenNonces)
	if err != nil {
		panic(err) // only fails on non-positive size
	}
	return &Codec{seen: seen}
}

// Encode wraps the event with a fresh random nonce and serializes it to the
// wire format.
func (c *Codec) Encode(ev *Event) ([]byte, error) {
	payload, err := json.Marshal(struct {
		Type    Type        `json:"type"`
		Payload interface{} `json:"payload"`
	}{ev.Type, encodePayload(ev)})
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return json.Marshal(&envelope{
		Nonce:   hex.EncodeToString(nonce),
		Payload: payload,
	})
}

func encodePayload(ev *Event) interface{} {
	if ev.Payload == nil {
		// The profile request has no payload fields, but the wire shape
		// requires an object.
		return struct{}{}
	}
	return ev.Payload
}

// Decode parses a wire envelope and returns the event it carries, or nil if
// the message is malformed, of an unknown type or a duplicate. Failures are
// logged and swallowed: the transport has no redelivery channel, so there is
// nobody to report them to.
func (c *Codec) Decode(data []byte) *Event {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("Failed to decode protocol message", "err", err)
		return nil
	}
	if env.Nonce == "" || len(env.Payload) == 0 {
		log.Warn("Unrecognised protocol message format")
		return nil
	}
	var b body
	if err := json.Unmarshal(env.Payload, &b); err != nil || b.Type == "" {
		log.Warn("Unrecognised protocol message format", "err", err)
		return nil
	}
	if seen, _ := c.seen.ContainsOrAdd(env.Nonce, struct{}{}); seen {
		log.Warn("Duplicate protocol message", "nonce", env.Nonce, "type", b.Type)
		return nil
	}
	ev, err := decodeBody(&b)
	if err != nil {
		log.Warn("Invalid protocol payload", "type", b.Type, "err", err)
		return nil
	}
	return ev
}

func decodeBody(b *body) (*Event, error) {
	ev := &Event{Type: b.Type}
	switch b.Type {
	case TypeChannelInvite:
		payload := new(ChannelInvitePayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	case TypeContactRequest:
		payload := new(ContactRequestPayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	case TypeProfileRequest:
		// No payload.
	case TypeProfileResponse:
		payload := new(ProfileResponsePayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	case TypeTopicJoined:
		payload := new(TopicJoinedPayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	case TypeTopicMessage:
		payload := new(TopicMessagePayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	case TypeTopicTyping:
		payload := new(TopicTypingPayload)
		if err := json.Unmarshal(b.Payload, payload); err != nil {
			return nil, err
		}
		ev.Payload = payload
	default:
		// Messages from newer protocol versions are dropped here instead of
		// reaching the dispatchers.
		log.Warn("Unhandled protocol message type", "type", b.Type)
		return nil, nil
	}
	return ev, nil
}
