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
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mainframehq/onyx-go/protocol"
)

// Handler receives decoded inbound events of a topic session. Handlers of
// one session are invoked serially, in transport delivery order.
type Handler func(*protocol.Received)

// inboundBuffer is the channel depth of a topic subscription. The rpc
// client drops the subscription if the reader falls too far behind, so some
// slack is needed while handlers run.
const inboundBuffer = 64

// TopicSession is one joined topic: a local peer set used for outbound
// fan-out and a decoded inbound stream delivered to registered handlers.
// Sessions are runtime-only; they are rebuilt from stored conversations at
// startup.
type TopicSession struct {
	topic     Topic
	transport Transport
	codec     *protocol.Codec
	peers     mapset.Set[string]
	sub       event.Subscription
	in        chan *Message
	quit      chan struct{}
	log       log.Logger

	mu       sync.Mutex
	handlers []Handler
}

// Join subscribes to the topic on the transport and starts the inbound
// dispatch loop. Joining fails if the node rejects the subscription.
func Join(ctx context.Context, transport Transport, codec *protocol.Codec, topic Topic) (*TopicSession, error) {
	in := make(chan *Message, inboundBuffer)
	sub, err := transport.Subscribe(ctx, topic, in)
	if err != nil {
		return nil, err
	}
	s := &TopicSession{
		topic:     topic,
		transport: transport,
		codec:     codec,
		peers:     mapset.NewSet[string](),
		sub:       sub,
		in:        in,
		quit:      make(chan struct{}),
		log:       log.New("topic", topic.String()),
	}
	go s.loop()
	s.log.Debug("Topic session set up")
	return s, nil
}

// ID returns the hex topic identifier, which doubles as the conversation ID.
func (s *TopicSession) ID() string {
	return s.topic.String()
}

// Topic returns the raw topic identifier.
func (s *TopicSession) Topic() Topic {
	return s.topic
}

// AddPeer adds a public key to the outbound fan-out set. Purely local
// membership; key registration with the node is a separate transport call.
func (s *TopicSession) AddPeer(pubKey string) {
	s.peers.Add(pubKey)
}

// RemovePeer removes a public key from the outbound fan-out set.
func (s *TopicSession) RemovePeer(pubKey string) {
	s.peers.Remove(pubKey)
}

// Peers returns the current outbound fan-out set.
func (s *TopicSession) Peers() []string {
	return s.peers.ToSlice()
}

// Register adds a handler for inbound events. Multiple handlers per topic
// are supported; each inbound event is delivered to all of them.
func (s *TopicSession) Register(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Send encodes the event once and sends it to every peer of the session.
// The transport has no broadcast primitive: multi-peer delivery is N
// point-to-point asymmetric sends. Individual send failures are logged and
// do not abort the fan-out.
func (s *TopicSession) Send(ctx context.Context, ev *protocol.Event) error {
	msg, err := s.codec.Encode(ev)
	if err != nil {
		return err
	}
	for _, key := range s.peers.ToSlice() {
		if err := s.transport.SendAsym(ctx, key, s.topic, msg); err != nil {
			s.log.Warn("Failed to send to peer", "peer", key, "type", ev.Type, "err", err)
		}
	}
	return nil
}

// ToPeer sends the event to a single peer, bypassing the fan-out set. Used
// for profile exchange, which must not be broadcast to the whole topic.
func (s *TopicSession) ToPeer(ctx context.Context, pubKey string, ev *protocol.Event) error {
	msg, err := s.codec.Encode(ev)
	if err != nil {
		return err
	}
	return s.transport.SendAsym(ctx, pubKey, s.topic, msg)
}

// Close tears down the subscription and stops the dispatch loop.
func (s *TopicSession) Close() {
	s.sub.Unsubscribe()
	close(s.quit)
}

func (s *TopicSession) loop() {
	for {
		select {
		case msg := <-s.in:
			s.dispatch(msg)
		case err := <-s.sub.Err():
			if err != nil {
				s.log.Warn("Topic subscription failed", "err", err)
			}
			return
		case <-s.quit:
			return
		}
	}
}

func (s *TopicSession) dispatch(msg *Message) {
	ev := s.codec.Decode(msg.Msg)
	if ev == nil || msg.Key == "" {
		// Malformed, duplicate or senderless messages are dropped.
		return
	}
	received := &protocol.Received{Sender: msg.Key, Event: ev}
	s.mu.Lock()
	handlers := make([]Handler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()
	for _, h := range handlers {
		h(received)
	}
}
