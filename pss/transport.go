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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// Message is the wrapper the pss node delivers on topic subscriptions,
// carrying the raw payload and the key identifying the sender.
type Message struct {
	Msg        hexutil.Bytes `json:"Msg"`
	Asymmetric bool          `json:"Asymmetric"`
	Key        string        `json:"Key"`
}

// Transport is the pss node surface consumed by the messaging layer. All
// calls are remote and may fail; a failed "No stake found" response is a
// recognized failure class handled by the caller.
type Transport interface {
	// PublicKey returns the node's own public key in hex form. It is the
	// stable identity of the local user.
	PublicKey(ctx context.Context) (string, error)

	// BaseAddr returns the node's overlay routing address in hex form.
	BaseAddr(ctx context.Context) (string, error)

	// StringToTopic derives the topic matching an arbitrary seed string.
	// The derivation is deterministic across nodes, which makes well-known
	// topics possible without prior exchange.
	StringToTopic(ctx context.Context, seed string) (Topic, error)

	// Subscribe registers for inbound messages on a topic. Messages are
	// delivered on ch until the subscription is unsubscribed.
	Subscribe(ctx context.Context, topic Topic, ch chan<- *Message) (event.Subscription, error)

	// SetPeerPublicKey associates a peer's public key with a topic and an
	// optional routing address hint.
	SetPeerPublicKey(ctx context.Context, pubKey string, topic Topic, address string) error

	// SendAsym sends msg on the topic, encrypted to the given public key.
	SendAsym(ctx context.Context, pubKey string, topic Topic, msg []byte) error

	// SendSym sends msg on the topic, encrypted with a previously
	// negotiated symmetric key.
	SendSym(ctx context.Context, symKeyID string, topic Topic, msg []byte) error
}

// rpcTransport speaks the "pss" RPC namespace of a Swarm node.
type rpcTransport struct {
	client *rpc.Client
}

// Dial connects to the websocket RPC endpoint of a Swarm node.
func Dial(ctx context.Context, url string) (Transport, error) {
	log.Info("Connecting to Swarm node", "url", url)
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewTransport(client), nil
}

// NewTransport wraps an established RPC connection. It allows passing an
// in-process RPC client in tests.
func NewTransport(client *rpc.Client) Transport {
	return &rpcTransport{client: client}
}

func (t *rpcTransport) PublicKey(ctx context.Context) (string, error) {
	var key hexutil.Bytes
	if err := t.client.CallContext(ctx, &key, "pss_getPublicKey"); err != nil {
		return "", err
	}
	return key.String(), nil
}

func (t *rpcTransport) BaseAddr(ctx context.Context) (string, error) {
	var addr hexutil.Bytes
	if err := t.client.CallContext(ctx, &addr, "pss_baseAddr"); err != nil {
		return "", err
	}
	return addr.String(), nil
}

func (t *rpcTransport) StringToTopic(ctx context.Context, seed string) (Topic, error) {
	var topic Topic
	err := t.client.CallContext(ctx, &topic, "pss_stringToTopic", seed)
	return topic, err
}

func (t *rpcTransport) Subscribe(ctx context.Context, topic Topic, ch chan<- *Message) (event.Subscription, error) {
	return t.client.Subscribe(ctx, "pss", ch, "receive", topic.String())
}

func (t *rpcTransport) SetPeerPublicKey(ctx context.Context, pubKey string, topic Topic, address string) error {
	return t.client.CallContext(ctx, nil, "pss_setPeerPublicKey", pubKey, topic.String(), address)
}

func (t *rpcTransport) SendAsym(ctx context.Context, pubKey string, topic Topic, msg []byte) error {
	return t.client.CallContext(ctx, nil, "pss_sendAsym", pubKey, topic.String(), hexutil.Encode(msg))
}

func (t *rpcTransport) SendSym(ctx context.Context, symKeyID string, topic Topic, msg []byte) error {
	return t.client.CallContext(ctx, nil, "pss_sendSym", symKeyID, topic.String(), hexutil.Encode(msg))
}
