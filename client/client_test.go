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

package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mainframehq/onyx-go/db"
	"github.com/mainframehq/onyx-go/pss"
)

// fakeNetwork routes asymmetric sends between in-process transports by
// public key, standing in for a pss mesh.
type fakeNetwork struct {
	mu         sync.Mutex
	nodes      map[string]*fakeTransport
	noStakeFor map[string]bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		nodes:      make(map[string]*fakeTransport),
		noStakeFor: make(map[string]bool),
	}
}

func (n *fakeNetwork) transport(pubKey, addr string) *fakeTransport {
	trans := &fakeTransport{
		net:    n,
		pubKey: pubKey,
		addr:   addr,
		subs:   make(map[pss.Topic][]chan<- *pss.Message),
	}
	n.mu.Lock()
	n.nodes[pubKey] = trans
	n.mu.Unlock()
	return trans
}

type fakeTransport struct {
	net    *fakeNetwork
	pubKey string
	addr   string

	mu   sync.Mutex
	subs map[pss.Topic][]chan<- *pss.Message
}

func (t *fakeTransport) PublicKey(ctx context.Context) (string, error) { return t.pubKey, nil }
func (t *fakeTransport) BaseAddr(ctx context.Context) (string, error)  { return t.addr, nil }

// StringToTopic hashes the seed the way every node of the fake mesh does,
// so well-known topics line up across nodes.
func (t *fakeTransport) StringToTopic(ctx context.Context, seed string) (pss.Topic, error) {
	var topic pss.Topic
	copy(topic[:], crypto.Keccak256([]byte(seed)))
	return topic, nil
}

func (t *fakeTransport) Subscribe(ctx context.Context, topic pss.Topic, ch chan<- *pss.Message) (event.Subscription, error) {
	t.mu.Lock()
	t.subs[topic] = append(t.subs[topic], ch)
	t.mu.Unlock()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (t *fakeTransport) SetPeerPublicKey(ctx context.Context, pubKey string, topic pss.Topic, address string) error {
	return nil
}

func (t *fakeTransport) SendAsym(ctx context.Context, pubKey string, topic pss.Topic, msg []byte) error {
	t.net.mu.Lock()
	if t.net.noStakeFor[pubKey] {
		t.net.mu.Unlock()
		return errors.New("pss: No stake found for key")
	}
	target := t.net.nodes[pubKey]
	t.net.mu.Unlock()
	if target == nil {
		// Unknown recipient: the real network would route into the void.
		return nil
	}
	target.mu.Lock()
	subs := append([]chan<- *pss.Message{}, target.subs[topic]...)
	target.mu.Unlock()
	for _, ch := range subs {
		ch <- &pss.Message{Msg: msg, Asymmetric: true, Key: t.pubKey}
	}
	return nil
}

func (t *fakeTransport) SendSym(ctx context.Context, symKeyID string, topic pss.Topic, msg []byte) error {
	return nil
}

func (t *fakeTransport) subscribed(topic pss.Topic) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[topic]) > 0
}

type testNode struct {
	id     string
	client *Client
	store  *db.Store
	trans  *fakeTransport
}

func newTestNode(t *testing.T, net *fakeNetwork, name string, opts ...Option) *testNode {
	t.Helper()
	id := "0x" + name
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	trans := net.transport(id, "0xaddr"+name)
	client := New(trans, store, opts...)
	require.NoError(t, client.Setup(context.Background()))
	store.SetProfile(&db.Profile{ID: id, Name: name})
	require.NoError(t, client.SetupContactTopic(context.Background()))
	return &testNode{id: id, client: client, store: store, trans: trans}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// connect runs the full contact handshake between two nodes and returns the
// shared conversation ID.
func connect(t *testing.T, a, b *testNode) string {
	t.Helper()
	ctx := context.Background()
	contact, err := a.client.RequestContact(ctx, b.id)
	require.NoError(t, err)
	waitFor(t, "contact request", func() bool { return b.store.GetContactRequest(a.id) != nil })
	_, err = b.client.AcceptContact(ctx, a.id)
	require.NoError(t, err)
	waitFor(t, "contact acceptance", func() bool {
		c := a.store.GetContact(b.id)
		return c != nil && c.State == db.ContactAccepted
	})
	return contact.ConvoID
}

func TestContactRequestAccept(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	ctx := context.Background()

	contact, err := alice.client.RequestContact(ctx, bob.id)
	require.NoError(t, err)
	assert.Equal(t, db.ContactSent, contact.State)
	require.NotEmpty(t, contact.ConvoID)

	// Bob's side: a pending request carrying Alice's profile and the topic.
	waitFor(t, "contact request", func() bool { return bob.store.GetContactRequest(alice.id) != nil })
	request := bob.store.GetContactRequest(alice.id)
	assert.Equal(t, contact.ConvoID, request.Topic)
	bobSide := bob.store.GetContact(alice.id)
	require.NotNil(t, bobSide)
	assert.Equal(t, db.ContactReceived, bobSide.State)
	assert.Equal(t, "alice", bobSide.Profile.Name)

	accepted, err := bob.client.AcceptContact(ctx, alice.id)
	require.NoError(t, err)
	assert.Equal(t, db.ContactAccepted, accepted.State)
	assert.Equal(t, contact.ConvoID, accepted.ConvoID)
	assert.Nil(t, bob.store.GetContactRequest(alice.id))

	// The acceptance announcement upgrades Alice's side too.
	waitFor(t, "contact acceptance", func() bool {
		c := alice.store.GetContact(bob.id)
		return c != nil && c.State == db.ContactAccepted
	})
	assert.Equal(t, "bob", alice.store.GetContact(bob.id).Profile.Name)
}

func TestRequestContactWithoutProfile(t *testing.T) {
	net := newFakeNetwork()
	store, err := db.OpenMemory()
	require.NoError(t, err)
	defer store.Close()
	// Before Setup runs there is no identity and no profile.
	client := New(net.transport("0xalice", "0xaddr"), store)

	_, err = client.RequestContact(context.Background(), "0xbob")
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.ErrorIs(t, client.SetupContactTopic(context.Background()), ErrNoProfile)
}

func TestRequestContactNoStake(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	net.noStakeFor["0xbob"] = true

	// A stake refusal is not an error: the contact is recorded without
	// stake and the request can be retried once the peer stakes up.
	contact, err := alice.client.RequestContact(context.Background(), "0xbob")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.False(t, contact.Profile.HasStake)
	assert.Equal(t, db.ContactSent, contact.State)
}

func TestAcceptContactErrors(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	ctx := context.Background()

	_, err := alice.client.AcceptContact(ctx, "0xnobody")
	assert.ErrorIs(t, err, ErrContactNotFound)

	// A known contact without a pending request cannot be accepted.
	alice.store.SetContact(&db.Contact{Profile: &db.Profile{ID: "0xbob"}, State: db.ContactSent})
	_, err = alice.client.AcceptContact(ctx, "0xbob")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestMessageRoundtrip(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	convoID := connect(t, alice, bob)
	ctx := context.Background()

	added := make(chan db.MessageAddedEvent, 1)
	sub := bob.store.SubscribeMessageAdded(added)
	defer sub.Unsubscribe()

	msg, err := alice.client.SendMessage(ctx, convoID, db.Blocks{&db.TextBlock{Text: "hello bob"}})
	require.NoError(t, err)
	assert.Equal(t, alice.id, msg.Sender)

	select {
	case ev := <-added:
		assert.Equal(t, convoID, ev.ConvoID)
		assert.Equal(t, alice.id, ev.Message.Sender)
		assert.Equal(t, "hello bob", ev.Message.Blocks[0].(*db.TextBlock).Text)
	case <-time.After(3 * time.Second):
		t.Fatal("message never arrived")
	}

	// The sender's pointer follows its own message; the receiver still has
	// it unread.
	assert.Equal(t, 1, alice.store.GetConversation(convoID).Pointer)
	assert.Equal(t, 0, bob.store.GetConversation(convoID).Pointer)
}

func TestSendMessageErrors(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	convoID := connect(t, alice, bob)
	ctx := context.Background()

	_, err := alice.client.SendMessage(ctx, "0xdeadbeef", db.Blocks{&db.TextBlock{Text: "hi"}})
	assert.ErrorIs(t, err, ErrInvalidConvoID)

	_, err = alice.client.SendMessage(ctx, convoID, nil)
	assert.Error(t, err)
}

func TestTypingPropagation(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	convoID := connect(t, alice, bob)
	ctx := context.Background()

	events := make(chan db.TypingsChangedEvent, 4)
	sub := bob.store.SubscribeTypingsChanged(events)
	defer sub.Unsubscribe()

	require.NoError(t, alice.client.SetTyping(ctx, convoID, true))
	select {
	case ev := <-events:
		assert.Equal(t, convoID, ev.ConvoID)
		require.Len(t, ev.Peers, 1)
		assert.Equal(t, alice.id, ev.Peers[0].Profile.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("typing event never arrived")
	}

	// Typing is transient: the sender's own store is untouched.
	assert.ErrorIs(t, alice.client.SetTyping(ctx, "0xdeadbeef", true), ErrInvalidConvoID)
}

func TestCreateChannel(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	connect(t, alice, bob)
	ctx := context.Background()

	channel, err := alice.client.CreateChannel(ctx, "general", []string{bob.id, "0xnobody"}, false)
	require.NoError(t, err)
	assert.Equal(t, db.ConvoChannel, channel.Type)
	assert.Equal(t, "general", channel.Subject)
	assert.False(t, channel.Dark)
	// Unknown peer IDs are dropped; the creator itself is not a peer.
	require.Len(t, channel.Peers, 1)
	assert.Equal(t, bob.id, channel.Peers[0].Profile.ID)

	// Bob receives the invite on the direct topic and joins.
	waitFor(t, "channel join", func() bool { return bob.store.HasConversation(channel.ID) })
	bobChannel := bob.store.GetConversation(channel.ID)
	assert.Equal(t, db.ConvoChannel, bobChannel.Type)
	assert.Equal(t, "general", bobChannel.Subject)

	// Once both sides are subscribed, messages flow over the channel topic.
	topic, err := pss.ParseTopic(channel.ID)
	require.NoError(t, err)
	waitFor(t, "channel subscription", func() bool { return bob.trans.subscribed(topic) })

	added := make(chan db.MessageAddedEvent, 1)
	sub := bob.store.SubscribeMessageAdded(added)
	defer sub.Unsubscribe()
	_, err = alice.client.SendMessage(ctx, channel.ID, db.Blocks{&db.TextBlock{Text: "welcome"}})
	require.NoError(t, err)
	select {
	case ev := <-added:
		assert.Equal(t, channel.ID, ev.ConvoID)
	case <-time.After(3 * time.Second):
		t.Fatal("channel message never arrived")
	}
}

func TestCreateDarkChannel(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	connect(t, alice, bob)

	channel, err := alice.client.CreateChannel(context.Background(), "secret", []string{bob.id}, true)
	require.NoError(t, err)
	assert.True(t, channel.Dark)

	waitFor(t, "channel join", func() bool { return bob.store.HasConversation(channel.ID) })
	assert.True(t, bob.store.GetConversation(channel.ID).Dark)
}

func TestResendInvites(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	convoID := connect(t, alice, bob)
	ctx := context.Background()

	channel, err := alice.client.CreateChannel(ctx, "general", []string{bob.id}, false)
	require.NoError(t, err)
	waitFor(t, "channel join", func() bool { return bob.store.HasConversation(channel.ID) })

	resent, err := alice.client.ResendInvites(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, channel.ID, resent.ID)

	_, err = alice.client.ResendInvites(ctx, "0xdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidConvoID)
	_, err = alice.client.ResendInvites(ctx, convoID)
	assert.ErrorIs(t, err, ErrNotChannel)
}

func TestSubscribeToStoredConvos(t *testing.T) {
	net := newFakeNetwork()
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob")
	convoID := connect(t, alice, bob)
	ctx := context.Background()

	// A restarted node keeps its conversation records but none of its topic
	// sessions; rebuild them on a fresh client over the same store.
	restarted := New(alice.trans, alice.store)
	require.NoError(t, restarted.Setup(ctx))
	restarted.SubscribeToStoredConvos(ctx)
	waitFor(t, "rejoined session", func() bool {
		return restarted.getTopic(convoID) != nil
	})

	added := make(chan db.MessageAddedEvent, 4)
	sub := alice.store.SubscribeMessageAdded(added)
	defer sub.Unsubscribe()

	_, err := bob.client.SendMessage(ctx, convoID, db.Blocks{&db.TextBlock{Text: "still there?"}})
	require.NoError(t, err)
	waitFor(t, "message on rejoined topic", func() bool {
		select {
		case ev := <-added:
			return ev.ConvoID == convoID && ev.Message.Sender == bob.id
		default:
			return false
		}
	})

	// The rebuilt session is usable for outbound sends too.
	_, err = restarted.SendMessage(ctx, convoID, db.Blocks{&db.TextBlock{Text: "yes"}})
	require.NoError(t, err)
}

type fakeStakeChecker struct {
	staked map[string]bool
}

func (f *fakeStakeChecker) HasStake(ctx context.Context, address string) (bool, error) {
	return f.staked[address], nil
}

func TestContactRequestStakeCheck(t *testing.T) {
	net := newFakeNetwork()
	checker := &fakeStakeChecker{staked: map[string]bool{"0xaddralice": true}}
	alice := newTestNode(t, net, "alice")
	bob := newTestNode(t, net, "bob", WithStakeChecker(checker))

	_, err := alice.client.RequestContact(context.Background(), bob.id)
	require.NoError(t, err)
	waitFor(t, "contact request", func() bool { return bob.store.GetContactRequest(alice.id) != nil })
	// The requester's address is on the staked list, and that lands on the
	// recorded contact profile.
	assert.True(t, bob.store.GetContact(alice.id).Profile.HasStake)
}
