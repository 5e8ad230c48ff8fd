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

// Package client drives the messaging protocol over pss: contact requests,
// direct conversations and channels. It joins topics on the transport,
// decodes their event streams and translates them into store mutations.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/mainframehq/onyx-go/db"
	"github.com/mainframehq/onyx-go/protocol"
	"github.com/mainframehq/onyx-go/pss"
	"github.com/mainframehq/onyx-go/stake"
)

// contactTopicPrefix seeds the deterministic per-peer contact topic. Any
// node can derive another peer's contact topic from its public key alone,
// which is what makes unsolicited contact requests possible.
const contactTopicPrefix = "onyx:contact:"

var (
	ErrNoProfile       = errors.New("profile is not setup")
	ErrContactNotFound = errors.New("contact not found")
	ErrRequestNotFound = errors.New("contact request not found")
	ErrInvalidConvoID  = errors.New("invalid convoID")
	ErrNotChannel      = errors.New("conversation is not a channel")
)

// Client is the session manager: it owns the topic registry and implements
// the contact-request/accept/channel-invite protocol flows on top of the
// transport and the store.
type Client struct {
	transport pss.Transport
	store     *db.Store
	codec     *protocol.Codec
	stake     stake.Checker // optional
	log       log.Logger

	mu     sync.Mutex
	topics map[string]*pss.TopicSession
}

// Option configures optional collaborators of the client.
type Option func(*Client)

// WithStakeChecker gates peer acceptance on the given checker.
func WithStakeChecker(checker stake.Checker) Option {
	return func(c *Client) {
		c.stake = checker
	}
}

// New creates a session manager bound to a transport and a store. Call
// Setup before any protocol flow.
func New(transport pss.Transport, store *db.Store, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		store:     store,
		codec:     protocol.NewCodec(),
		log:       log.New("module", "client"),
		topics:    make(map[string]*pss.TopicSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Setup resolves the node's identity and binds the store to it. Must be
// called once before any other operation.
func (c *Client) Setup(ctx context.Context) error {
	id, err := c.transport.PublicKey(ctx)
	if err != nil {
		return fmt.Errorf("cannot get node public key: %v", err)
	}
	address, err := c.transport.BaseAddr(ctx)
	if err != nil {
		return fmt.Errorf("cannot get node base address: %v", err)
	}
	c.store.SetupStore(address, id)
	c.log.Info("Connected to Swarm node", "publickey", id)
	return nil
}

// Store exposes the underlying store to the API layer.
func (c *Client) Store() *db.Store {
	return c.store
}

func (c *Client) contactTopic(ctx context.Context, pubKey string) (pss.Topic, error) {
	return c.transport.StringToTopic(ctx, contactTopicPrefix+pubKey)
}

func (c *Client) randomTopic(ctx context.Context) (pss.Topic, error) {
	return c.transport.StringToTopic(ctx, uuid.NewString())
}

func (c *Client) registerTopic(session *pss.TopicSession) {
	c.mu.Lock()
	c.topics[session.ID()] = session
	c.mu.Unlock()
}

func (c *Client) getTopic(id string) *pss.TopicSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics[id]
}

// addTopic registers the session and materializes its conversation record
// unless one already exists from an earlier join.
func (c *Client) addTopic(session *pss.TopicSession, typ db.ConvoType, peers []string, channel *protocol.ChannelInvitePayload) {
	c.registerTopic(session)
	if c.store.HasConversation(session.ID()) {
		return
	}
	convo := &db.Conversation{
		ID:                  session.ID(),
		Type:                typ,
		Peers:               peers,
		Messages:            []*db.Message{},
		LastActiveTimestamp: nowMillis(),
	}
	if channel != nil {
		convo.Subject = channel.Subject
		convo.Dark = channel.Dark
	}
	c.store.SetConversation(convo)
}

// joinDirectTopic joins a two-party topic and registers the peer's key for
// it. The conversation record is created on first join.
func (c *Client) joinDirectTopic(ctx context.Context, topic pss.Topic, peer protocol.PeerInfo) (*pss.TopicSession, error) {
	session, err := pss.Join(ctx, c.transport, c.codec, topic)
	if err != nil {
		return nil, err
	}
	if err := c.setPeerPublicKey(ctx, peer.PubKey, topic, peer.Address); err != nil {
		session.Close()
		return nil, err
	}
	session.AddPeer(peer.PubKey)
	c.addTopic(session, db.ConvoDirect, []string{peer.PubKey}, nil)
	return session, nil
}

// joinChannelTopic joins a multi-party topic, creating contact stubs for
// peers never seen before and registering every peer's key.
func (c *Client) joinChannelTopic(ctx context.Context, channel *protocol.ChannelInvitePayload, otherPeers []protocol.PeerInfo) (*pss.TopicSession, error) {
	topic, err := pss.ParseTopic(channel.Topic)
	if err != nil {
		return nil, err
	}
	session, err := pss.Join(ctx, c.transport, c.codec, topic)
	if err != nil {
		return nil, err
	}
	peers := make([]string, 0, len(otherPeers))
	for _, peer := range otherPeers {
		if c.store.GetContact(peer.PubKey) == nil {
			c.store.SetContact(&db.Contact{
				Profile: &db.Profile{ID: peer.PubKey},
				Address: peer.Address,
			})
		}
		if err := c.setPeerPublicKey(ctx, peer.PubKey, topic, peer.Address); err != nil {
			c.log.Warn("Failed to register channel peer key", "topic", channel.Topic, "peer", peer.PubKey, "err", err)
			continue
		}
		session.AddPeer(peer.PubKey)
		peers = append(peers, peer.PubKey)
	}
	c.addTopic(session, db.ConvoChannel, peers, channel)
	return session, nil
}

// setPeerPublicKey registers a peer's key with the node. A stake refusal is
// recorded on the contact instead of failing the operation.
func (c *Client) setPeerPublicKey(ctx context.Context, pubKey string, topic pss.Topic, address string) error {
	err := c.transport.SetPeerPublicKey(ctx, pubKey, topic, address)
	if stake.IsNoStakeError(err) {
		c.log.Warn("Peer has no stake", "peer", pubKey)
		c.store.SetContactStake(pubKey, false)
		return nil
	}
	return err
}

// RequestContact initiates the contact handshake with a peer identified by
// its public key: a fresh direct topic is created and joined locally, and a
// contact request naming it is sent on the peer's well-known contact topic.
// The contact is recorded in SENT state before the send; a failed send
// leaves that last-known-intent state in place.
func (c *Client) RequestContact(ctx context.Context, id string) (*db.Contact, error) {
	profile := c.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return nil, ErrNoProfile
	}

	contactTopic, err := c.contactTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	newTopic, err := c.randomTopic(ctx)
	if err != nil {
		return nil, err
	}

	session, err := c.joinDirectTopic(ctx, newTopic, protocol.PeerInfo{PubKey: id})
	if err != nil {
		return nil, err
	}
	c.subscribeP2P(session)
	if err := c.setPeerPublicKey(ctx, id, contactTopic, ""); err != nil {
		return nil, err
	}

	contact := &db.Contact{
		Profile: &db.Profile{ID: id},
		ConvoID: session.ID(),
		State:   db.ContactSent,
	}
	if existing := c.store.GetContact(id); existing != nil {
		contact.Profile = existing.Profile
	}
	c.store.SetContact(contact)

	request := protocol.ContactRequest(&protocol.ContactRequestPayload{
		Address: c.store.Address(),
		Profile: profile,
		Topic:   newTopic.String(),
	})
	msg, err := c.codec.Encode(request)
	if err != nil {
		return nil, err
	}
	c.log.Info("Requesting contact", "id", id, "topic", newTopic)
	if err := c.transport.SendAsym(ctx, id, contactTopic, msg); err != nil {
		if stake.IsNoStakeError(err) {
			c.store.SetContactStake(id, false)
			return c.store.GetContact(id), nil
		}
		return nil, err
	}
	return c.store.GetContact(id), nil
}

// SetupContactTopic subscribes to the local user's own contact topic, where
// other peers send their contact requests. Requests are recorded for the
// user to accept; nothing is auto-accepted.
func (c *Client) SetupContactTopic(ctx context.Context) error {
	profile := c.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return ErrNoProfile
	}
	topic, err := c.contactTopic(ctx, profile.ID)
	if err != nil {
		return err
	}
	session, err := pss.Join(ctx, c.transport, c.codec, topic)
	if err != nil {
		return err
	}
	session.Register(func(msg *protocol.Received) {
		payload, ok := msg.Payload.(*protocol.ContactRequestPayload)
		if msg.Type != protocol.TypeContactRequest || !ok {
			c.log.Warn("Unexpected message on contact topic", "type", msg.Type)
			return
		}
		c.addContactRequest(ctx, payload)
	})
	c.registerTopic(session)
	return nil
}

// addContactRequest records an inbound contact request. When a stake
// checker is configured, the requester's stake is resolved first and
// recorded on the contact profile.
func (c *Client) addContactRequest(ctx context.Context, payload *protocol.ContactRequestPayload) {
	if payload.Profile == nil || payload.Profile.ID == "" {
		c.log.Warn("Dropping contact request without profile")
		return
	}
	profile := payload.Profile
	if c.stake != nil {
		hasStake, err := c.stake.HasStake(ctx, payload.Address)
		if err != nil {
			c.log.Warn("Stake check failed", "address", payload.Address, "err", err)
		} else {
			profile.HasStake = hasStake
		}
	}
	c.store.SetContactRequest(
		&db.Contact{Profile: profile, State: db.ContactReceived},
		&db.ContactRequest{Address: payload.Address, Topic: payload.Topic},
	)
}

// AcceptContact accepts a pending contact request: the direct topic named
// in the request is joined, the request deleted, the contact upgraded to
// ACCEPTED and the join announced to the peer so it can finalize its side.
func (c *Client) AcceptContact(ctx context.Context, id string) (*db.ContactData, error) {
	existing := c.store.GetContact(id)
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrContactNotFound, id)
	}
	request := c.store.GetContactRequest(id)
	if request == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	topic, err := pss.ParseTopic(request.Topic)
	if err != nil {
		return nil, err
	}
	session, err := c.joinDirectTopic(ctx, topic, protocol.PeerInfo{PubKey: id, Address: request.Address})
	if err != nil {
		return nil, err
	}
	c.subscribeP2P(session)

	c.store.DeleteContactRequest(id)
	c.store.SetContact(&db.Contact{
		Profile: existing.Profile,
		Address: request.Address,
		ConvoID: session.ID(),
		State:   db.ContactAccepted,
	})

	if err := session.Send(ctx, protocol.TopicJoined(c.store.GetProfile(), c.store.Address())); err != nil {
		c.log.Warn("Failed to announce topic join", "topic", session.ID(), "err", err)
	}
	return c.store.GetContactData(id), nil
}

// CreateChannel creates a multi-party conversation: a random topic joined
// with every resolved peer, invites delivered over the established direct
// conversations, and the join announced on the new topic. Unknown peer IDs
// are silently dropped. On dark channels peer addresses are withheld from
// the invite payload.
func (c *Client) CreateChannel(ctx context.Context, subject string, peerIDs []string, dark bool) (*db.ConversationData, error) {
	profile := c.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return nil, ErrNoProfile
	}
	topic, err := c.randomTopic(ctx)
	if err != nil {
		return nil, err
	}

	var contacts []*db.Contact
	for _, id := range peerIDs {
		if contact := c.store.GetContact(id); contact != nil {
			contacts = append(contacts, contact)
		}
	}
	peers := formatPeers(contacts, dark)

	ownAddress := ""
	if !dark {
		ownAddress = c.store.Address()
	}
	channel := &protocol.ChannelInvitePayload{
		Topic:   topic.String(),
		Subject: subject,
		Dark:    dark,
		Peers:   append([]protocol.PeerInfo{{PubKey: profile.ID, Address: ownAddress}}, peers...),
	}

	session, err := c.joinChannelTopic(ctx, channel, peers)
	if err != nil {
		return nil, err
	}
	c.subscribeChannel(session)

	c.invitePeersToChannel(ctx, channel, contacts)

	if err := session.Send(ctx, protocol.TopicJoined(profile, "")); err != nil {
		c.log.Warn("Failed to announce topic join", "topic", session.ID(), "err", err)
	}
	return c.store.GetConversationData(session.ID()), nil
}

// JoinChannel handles an inbound channel invite: the channel topic is
// joined with every peer of the invite, the join announced, and profiles
// requested from peers never seen before.
func (c *Client) JoinChannel(ctx context.Context, channel *protocol.ChannelInvitePayload) error {
	profile := c.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return ErrNoProfile
	}
	c.log.Info("Joining channel", "topic", channel.Topic, "subject", channel.Subject)

	var otherPeers []protocol.PeerInfo
	for _, peer := range channel.Peers {
		if peer.PubKey != profile.ID {
			otherPeers = append(otherPeers, peer)
		}
	}
	unknown := make(map[string]bool, len(otherPeers))
	for _, peer := range otherPeers {
		unknown[peer.PubKey] = c.store.GetContact(peer.PubKey) == nil
	}

	session, err := c.joinChannelTopic(ctx, channel, otherPeers)
	if err != nil {
		return err
	}
	c.subscribeChannel(session)

	if err := session.Send(ctx, protocol.TopicJoined(profile, c.store.Address())); err != nil {
		c.log.Warn("Failed to announce topic join", "topic", session.ID(), "err", err)
	}
	// Peers that were unknown before the invite have not shared a profile
	// yet; ask them directly rather than broadcasting.
	for _, peer := range otherPeers {
		if unknown[peer.PubKey] {
			if err := session.ToPeer(ctx, peer.PubKey, protocol.ProfileRequest()); err != nil {
				c.log.Warn("Failed to request profile", "peer", peer.PubKey, "err", err)
			}
		}
	}
	return nil
}

// ResendInvites resends the channel invite to every current peer of a
// channel, over their direct conversation topics. An explicit user-driven
// retry: nothing is resent automatically.
func (c *Client) ResendInvites(ctx context.Context, channelID string) (*db.ConversationData, error) {
	profile := c.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return nil, ErrNoProfile
	}
	convo := c.store.GetConversation(channelID)
	if convo == nil {
		return nil, ErrInvalidConvoID
	}
	if convo.Type != db.ConvoChannel {
		return nil, ErrNotChannel
	}

	var contacts []*db.Contact
	for _, id := range convo.Peers {
		if contact := c.store.GetContact(id); contact != nil {
			contacts = append(contacts, contact)
		}
	}
	ownAddress := ""
	if !convo.Dark {
		ownAddress = c.store.Address()
	}
	channel := &protocol.ChannelInvitePayload{
		Topic:   channelID,
		Subject: convo.Subject,
		Dark:    convo.Dark,
		Peers:   append([]protocol.PeerInfo{{PubKey: profile.ID, Address: ownAddress}}, formatPeers(contacts, convo.Dark)...),
	}
	c.invitePeersToChannel(ctx, channel, contacts)
	return c.store.GetConversationData(channelID), nil
}

// invitePeersToChannel delivers the invite over each contact's existing
// direct topic. Contacts without an established direct conversation are
// skipped: there is no channel to reach them on.
func (c *Client) invitePeersToChannel(ctx context.Context, channel *protocol.ChannelInvitePayload, contacts []*db.Contact) {
	for _, contact := range contacts {
		if contact.ConvoID == "" {
			continue
		}
		session := c.getTopic(contact.ConvoID)
		if session == nil {
			c.log.Warn("No session for contact convo", "convo", contact.ConvoID)
			continue
		}
		if err := session.Send(ctx, protocol.ChannelInvite(channel)); err != nil {
			c.log.Warn("Failed to send channel invite", "peer", contact.Profile.ID, "err", err)
		}
	}
}

// SendMessage publishes the blocks to the conversation's topic and appends
// the message to the local log.
func (c *Client) SendMessage(ctx context.Context, convoID string, blocks db.Blocks) (*db.Message, error) {
	session := c.getTopic(convoID)
	if session == nil {
		return nil, ErrInvalidConvoID
	}
	if len(blocks) == 0 {
		return nil, errors.New("empty message blocks")
	}
	if err := session.Send(ctx, protocol.TopicMessage(&protocol.TopicMessagePayload{
		Blocks: blocks,
		Source: db.SourceUser,
	})); err != nil {
		return nil, err
	}
	msg := c.store.AddMessage(convoID, &db.Message{Blocks: blocks, Source: db.SourceUser}, true)
	if msg == nil {
		return nil, ErrInvalidConvoID
	}
	return msg, nil
}

// SetTyping publishes the local user's typing state to the conversation's
// topic. The local typing set only tracks remote peers.
func (c *Client) SetTyping(ctx context.Context, convoID string, typing bool) error {
	session := c.getTopic(convoID)
	if session == nil {
		return ErrInvalidConvoID
	}
	return session.Send(ctx, protocol.TopicTyping(typing))
}

// SubscribeToStoredConvos rebuilds the topic sessions of every persisted
// conversation. Sessions are runtime-only: after a restart only the
// conversation records remain, so each topic is rejoined and its handler
// reattached. Rejoins run concurrently; one failed rejoin is logged and
// does not block the others.
func (c *Client) SubscribeToStoredConvos(ctx context.Context) {
	profile := c.store.GetProfile()
	for _, convo := range c.store.GetConversations("") {
		convo := convo
		switch convo.Type {
		case db.ConvoDirect:
			go func() {
				if err := c.resubscribeDirect(ctx, convo); err != nil {
					c.log.Warn("Failed to resubscribe to direct convo", "id", convo.ID, "err", err)
				}
			}()
		case db.ConvoChannel:
			if profile == nil || profile.ID == "" {
				continue
			}
			go func() {
				if err := c.resubscribeChannel(ctx, convo, profile.ID); err != nil {
					c.log.Warn("Failed to resubscribe to channel", "id", convo.ID, "err", err)
				}
			}()
		}
	}
}

func (c *Client) resubscribeDirect(ctx context.Context, convo *db.ConversationData) error {
	if len(convo.Peers) == 0 || convo.Peers[0] == nil {
		return fmt.Errorf("direct convo has no stored peer")
	}
	peer := convo.Peers[0]
	topic, err := pss.ParseTopic(convo.ID)
	if err != nil {
		return err
	}
	session, err := c.joinDirectTopic(ctx, topic, protocol.PeerInfo{
		PubKey:  peer.Profile.ID,
		Address: peer.Address,
	})
	if err != nil {
		return err
	}
	c.subscribeP2P(session)
	return nil
}

func (c *Client) resubscribeChannel(ctx context.Context, convo *db.ConversationData, ownID string) error {
	var peers []protocol.PeerInfo
	for _, peer := range convo.Peers {
		if peer.Profile != nil && peer.Profile.ID != ownID {
			peers = append(peers, protocol.PeerInfo{PubKey: peer.Profile.ID, Address: peer.Address})
		}
	}
	channel := &protocol.ChannelInvitePayload{
		Topic:   convo.ID,
		Subject: convo.Subject,
		Dark:    convo.Dark,
	}
	session, err := c.joinChannelTopic(ctx, channel, peers)
	if err != nil {
		return err
	}
	c.subscribeChannel(session)
	return nil
}

// subscribeP2P attaches the direct-conversation dispatcher to a session.
// Channel invites only ride on direct topics.
func (c *Client) subscribeP2P(session *pss.TopicSession) {
	logger := log.New("topic", session.ID(), "kind", "p2p")
	session.Register(func(msg *protocol.Received) {
		logger.Trace("Received message", "type", msg.Type, "sender", msg.Sender)
		switch msg.Type {
		case protocol.TypeChannelInvite:
			payload := msg.Payload.(*protocol.ChannelInvitePayload)
			// Joining subscribes to another topic; do not block this
			// topic's dispatch loop on it.
			go func() {
				if err := c.JoinChannel(context.Background(), payload); err != nil {
					logger.Warn("Failed to join channel", "topic", payload.Topic, "err", err)
				}
			}()
		case protocol.TypeTopicJoined:
			payload := msg.Payload.(*protocol.TopicJoinedPayload)
			c.handleTopicJoined(session, payload)
			c.store.UpsertContact(&db.Contact{
				Profile: payload.Profile,
				Address: payload.Address,
				State:   db.ContactAccepted,
			})
		case protocol.TypeTopicMessage, protocol.TypeTopicTyping:
			c.handleTopicMessage(session, msg)
		default:
			logger.Debug("Unhandled message type", "type", msg.Type)
		}
	})
}

// subscribeChannel attaches the channel dispatcher to a session. Profile
// exchange happens on channels, where invited peers may have never talked
// directly.
func (c *Client) subscribeChannel(session *pss.TopicSession) {
	logger := log.New("topic", session.ID(), "kind", "channel")
	session.Register(func(msg *protocol.Received) {
		logger.Trace("Received message", "type", msg.Type, "sender", msg.Sender)
		switch msg.Type {
		case protocol.TypeProfileRequest:
			profile := c.store.GetProfile()
			if profile == nil || profile.ID == "" {
				logger.Debug("Received profile request before profile is setup, ignoring")
				return
			}
			if err := session.ToPeer(context.Background(), msg.Sender, protocol.ProfileResponse(profile)); err != nil {
				logger.Warn("Failed to send profile response", "peer", msg.Sender, "err", err)
			}
		case protocol.TypeProfileResponse:
			payload := msg.Payload.(*protocol.ProfileResponsePayload)
			c.store.UpsertContact(&db.Contact{Profile: payload.Profile})
		case protocol.TypeTopicJoined:
			payload := msg.Payload.(*protocol.TopicJoinedPayload)
			c.handleTopicJoined(session, payload)
			// Always record the latest profile provided by the peer.
			c.store.UpsertContact(&db.Contact{Profile: payload.Profile})
		case protocol.TypeTopicMessage, protocol.TypeTopicTyping:
			c.handleTopicMessage(session, msg)
		default:
			logger.Debug("Unhandled message type", "type", msg.Type)
		}
	})
}

// handleTopicJoined refreshes the peer's key registration when the
// announcement carries a more specific routing address than the one on
// record.
func (c *Client) handleTopicJoined(session *pss.TopicSession, payload *protocol.TopicJoinedPayload) {
	if payload.Profile == nil || payload.Profile.ID == "" {
		return
	}
	contact := c.store.GetContact(payload.Profile.ID)
	if contact == nil || len(contact.Address) >= len(payload.Address) {
		return
	}
	if err := c.setPeerPublicKey(context.Background(), contact.Profile.ID, session.Topic(), payload.Address); err != nil {
		c.log.Warn("Failed to update peer key", "peer", contact.Profile.ID, "err", err)
	}
}

func (c *Client) handleTopicMessage(session *pss.TopicSession, msg *protocol.Received) {
	switch payload := msg.Payload.(type) {
	case *protocol.TopicMessagePayload:
		c.store.AddMessage(session.ID(), &db.Message{
			Sender: msg.Sender,
			Blocks: payload.Blocks,
			Source: payload.Source,
		}, false)
	case *protocol.TopicTypingPayload:
		c.store.SetTyping(session.ID(), msg.Sender, payload.Typing)
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func formatPeers(contacts []*db.Contact, dark bool) []protocol.PeerInfo {
	peers := make([]protocol.PeerInfo, 0, len(contacts))
	for _, contact := range contacts {
		address := ""
		if !dark {
			address = contact.Address
		}
		peers = append(peers, protocol.PeerInfo{PubKey: contact.Profile.ID, Address: address})
	}
	return peers
}
