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

// Package db holds the authoritative state of the local user: profile,
// contacts, conversations and messages. All mutation is serialized by the
// store lock and persisted write-through to a leveldb keyed store; every
// mutation notifies the change feeds consumed by the API layer.
package db

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// typingTimeout is how long a peer stays in the typing set without a
// refresh. A variable so tests can shorten the wait.
var typingTimeout = 10 * time.Second

// typingTimer is the typing-set entry for one (conversation, peer) pair.
// Each refresh installs a fresh entry; the expiry callback compares entry
// identity so a stale timer cannot evict its replacement.
type typingTimer struct {
	timer *time.Timer
}

// Persisted key layout. Record keys are "<prefix><id>".
const (
	keyAddress    = "address"
	keyProfile    = "profile"
	prefixContact = "contacts:"
	prefixRequest = "contactRequests:"
	prefixConvo   = "convos:"
	prefixAction  = "actions:"
)

// Store is the single source of truth of the messaging state. Mutators are
// synchronous with respect to the caller and emit change notifications
// after the mutation is applied. Invalid references supplied by network
// handlers degrade to logged no-ops, never panics or errors: the network
// may legitimately act on stale state.
type Store struct {
	ldb *leveldb.DB
	log log.Logger

	mu       sync.RWMutex
	address  string
	profile  *Profile
	contacts map[string]*Contact
	requests map[string]*ContactRequest
	convos   map[string]*Conversation
	actions  map[string]*Action
	typings  map[string]map[string]*typingTimer

	contactChangedFeed   event.FeedOf[*ContactData]
	contactsChangedFeed  event.FeedOf[struct{}]
	channelsChangedFeed  event.FeedOf[struct{}]
	contactRequestedFeed event.FeedOf[*Profile]
	messageAddedFeed     event.FeedOf[MessageAddedEvent]
	typingsChangedFeed   event.FeedOf[TypingsChangedEvent]
}

// Open opens (or creates) the store at the given path.
func Open(path string) (*Store, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return newStore(ldb)
}

// OpenMemory opens an ephemeral store backed by in-memory storage.
func OpenMemory() (*Store, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newStore(ldb)
}

func newStore(ldb *leveldb.DB) (*Store, error) {
	s := &Store{
		ldb:      ldb,
		log:      log.New("module", "db"),
		contacts: make(map[string]*Contact),
		requests: make(map[string]*ContactRequest),
		convos:   make(map[string]*Conversation),
		actions:  make(map[string]*Action),
		typings:  make(map[string]map[string]*typingTimer),
	}
	if err := s.load(); err != nil {
		ldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	it := s.ldb.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		key, value := string(it.Key()), it.Value()
		switch {
		case key == keyAddress:
			s.address = string(value)
		case key == keyProfile:
			s.profile = new(Profile)
			if err := json.Unmarshal(value, s.profile); err != nil {
				return err
			}
		case strings.HasPrefix(key, prefixContact):
			contact := new(Contact)
			if err := json.Unmarshal(value, contact); err != nil {
				return err
			}
			s.contacts[strings.TrimPrefix(key, prefixContact)] = contact
		case strings.HasPrefix(key, prefixRequest):
			request := new(ContactRequest)
			if err := json.Unmarshal(value, request); err != nil {
				return err
			}
			s.requests[strings.TrimPrefix(key, prefixRequest)] = request
		case strings.HasPrefix(key, prefixConvo):
			convo := new(Conversation)
			if err := json.Unmarshal(value, convo); err != nil {
				return err
			}
			s.convos[strings.TrimPrefix(key, prefixConvo)] = convo
		case strings.HasPrefix(key, prefixAction):
			action := new(Action)
			if err := json.Unmarshal(value, action); err != nil {
				return err
			}
			s.actions[strings.TrimPrefix(key, prefixAction)] = action
		default:
			s.log.Warn("Unknown key in store", "key", key)
		}
	}
	return it.Error()
}

// Close flushes and closes the underlying database. Typing timers are
// stopped; in-flight notifications are not drained.
func (s *Store) Close() error {
	s.mu.Lock()
	s.stopTypingTimersLocked()
	s.mu.Unlock()
	return s.ldb.Close()
}

// SetupStore records the transport identity resolved at startup. If a
// previously persisted identity differs, the whole store is wiped first:
// state written under one key pair must never leak into another.
func (s *Store) SetupStore(address, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile != nil && s.profile.ID != "" && s.profile.ID != id {
		s.log.Info("Stored identity changed, resetting state", "stored", s.profile.ID, "new", id)
		s.resetLocked()
	}
	if s.profile == nil {
		s.profile = new(Profile)
	}
	s.profile.ID = id
	s.address = address
	s.put(keyProfile, s.profile)
	s.putRaw(keyAddress, []byte(address))
}

func (s *Store) resetLocked() {
	s.stopTypingTimersLocked()
	batch := new(leveldb.Batch)
	it := s.ldb.NewIterator(nil, nil)
	for it.Next() {
		batch.Delete(append([]byte{}, it.Key()...))
	}
	it.Release()
	if err := s.ldb.Write(batch, nil); err != nil {
		s.log.Error("Failed to wipe store", "err", err)
	}
	s.address = ""
	s.profile = nil
	s.contacts = make(map[string]*Contact)
	s.requests = make(map[string]*ContactRequest)
	s.convos = make(map[string]*Conversation)
	s.actions = make(map[string]*Action)
	s.typings = make(map[string]map[string]*typingTimer)
}

func (s *Store) stopTypingTimersLocked() {
	for _, peers := range s.typings {
		for _, entry := range peers {
			entry.timer.Stop()
		}
	}
}

// Address returns the transport routing address recorded at startup.
func (s *Store) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// SetProfile stores the local user's profile. The local user always has
// stake from its own point of view.
func (s *Store) SetProfile(profile *Profile) {
	s.mu.Lock()
	profile.HasStake = true
	s.profile = copyProfile(profile)
	s.put(keyProfile, s.profile)
	s.mu.Unlock()
}

// GetProfile returns the local user's profile, or nil before setup.
func (s *Store) GetProfile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfile(s.profile)
}

// SetContact upserts the contact record and notifies both the per-contact
// and the list-level feeds.
func (s *Store) SetContact(contact *Contact) {
	s.mu.Lock()
	s.setContactLocked(contact)
	data := s.getContactDataLocked(contact.Profile.ID)
	s.mu.Unlock()
	s.contactChangedFeed.Send(data)
	s.contactsChangedFeed.Send(struct{}{})
}

func (s *Store) setContactLocked(contact *Contact) {
	id := contact.Profile.ID
	s.contacts[id] = contact
	s.put(prefixContact+id, contact)
	s.log.Debug("Set contact", "id", id, "state", contact.State)
}

// UpsertContact deep-merges the given fields into the existing contact
// record, or inserts it whole. Partial profile data arriving piecemeal from
// the network never erases fields learned earlier.
func (s *Store) UpsertContact(contact *Contact) {
	if contact == nil || contact.Profile == nil || contact.Profile.ID == "" {
		s.log.Warn("Ignoring contact upsert without profile ID")
		return
	}
	s.mu.Lock()
	if existing, ok := s.contacts[contact.Profile.ID]; ok {
		contact = mergeContact(existing, contact)
	}
	s.setContactLocked(contact)
	data := s.getContactDataLocked(contact.Profile.ID)
	s.mu.Unlock()
	s.contactChangedFeed.Send(data)
	s.contactsChangedFeed.Send(struct{}{})
}

func mergeContact(existing, incoming *Contact) *Contact {
	merged := *existing
	if merged.Profile != nil {
		profile := *merged.Profile
		merged.Profile = &profile
	} else {
		merged.Profile = new(Profile)
	}
	if p := incoming.Profile; p != nil {
		if p.ID != "" {
			merged.Profile.ID = p.ID
		}
		if p.Name != "" {
			merged.Profile.Name = p.Name
		}
		if p.Avatar != "" {
			merged.Profile.Avatar = p.Avatar
		}
		if p.Bio != "" {
			merged.Profile.Bio = p.Bio
		}
		// Stake is only granted here; revocation goes through
		// SetContactStake where it is explicit.
		if p.HasStake {
			merged.Profile.HasStake = true
		}
	}
	if incoming.Address != "" {
		merged.Address = incoming.Address
	}
	if incoming.ConvoID != "" {
		merged.ConvoID = incoming.ConvoID
	}
	if incoming.State != "" {
		merged.State = incoming.State
	}
	return &merged
}

// GetContact returns the raw contact record, or nil if unknown.
func (s *Store) GetContact(id string) *Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyContact(s.contacts[id])
}

// GetContactData returns the contact with its direct conversation resolved.
func (s *Store) GetContactData(id string) *ContactData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getContactDataLocked(id)
}

func (s *Store) getContactDataLocked(id string) *ContactData {
	contact := s.contacts[id]
	if contact == nil {
		return nil
	}
	data := &ContactData{Contact: *copyContact(contact)}
	if contact.ConvoID != "" {
		data.Convo = s.getConversationDataLocked(contact.ConvoID)
	}
	return data
}

// GetContacts returns all known contacts with their conversations resolved.
func (s *Store) GetContacts() []*ContactData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contacts := make([]*ContactData, 0, len(s.contacts))
	for id := range s.contacts {
		contacts = append(contacts, s.getContactDataLocked(id))
	}
	return contacts
}

// SetContactStake flips the stake flag of a known contact, driven by the
// stake checker or by "No stake found" transport errors.
func (s *Store) SetContactStake(id string, hasStake bool) {
	s.mu.Lock()
	contact, ok := s.contacts[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if contact.Profile == nil {
		contact.Profile = &Profile{ID: id}
	}
	contact.Profile.HasStake = hasStake
	s.setContactLocked(contact)
	data := s.getContactDataLocked(id)
	s.mu.Unlock()
	s.contactChangedFeed.Send(data)
	s.contactsChangedFeed.Send(struct{}{})
}

// SetContactRequest records a pending inbound contact request together with
// its contact stub.
func (s *Store) SetContactRequest(contact *Contact, request *ContactRequest) {
	id := contact.Profile.ID
	s.mu.Lock()
	s.setContactLocked(contact)
	s.requests[id] = request
	s.put(prefixRequest+id, request)
	profile := copyProfile(contact.Profile)
	s.mu.Unlock()
	s.log.Info("Received contact request", "id", id)
	s.contactsChangedFeed.Send(struct{}{})
	s.contactRequestedFeed.Send(profile)
}

// GetContactRequest returns the pending request of a peer, or nil.
func (s *Store) GetContactRequest(id string) *ContactRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request := s.requests[id]
	if request == nil {
		return nil
	}
	r := *request
	return &r
}

// DeleteContactRequest drops the pending request of a peer.
func (s *Store) DeleteContactRequest(id string) {
	s.mu.Lock()
	delete(s.requests, id)
	s.del(prefixRequest + id)
	s.mu.Unlock()
}

// HasConversation reports whether a conversation exists for the topic.
func (s *Store) HasConversation(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.convos[id]
	return ok
}

// SetConversation upserts the conversation. The notification is a
// deliberately coarse refetch signal on the list matching the conversation
// type.
func (s *Store) SetConversation(convo *Conversation) {
	s.mu.Lock()
	s.setConversationLocked(convo)
	s.mu.Unlock()
	s.emitConvosChanged(convo.Type)
}

func (s *Store) setConversationLocked(convo *Conversation) {
	s.convos[convo.ID] = convo
	s.put(prefixConvo+convo.ID, convo)
	s.log.Debug("Set conversation", "id", convo.ID, "type", convo.Type)
}

func (s *Store) emitConvosChanged(typ ConvoType) {
	if typ == ConvoChannel {
		s.channelsChangedFeed.Send(struct{}{})
	} else {
		s.contactsChangedFeed.Send(struct{}{})
	}
}

// GetConversation returns the raw conversation with peers as IDs, or nil.
func (s *Store) GetConversation(id string) *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyConversationLocked(s.convos[id])
}

// GetConversationData returns the conversation with peers resolved to
// contacts, or nil.
func (s *Store) GetConversationData(id string) *ConversationData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getConversationDataLocked(id)
}

func (s *Store) getConversationDataLocked(id string) *ConversationData {
	convo := s.convos[id]
	if convo == nil {
		return nil
	}
	peers := make([]*ContactData, 0, len(convo.Peers))
	for _, peerID := range convo.Peers {
		if contact := s.contacts[peerID]; contact != nil {
			peers = append(peers, &ContactData{Contact: *copyContact(contact)})
		}
	}
	return &ConversationData{
		ID:                  convo.ID,
		Type:                convo.Type,
		Subject:             convo.Subject,
		Dark:                convo.Dark,
		Peers:               peers,
		Messages:            s.resolveMessagesLocked(convo.Messages),
		MessageCount:        convo.MessageCount,
		Pointer:             convo.Pointer,
		LastActiveTimestamp: convo.LastActiveTimestamp,
	}
}

// resolveMessagesLocked substitutes action blocks with the current state of
// the action registry, so consumers always see the latest action state.
func (s *Store) resolveMessagesLocked(messages []*Message) []*Message {
	resolved := make([]*Message, len(messages))
	for i, msg := range messages {
		resolved[i] = msg
		for j, block := range msg.Blocks {
			actionBlock, ok := block.(*ActionBlock)
			if !ok || actionBlock.Action == nil {
				continue
			}
			action := s.actions[actionBlock.Action.ID]
			if action == nil {
				continue
			}
			m := *msg
			m.Blocks = append(Blocks{}, msg.Blocks...)
			m.Blocks[j] = &ActionBlock{Action: action.Data}
			resolved[i] = &m
		}
	}
	return resolved
}

// GetConversations returns all conversations with peers resolved,
// optionally filtered by type.
func (s *Store) GetConversations(filter ConvoType) []*ConversationData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convos := make([]*ConversationData, 0, len(s.convos))
	for id, convo := range s.convos {
		if filter != "" && convo.Type != filter {
			continue
		}
		convos = append(convos, s.getConversationDataLocked(id))
	}
	return convos
}

// GetChannels returns all channel conversations.
func (s *Store) GetChannels() []*ConversationData {
	return s.GetConversations(ConvoChannel)
}

// GetViewer aggregates the local user's state for the API layer.
func (s *Store) GetViewer() *Viewer {
	return &Viewer{
		Channels: s.GetChannels(),
		Contacts: s.GetContacts(),
		Profile:  s.GetProfile(),
	}
}

// UpdateConversationPointer marks the conversation read: the pointer is
// advanced to the end of the message log. A no-op when already there.
func (s *Store) UpdateConversationPointer(id string) *Conversation {
	s.mu.Lock()
	convo, ok := s.convos[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if convo.Pointer == len(convo.Messages) {
		updated := s.copyConversationLocked(convo)
		s.mu.Unlock()
		return updated
	}
	convo.Pointer = len(convo.Messages)
	convo.LastActiveTimestamp = nowMillis()
	s.setConversationLocked(convo)
	updated := s.copyConversationLocked(convo)
	s.mu.Unlock()
	s.emitConvosChanged(updated.Type)
	return updated
}

// AddMessage appends a message to the conversation's log, stamping its
// timestamp at append time. Messages from the local user advance the read
// pointer: the sender has read what it wrote. Returns the stamped message,
// or nil when the conversation (or, for own messages, the profile) is
// missing; both can legitimately happen on racy network events and degrade
// to logged no-ops.
func (s *Store) AddMessage(id string, msg *Message, fromSelf bool) *Message {
	s.mu.Lock()
	convo, ok := s.convos[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("Invalid addMessage call: conversation not found", "id", id)
		return nil
	}
	if fromSelf {
		if s.profile == nil || s.profile.ID == "" {
			s.mu.Unlock()
			s.log.Warn("Invalid addMessage call from self: profile ID is not defined")
			return nil
		}
		msg.Sender = s.profile.ID
	}
	if msg.Source == "" {
		msg.Source = SourceUser
	}
	now := nowMillis()
	msg.Timestamp = now
	convo.LastActiveTimestamp = now
	convo.Messages = append(convo.Messages, msg)
	convo.MessageCount = len(convo.Messages)
	if fromSelf {
		convo.Pointer = convo.MessageCount
	}
	s.setConversationLocked(convo)
	typ := convo.Type
	s.mu.Unlock()
	s.emitConvosChanged(typ)
	s.messageAddedFeed.Send(MessageAddedEvent{ConvoID: id, Message: msg})
	return msg
}

// SetTyping maintains the transient per-conversation typing set. Setting
// typing restarts the peer's expiry timer; clearing removes it.
func (s *Store) SetTyping(convoID, peerID string, typing bool) {
	s.mu.Lock()
	peerTimers := s.typings[convoID]
	if peerTimers == nil {
		if !typing {
			// Nothing to do.
			s.mu.Unlock()
			return
		}
		peerTimers = make(map[string]*typingTimer)
		s.typings[convoID] = peerTimers
	} else if entry := peerTimers[peerID]; entry != nil {
		entry.timer.Stop()
		delete(peerTimers, peerID)
	}
	if typing {
		entry := new(typingTimer)
		entry.timer = time.AfterFunc(typingTimeout, func() {
			s.expireTyping(convoID, peerID, entry)
		})
		peerTimers[peerID] = entry
	}
	peers := s.typingPeersLocked(convoID)
	s.mu.Unlock()
	s.typingsChangedFeed.Send(TypingsChangedEvent{ConvoID: convoID, Peers: peers})
}

// expireTyping removes a peer whose timer elapsed. Stopping a fired timer
// returns false, so an expiry raced with a refresh can still run; it must
// only remove the entry it was armed for, never a newer one.
func (s *Store) expireTyping(convoID, peerID string, entry *typingTimer) {
	s.mu.Lock()
	peerTimers := s.typings[convoID]
	if peerTimers == nil || peerTimers[peerID] != entry {
		s.mu.Unlock()
		return
	}
	delete(peerTimers, peerID)
	peers := s.typingPeersLocked(convoID)
	s.mu.Unlock()
	s.typingsChangedFeed.Send(TypingsChangedEvent{ConvoID: convoID, Peers: peers})
}

func (s *Store) typingPeersLocked(convoID string) []*Contact {
	peerTimers := s.typings[convoID]
	peers := make([]*Contact, 0, len(peerTimers))
	for id := range peerTimers {
		if contact := s.contacts[id]; contact != nil {
			peers = append(peers, copyContact(contact))
		}
	}
	return peers
}

// SetAction records an action in the registry, keyed by its ID.
func (s *Store) SetAction(convoID string, data *ActionData) *Action {
	action := &Action{ConvoID: convoID, Data: data}
	s.mu.Lock()
	s.actions[data.ID] = action
	s.put(prefixAction+data.ID, action)
	s.mu.Unlock()
	return action
}

// GetAction returns the action with the given ID, or nil.
func (s *Store) GetAction(id string) *Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions[id]
}

func (s *Store) copyConversationLocked(convo *Conversation) *Conversation {
	if convo == nil {
		return nil
	}
	c := *convo
	c.Peers = append([]string{}, convo.Peers...)
	c.Messages = convo.Messages[:len(convo.Messages):len(convo.Messages)]
	return &c
}

func copyContact(contact *Contact) *Contact {
	if contact == nil {
		return nil
	}
	c := *contact
	c.Profile = copyProfile(contact.Profile)
	return &c
}

func copyProfile(profile *Profile) *Profile {
	if profile == nil {
		return nil
	}
	p := *profile
	return &p
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (s *Store) put(key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode record", "key", key, "err", err)
		return
	}
	s.putRaw(key, data)
}

func (s *Store) putRaw(key string, data []byte) {
	if err := s.ldb.Put([]byte(key), data, nil); err != nil {
		s.log.Error("Failed to persist record", "key", key, "err", err)
	}
}

func (s *Store) del(key string) {
	if err := s.ldb.Delete([]byte(key), nil); err != nil {
		s.log.Error("Failed to delete record", "key", key, "err", err)
	}
}
