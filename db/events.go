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

import "github.com/ethereum/go-ethereum/event"

// MessageAddedEvent is posted when a message is appended to a conversation.
type MessageAddedEvent struct {
	ConvoID string
	Message *Message
}

// TypingsChangedEvent is posted when the set of peers typing in a
// conversation changes, including changes caused by expiry.
type TypingsChangedEvent struct {
	ConvoID string
	Peers   []*Contact
}

// SubscribeContactChanged registers for updates of individual contacts. The
// delivered value is the updated contact with its conversation resolved.
func (s *Store) SubscribeContactChanged(ch chan<- *ContactData) event.Subscription {
	return s.contactChangedFeed.Subscribe(ch)
}

// SubscribeContactsChanged registers for coarse-grained "contact list
// changed" signals. Subscribers are expected to refetch.
func (s *Store) SubscribeContactsChanged(ch chan<- struct{}) event.Subscription {
	return s.contactsChangedFeed.Subscribe(ch)
}

// SubscribeChannelsChanged registers for coarse-grained "channel list
// changed" signals.
func (s *Store) SubscribeChannelsChanged(ch chan<- struct{}) event.Subscription {
	return s.channelsChangedFeed.Subscribe(ch)
}

// SubscribeContactRequested registers for inbound contact requests. The
// delivered value is the requester's profile.
func (s *Store) SubscribeContactRequested(ch chan<- *Profile) event.Subscription {
	return s.contactRequestedFeed.Subscribe(ch)
}

// SubscribeMessageAdded registers for appended messages across all
// conversations.
func (s *Store) SubscribeMessageAdded(ch chan<- MessageAddedEvent) event.Subscription {
	return s.messageAddedFeed.Subscribe(ch)
}

// SubscribeTypingsChanged registers for typing-state changes across all
// conversations.
func (s *Store) SubscribeTypingsChanged(ch chan<- TypingsChangedEvent) event.Subscription {
	return s.typingsChangedFeed.Subscribe(ch)
}
