// Copyright 2019 The onyx-go Authors
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

// Package graphql exposes the messaging core to UI clients. It is a thin
// translation layer: queries read the store, mutations call into the
// session manager, subscriptions bridge the store change feeds.
package graphql

import (
	"context"
	"encoding/json"

	graphqlgo "github.com/graph-gophers/graphql-go"

	"github.com/mainframehq/onyx-go/client"
	"github.com/mainframehq/onyx-go/db"
)

// subBuffer is the feed channel depth of one GraphQL subscription. The
// store feeds do not drop slow subscribers, so the bridge needs slack while
// a websocket write is in flight.
const subBuffer = 16

// Resolver is the root resolver for queries, mutations and subscriptions.
type Resolver struct {
	client    *client.Client
	store     *db.Store
	serverURL string
}

// NewResolver creates the root resolver around the session manager.
func NewResolver(c *client.Client, serverURL string) *Resolver {
	return &Resolver{client: c, store: c.Store(), serverURL: serverURL}
}

// JSONValue implements the JSON scalar used for message block input.
type JSONValue struct {
	value interface{}
}

// ImplementsGraphQLType maps the scalar name to this type.
func (JSONValue) ImplementsGraphQLType(name string) bool {
	return name == "JSON"
}

// UnmarshalGraphQL accepts any JSON value.
func (v *JSONValue) UnmarshalGraphQL(input interface{}) error {
	v.value = input
	return nil
}

// MarshalJSON returns the wrapped value.
func (v JSONValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.value)
}

// Queries.

func (r *Resolver) Contact(args struct{ ID graphqlgo.ID }) *contactResolver {
	data := r.store.GetContactData(string(args.ID))
	if data == nil {
		return nil
	}
	return &contactResolver{data}
}

func (r *Resolver) Conversation(args struct{ ID graphqlgo.ID }) *conversationResolver {
	data := r.store.GetConversationData(string(args.ID))
	if data == nil {
		return nil
	}
	return &conversationResolver{data}
}

func (r *Resolver) ServerURL() string {
	return r.serverURL
}

func (r *Resolver) Viewer() *viewerResolver {
	return &viewerResolver{r.store.GetViewer()}
}

// Mutations.

func (r *Resolver) AcceptContact(ctx context.Context, args struct{ ID graphqlgo.ID }) (*contactResolver, error) {
	data, err := r.client.AcceptContact(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &contactResolver{data}, nil
}

type channelInput struct {
	Subject string
	Peers   []graphqlgo.ID
	Dark    bool
}

func (r *Resolver) CreateChannel(ctx context.Context, args struct{ Input channelInput }) (*conversationResolver, error) {
	peers := make([]string, len(args.Input.Peers))
	for i, id := range args.Input.Peers {
		peers[i] = string(id)
	}
	data, err := r.client.CreateChannel(ctx, args.Input.Subject, peers, args.Input.Dark)
	if err != nil {
		return nil, err
	}
	return &conversationResolver{data}, nil
}

func (r *Resolver) RequestContact(ctx context.Context, args struct{ ID graphqlgo.ID }) (*contactResolver, error) {
	if _, err := r.client.RequestContact(ctx, string(args.ID)); err != nil {
		return nil, err
	}
	data := r.store.GetContactData(string(args.ID))
	if data == nil {
		return nil, client.ErrContactNotFound
	}
	return &contactResolver{data}, nil
}

type messageInput struct {
	ConvoID graphqlgo.ID
	Blocks  []JSONValue
}

func (r *Resolver) SendMessage(ctx context.Context, args struct{ Input messageInput }) (*messageResolver, error) {
	blocks, err := decodeBlocks(args.Input.Blocks)
	if err != nil {
		return nil, err
	}
	msg, err := r.client.SendMessage(ctx, string(args.Input.ConvoID), blocks)
	if err != nil {
		return nil, err
	}
	return &messageResolver{msg}, nil
}

type typingInput struct {
	ConvoID graphqlgo.ID
	Typing  bool
}

func (r *Resolver) SetTyping(ctx context.Context, args struct{ Input typingInput }) (*conversationResolver, error) {
	if err := r.client.SetTyping(ctx, string(args.Input.ConvoID), args.Input.Typing); err != nil {
		return nil, err
	}
	data := r.store.GetConversationData(string(args.Input.ConvoID))
	if data == nil {
		return nil, client.ErrInvalidConvoID
	}
	return &conversationResolver{data}, nil
}

func (r *Resolver) UpdatePointer(args struct{ ID graphqlgo.ID }) (*conversationResolver, error) {
	if convo := r.store.UpdateConversationPointer(string(args.ID)); convo == nil {
		return nil, client.ErrInvalidConvoID
	}
	return &conversationResolver{r.store.GetConversationData(string(args.ID))}, nil
}

func (r *Resolver) ResendInvites(ctx context.Context, args struct{ ID graphqlgo.ID }) (*conversationResolver, error) {
	data, err := r.client.ResendInvites(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &conversationResolver{data}, nil
}

type profileInput struct {
	Avatar *string
	Name   string
	Bio    *string
}

func (r *Resolver) UpdateProfile(args struct{ Input profileInput }) (*profileResolver, error) {
	profile := r.store.GetProfile()
	if profile == nil || profile.ID == "" {
		return nil, client.ErrNoProfile
	}
	profile.Name = args.Input.Name
	if args.Input.Avatar != nil {
		profile.Avatar = *args.Input.Avatar
	}
	if args.Input.Bio != nil {
		profile.Bio = *args.Input.Bio
	}
	r.store.SetProfile(profile)
	return &profileResolver{r.store.GetProfile()}, nil
}

func decodeBlocks(values []JSONValue) (db.Blocks, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	var blocks db.Blocks
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Subscriptions. Each bridges one store feed to a resolver channel,
// filtering by ID where the subscription takes one, until the client
// disconnects.

func (r *Resolver) ChannelsChanged(ctx context.Context) <-chan *viewerResolver {
	events := make(chan struct{}, subBuffer)
	sub := r.store.SubscribeChannelsChanged(events)
	out := make(chan *viewerResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-events:
				select {
				case out <- &viewerResolver{r.store.GetViewer()}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Resolver) ContactsChanged(ctx context.Context) <-chan *viewerResolver {
	events := make(chan struct{}, subBuffer)
	sub := r.store.SubscribeContactsChanged(events)
	out := make(chan *viewerResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-events:
				select {
				case out <- &viewerResolver{r.store.GetViewer()}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Resolver) ContactChanged(ctx context.Context, args struct{ ID graphqlgo.ID }) <-chan *contactResolver {
	events := make(chan *db.ContactData, subBuffer)
	sub := r.store.SubscribeContactChanged(events)
	out := make(chan *contactResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case data := <-events:
				if data == nil || data.Profile == nil || data.Profile.ID != string(args.ID) {
					continue
				}
				select {
				case out <- &contactResolver{data}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Resolver) ContactRequested(ctx context.Context) <-chan *profileResolver {
	events := make(chan *db.Profile, subBuffer)
	sub := r.store.SubscribeContactRequested(events)
	out := make(chan *profileResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case profile := <-events:
				select {
				case out <- &profileResolver{profile}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Resolver) MessageAdded(ctx context.Context, args struct{ ID graphqlgo.ID }) <-chan *messageAddedResolver {
	events := make(chan db.MessageAddedEvent, subBuffer)
	sub := r.store.SubscribeMessageAdded(events)
	out := make(chan *messageAddedResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-events:
				if ev.ConvoID != string(args.ID) {
					continue
				}
				// Delivering the message to a subscriber marks the
				// conversation read.
				if r.store.UpdateConversationPointer(ev.ConvoID) == nil {
					continue
				}
				convo := r.store.GetConversationData(ev.ConvoID)
				if convo == nil {
					continue
				}
				select {
				case out <- &messageAddedResolver{convo: convo, msg: ev.Message}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *Resolver) TypingsChanged(ctx context.Context, args struct{ ID graphqlgo.ID }) <-chan []*profileResolver {
	events := make(chan db.TypingsChangedEvent, subBuffer)
	sub := r.store.SubscribeTypingsChanged(events)
	out := make(chan []*profileResolver)
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case ev := <-events:
				if ev.ConvoID != string(args.ID) {
					continue
				}
				profiles := make([]*profileResolver, 0, len(ev.Peers))
				for _, peer := range ev.Peers {
					profiles = append(profiles, &profileResolver{peer.Profile})
				}
				select {
				case out <- profiles:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
