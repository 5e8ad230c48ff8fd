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

package graphql

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/event"
	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mainframehq/onyx-go/client"
	"github.com/mainframehq/onyx-go/db"
	"github.com/mainframehq/onyx-go/pss"
)

// nullTransport satisfies the transport surface without a node behind it.
type nullTransport struct{}

func (nullTransport) PublicKey(ctx context.Context) (string, error) { return "0xself", nil }
func (nullTransport) BaseAddr(ctx context.Context) (string, error)  { return "0xaddr", nil }

func (nullTransport) StringToTopic(ctx context.Context, seed string) (pss.Topic, error) {
	var t pss.Topic
	copy(t[:], seed)
	return t, nil
}

func (nullTransport) Subscribe(ctx context.Context, topic pss.Topic, ch chan<- *pss.Message) (event.Subscription, error) {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

func (nullTransport) SetPeerPublicKey(ctx context.Context, pubKey string, topic pss.Topic, address string) error {
	return nil
}

func (nullTransport) SendAsym(ctx context.Context, pubKey string, topic pss.Topic, msg []byte) error {
	return nil
}

func (nullTransport) SendSym(ctx context.Context, symKeyID string, topic pss.Topic, msg []byte) error {
	return nil
}

func newTestSchema(t *testing.T) (*graphqlgo.Schema, *db.Store) {
	t.Helper()
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := client.New(nullTransport{}, store)
	require.NoError(t, c.Setup(context.Background()))
	store.SetProfile(&db.Profile{ID: "0xself", Name: "Alice"})

	schema, err := graphqlgo.ParseSchema(schemaString, NewResolver(c, "http://localhost:5000"))
	require.NoError(t, err)
	return schema, store
}

func exec(t *testing.T, schema *graphqlgo.Schema, query string) json.RawMessage {
	t.Helper()
	resp := schema.Exec(context.Background(), query, "", nil)
	require.Empty(t, resp.Errors, "query %s", query)
	return resp.Data
}

func TestSchemaParses(t *testing.T) {
	newTestSchema(t)
}

func TestViewerQuery(t *testing.T) {
	schema, store := newTestSchema(t)
	store.SetContact(&db.Contact{Profile: &db.Profile{ID: "0xbob", Name: "Bob"}, State: db.ContactAccepted})
	store.SetConversation(&db.Conversation{ID: "0x01", Type: db.ConvoChannel, Subject: "general"})

	data := exec(t, schema, `{
		serverURL
		viewer {
			profile { id name hasStake }
			contacts { profile { name } state }
			channels { id subject dark }
		}
	}`)

	var result struct {
		ServerURL string
		Viewer    struct {
			Profile struct {
				ID       string
				Name     string
				HasStake bool
			}
			Contacts []struct {
				Profile struct{ Name string }
				State   string
			}
			Channels []struct {
				ID      string
				Subject string
				Dark    bool
			}
		}
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "http://localhost:5000", result.ServerURL)
	assert.Equal(t, "0xself", result.Viewer.Profile.ID)
	assert.Equal(t, "Alice", result.Viewer.Profile.Name)
	assert.True(t, result.Viewer.Profile.HasStake)
	require.Len(t, result.Viewer.Contacts, 1)
	assert.Equal(t, "Bob", result.Viewer.Contacts[0].Profile.Name)
	assert.Equal(t, "ACCEPTED", result.Viewer.Contacts[0].State)
	require.Len(t, result.Viewer.Channels, 1)
	assert.Equal(t, "general", result.Viewer.Channels[0].Subject)
}

func TestConversationQuery(t *testing.T) {
	schema, store := newTestSchema(t)
	store.SetContact(&db.Contact{Profile: &db.Profile{ID: "0xbob", Name: "Bob"}})
	store.SetConversation(&db.Conversation{ID: "0x01", Type: db.ConvoDirect, Peers: []string{"0xbob"}})
	store.AddMessage("0x01", &db.Message{
		Sender: "0xbob",
		Blocks: db.Blocks{
			&db.TextBlock{Text: "hello"},
			&db.FileBlock{File: &db.FileData{Name: "pic.png", Hash: "cafe", ContentType: "image/png", Size: 42}},
		},
	}, false)

	data := exec(t, schema, `{
		conversation(id: "0x01") {
			id type messageCount pointer
			peers { profile { name } }
			messages {
				sender source
				blocks {
					... on MessageBlockText { text }
					... on MessageBlockFile { file { name hash mimeType size } }
				}
			}
		}
	}`)

	var result struct {
		Conversation struct {
			ID           string
			Type         string
			MessageCount int
			Pointer      int
			Peers        []struct {
				Profile struct{ Name string }
			}
			Messages []struct {
				Sender string
				Source string
				Blocks []map[string]interface{}
			}
		}
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "DIRECT", result.Conversation.Type)
	assert.Equal(t, 1, result.Conversation.MessageCount)
	assert.Equal(t, 0, result.Conversation.Pointer)
	require.Len(t, result.Conversation.Messages, 1)
	msg := result.Conversation.Messages[0]
	assert.Equal(t, "0xbob", msg.Sender)
	assert.Equal(t, "USER", msg.Source)
	require.Len(t, msg.Blocks, 2)
	assert.Equal(t, "hello", msg.Blocks[0]["text"])

	// Unknown conversations resolve to null, not an error.
	data = exec(t, schema, `{ conversation(id: "0xnope") { id } }`)
	assert.JSONEq(t, `{"conversation":null}`, string(data))
}

func TestUpdateProfileMutation(t *testing.T) {
	schema, store := newTestSchema(t)

	data := exec(t, schema, `mutation {
		updateProfile(input: {name: "Alicia", bio: "hi there"}) { name bio }
	}`)
	assert.JSONEq(t, `{"updateProfile":{"name":"Alicia","bio":"hi there"}}`, string(data))
	assert.Equal(t, "Alicia", store.GetProfile().Name)
	assert.Equal(t, "hi there", store.GetProfile().Bio)
}

func TestUpdatePointerMutation(t *testing.T) {
	schema, store := newTestSchema(t)
	store.SetConversation(&db.Conversation{ID: "0x01", Type: db.ConvoDirect})
	store.AddMessage("0x01", &db.Message{Sender: "0xbob", Blocks: db.Blocks{&db.TextBlock{Text: "hi"}}}, false)

	data := exec(t, schema, `mutation { updatePointer(id: "0x01") { pointer } }`)
	assert.JSONEq(t, `{"updatePointer":{"pointer":1}}`, string(data))

	resp := schema.Exec(context.Background(), `mutation { updatePointer(id: "0xnope") { pointer } }`, "", nil)
	require.NotEmpty(t, resp.Errors)
}

func TestMessageAddedSubscription(t *testing.T) {
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := client.New(nullTransport{}, store)
	require.NoError(t, c.Setup(context.Background()))
	store.SetProfile(&db.Profile{ID: "0xself", Name: "Alice"})
	store.SetConversation(&db.Conversation{ID: "0x01", Type: db.ConvoDirect})

	r := NewResolver(c, "http://localhost:5000")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := r.MessageAdded(ctx, struct{ ID graphqlgo.ID }{ID: "0x01"})

	store.AddMessage("0x01", &db.Message{Sender: "0xbob", Blocks: db.Blocks{&db.TextBlock{Text: "hi"}}}, false)

	ev := <-ch
	text, ok := ev.Message().Blocks()[0].ToMessageBlockText()
	require.True(t, ok)
	assert.Equal(t, "hi", text.Text())
	// Delivery marks the conversation read.
	assert.Equal(t, int32(1), ev.Conversation().Pointer())
	assert.Equal(t, 1, store.GetConversation("0x01").Pointer)
}

func TestDecodeBlocks(t *testing.T) {
	values := []JSONValue{
		{value: map[string]interface{}{"text": "hello"}},
		{value: map[string]interface{}{"file": map[string]interface{}{"name": "pic.png", "hash": "cafe"}}},
	}
	blocks, err := decodeBlocks(values)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "hello", blocks[0].(*db.TextBlock).Text)
	assert.Equal(t, "cafe", blocks[1].(*db.FileBlock).File.Hash)

	_, err = decodeBlocks([]JSONValue{{value: map[string]interface{}{"bogus": true}}})
	assert.Error(t, err)
}
