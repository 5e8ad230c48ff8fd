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
	graphqlgo "github.com/graph-gophers/graphql-go"

	"github.com/mainframehq/onyx-go/db"
)

type profileResolver struct {
	profile *db.Profile
}

func (r *profileResolver) ID() graphqlgo.ID {
	if r.profile == nil {
		return ""
	}
	return graphqlgo.ID(r.profile.ID)
}

func (r *profileResolver) Avatar() *string {
	if r.profile == nil {
		return nil
	}
	return optString(r.profile.Avatar)
}

func (r *profileResolver) Name() *string {
	if r.profile == nil {
		return nil
	}
	return optString(r.profile.Name)
}

func (r *profileResolver) Bio() *string {
	if r.profile == nil {
		return nil
	}
	return optString(r.profile.Bio)
}

func (r *profileResolver) HasStake() *bool {
	if r.profile == nil {
		return nil
	}
	hasStake := r.profile.HasStake
	return &hasStake
}

type contactResolver struct {
	data *db.ContactData
}

func (r *contactResolver) Profile() *profileResolver {
	return &profileResolver{r.data.Profile}
}

func (r *contactResolver) State() *string {
	return optString(string(r.data.State))
}

func (r *contactResolver) ConvoID() *graphqlgo.ID {
	if r.data.ConvoID == "" {
		return nil
	}
	id := graphqlgo.ID(r.data.ConvoID)
	return &id
}

func (r *contactResolver) Convo() *conversationResolver {
	if r.data.Convo == nil {
		return nil
	}
	return &conversationResolver{r.data.Convo}
}

type conversationResolver struct {
	data *db.ConversationData
}

func (r *conversationResolver) ID() graphqlgo.ID {
	return graphqlgo.ID(r.data.ID)
}

func (r *conversationResolver) Type() string {
	return string(r.data.Type)
}

func (r *conversationResolver) Subject() *string {
	return optString(r.data.Subject)
}

func (r *conversationResolver) Messages() []*messageResolver {
	messages := make([]*messageResolver, len(r.data.Messages))
	for i, msg := range r.data.Messages {
		messages[i] = &messageResolver{msg}
	}
	return messages
}

func (r *conversationResolver) MessageCount() int32 {
	return int32(r.data.MessageCount)
}

func (r *conversationResolver) Peers() []*contactResolver {
	peers := make([]*contactResolver, len(r.data.Peers))
	for i, peer := range r.data.Peers {
		peers[i] = &contactResolver{peer}
	}
	return peers
}

func (r *conversationResolver) Pointer() int32 {
	return int32(r.data.Pointer)
}

func (r *conversationResolver) LastActiveTimestamp() float64 {
	return float64(r.data.LastActiveTimestamp)
}

func (r *conversationResolver) Dark() bool {
	return r.data.Dark
}

type messageResolver struct {
	msg *db.Message
}

func (r *messageResolver) Sender() graphqlgo.ID {
	return graphqlgo.ID(r.msg.Sender)
}

func (r *messageResolver) Timestamp() float64 {
	return float64(r.msg.Timestamp)
}

func (r *messageResolver) Source() string {
	return string(r.msg.Source)
}

func (r *messageResolver) Blocks() []*blockResolver {
	blocks := make([]*blockResolver, len(r.msg.Blocks))
	for i, block := range r.msg.Blocks {
		blocks[i] = &blockResolver{block}
	}
	return blocks
}

type blockResolver struct {
	block db.Block
}

func (r *blockResolver) ToMessageBlockText() (*textBlockResolver, bool) {
	block, ok := r.block.(*db.TextBlock)
	if !ok {
		return nil, false
	}
	return &textBlockResolver{block}, true
}

func (r *blockResolver) ToMessageBlockFile() (*fileBlockResolver, bool) {
	block, ok := r.block.(*db.FileBlock)
	if !ok {
		return nil, false
	}
	return &fileBlockResolver{block}, true
}

func (r *blockResolver) ToMessageBlockAction() (*actionBlockResolver, bool) {
	block, ok := r.block.(*db.ActionBlock)
	if !ok {
		return nil, false
	}
	return &actionBlockResolver{block}, true
}

type textBlockResolver struct {
	block *db.TextBlock
}

func (r *textBlockResolver) Text() string {
	return r.block.Text
}

type fileBlockResolver struct {
	block *db.FileBlock
}

func (r *fileBlockResolver) File() *fileResolver {
	return &fileResolver{r.block.File}
}

type fileResolver struct {
	file *db.FileData
}

func (r *fileResolver) Name() string {
	return r.file.Name
}

func (r *fileResolver) Hash() string {
	return r.file.Hash
}

func (r *fileResolver) MimeType() *string {
	return optString(r.file.ContentType)
}

func (r *fileResolver) Size() *int32 {
	if r.file.Size == 0 {
		return nil
	}
	size := int32(r.file.Size)
	return &size
}

type actionBlockResolver struct {
	block *db.ActionBlock
}

func (r *actionBlockResolver) Action() *actionResolver {
	return &actionResolver{r.block.Action}
}

type actionResolver struct {
	action *db.ActionData
}

func (r *actionResolver) ID() graphqlgo.ID {
	return graphqlgo.ID(r.action.ID)
}

func (r *actionResolver) Assignee() graphqlgo.ID {
	return graphqlgo.ID(r.action.Assignee)
}

func (r *actionResolver) Sender() *graphqlgo.ID {
	if r.action.Sender == "" {
		return nil
	}
	id := graphqlgo.ID(r.action.Sender)
	return &id
}

func (r *actionResolver) State() string {
	return string(r.action.State)
}

func (r *actionResolver) Text() *string {
	return optString(r.action.Text)
}

type messageAddedResolver struct {
	convo *db.ConversationData
	msg   *db.Message
}

func (r *messageAddedResolver) Conversation() *conversationResolver {
	return &conversationResolver{r.convo}
}

func (r *messageAddedResolver) Message() *messageResolver {
	return &messageResolver{r.msg}
}

type viewerResolver struct {
	viewer *db.Viewer
}

func (r *viewerResolver) Channels() []*conversationResolver {
	channels := make([]*conversationResolver, len(r.viewer.Channels))
	for i, channel := range r.viewer.Channels {
		channels[i] = &conversationResolver{channel}
	}
	return channels
}

func (r *viewerResolver) Contacts() []*contactResolver {
	contacts := make([]*contactResolver, len(r.viewer.Contacts))
	for i, contact := range r.viewer.Contacts {
		contacts[i] = &contactResolver{contact}
	}
	return contacts
}

func (r *viewerResolver) Profile() *profileResolver {
	return &profileResolver{r.viewer.Profile}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
