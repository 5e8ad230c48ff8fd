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

// schemaString is the GraphQL contract consumed by the UI clients. Each
// subscription is fed directly by the store change feed of the same name.
const schemaString = `
schema {
    query: Query
    mutation: Mutation
    subscription: Subscription
}

scalar JSON

type Profile {
    id: ID!
    avatar: String
    name: String
    bio: String
    hasStake: Boolean
}

type Contact {
    profile: Profile!
    state: String
    convoID: ID
    convo: Conversation
}

type Conversation {
    id: ID!
    type: String!
    subject: String
    messages: [Message!]!
    messageCount: Int!
    peers: [Contact!]!
    pointer: Int!
    lastActiveTimestamp: Float!
    dark: Boolean!
}

type Message {
    sender: ID!
    timestamp: Float!
    source: String!
    blocks: [MessageBlock!]!
}

union MessageBlock = MessageBlockText | MessageBlockFile | MessageBlockAction

type MessageBlockText {
    text: String!
}

type MessageBlockFile {
    file: File!
}

type MessageBlockAction {
    action: Action!
}

type Action {
    id: ID!
    assignee: ID!
    sender: ID
    state: String!
    text: String
}

type File {
    name: String!
    hash: String!
    mimeType: String
    size: Int
}

input ProfileInput {
    avatar: String
    name: String!
    bio: String
}

input ChannelInput {
    subject: String!
    peers: [ID!]!
    dark: Boolean!
}

input MessageInput {
    convoID: ID!
    blocks: [JSON!]!
}

input TypingInput {
    convoID: ID!
    typing: Boolean!
}

type MessageAddedPayload {
    conversation: Conversation!
    message: Message!
}

type Viewer {
    channels: [Conversation!]!
    contacts: [Contact!]!
    profile: Profile!
}

type Query {
    contact(id: ID!): Contact
    conversation(id: ID!): Conversation
    serverURL: String!
    viewer: Viewer!
}

type Mutation {
    acceptContact(id: ID!): Contact!
    createChannel(input: ChannelInput!): Conversation!
    requestContact(id: ID!): Contact!
    sendMessage(input: MessageInput!): Message!
    setTyping(input: TypingInput!): Conversation!
    updatePointer(id: ID!): Conversation!
    resendInvites(id: ID!): Conversation!
    updateProfile(input: ProfileInput!): Profile!
}

type Subscription {
    channelsChanged: Viewer!
    contactChanged(id: ID!): Contact!
    contactRequested: Profile!
    contactsChanged: Viewer!
    messageAdded(id: ID!): MessageAddedPayload!
    typingsChanged(id: ID!): [Profile!]!
}
`
