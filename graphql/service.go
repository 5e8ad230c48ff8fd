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
	"net/http"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"
)

// NewHandler parses the schema against the resolver and returns a handler
// answering both plain HTTP queries and websocket subscriptions.
func NewHandler(resolver *Resolver) (http.Handler, error) {
	schema, err := graphqlgo.ParseSchema(schemaString, resolver)
	if err != nil {
		return nil, err
	}
	return graphqlws.NewHandlerFunc(schema, &relay.Handler{Schema: schema}), nil
}
