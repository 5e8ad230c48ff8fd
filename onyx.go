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

// Package onyx assembles the messaging node: the store, the pss transport,
// the session manager and the HTTP/GraphQL surface.
package onyx

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mainframehq/onyx-go/bzz"
	"github.com/mainframehq/onyx-go/client"
	"github.com/mainframehq/onyx-go/db"
	"github.com/mainframehq/onyx-go/graphql"
	"github.com/mainframehq/onyx-go/pss"
	"github.com/mainframehq/onyx-go/server"
	"github.com/mainframehq/onyx-go/stake"
)

// Config collects the startup options of a node.
type Config struct {
	// WSURL is the websocket RPC endpoint of the Swarm node.
	WSURL string
	// HTTPURL is the HTTP gateway of the Swarm node, used for blobs.
	HTTPURL string
	// Port is the port of the GraphQL/file server.
	Port int
	// DataDir is where the conversation store lives.
	DataDir string
	// EthURL is the Ethereum RPC endpoint used for stake checks. Stake
	// gating is disabled when empty.
	EthURL string
	// StakeContract is the address of the staking contract.
	StakeContract string
}

// DefaultConfig matches a Swarm node running locally with default ports.
var DefaultConfig = Config{
	WSURL:   "ws://localhost:8546",
	HTTPURL: "http://localhost:8500",
	Port:    5000,
	DataDir: ".onyx",
}

// Onyx is a running messaging node.
type Onyx struct {
	store  *db.Store
	client *client.Client
	server *server.Server
	log    log.Logger
}

// Start connects to the Swarm node, binds the store to the node identity,
// rejoins every stored conversation and brings up the HTTP server.
func Start(ctx context.Context, cfg Config) (*Onyx, error) {
	store, err := db.Open(filepath.Join(cfg.DataDir, "store"))
	if err != nil {
		return nil, fmt.Errorf("cannot open store: %v", err)
	}
	transport, err := pss.Dial(ctx, cfg.WSURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("cannot connect to Swarm node: %v", err)
	}

	var opts []client.Option
	if cfg.EthURL != "" && cfg.StakeContract != "" {
		checker, err := stake.NewContractChecker(ctx, cfg.EthURL, common.HexToAddress(cfg.StakeContract))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("cannot setup stake checker: %v", err)
		}
		opts = append(opts, client.WithStakeChecker(checker))
	}

	c := client.New(transport, store, opts...)
	if err := c.Setup(ctx); err != nil {
		store.Close()
		return nil, err
	}
	if err := c.SetupContactTopic(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("cannot subscribe to contact topic: %v", err)
	}
	c.SubscribeToStoredConvos(ctx)

	serverURL := fmt.Sprintf("http://localhost:%d/graphql", cfg.Port)
	handler, err := graphql.NewHandler(graphql.NewResolver(c, serverURL))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("cannot build GraphQL schema: %v", err)
	}
	srv := server.New(handler, bzz.NewClient(cfg.HTTPURL), cfg.Port)

	o := &Onyx{
		store:  store,
		client: c,
		server: srv,
		log:    log.New("module", "onyx"),
	}
	go func() {
		if err := srv.Start(); err != nil {
			o.log.Error("HTTP server failed", "err", err)
		}
	}()
	return o, nil
}

// Client exposes the session manager.
func (o *Onyx) Client() *client.Client {
	return o.client
}

// Stop shuts down the HTTP server and closes the store.
func (o *Onyx) Stop(ctx context.Context) error {
	if err := o.server.Stop(ctx); err != nil {
		return err
	}
	return o.store.Close()
}
