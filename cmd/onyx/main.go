// Copyright 2019 The onyx-go Authors
// This file is part of onyx-go.
//
// onyx-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// onyx-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with onyx-go. If not, see <http://www.gnu.org/licenses/>.

// onyx runs the messaging node against a local Swarm node.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	onyx "github.com/mainframehq/onyx-go"
)

func main() {
	app := &cli.App{
		Name:  "onyx",
		Usage: "decentralized messaging over pss",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ws-url",
				Usage: "Swarm node websocket RPC URL",
				Value: onyx.DefaultConfig.WSURL,
			},
			&cli.StringFlag{
				Name:  "http-url",
				Usage: "Swarm node HTTP gateway URL",
				Value: onyx.DefaultConfig.HTTPURL,
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "port of the GraphQL server",
				Value: onyx.DefaultConfig.Port,
			},
			&cli.StringFlag{
				Name:  "datadir",
				Usage: "data directory of the conversation store",
				Value: onyx.DefaultConfig.DataDir,
			},
			&cli.StringFlag{
				Name:  "eth-url",
				Usage: "Ethereum RPC URL for stake checks",
			},
			&cli.StringFlag{
				Name:  "stake-contract",
				Usage: "address of the staking contract",
			},
			&cli.IntFlag{
				Name:  "verbosity",
				Usage: "log verbosity (0-5)",
				Value: 3,
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	handler := log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(true)))
	handler.Verbosity(log.Lvl(ctx.Int("verbosity")))
	log.Root().SetHandler(handler)

	cfg := onyx.Config{
		WSURL:         ctx.String("ws-url"),
		HTTPURL:       ctx.String("http-url"),
		Port:          ctx.Int("port"),
		DataDir:       ctx.String("datadir"),
		EthURL:        ctx.String("eth-url"),
		StakeContract: ctx.String("stake-contract"),
	}
	node, err := onyx.Start(ctx.Context, cfg)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return node.Stop(shutdownCtx)
}
