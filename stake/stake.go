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

// Package stake gates peer acceptance on the Mainframe staking contract:
// a peer without stake is still displayed, but flagged so the UI can show a
// disabled state.
package stake

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// noStakeMarker is the error substring used by stake-enforcing Swarm nodes
// when refusing a peer.
const noStakeMarker = "No stake found"

// Checker answers whether an address holds the required stake.
type Checker interface {
	HasStake(ctx context.Context, address string) (bool, error)
}

// IsNoStakeError reports whether a transport error is a stake refusal
// rather than a generic failure. Matched by substring: the node reports it
// as a plain error message.
func IsNoStakeError(err error) bool {
	return err != nil && strings.Contains(err.Error(), noStakeMarker)
}

const contractABI = `[
	{
		"constant": true,
		"inputs": [{"name": "_address", "type": "address"}],
		"name": "hasStake",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "requiredStake",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	}
]`

// ContractChecker calls the staking contract's hasStake view function
// through an Ethereum node.
type ContractChecker struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract common.Address
}

// NewContractChecker dials the Ethereum RPC endpoint and binds the staking
// contract at the given address.
func NewContractChecker(ctx context.Context, url string, contract common.Address) (*ContractChecker, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}
	return &ContractChecker{client: client, abi: parsed, contract: contract}, nil
}

// HasStake checks the stake of a wallet address.
func (c *ContractChecker) HasStake(ctx context.Context, address string) (bool, error) {
	input, err := c.abi.Pack("hasStake", common.HexToAddress(address))
	if err != nil {
		return false, err
	}
	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		return false, err
	}
	results, err := c.abi.Unpack("hasStake", output)
	if err != nil {
		return false, err
	}
	hasStake, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasStake output: %T", results[0])
	}
	return hasStake, nil
}
