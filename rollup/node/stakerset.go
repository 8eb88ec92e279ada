//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package node

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/rollupstate/util"
)

// The staker set is a boolean membership mapping keyed by address, plus a count slot that
// always equals the set's true cardinality. The mapping is never enumerated, so removal
// marks the address absent rather than compacting anything. Whether a staker is live or a
// zombie is the rollup's business; every address is treated identically here.

func (node *Node) StakerCount() uint64 {
	return node.stakerCount.Get()
}

func (node *Node) IsStaker(address common.Address) bool {
	return node.stakers.Get(util.AddressToHash(address)) != (common.Hash{})
}

// AddStaker marks address as staked on this node and returns the new staker count.
func (node *Node) AddStaker(address common.Address) (uint64, error) {
	if node.IsStaker(address) {
		return 0, ErrAlreadyStaked
	}
	node.stakers.Set(util.AddressToHash(address), util.IntToHash(1))
	return node.stakerCount.Increment(), nil
}

// RemoveStaker marks address as no longer staked on this node. The membership precondition
// makes count underflow impossible: an address can only be removed after it was added, and
// these two methods are the only mutators of the count.
func (node *Node) RemoveStaker(address common.Address) error {
	if !node.IsStaker(address) {
		return ErrNotStaked
	}
	node.stakers.Clear(util.AddressToHash(address))
	node.stakerCount.Decrement()
	return nil
}
