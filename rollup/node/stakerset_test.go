//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package node

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/rollupstate/storage"
	"github.com/offchainlabs/rollupstate/util/testhelpers"
)

func testNode(t *testing.T) *Node {
	t.Helper()
	sto := storage.NewMemoryBacked()
	return Initialize(sto, 1, testhelpers.RandomHash(), common.Hash{}, common.Hash{}, testhelpers.RandomAddress(), 0, 100)
}

func TestStakerSet(t *testing.T) {
	nd := testNode(t)

	addr1 := common.BytesToAddress(crypto.Keccak256([]byte{1})[:20])
	addr2 := common.BytesToAddress(crypto.Keccak256([]byte{2})[:20])
	addr3 := common.BytesToAddress(crypto.Keccak256([]byte{3})[:20])

	count, err := nd.AddStaker(addr1)
	Require(t, err)
	if count != 1 {
		Fail(t)
	}
	count, err = nd.AddStaker(addr2)
	Require(t, err)
	if count != 2 {
		Fail(t)
	}
	if !nd.IsStaker(addr1) || !nd.IsStaker(addr2) || nd.IsStaker(addr3) {
		Fail(t)
	}
	if nd.StakerCount() != 2 {
		Fail(t)
	}

	Require(t, nd.RemoveStaker(addr1))
	if nd.IsStaker(addr1) {
		Fail(t)
	}
	if nd.StakerCount() != 1 {
		Fail(t)
	}

	// removed stakers may stake again
	count, err = nd.AddStaker(addr1)
	Require(t, err)
	if count != 2 {
		Fail(t)
	}
}

func TestAddStakerTwice(t *testing.T) {
	nd := testNode(t)
	addr := testhelpers.RandomAddress()

	_, err := nd.AddStaker(addr)
	Require(t, err)
	_, err = nd.AddStaker(addr)
	if !errors.Is(err, ErrAlreadyStaked) {
		Fail(t, "expected ALREADY_STAKED, got", err)
	}
	if nd.StakerCount() != 1 {
		Fail(t, "failed add must not change the count")
	}
	if !nd.IsStaker(addr) {
		Fail(t)
	}
}

func TestRemoveAbsentStaker(t *testing.T) {
	nd := testNode(t)
	addr := testhelpers.RandomAddress()

	if !errors.Is(nd.RemoveStaker(addr), ErrNotStaked) {
		Fail(t)
	}
	if nd.StakerCount() != 0 {
		Fail(t)
	}

	_, err := nd.AddStaker(addr)
	Require(t, err)
	Require(t, nd.RemoveStaker(addr))
	if !errors.Is(nd.RemoveStaker(addr), ErrNotStaked) {
		Fail(t, "second remove must fail")
	}
	if nd.StakerCount() != 0 {
		Fail(t)
	}
}

func TestStakerCountTracksMembership(t *testing.T) {
	nd := testNode(t)

	addrs := make([]common.Address, 8)
	for i := range addrs {
		addrs[i] = common.BytesToAddress(crypto.Keccak256([]byte{byte(i)})[:20])
	}

	present := 0
	for i, addr := range addrs {
		_, err := nd.AddStaker(addr)
		Require(t, err)
		present++
		if i%3 == 0 {
			Require(t, nd.RemoveStaker(addr))
			present--
		}
		if nd.StakerCount() != uint64(present) {
			Fail(t, "count", nd.StakerCount(), "expected", present)
		}
	}
}
