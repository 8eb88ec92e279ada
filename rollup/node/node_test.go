//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package node

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/rollupstate/storage"
	"github.com/offchainlabs/rollupstate/util/testhelpers"
)

func TestInitializeNode(t *testing.T) {
	sto := storage.NewMemoryBacked()
	stateHash := testhelpers.RandomHash()
	challengeHash := testhelpers.RandomHash()
	confirmData := testhelpers.RandomHash()
	rollup := testhelpers.RandomAddress()

	nd := Initialize(sto, 7, stateHash, challengeHash, confirmData, rollup, 3, 100)
	if nd.Number() != 7 {
		Fail(t)
	}
	if nd.StateHash() != stateHash || nd.ChallengeHash() != challengeHash || nd.ConfirmData() != confirmData {
		Fail(t)
	}
	if nd.Rollup() != rollup {
		Fail(t)
	}
	if nd.Prev() != 3 {
		Fail(t)
	}
	if nd.DeadlineBlock() != 100 {
		Fail(t)
	}
	if nd.NoChildConfirmedBeforeBlock() != 100 {
		Fail(t, "child-confirm floor should start at the node's own deadline")
	}
	if nd.StakerCount() != 0 || nd.FirstChildBlock() != 0 || nd.LatestChildNumber() != 0 {
		Fail(t)
	}

	reopened := Open(sto, 7)
	if reopened.StateHash() != stateHash || reopened.DeadlineBlock() != 100 {
		Fail(t)
	}
}

func TestDeadlineGates(t *testing.T) {
	sto := storage.NewMemoryBacked()
	nd := Initialize(sto, 1, testhelpers.RandomHash(), common.Hash{}, common.Hash{}, testhelpers.RandomAddress(), 0, 100)

	for _, height := range []uint64{0, 50, 99} {
		if !errors.Is(nd.RequirePastDeadline(height), ErrBeforeDeadline) {
			Fail(t, "deadline check passed at height", height)
		}
	}
	Require(t, nd.RequirePastDeadline(100))
	Require(t, nd.RequirePastDeadline(101))

	nd.SetNoChildConfirmBefore(150)
	if !errors.Is(nd.RequirePastChildConfirmDeadline(149), ErrChildTooRecent) {
		Fail(t)
	}
	Require(t, nd.RequirePastChildConfirmDeadline(150))
}

func TestRecordChildCreated(t *testing.T) {
	sto := storage.NewMemoryBacked()
	nd := Initialize(sto, 1, testhelpers.RandomHash(), common.Hash{}, common.Hash{}, testhelpers.RandomAddress(), 0, 100)

	nd.RecordChildCreated(7, 80)
	if nd.FirstChildBlock() != 80 {
		Fail(t)
	}
	if nd.LatestChildNumber() != 7 {
		Fail(t)
	}

	nd.RecordChildCreated(9, 90)
	if nd.FirstChildBlock() != 80 {
		Fail(t, "firstChildBlock must be write-once")
	}
	if nd.LatestChildNumber() != 9 {
		Fail(t)
	}
}

func TestDestroyClearsProperties(t *testing.T) {
	sto := storage.NewMemoryBacked()
	nd := Initialize(sto, 1, testhelpers.RandomHash(), testhelpers.RandomHash(), testhelpers.RandomHash(), testhelpers.RandomAddress(), 0, 100)
	nd.RecordChildCreated(2, 40)
	_, err := nd.AddStaker(testhelpers.RandomAddress())
	Require(t, err)

	nd.Destroy()
	if nd.StateHash() != (common.Hash{}) || nd.ChallengeHash() != (common.Hash{}) || nd.ConfirmData() != (common.Hash{}) {
		Fail(t)
	}
	if nd.Rollup() != (common.Address{}) {
		Fail(t)
	}
	if nd.DeadlineBlock() != 0 || nd.NoChildConfirmedBeforeBlock() != 0 {
		Fail(t)
	}
	if nd.StakerCount() != 0 || nd.FirstChildBlock() != 0 || nd.LatestChildNumber() != 0 {
		Fail(t)
	}
}

func Require(t *testing.T, err error, text ...string) {
	t.Helper()
	testhelpers.RequireImpl(t, err, text)
}

func Fail(t *testing.T, printables ...interface{}) {
	t.Helper()
	testhelpers.FailImpl(t, printables...)
}
