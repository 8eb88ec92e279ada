//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package node

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/rollupstate/storage"
)

var (
	ErrBeforeDeadline = errors.New("BEFORE_DEADLINE")
	ErrChildTooRecent = errors.New("CHILD_TOO_RECENT")
	ErrAlreadyStaked  = errors.New("ALREADY_STAKED")
	ErrNotStaked      = errors.New("NOT_STAKED")
)

// A Node is one assertion in the rollup's dispute tree. Its properties live in the storage
// space the owning rollup assigns to its node number, and its staker set is a sub-space of
// that space. All fields except the staker count and the child-tracking pair are immutable
// after Initialize.
type Node struct {
	number                      uint64 // key; determines where the node lives in storage
	backingStorage              *storage.Storage
	stateHash                   storage.StorageBackedHash
	challengeHash               storage.StorageBackedHash
	confirmData                 storage.StorageBackedHash
	rollup                      storage.StorageBackedAddress
	prev                        storage.StorageBackedUint64
	deadlineBlock               storage.StorageBackedUint64
	noChildConfirmedBeforeBlock storage.StorageBackedUint64
	stakerCount                 storage.StorageBackedUint64
	firstChildBlock             storage.StorageBackedUint64
	latestChildNumber           storage.StorageBackedUint64
	stakers                     *storage.Storage
}

const (
	stateHashOffset uint64 = iota
	challengeHashOffset
	confirmDataOffset
	rollupOffset
	prevOffset
	deadlineBlockOffset
	noChildConfirmedBeforeBlockOffset
	stakerCountOffset
	firstChildBlockOffset
	latestChildNumberOffset
)

var stakersKey = []byte{0}

func open(sto *storage.Storage, number uint64) *Node {
	return &Node{
		number,
		sto,
		sto.OpenStorageBackedHash(stateHashOffset),
		sto.OpenStorageBackedHash(challengeHashOffset),
		sto.OpenStorageBackedHash(confirmDataOffset),
		sto.OpenStorageBackedAddress(rollupOffset),
		sto.OpenStorageBackedUint64(prevOffset),
		sto.OpenStorageBackedUint64(deadlineBlockOffset),
		sto.OpenStorageBackedUint64(noChildConfirmedBeforeBlockOffset),
		sto.OpenStorageBackedUint64(stakerCountOffset),
		sto.OpenStorageBackedUint64(firstChildBlockOffset),
		sto.OpenStorageBackedUint64(latestChildNumberOffset),
		sto.OpenSubStorage(stakersKey),
	}
}

// Initialize writes a fresh node into sto. The caller supplies prev and deadlineBlock; neither
// is validated here. Until a child exists, the child-confirm floor coincides with the node's
// own deadline, so noChildConfirmedBeforeBlock starts equal to deadlineBlock.
func Initialize(
	sto *storage.Storage,
	number uint64,
	stateHash common.Hash,
	challengeHash common.Hash,
	confirmData common.Hash,
	rollup common.Address,
	prev uint64,
	deadlineBlock uint64,
) *Node {
	ret := open(sto, number)
	ret.stateHash.Set(stateHash)
	ret.challengeHash.Set(challengeHash)
	ret.confirmData.Set(confirmData)
	ret.rollup.Set(rollup)
	ret.prev.Set(prev)
	ret.deadlineBlock.Set(deadlineBlock)
	ret.noChildConfirmedBeforeBlock.Set(deadlineBlock)
	return ret
}

// Open a node that was previously initialized in sto. The caller is responsible for knowing
// that the node exists; opening an empty space yields a node whose fields all read as zero.
func Open(sto *storage.Storage, number uint64) *Node {
	return open(sto, number)
}

func (node *Node) Number() uint64 {
	return node.number
}

func (node *Node) StateHash() common.Hash {
	return node.stateHash.Get()
}

func (node *Node) ChallengeHash() common.Hash {
	return node.challengeHash.Get()
}

func (node *Node) ConfirmData() common.Hash {
	return node.confirmData.Get()
}

func (node *Node) Rollup() common.Address {
	return node.rollup.Get()
}

func (node *Node) Prev() uint64 {
	return node.prev.Get()
}

func (node *Node) DeadlineBlock() uint64 {
	return node.deadlineBlock.Get()
}

func (node *Node) NoChildConfirmedBeforeBlock() uint64 {
	return node.noChildConfirmedBeforeBlock.Get()
}

func (node *Node) FirstChildBlock() uint64 {
	return node.firstChildBlock.Get()
}

func (node *Node) LatestChildNumber() uint64 {
	return node.latestChildNumber.Get()
}

// RecordChildCreated notes that a child with the given number was created at currentBlock.
// firstChildBlock is write-once: it is set when the first child arrives and never again, not
// even if the node's children are later destroyed. latestChildNumber is overwritten without
// any ordering check; the rollup supplies child numbers in creation order.
func (node *Node) RecordChildCreated(number uint64, currentBlock uint64) {
	if node.firstChildBlock.Get() == 0 {
		node.firstChildBlock.Set(currentBlock)
	}
	node.latestChildNumber.Set(number)
}

// SetNoChildConfirmBefore overwrites the child-confirm floor unconditionally. Moving the
// floor backward would retroactively shrink a safety window, so the rollup only ever calls
// this with values that move it forward.
func (node *Node) SetNoChildConfirmBefore(blockNum uint64) {
	node.noChildConfirmedBeforeBlock.Set(blockNum)
}

// RequirePastDeadline gates confirmation of this node itself.
func (node *Node) RequirePastDeadline(currentBlock uint64) error {
	if currentBlock < node.deadlineBlock.Get() {
		return ErrBeforeDeadline
	}
	return nil
}

// RequirePastChildConfirmDeadline gates confirmation of any child of this node, giving
// competing children their full window to be proposed and staked.
func (node *Node) RequirePastChildConfirmDeadline(currentBlock uint64) error {
	if currentBlock < node.noChildConfirmedBeforeBlock.Get() {
		return ErrChildTooRecent
	}
	return nil
}

// Destroy zeroes the node's property slots. Destruction policy belongs to the owning rollup;
// this only does the slot clearing. Entries in the staker mapping are left in place: node
// numbers are never reused, so they can never be observed again.
func (node *Node) Destroy() {
	node.stateHash.Set(common.Hash{})
	node.challengeHash.Set(common.Hash{})
	node.confirmData.Set(common.Hash{})
	node.rollup.Set(common.Address{})
	node.prev.Set(0)
	node.deadlineBlock.Set(0)
	node.noChildConfirmedBeforeBlock.Set(0)
	node.stakerCount.Set(0)
	node.firstChildBlock.Set(0)
	node.latestChildNumber.Set(0)
}
