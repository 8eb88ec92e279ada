//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package rollup

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/offchainlabs/rollupstate/rollup/node"
	"github.com/offchainlabs/rollupstate/storage"
	"github.com/offchainlabs/rollupstate/util"
	"github.com/offchainlabs/rollupstate/util/sharedmetrics"
)

// RollupState is the dispute tree: an arena of assertion nodes keyed by a dense,
// monotonically increasing node number. Node numbers are assigned here and never reused,
// which is what lets the per-node code trust the ordering of child creation. Modifications
// are written through to the underlying stateDB, so the stateDB always holds the
// definitive tree.
//
// Nodes between firstUnresolvedNode and latestNodeCreated are pending. The node at
// firstUnresolvedNode is resolved first, either by ConfirmNextNode (it extends the
// confirmed chain) or by RejectNextNode (it belongs to a branch the confirmed chain has
// passed by). Exactly one chain of nodes from genesis can ever be confirmed.
type RollupState struct {
	backingStorage      *storage.Storage
	rollupAddress       storage.StorageBackedAddress
	confirmPeriodBlocks storage.StorageBackedUint64
	latestConfirmed     storage.StorageBackedUint64
	firstUnresolvedNode storage.StorageBackedUint64
	latestNodeCreated   storage.StorageBackedUint64
	nodes               *storage.Storage
}

var (
	ErrUninitialized      = errors.New("rollup state uninitialized")
	ErrAlreadyInitialized = errors.New("rollup state already initialized")

	ErrNodeNotFound      = errors.New("NO_NODE")
	ErrNoUnresolvedNode  = errors.New("NO_UNRESOLVED_NODE")
	ErrNotStaked         = errors.New("NOT_ALL_STAKED")
	ErrInvalidPrev       = errors.New("INVALID_PREV")
	ErrSuccessorOfLatest = errors.New("SUCCESSOR_OF_LATEST_CONFIRMED")
)

const (
	versionOffset uint64 = iota
	rollupAddressOffset
	confirmPeriodBlocksOffset
	latestConfirmedOffset
	firstUnresolvedNodeOffset
	latestNodeCreatedOffset
)

var nodesSubspace = []byte{0}

func open(sto *storage.Storage) *RollupState {
	return &RollupState{
		sto,
		sto.OpenStorageBackedAddress(rollupAddressOffset),
		sto.OpenStorageBackedUint64(confirmPeriodBlocksOffset),
		sto.OpenStorageBackedUint64(latestConfirmedOffset),
		sto.OpenStorageBackedUint64(firstUnresolvedNodeOffset),
		sto.OpenStorageBackedUint64(latestNodeCreatedOffset),
		sto.OpenSubStorage(nodesSubspace),
	}
}

// Initialize writes a fresh dispute tree into sto, with a genesis node (number 0) that is
// already confirmed. The genesis node's prev is the sentinel 0, pointing at itself; no other
// node may have itself as prev because numbers are assigned in creation order.
func Initialize(
	sto *storage.Storage,
	rollupAddress common.Address,
	genesisStateHash common.Hash,
	confirmPeriodBlocks uint64,
	currentBlock uint64,
) (*RollupState, error) {
	if sto.GetUint64ByUint64(versionOffset) != 0 {
		return nil, ErrAlreadyInitialized
	}
	if confirmPeriodBlocks == 0 {
		return nil, errors.New("confirm period must be nonzero")
	}
	ret := open(sto)
	sto.SetUint64ByUint64(versionOffset, 1)
	ret.rollupAddress.Set(rollupAddress)
	ret.confirmPeriodBlocks.Set(confirmPeriodBlocks)

	// The genesis deadline only serves as the baseline child-confirm floor: no child of
	// genesis can be confirmed until a full confirm period has passed. A live node always
	// has a nonzero deadline, which doubles as the existence check in GetNode.
	node.Initialize(
		ret.nodeStorage(0),
		0,
		genesisStateHash,
		common.Hash{},
		common.Hash{},
		rollupAddress,
		0,
		currentBlock+confirmPeriodBlocks,
	)
	ret.latestConfirmed.Set(0)
	ret.firstUnresolvedNode.Set(1)
	ret.latestNodeCreated.Set(0)
	log.Info("initialized rollup state", "rollup", rollupAddress, "confirmPeriodBlocks", confirmPeriodBlocks)
	return ret, nil
}

// Open the dispute tree previously initialized in sto.
func Open(sto *storage.Storage) (*RollupState, error) {
	if sto.GetUint64ByUint64(versionOffset) == 0 {
		return nil, ErrUninitialized
	}
	return open(sto), nil
}

func (r *RollupState) nodeStorage(number uint64) *storage.Storage {
	return r.nodes.OpenSubStorage(util.UintToHash(number).Bytes())
}

func (r *RollupState) RollupAddress() common.Address {
	return r.rollupAddress.Get()
}

func (r *RollupState) ConfirmPeriodBlocks() uint64 {
	return r.confirmPeriodBlocks.Get()
}

func (r *RollupState) LatestConfirmed() uint64 {
	return r.latestConfirmed.Get()
}

func (r *RollupState) FirstUnresolvedNode() uint64 {
	return r.firstUnresolvedNode.Get()
}

func (r *RollupState) LatestNodeCreated() uint64 {
	return r.latestNodeCreated.Get()
}

// GetNode returns the live node with the given number, or ErrNodeNotFound if the number was
// never assigned or the node has been destroyed.
func (r *RollupState) GetNode(number uint64) (*node.Node, error) {
	if number > r.latestNodeCreated.Get() {
		return nil, ErrNodeNotFound
	}
	nd := node.Open(r.nodeStorage(number), number)
	if nd.DeadlineBlock() == 0 {
		return nil, ErrNodeNotFound
	}
	return nd, nil
}

// CreateNode appends a new assertion under prev and returns it. The new node's deadline is a
// full confirm period after whichever is later, the current block or the parent's own
// deadline, so a child is never confirmable before its parent. Creating a child also pushes
// the parent's child-confirm floor out to a full confirm period from now, reopening the
// challenge window for competing children; the floor only ever moves forward.
func (r *RollupState) CreateNode(
	currentBlock uint64,
	stateHash common.Hash,
	challengeHash common.Hash,
	confirmData common.Hash,
	prev uint64,
) (*node.Node, error) {
	prevNode, err := r.GetNode(prev)
	if err != nil {
		return nil, errors.Wrap(err, "invalid prev node")
	}
	confirmPeriod := r.confirmPeriodBlocks.Get()
	number := r.latestNodeCreated.Get() + 1
	deadline := util.MaxUint(currentBlock, prevNode.DeadlineBlock()) + confirmPeriod
	newNode := node.Initialize(
		r.nodeStorage(number),
		number,
		stateHash,
		challengeHash,
		confirmData,
		r.rollupAddress.Get(),
		prev,
		deadline,
	)
	prevNode.RecordChildCreated(number, currentBlock)
	if floor := currentBlock + confirmPeriod; floor > prevNode.NoChildConfirmedBeforeBlock() {
		prevNode.SetNoChildConfirmBefore(floor)
	}
	r.latestNodeCreated.Set(number)
	sharedmetrics.UpdateLatestNodeCreatedGauge(number)
	log.Info("created rollup node", "node", number, "prev", prev, "deadline", deadline)
	return newNode, nil
}

// ConfirmNextNode confirms the first unresolved node. The node must extend the confirmed
// chain, its own deadline and its parent's child-confirm floor must both have elapsed, and
// it must have at least one staker backing it.
func (r *RollupState) ConfirmNextNode(currentBlock uint64) error {
	number := r.firstUnresolvedNode.Get()
	if number > r.latestNodeCreated.Get() {
		return ErrNoUnresolvedNode
	}
	nd, err := r.GetNode(number)
	if err != nil {
		return errors.Wrap(err, "first unresolved node missing")
	}
	if nd.Prev() != r.latestConfirmed.Get() {
		// stale branch; it must be rejected instead
		return ErrInvalidPrev
	}
	prevNode, err := r.GetNode(nd.Prev())
	if err != nil {
		return errors.Wrap(err, "prev of unresolved node missing")
	}
	if err := nd.RequirePastDeadline(currentBlock); err != nil {
		return err
	}
	if err := prevNode.RequirePastChildConfirmDeadline(currentBlock); err != nil {
		return err
	}
	if nd.StakerCount() == 0 {
		return ErrNotStaked
	}
	r.latestConfirmed.Set(number)
	r.firstUnresolvedNode.Set(number + 1)
	sharedmetrics.UpdateLatestNodeConfirmedGauge(number)
	log.Info("confirmed rollup node", "node", number, "stakers", nd.StakerCount())
	return nil
}

// RejectNextNode destroys the first unresolved node. Only a node that does not extend the
// confirmed chain can be rejected this way: once a competing sibling has been confirmed, the
// rest of the branch is stale. Destruction clears the node's slots; its number is never
// assigned again.
func (r *RollupState) RejectNextNode() error {
	number := r.firstUnresolvedNode.Get()
	if number > r.latestNodeCreated.Get() {
		return ErrNoUnresolvedNode
	}
	nd, err := r.GetNode(number)
	if err != nil {
		return errors.Wrap(err, "first unresolved node missing")
	}
	if nd.Prev() == r.latestConfirmed.Get() {
		return ErrSuccessorOfLatest
	}
	nd.Destroy()
	r.firstUnresolvedNode.Set(number + 1)
	log.Info("rejected rollup node", "node", number)
	return nil
}
