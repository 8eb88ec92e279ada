//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/rollupstate/util"
)

// Storage lets the rollup bookkeeping persist data in an Ethereum-compatible stateDB,
// represented as the storage of a fictional account at 0xA4B05FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFE.
//
// Storage is logically a tree of storage spaces that nest hierarchically. Each space is a
// key-value store with 256-bit keys and values, distinguished from its siblings by a byte-slice
// storageKey. The root space has the empty storageKey, and a child's storageKey is
// keccak256(parent.storageKey, name), so no two spaces can collide without a keccak collision.
// Uninitialized keys read as zero, matching Ethereum account storage semantics.
//
// The contents of key k in a space with storageKey s live at keccak256(s, k) in the single flat
// store that is the fictional account's storage.

type Storage struct {
	account    common.Address
	db         vm.StateDB
	storageKey []byte
}

// Use a Geth stateDB as the backing key-value store
func NewGeth(statedb vm.StateDB) *Storage {
	account := common.HexToAddress("0xA4B05FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFE")
	statedb.SetNonce(account, 1) // a nonzero nonce keeps Geth from treating the account as empty
	return &Storage{
		account:    account,
		db:         statedb,
		storageKey: []byte{},
	}
}

// Use Geth's memory-backed database to create a key-value store (testing only)
func NewMemoryBacked() *Storage {
	return NewGeth(NewMemoryBackedStateDB())
}

// Use Geth's memory-backed database to create a statedb
func NewMemoryBackedStateDB() vm.StateDB {
	raw := rawdb.NewMemoryDatabase()
	db := state.NewDatabase(raw)
	statedb, err := state.New(common.Hash{}, db, nil)
	if err != nil {
		panic("failed to init empty statedb")
	}
	return statedb
}

// Keys are mapped using "pages" of 256 contiguous slots: we hash the page number but not the
// offset within the page. Page numbers are 248 bits, which still leaves 124-bit collision
// resistance, and contiguity within a page lowers cost under storage representations that
// reward it.
func mapAddress(storageKey []byte, key common.Hash) common.Hash {
	keyBytes := key.Bytes()
	boundary := common.HashLength - 1
	return common.BytesToHash(
		append(
			crypto.Keccak256(storageKey, keyBytes[:boundary])[:boundary],
			keyBytes[boundary],
		),
	)
}

func (store *Storage) Get(key common.Hash) common.Hash {
	return store.db.GetState(store.account, mapAddress(store.storageKey, key))
}

func (store *Storage) GetUint64(key common.Hash) uint64 {
	return store.Get(key).Big().Uint64()
}

func (store *Storage) GetByUint64(key uint64) common.Hash {
	return store.Get(util.UintToHash(key))
}

func (store *Storage) GetUint64ByUint64(key uint64) uint64 {
	return store.Get(util.UintToHash(key)).Big().Uint64()
}

func (store *Storage) Set(key common.Hash, value common.Hash) {
	store.db.SetState(store.account, mapAddress(store.storageKey, key), value)
}

func (store *Storage) SetByUint64(key uint64, value common.Hash) {
	store.Set(util.UintToHash(key), value)
}

func (store *Storage) SetUint64ByUint64(key uint64, value uint64) {
	store.Set(util.UintToHash(key), util.UintToHash(value))
}

func (store *Storage) Clear(key common.Hash) {
	store.Set(key, common.Hash{})
}

func (store *Storage) OpenSubStorage(id []byte) *Storage {
	return &Storage{
		store.account,
		store.db,
		crypto.Keccak256(store.storageKey, id),
	}
}

type StorageSlot struct {
	account common.Address
	db      vm.StateDB
	slot    common.Hash
}

func (sto *Storage) NewSlot(offset uint64) StorageSlot {
	return StorageSlot{sto.account, sto.db, mapAddress(sto.storageKey, util.UintToHash(offset))}
}

func (ss *StorageSlot) Get() common.Hash {
	return ss.db.GetState(ss.account, ss.slot)
}

func (ss *StorageSlot) Set(val common.Hash) {
	ss.db.SetState(ss.account, ss.slot, val)
}

type StorageBackedUint64 struct {
	StorageSlot
}

func (sto *Storage) OpenStorageBackedUint64(offset uint64) StorageBackedUint64 {
	return StorageBackedUint64{sto.NewSlot(offset)}
}

func (sbu *StorageBackedUint64) Get() uint64 {
	raw := sbu.StorageSlot.Get().Big()
	if !raw.IsUint64() {
		panic("expected uint64 compatible value in storage")
	}
	return raw.Uint64()
}

func (sbu *StorageBackedUint64) Set(value uint64) {
	bigValue := new(big.Int).SetUint64(value)
	sbu.StorageSlot.Set(common.BigToHash(bigValue))
}

func (sbu *StorageBackedUint64) Increment() uint64 {
	old := sbu.Get()
	if old+1 < old {
		panic("Overflow in StorageBackedUint64::Increment")
	}
	sbu.Set(old + 1)
	return old + 1
}

func (sbu *StorageBackedUint64) Decrement() uint64 {
	old := sbu.Get()
	if old == 0 {
		panic("Underflow in StorageBackedUint64::Decrement")
	}
	sbu.Set(old - 1)
	return old - 1
}

type StorageBackedHash struct {
	StorageSlot
}

func (sto *Storage) OpenStorageBackedHash(offset uint64) StorageBackedHash {
	return StorageBackedHash{sto.NewSlot(offset)}
}

func (sbh *StorageBackedHash) Get() common.Hash {
	return sbh.StorageSlot.Get()
}

func (sbh *StorageBackedHash) Set(val common.Hash) {
	sbh.StorageSlot.Set(val)
}

type StorageBackedAddress struct {
	StorageSlot
}

func (sto *Storage) OpenStorageBackedAddress(offset uint64) StorageBackedAddress {
	return StorageBackedAddress{sto.NewSlot(offset)}
}

func (sba *StorageBackedAddress) Get() common.Address {
	return common.BytesToAddress(sba.StorageSlot.Get().Bytes())
}

func (sba *StorageBackedAddress) Set(val common.Address) {
	sba.StorageSlot.Set(common.BytesToHash(val.Bytes()))
}
