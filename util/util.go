//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package util

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func AddressToHash(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

func IntToHash(val int64) common.Hash {
	return common.BigToHash(big.NewInt(val))
}

func UintToHash(val uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(val))
}

func MaxUint(x, y uint64) uint64 {
	if x > y {
		return x
	}
	return y
}
