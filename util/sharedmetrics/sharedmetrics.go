//
// Copyright 2021, Offchain Labs, Inc. All rights reserved.
//

package sharedmetrics

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	latestNodeCreatedGauge   = metrics.NewRegisteredGauge("rollup/node/created", nil)
	latestNodeConfirmedGauge = metrics.NewRegisteredGauge("rollup/node/confirmed", nil)
)

func UpdateLatestNodeCreatedGauge(nodeNum uint64) {
	latestNodeCreatedGauge.Update(int64(nodeNum))
}

func UpdateLatestNodeConfirmedGauge(nodeNum uint64) {
	latestNodeConfirmedGauge.Update(int64(nodeNum))
}
