package engine

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// LockTable linearizes all read-modify-write cycles on a single auction.
// The bid engine and the closer must share one table so that a buy-now and
// a timer fire for the same auction never interleave.
//
// Striping keeps the table fixed-size; a hash collision only serializes two
// unrelated auctions, it never breaks correctness.
type LockTable struct {
	stripes [lockStripes]sync.Mutex
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{}
}

// Lock acquires the stripe for auctionID and returns it for unlocking.
func (t *LockTable) Lock(auctionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(auctionID))
	mu := &t.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu
}
