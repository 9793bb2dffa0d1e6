package auction

import (
	"hash/fnv"
	"sync"
)

// lockTable serializes mutations per auction ID. A fixed pool of mutexes
// keeps memory bounded no matter how many auctions exist, at the cost of
// occasional false sharing between IDs that hash to the same slot.
type lockTable struct {
	slots [256]sync.Mutex
}

// acquire locks the slot for the given auction ID and returns the unlock.
func (t *lockTable) acquire(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &t.slots[h.Sum32()%uint32(len(t.slots))]
	mu.Lock()
	return mu.Unlock
}
