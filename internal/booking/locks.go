package booking

import (
	"hash/fnv"
	"strconv"
	"sync"
)

// trainLocks serializes mutations per train number.  Train numbers are
// hashed onto a fixed set of mutexes, so memory stays bounded and two trains
// only share a lock when they share a stripe.
type trainLocks struct {
	stripes []sync.Mutex
}

func newTrainLocks(n int) *trainLocks {
	if n <= 0 {
		n = 64
	}
	return &trainLocks{stripes: make([]sync.Mutex, n)}
}

func stripeForTrain(number, stripes int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.Itoa(number)))
	return int(h.Sum32() % uint32(stripes))
}

// lock acquires the stripe for number and returns its unlock function.
func (l *trainLocks) lock(number int) func() {
	m := &l.stripes[stripeForTrain(number, len(l.stripes))]
	m.Lock()
	return m.Unlock
}
