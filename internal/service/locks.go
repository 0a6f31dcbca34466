package service

import (
	"hash/fnv"
	"sync"
)

// stripedLocks serializes work per key with a fixed number of mutexes.
// Distinct keys may share a stripe; that only costs some parallelism.
type stripedLocks struct {
	stripes [64]sync.Mutex
}

func (l *stripedLocks) lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
