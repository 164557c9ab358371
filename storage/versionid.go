package storage

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Version id layout: 44 bits of milliseconds since the 2024-01-01 UTC epoch,
// 8 bits of worker id, 12 bits of per-millisecond sequence. Ids from one
// generator are strictly monotonic; ids from generators with distinct worker
// ids never collide. 44 bits of milliseconds lasts until the 2500s.
const (
	versionSeqBits    = 12
	versionWorkerBits = 8

	versionSeqMask = uint64(1)<<versionSeqBits - 1

	// maxVersionSpins bounds the CAS retry loop. Exceeding it means the
	// caller is far beyond the supported publish rate; erroring out
	// throttles naturally.
	maxVersionSpins = 100
)

var (
	ErrVersionOverload = errors.New("storage: version id generator over its configured rate")

	versionEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// VersionIDs issues time-ordered artifact version numbers.
type VersionIDs struct {
	workerID uint64

	// generatorStart carries a monotonic clock reading; wallOffset is its
	// distance from the epoch on the wall clock. Deriving timestamps from
	// the pair makes the generator immune to wall clock steps.
	generatorStart time.Time
	wallOffset     time.Duration

	// monotonic packs (milliseconds << versionSeqBits) | sequence. It only
	// ever increases; the CAS in NextID enforces that for all callers.
	monotonic atomic.Uint64
}

func NewVersionIDs(workerID uint8) *VersionIDs {
	now := time.Now()
	return &VersionIDs{
		workerID:       uint64(workerID),
		generatorStart: now,
		wallOffset:     now.Sub(versionEpoch),
	}
}

func (g *VersionIDs) nowMillis() uint64 {
	elapsed := time.Since(g.generatorStart) + g.wallOffset
	return uint64(elapsed / time.Millisecond)
}

// NextID returns the next version id. Within one generator the series is
// strictly increasing even when the sequence for the current millisecond
// overflows, because the timestamp portion simply borrows from the future
// by one tick.
func (g *VersionIDs) NextID() (uint64, error) {
	for i := 0; i <= maxVersionSpins; i++ {
		last := g.monotonic.Load()
		next := g.nowMillis() << versionSeqBits
		if next <= last {
			if last&versionSeqMask == versionSeqMask {
				// Sequence exhausted for this tick; retry until the clock
				// advances.
				continue
			}
			next = last + 1
		}
		if g.monotonic.CompareAndSwap(last, next) {
			ms := next >> versionSeqBits
			seq := next & versionSeqMask
			return ms<<(versionWorkerBits+versionSeqBits) |
				g.workerID<<versionSeqBits | seq, nil
		}
	}
	return 0, ErrVersionOverload
}

// VersionTime recovers the timestamp embedded in a version id.
func VersionTime(id uint64) time.Time {
	ms := id >> (versionWorkerBits + versionSeqBits)
	return versionEpoch.Add(time.Duration(ms) * time.Millisecond)
}

// VersionWorker recovers the worker id embedded in a version id.
func VersionWorker(id uint64) uint8 {
	return uint8(id >> versionSeqBits)
}

func (g *VersionIDs) String() string {
	return fmt.Sprintf("versionids(worker=%d)", g.workerID)
}
