// Package snowflake generates 64-bit time-ordered unique IDs:
// 41 bits of millisecond timestamp since a configurable epoch, 10 bits
// of node ID, and a 12-bit per-millisecond sequence.
package snowflake

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	nodeBits     = 10
	sequenceBits = 12

	maxNode     = (1 << nodeBits) - 1     // 1023
	maxSequence = (1 << sequenceBits) - 1 // 4095

	nodeShift      = sequenceBits
	timestampShift = nodeBits + sequenceBits

	// Clock regressions up to this long are waited out; anything
	// larger is reported to the caller instead of minting IDs out of
	// order.
	maxClockDrift = 5 * time.Millisecond
)

// DefaultEpoch is 2024-01-01T00:00:00Z in Unix milliseconds.
const DefaultEpoch int64 = 1704067200000

// ErrClockMovedBackwards is returned when the wall clock regressed too
// far for the generator to wait it out.
var ErrClockMovedBackwards = errors.New("clock moved backwards")

// ID is a minted snowflake identifier.
type ID int64

// String renders the ID in decimal, the form used on the wire.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Fields is the decomposition of an ID.
type Fields struct {
	Timestamp time.Time `json:"timestamp"`
	NodeID    int64     `json:"node_id"`
	Sequence  int64     `json:"sequence"`
}

// Generator mints monotonically increasing IDs for a single node.
// Safe for concurrent use; generation is serialized by a mutex.
type Generator struct {
	mu       sync.Mutex
	epoch    int64
	nodeID   int64
	lastMs   int64
	sequence int64

	nowMs func() int64
	sleep func(time.Duration)
}

// New creates a generator for the given node ID, using epochMs as the
// timestamp origin (DefaultEpoch if zero).
func New(nodeID int64, epochMs int64) (*Generator, error) {
	if nodeID < 0 || nodeID > maxNode {
		return nil, fmt.Errorf("node id must be in [0, %d], got %d", maxNode, nodeID)
	}
	if epochMs == 0 {
		epochMs = DefaultEpoch
	}
	return &Generator{
		epoch:  epochMs,
		nodeID: nodeID,
		lastMs: -1,
		nowMs:  func() int64 { return time.Now().UnixMilli() },
		sleep:  time.Sleep,
	}, nil
}

// Next mints one ID. Within a single millisecond IDs differ by
// sequence; when the 12-bit sequence overflows, Next busy-waits for the
// next millisecond.
func (g *Generator) Next() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowMs()
	if now < g.lastMs {
		drift := time.Duration(g.lastMs-now) * time.Millisecond
		if drift > maxClockDrift {
			return 0, fmt.Errorf("%w by %s", ErrClockMovedBackwards, drift)
		}
		for now < g.lastMs {
			g.sleep(time.Millisecond)
			now = g.nowMs()
		}
	}

	if now == g.lastMs {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for now <= g.lastMs {
				now = g.nowMs()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = now

	id := (now-g.epoch)<<timestampShift | g.nodeID<<nodeShift | g.sequence
	return ID(id), nil
}

// NextBatch mints n IDs in one call.
func (g *Generator) NextBatch(n int) ([]ID, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	ids := make([]ID, n)
	for i := range ids {
		id, err := g.Next()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Decompose splits an ID back into its timestamp, node, and sequence
// using the generator's epoch.
func (g *Generator) Decompose(id ID) Fields {
	v := int64(id)
	return Fields{
		Timestamp: time.UnixMilli((v >> timestampShift) + g.epoch).UTC(),
		NodeID:    (v >> nodeShift) & maxNode,
		Sequence:  v & maxSequence,
	}
}

// NodeID returns the generator's node identifier.
func (g *Generator) NodeID() int64 { return g.nodeID }
