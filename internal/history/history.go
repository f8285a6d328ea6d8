// Package history keeps a short in-memory log of recent analyses.
package history

import (
	"sync"
	"time"

	"github.com/mbd888/nexaguard/internal/metrics"
)

// DefaultCapacity is how many entries the log keeps.
const DefaultCapacity = 20

// Kind is what was analyzed.
type Kind string

const (
	KindWallet Kind = "wallet"
	KindToken  Kind = "token"
)

// Entry summarizes one completed analysis.
type Entry struct {
	Type      Kind   `json:"type"`
	Address   string `json:"address"`
	RiskScore int    `json:"riskScore"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Log is a fixed-capacity ring of entries. Pushing onto a full log drops the
// oldest entry.
type Log struct {
	mu    sync.RWMutex
	buf   []Entry
	head  int // index of the next write
	count int
	now   func() time.Time
}

// New creates a log holding up to capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Entry, capacity), now: time.Now}
}

// Push appends e.
func (l *Log) Push(e Entry) {
	l.mu.Lock()
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	n := l.count
	l.mu.Unlock()

	metrics.HistoryEntries.Set(float64(n))
}

// Record pushes an entry stamped with the current time.
func (l *Log) Record(kind Kind, address string, score int) Entry {
	e := Entry{Type: kind, Address: address, RiskScore: score, Timestamp: l.now().UnixMilli()}
	l.Push(e)
	return e
}

// Snapshot returns the entries most recent first.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, l.count)
	for i := 1; i <= l.count; i++ {
		idx := (l.head - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Cap returns the log's capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}
