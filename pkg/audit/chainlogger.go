// Package audit provides a tamper-evident, hash-chained log of ledger
// operations. It complements the persisted transaction trail: the chain
// lives in process memory and makes after-the-fact edits to the operation
// history detectable.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is one link in the chain. Hash covers every other field plus the
// previous entry's hash, so changing any recorded operation breaks
// verification from that point on.
type Entry struct {
	Seq          uint64 `json:"seq"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Operation    string `json:"operation"`
	Detail       string `json:"detail"`
	Hash         string `json:"hash"`
}

// ChainLogger appends hash-chained entries. Safe for concurrent use.
type ChainLogger struct {
	mu           sync.Mutex
	seq          uint64
	previousHash string
	now          func() time.Time
}

// NewChainLogger starts a chain anchored at the zero hash.
func NewChainLogger() *ChainLogger {
	return &ChainLogger{
		previousHash: strings.Repeat("0", 64),
		now:          time.Now,
	}
}

// Append records one operation and returns the sealed entry.
func (c *ChainLogger) Append(operation, detail string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	entry := &Entry{
		Seq:          c.seq,
		Timestamp:    c.now().UTC().Format(time.RFC3339),
		PreviousHash: c.previousHash,
		Operation:    operation,
		Detail:       detail,
	}
	entry.Hash = seal(entry)
	c.previousHash = entry.Hash
	return entry
}

// VerifyChain reports whether entries form an unbroken, untampered chain.
func VerifyChain(entries []*Entry) bool {
	for i, entry := range entries {
		if i > 0 && entry.PreviousHash != entries[i-1].Hash {
			return false
		}
		if seal(entry) != entry.Hash {
			return false
		}
	}
	return true
}

func seal(e *Entry) string {
	input := fmt.Sprintf("%d|%s|%s|%s|%s", e.Seq, e.PreviousHash, e.Timestamp, e.Operation, e.Detail)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
