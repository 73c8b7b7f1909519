package resetcode

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryStore is an in-process Store guarded by a single mutex.  It is only
// correct for a single-instance deployment.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, userID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Attempts = 0
	s.records[userID] = rec
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, userID, code string, now time.Time, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return ErrCodeNotFound
	}
	if !now.Before(rec.ExpiresAt) {
		delete(s.records, userID)
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		rec.Attempts++
		if maxAttempts > 0 && rec.Attempts >= maxAttempts {
			delete(s.records, userID)
		} else {
			s.records[userID] = rec
		}
		return ErrCodeMismatch
	}
	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// Sweep drops records that expired at or before now and returns how many
// were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RunSweeper calls Sweep every interval until ctx is done.  onSweep, when
// non-nil, receives the number of records removed by each pass.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n := s.Sweep(t)
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
