package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryOTPStore keeps verification codes in process memory. Used in
// development when no Redis instance is configured; codes do not survive
// a restart.
type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]memoryOTP
}

type memoryOTP struct {
	code      string
	expiresAt time.Time
}

// NewMemoryOTPStore creates a MemoryOTPStore.
func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{codes: make(map[string]memoryOTP)}
}

// Set stores a verification code with the given TTL.
func (s *MemoryOTPStore) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = memoryOTP{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get returns the current code for the address, or empty when none is
// outstanding or the code has expired.
func (s *MemoryOTPStore) Get(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[email]
	if !ok {
		return "", nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.codes, email)
		return "", nil
	}
	return entry.code, nil
}

// Delete removes the code after a successful verification.
func (s *MemoryOTPStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, email)
	return nil
}
