// Package memory keeps identity state in process. It backs tests and
// single-instance deployments with store "memory".
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type recordKey struct {
	identity string
	purpose  entity.Purpose
}

// Memory implements the ledger, record and account stores. One mutex guards
// everything so increments and replacements are linearizable per key.
type Memory struct {
	mu       sync.Mutex
	attempts map[recordKey][]entity.AttemptRecord
	records  map[recordKey]entity.OTPRecord
	accounts map[int64]entity.Account
	emails   map[string]int64
}

func New() *Memory {
	return &Memory{
		attempts: make(map[recordKey][]entity.AttemptRecord),
		records:  make(map[recordKey]entity.OTPRecord),
		accounts: make(map[int64]entity.Account),
		emails:   make(map[string]int64),
	}
}

func (m *Memory) RecordIssuance(_ context.Context, rec entity.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity: rec.Identity, purpose: rec.Purpose}
	m.attempts[key] = append(m.attempts[key], rec)
	return nil
}

func (m *Memory) Reserve(_ context.Context, rec entity.AttemptRecord, since time.Time, limit int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity: rec.Identity, purpose: rec.Purpose}
	n := 0
	for _, r := range m.attempts[key] {
		if r.IssuedAt.After(since) {
			n++
		}
	}
	if n >= limit {
		return n, false, nil
	}
	m.attempts[key] = append(m.attempts[key], rec)
	return n + 1, true, nil
}

func (m *Memory) Remove(_ context.Context, rec entity.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity: rec.Identity, purpose: rec.Purpose}
	kept := slices.DeleteFunc(m.attempts[key], func(r entity.AttemptRecord) bool { return r.ID == rec.ID })
	if len(kept) == 0 {
		delete(m.attempts, key)
		return nil
	}
	m.attempts[key] = kept
	return nil
}

func (m *Memory) CountRecent(_ context.Context, identity string, purpose entity.Purpose, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, rec := range m.attempts[recordKey{identity: identity, purpose: purpose}] {
		if rec.IssuedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) OldestRecent(_ context.Context, identity string, purpose entity.Purpose, since time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest time.Time
	for _, rec := range m.attempts[recordKey{identity: identity, purpose: purpose}] {
		if rec.IssuedAt.After(since) && (oldest.IsZero() || rec.IssuedAt.Before(oldest)) {
			oldest = rec.IssuedAt
		}
	}
	if oldest.IsZero() {
		return time.Time{}, goerror.ErrNotFound
	}
	return oldest, nil
}

func (m *Memory) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for key, recs := range m.attempts {
		kept := slices.DeleteFunc(recs, func(rec entity.AttemptRecord) bool {
			return !rec.IssuedAt.After(before)
		})
		purged += int64(len(recs) - len(kept))
		if len(kept) == 0 {
			delete(m.attempts, key)
			continue
		}
		m.attempts[key] = kept
	}
	return purged, nil
}

func (m *Memory) Put(_ context.Context, rec entity.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.VerifyAttemptsUsed = 0
	m.records[recordKey{identity: rec.Identity, purpose: rec.Purpose}] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, identity string, purpose entity.Purpose) (*entity.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey{identity: identity, purpose: purpose}]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) IncrementAttempt(_ context.Context, identity string, purpose entity.Purpose) (*entity.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity: identity, purpose: purpose}
	rec, ok := m.records[key]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	rec.VerifyAttemptsUsed++
	m.records[key] = rec
	return &rec, nil
}

func (m *Memory) Consume(_ context.Context, identity string, purpose entity.Purpose, codeHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{identity: identity, purpose: purpose}
	rec, ok := m.records[key]
	if !ok || rec.CodeHash != codeHash {
		return false, nil
	}
	delete(m.records, key)
	return true, nil
}

func (m *Memory) Delete(_ context.Context, identity string, purpose entity.Purpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, recordKey{identity: identity, purpose: purpose})
	return nil
}

func (m *Memory) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for key, rec := range m.records {
		if rec.ExpiresAt.Before(before) {
			delete(m.records, key)
			purged++
		}
	}
	return purged, nil
}
