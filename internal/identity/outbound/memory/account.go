package memory

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (m *Memory) GetAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	acc := m.accounts[id]
	return &acc, nil
}

func (m *Memory) GetAccountByID(_ context.Context, id int64) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &acc, nil
}

func (m *Memory) CreateAccount(_ context.Context, acc entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[acc.Email]; ok {
		return goerror.ErrConflict
	}
	if _, ok := m.accounts[acc.ID]; ok {
		return goerror.ErrConflict
	}

	m.accounts[acc.ID] = acc
	m.emails[acc.Email] = acc.ID
	return nil
}

func (m *Memory) UpdatePendingAccount(_ context.Context, acc entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accounts[acc.ID]
	if !ok || cur.Status != entity.AccountStatusUnverified {
		return goerror.ErrNotFound
	}

	cur.FullName = acc.FullName
	cur.Phone = acc.Phone
	cur.PasswordHash = acc.PasswordHash
	cur.UpdatedAt = acc.UpdatedAt
	m.accounts[acc.ID] = cur
	return nil
}

func (m *Memory) ActivateAccount(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accounts[id]
	if !ok || cur.Status != entity.AccountStatusUnverified {
		return goerror.ErrNotFound
	}

	cur.Status = entity.AccountStatusActive
	cur.VerifiedAt = &at
	cur.UpdatedAt = at
	m.accounts[id] = cur
	return nil
}

func (m *Memory) UpdateAccountProfile(_ context.Context, id int64, fullName, phone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accounts[id]
	if !ok {
		return goerror.ErrNotFound
	}

	cur.FullName = fullName
	cur.Phone = phone
	cur.UpdatedAt = at
	m.accounts[id] = cur
	return nil
}
