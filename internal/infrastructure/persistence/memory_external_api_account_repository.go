package persistence

import (
	"context"
	"sync"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/pkg/errors"
)

// MemoryExternalAPIAccountRepository 内存实现的外部 API 账户仓储（用于开发/测试）。
type MemoryExternalAPIAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*entity.ExternalAPIAccount
}

// NewMemoryExternalAPIAccountRepository 创建内存外部账户仓储。
func NewMemoryExternalAPIAccountRepository() repository.ExternalAPIAccountRepository {
	return &MemoryExternalAPIAccountRepository{accounts: make(map[string]*entity.ExternalAPIAccount)}
}

func (r *MemoryExternalAPIAccountRepository) FindByID(ctx context.Context, id string) (*entity.ExternalAPIAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, errors.NewNotFoundError("external api account not found")
	}
	return a, nil
}

func (r *MemoryExternalAPIAccountRepository) FindByUser(ctx context.Context, userID string) ([]*entity.ExternalAPIAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.ExternalAPIAccount, 0)
	for _, a := range r.accounts {
		if a.UserID() == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryExternalAPIAccountRepository) Save(ctx context.Context, account *entity.ExternalAPIAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID()] = account
	return nil
}

func (r *MemoryExternalAPIAccountRepository) IncrementSuccess(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return errors.NewNotFoundError("external api account not found")
	}
	a.RecordSuccess()
	return nil
}

func (r *MemoryExternalAPIAccountRepository) IncrementFailure(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return errors.NewNotFoundError("external api account not found")
	}
	a.RecordFailure()
	return nil
}

func (r *MemoryExternalAPIAccountRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return errors.NewNotFoundError("external api account not found")
	}
	delete(r.accounts, id)
	return nil
}
