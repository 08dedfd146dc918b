package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/pkg/errors"
)

// MemoryCredentialRepository 内存实现的凭证仓储（用于开发/测试）。
type MemoryCredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]*entity.Credential
}

// NewMemoryCredentialRepository 创建内存凭证仓储。
func NewMemoryCredentialRepository() repository.CredentialRepository {
	return &MemoryCredentialRepository{creds: make(map[string]*entity.Credential)}
}

func (r *MemoryCredentialRepository) FindByID(ctx context.Context, id string) (*entity.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creds[id]
	if !ok {
		return nil, errors.NewNotFoundError("credential not found")
	}
	return c, nil
}

func (r *MemoryCredentialRepository) FindActiveByUser(ctx context.Context, userID string) ([]*entity.Credential, error) {
	return r.filter(func(c *entity.Credential) bool {
		return c.UserID() == userID && c.IsUsable()
	}), nil
}

func (r *MemoryCredentialRepository) FindActivePublic(ctx context.Context) ([]*entity.Credential, error) {
	return r.filter(func(c *entity.Credential) bool {
		return c.Visibility() == entity.VisibilityPublic && c.IsUsable()
	}), nil
}

func (r *MemoryCredentialRepository) FindAllActive(ctx context.Context) ([]*entity.Credential, error) {
	return r.filter(func(c *entity.Credential) bool { return c.IsUsable() }), nil
}

func (r *MemoryCredentialRepository) FindAll(ctx context.Context) ([]*entity.Credential, error) {
	return r.filter(func(c *entity.Credential) bool { return true }), nil
}

func (r *MemoryCredentialRepository) filter(pred func(*entity.Credential) bool) []*entity.Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Credential, 0)
	for _, c := range r.creds {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *MemoryCredentialRepository) Save(ctx context.Context, cred *entity.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[cred.ID()] = cred
	return nil
}

func (r *MemoryCredentialRepository) IncrementSuccess(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return errors.NewNotFoundError("credential not found")
	}
	c.RecordSuccess(time.Now())
	return nil
}

func (r *MemoryCredentialRepository) IncrementFailure(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return errors.NewNotFoundError("credential not found")
	}
	c.RecordFailure(time.Now())
	return nil
}

func (r *MemoryCredentialRepository) MarkStatus(ctx context.Context, id string, status entity.CredentialStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return errors.NewNotFoundError("credential not found")
	}
	switch status {
	case entity.CredentialStatusExpired:
		c.MarkExpired()
	case entity.CredentialStatusInvalid:
		c.MarkInvalid()
	}
	return nil
}

func (r *MemoryCredentialRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[id]; !ok {
		return errors.NewNotFoundError("credential not found")
	}
	delete(r.creds, id)
	return nil
}
