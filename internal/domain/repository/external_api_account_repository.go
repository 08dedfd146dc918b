package repository

import (
	"context"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

// ExternalAPIAccountRepository 外部 API 账户仓储接口。
type ExternalAPIAccountRepository interface {
	FindByID(ctx context.Context, id string) (*entity.ExternalAPIAccount, error)
	FindByUser(ctx context.Context, userID string) ([]*entity.ExternalAPIAccount, error)
	Save(ctx context.Context, account *entity.ExternalAPIAccount) error
	IncrementSuccess(ctx context.Context, id string) error
	IncrementFailure(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
