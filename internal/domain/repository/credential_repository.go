package repository

import (
	"context"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
)

// CredentialRepository 凭证仓储接口（定义在领域层，实现在基础设施层）。
type CredentialRepository interface {
	// FindByID 根据ID查找凭证，返回完整解密后的凭证。
	FindByID(ctx context.Context, id string) (*entity.Credential, error)

	// FindActiveByUser 查找某用户的全部可用（active）私有凭证。
	FindActiveByUser(ctx context.Context, userID string) ([]*entity.Credential, error)

	// FindActivePublic 查找全部可用的公共凭证。
	FindActivePublic(ctx context.Context) ([]*entity.Credential, error)

	// FindAllActive 查找全部可用凭证（健康检查器使用）。
	FindAllActive(ctx context.Context) ([]*entity.Credential, error)

	// FindAll returns every credential regardless of status, for
	// administrative listing (gwctl).
	FindAll(ctx context.Context) ([]*entity.Credential, error)

	// Save 保存凭证（创建或更新）。
	Save(ctx context.Context, cred *entity.Credential) error

	// IncrementSuccess 原子递增成功计数并记录使用时间。
	IncrementSuccess(ctx context.Context, id string) error

	// IncrementFailure 原子递增失败计数并记录使用时间。
	IncrementFailure(ctx context.Context, id string) error

	// MarkStatus 更新凭证状态（expired/invalid）。
	MarkStatus(ctx context.Context, id string, status entity.CredentialStatus) error

	// Delete 删除凭证。
	Delete(ctx context.Context, id string) error
}
