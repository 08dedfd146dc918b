package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/internal/infrastructure/persistence/models"
	domainErrors "github.com/ngoclaw/relaygate/pkg/errors"
)

// GormExternalAPIAccountRepository GORM 实现的外部 API 账户仓储。
type GormExternalAPIAccountRepository struct {
	db     *gorm.DB
	cipher *fieldCipher
}

// NewGormExternalAPIAccountRepository 创建 GORM 外部账户仓储。
func NewGormExternalAPIAccountRepository(db *gorm.DB, encryptionKey []byte) (repository.ExternalAPIAccountRepository, error) {
	cipher, err := newFieldCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &GormExternalAPIAccountRepository{db: db, cipher: cipher}, nil
}

func (r *GormExternalAPIAccountRepository) FindByID(ctx context.Context, id string) (*entity.ExternalAPIAccount, error) {
	var model models.ExternalAPIAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("external api account not found")
		}
		return nil, domainErrors.NewInternalError("failed to find external api account: " + err.Error())
	}
	return r.toEntity(&model)
}

func (r *GormExternalAPIAccountRepository) FindByUser(ctx context.Context, userID string) ([]*entity.ExternalAPIAccount, error) {
	var modelList []models.ExternalAPIAccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find external api accounts: " + err.Error())
	}
	out := make([]*entity.ExternalAPIAccount, 0, len(modelList))
	for i := range modelList {
		a, err := r.toEntity(&modelList[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *GormExternalAPIAccountRepository) Save(ctx context.Context, account *entity.ExternalAPIAccount) error {
	model, err := r.toModel(account)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save external api account: " + err.Error())
	}
	return nil
}

func (r *GormExternalAPIAccountRepository) IncrementSuccess(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.ExternalAPIAccountModel{}).Where("id = ?", id).
		Update("success_count", gorm.Expr("success_count + 1")).Error
}

func (r *GormExternalAPIAccountRepository) IncrementFailure(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.ExternalAPIAccountModel{}).Where("id = ?", id).
		Update("fail_count", gorm.Expr("fail_count + 1")).Error
}

func (r *GormExternalAPIAccountRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ExternalAPIAccountModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete external api account: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("external api account not found")
	}
	return nil
}

func (r *GormExternalAPIAccountRepository) toModel(a *entity.ExternalAPIAccount) (*models.ExternalAPIAccountModel, error) {
	encrypted, err := r.cipher.encrypt(a.APIKey())
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to encrypt api key: " + err.Error())
	}
	return &models.ExternalAPIAccountModel{
		ID:              a.ID(),
		APIBase:         a.APIBase(),
		EncryptedAPIKey: encrypted,
		Format:          string(a.Format()),
		Provider:        a.Provider(),
		UserID:          a.UserID(),
		SuccessCount:    a.SuccessCount(),
		FailCount:       a.FailCount(),
		CreatedAt:       a.CreatedAt(),
	}, nil
}

func (r *GormExternalAPIAccountRepository) toEntity(model *models.ExternalAPIAccountModel) (*entity.ExternalAPIAccount, error) {
	apiKey, err := r.cipher.decrypt(model.EncryptedAPIKey)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to decrypt api key: " + err.Error())
	}
	var whitelist []string
	if model.ModelWhitelist != "" {
		for _, m := range strings.Split(model.ModelWhitelist, ",") {
			whitelist = append(whitelist, strings.TrimSpace(m))
		}
	}
	return entity.ReconstructExternalAPIAccount(
		model.ID, model.APIBase, apiKey,
		entity.APIFormat(model.Format), model.Provider, whitelist, model.UserID,
		model.SuccessCount, model.FailCount, model.CreatedAt,
	), nil
}
