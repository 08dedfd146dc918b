package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/repository"
	"github.com/ngoclaw/relaygate/internal/infrastructure/persistence/models"
	domainErrors "github.com/ngoclaw/relaygate/pkg/errors"
)

// GormCredentialRepository GORM 实现的凭证仓储，刷新令牌在落盘前加密。
type GormCredentialRepository struct {
	db     *gorm.DB
	cipher *fieldCipher
}

// NewGormCredentialRepository 创建 GORM 凭证仓储。encryptionKey 至少需要 32 字节。
func NewGormCredentialRepository(db *gorm.DB, encryptionKey []byte) (repository.CredentialRepository, error) {
	cipher, err := newFieldCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &GormCredentialRepository{db: db, cipher: cipher}, nil
}

func (r *GormCredentialRepository) FindByID(ctx context.Context, id string) (*entity.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("credential not found")
		}
		return nil, domainErrors.NewInternalError("failed to find credential: " + err.Error())
	}
	return r.toEntity(&model)
}

func (r *GormCredentialRepository) FindActiveByUser(ctx context.Context, userID string) ([]*entity.Credential, error) {
	return r.findWhere(ctx, "user_id = ? AND status = ?", userID, string(entity.CredentialStatusActive))
}

func (r *GormCredentialRepository) FindActivePublic(ctx context.Context) ([]*entity.Credential, error) {
	return r.findWhere(ctx, "visibility = ? AND status = ?", string(entity.VisibilityPublic), string(entity.CredentialStatusActive))
}

func (r *GormCredentialRepository) FindAllActive(ctx context.Context) ([]*entity.Credential, error) {
	return r.findWhere(ctx, "status = ?", string(entity.CredentialStatusActive))
}

func (r *GormCredentialRepository) FindAll(ctx context.Context) ([]*entity.Credential, error) {
	var modelList []models.CredentialModel
	if err := r.db.WithContext(ctx).Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find credentials: " + err.Error())
	}
	creds := make([]*entity.Credential, 0, len(modelList))
	for i := range modelList {
		c, err := r.toEntity(&modelList[i])
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, nil
}

func (r *GormCredentialRepository) findWhere(ctx context.Context, query string, args ...any) ([]*entity.Credential, error) {
	var modelList []models.CredentialModel
	if err := r.db.WithContext(ctx).Where(query, args...).Find(&modelList).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to find credentials: " + err.Error())
	}
	creds := make([]*entity.Credential, 0, len(modelList))
	for i := range modelList {
		c, err := r.toEntity(&modelList[i])
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, nil
}

func (r *GormCredentialRepository) Save(ctx context.Context, cred *entity.Credential) error {
	model, err := r.toModel(cred)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save credential: " + err.Error())
	}
	return nil
}

func (r *GormCredentialRepository) IncrementSuccess(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.CredentialModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"success_count": gorm.Expr("success_count + 1"),
			"last_used":     time.Now(),
		}).Error
}

func (r *GormCredentialRepository) IncrementFailure(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.CredentialModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"fail_count": gorm.Expr("fail_count + 1"),
			"last_used":  time.Now(),
		}).Error
}

func (r *GormCredentialRepository) MarkStatus(ctx context.Context, id string, status entity.CredentialStatus) error {
	return r.db.WithContext(ctx).Model(&models.CredentialModel{}).Where("id = ?", id).
		Update("status", string(status)).Error
}

func (r *GormCredentialRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.CredentialModel{}, "id = ?", id)
	if result.Error != nil {
		return domainErrors.NewInternalError("failed to delete credential: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return domainErrors.NewNotFoundError("credential not found")
	}
	return nil
}

func (r *GormCredentialRepository) toModel(c *entity.Credential) (*models.CredentialModel, error) {
	encrypted, err := r.cipher.encrypt(c.RefreshToken())
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to encrypt refresh token: " + err.Error())
	}
	return &models.CredentialModel{
		ID:                  c.ID(),
		EncryptedRefreshTok: encrypted,
		RefreshTokenHash:    hashRefreshToken(c.RefreshToken()),
		Region:              c.Region(),
		AuthType:            string(c.AuthType()),
		ClientID:            c.ClientID(),
		ClientSecret:        c.ClientSecret(),
		ProfileArn:          c.ProfileArn(),
		UserID:              c.UserID(),
		Visibility:          string(c.Visibility()),
		Status:              string(c.Status()),
		OpusEnabled:         c.OpusEnabled(),
		SuccessCount:        c.SuccessCount(),
		FailCount:           c.FailCount(),
		LastUsed:            c.LastUsed(),
		LastCheck:           c.LastCheck(),
		CreatedAt:            c.CreatedAt(),
	}, nil
}

func (r *GormCredentialRepository) toEntity(model *models.CredentialModel) (*entity.Credential, error) {
	refreshToken, err := r.cipher.decrypt(model.EncryptedRefreshTok)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to decrypt refresh token: " + err.Error())
	}
	return entity.ReconstructCredential(
		model.ID, refreshToken, model.Region,
		entity.AuthType(model.AuthType),
		model.ClientID, model.ClientSecret, model.ProfileArn, model.UserID,
		entity.CredentialVisibility(model.Visibility),
		entity.CredentialStatus(model.Status),
		model.OpusEnabled,
		model.SuccessCount, model.FailCount,
		model.LastUsed, model.LastCheck, model.CreatedAt,
	), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
