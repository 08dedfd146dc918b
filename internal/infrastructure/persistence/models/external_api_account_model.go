package models

import (
	"time"

	"gorm.io/gorm"
)

// ExternalAPIAccountModel 数据库外部 API 账户模型。
type ExternalAPIAccountModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	APIBase        string `gorm:"size:255;not null"`
	EncryptedAPIKey string `gorm:"column:encrypted_api_key;type:text;not null"`
	Format         string `gorm:"size:16"`
	Provider       string `gorm:"size:64"`
	ModelWhitelist string `gorm:"type:text"` // comma-separated
	UserID         string `gorm:"size:64;index"`
	SuccessCount   int
	FailCount      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名
func (ExternalAPIAccountModel) TableName() string {
	return "external_api_accounts"
}
