package models

import (
	"time"

	"gorm.io/gorm"
)

// CredentialModel 数据库凭证模型。刷新令牌以加密形式落盘，RefreshTokenHash
// 保留一个不可逆哈希用于去重查找而不解密整行。
type CredentialModel struct {
	ID                  string `gorm:"primaryKey;size:64"`
	EncryptedRefreshTok string `gorm:"column:encrypted_refresh_token;type:text;not null"`
	RefreshTokenHash    string `gorm:"size:64;index"`
	Region              string `gorm:"size:32"`
	AuthType            string `gorm:"size:16"`
	ClientID            string `gorm:"size:128"`
	ClientSecret        string `gorm:"size:255"`
	ProfileArn          string `gorm:"size:255"`
	UserID              string `gorm:"size:64;index"`
	Visibility          string `gorm:"size:16;index"`
	Status              string `gorm:"size:16;index"`
	OpusEnabled         bool
	SuccessCount        int
	FailCount           int
	LastUsed            time.Time
	LastCheck           time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名
func (CredentialModel) TableName() string {
	return "credentials"
}
