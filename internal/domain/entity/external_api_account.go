package entity

import (
	"strings"
	"time"
)

// APIFormat 外部账户所暴露的协议形状。
type APIFormat string

const (
	FormatOpenAI    APIFormat = "openai"
	FormatAnthropic APIFormat = "anthropic"
)

// ExternalAPIAccount 聚合根：一个用户自带的、已经是 OpenAI/Anthropic 兼容格式的
// 上游账户，作为 Upstream 凭证池之外的备选分配目标。
type ExternalAPIAccount struct {
	id             string
	apiBase        string
	apiKey         string
	format         APIFormat
	provider       string
	modelWhitelist []string
	userID         string
	successCount   int
	failCount      int
	createdAt      time.Time
}

// NewExternalAPIAccount 创建新的外部 API 账户。
func NewExternalAPIAccount(id, apiBase, apiKey string, format APIFormat, userID string) (*ExternalAPIAccount, error) {
	if id == "" {
		return nil, ErrInvalidExternalAPIID
	}
	if apiBase == "" {
		return nil, ErrInvalidAPIBase
	}
	return &ExternalAPIAccount{
		id:        id,
		apiBase:   strings.TrimRight(apiBase, "/"),
		apiKey:    apiKey,
		format:    format,
		userID:    userID,
		createdAt: time.Now(),
	}, nil
}

// ReconstructExternalAPIAccount 从持久化层恢复外部账户。
func ReconstructExternalAPIAccount(
	id, apiBase, apiKey string,
	format APIFormat,
	provider string,
	modelWhitelist []string,
	userID string,
	successCount, failCount int,
	createdAt time.Time,
) *ExternalAPIAccount {
	return &ExternalAPIAccount{
		id:             id,
		apiBase:        apiBase,
		apiKey:         apiKey,
		format:         format,
		provider:       provider,
		modelWhitelist: modelWhitelist,
		userID:         userID,
		successCount:   successCount,
		failCount:      failCount,
		createdAt:      createdAt,
	}
}

func (a *ExternalAPIAccount) ID() string            { return a.id }
func (a *ExternalAPIAccount) APIBase() string       { return a.apiBase }
func (a *ExternalAPIAccount) APIKey() string        { return a.apiKey }
func (a *ExternalAPIAccount) Format() APIFormat     { return a.format }
func (a *ExternalAPIAccount) Provider() string      { return a.provider }
func (a *ExternalAPIAccount) UserID() string        { return a.userID }
func (a *ExternalAPIAccount) SuccessCount() int     { return a.successCount }
func (a *ExternalAPIAccount) FailCount() int        { return a.failCount }
func (a *ExternalAPIAccount) CreatedAt() time.Time  { return a.createdAt }

// SupportsModel reports whether the account's whitelist allows model,
// by exact trimmed match; an empty whitelist allows every model.
func (a *ExternalAPIAccount) SupportsModel(model string) bool {
	if len(a.modelWhitelist) == 0 {
		return true
	}
	for _, m := range a.modelWhitelist {
		if strings.TrimSpace(m) == model {
			return true
		}
	}
	return false
}

// RecordSuccess records one successful delegated call.
func (a *ExternalAPIAccount) RecordSuccess() {
	a.successCount++
}

// RecordFailure records one failed delegated call.
func (a *ExternalAPIAccount) RecordFailure() {
	a.failCount++
}
