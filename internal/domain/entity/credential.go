package entity

import "time"

// CredentialStatus 凭证状态
type CredentialStatus string

const (
	CredentialStatusActive  CredentialStatus = "active"
	CredentialStatusInvalid CredentialStatus = "invalid"
	CredentialStatusExpired CredentialStatus = "expired"
)

// CredentialVisibility 凭证可见性：公共池或私有
type CredentialVisibility string

const (
	VisibilityPublic  CredentialVisibility = "public"
	VisibilityPrivate CredentialVisibility = "private"
)

// AuthType 刷新令牌使用的鉴权流程
type AuthType string

const (
	AuthTypeSocial AuthType = "social"
	AuthTypeIDC    AuthType = "idc"
)

// Credential 聚合根：一个可用于向 Upstream 发起请求的刷新令牌及其统计信息。
// 访问令牌的缓存与刷新由 CredentialManager 持有，不属于这个实体。
type Credential struct {
	id           string
	refreshToken string
	region       string
	authType     AuthType
	clientID     string
	clientSecret string
	profileArn   string
	userID       string
	visibility   CredentialVisibility
	status       CredentialStatus
	opusEnabled  bool
	successCount int
	failCount    int
	lastUsed     time.Time
	lastCheck    time.Time
	createdAt    time.Time
}

// NewCredential 创建新的凭证。
func NewCredential(id, refreshToken, region string, authType AuthType, visibility CredentialVisibility) (*Credential, error) {
	if id == "" {
		return nil, ErrInvalidCredentialID
	}
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	now := time.Now()
	return &Credential{
		id:           id,
		refreshToken: refreshToken,
		region:       region,
		authType:     authType,
		visibility:   visibility,
		status:       CredentialStatusActive,
		createdAt:    now,
	}, nil
}

// ReconstructCredential 从持久化层恢复凭证。
func ReconstructCredential(
	id, refreshToken, region string,
	authType AuthType,
	clientID, clientSecret, profileArn, userID string,
	visibility CredentialVisibility,
	status CredentialStatus,
	opusEnabled bool,
	successCount, failCount int,
	lastUsed, lastCheck, createdAt time.Time,
) *Credential {
	return &Credential{
		id:           id,
		refreshToken: refreshToken,
		region:       region,
		authType:     authType,
		clientID:     clientID,
		clientSecret: clientSecret,
		profileArn:   profileArn,
		userID:       userID,
		visibility:   visibility,
		status:       status,
		opusEnabled:  opusEnabled,
		successCount: successCount,
		failCount:    failCount,
		lastUsed:     lastUsed,
		lastCheck:    lastCheck,
		createdAt:    createdAt,
	}
}

func (c *Credential) ID() string                         { return c.id }
func (c *Credential) RefreshToken() string                { return c.refreshToken }
func (c *Credential) Region() string                      { return c.region }
func (c *Credential) AuthType() AuthType                  { return c.authType }
func (c *Credential) ClientID() string                    { return c.clientID }
func (c *Credential) ClientSecret() string                { return c.clientSecret }
func (c *Credential) ProfileArn() string                  { return c.profileArn }
func (c *Credential) UserID() string                      { return c.userID }
func (c *Credential) Visibility() CredentialVisibility    { return c.visibility }
func (c *Credential) Status() CredentialStatus            { return c.status }
func (c *Credential) OpusEnabled() bool                   { return c.opusEnabled }
func (c *Credential) SuccessCount() int                   { return c.successCount }
func (c *Credential) FailCount() int                      { return c.failCount }
func (c *Credential) LastUsed() time.Time                 { return c.lastUsed }
func (c *Credential) LastCheck() time.Time                { return c.lastCheck }
func (c *Credential) CreatedAt() time.Time                { return c.createdAt }

// IsUsable 只有 active 状态的凭证才参与分配。
func (c *Credential) IsUsable() bool {
	return c.status == CredentialStatusActive
}

// RecordSuccess 记录一次成功调用。
func (c *Credential) RecordSuccess(at time.Time) {
	c.successCount++
	c.lastUsed = at
}

// RecordFailure 记录一次失败调用；不改变状态，配额失败请改用 MarkExpired。
func (c *Credential) RecordFailure(at time.Time) {
	c.failCount++
	c.lastUsed = at
}

// RecordHealthCheck 记录一次健康检查结果。
func (c *Credential) RecordHealthCheck(at time.Time, healthy bool) {
	c.lastCheck = at
	if !healthy {
		c.status = CredentialStatusInvalid
	}
}

// MarkExpired 标记为配额耗尽（如 MONTHLY_REQUEST_COUNT 超限）。
func (c *Credential) MarkExpired() {
	c.status = CredentialStatusExpired
}

// MarkInvalid 标记为刷新失败等不可恢复错误。
func (c *Credential) MarkInvalid() {
	c.status = CredentialStatusInvalid
}

// UpdateProfileArn 记录刷新流程返回的 profileArn。
func (c *Credential) UpdateProfileArn(arn string) {
	if arn != "" {
		c.profileArn = arn
	}
}

// UpdateRefreshToken replaces the refresh token when Upstream rotates it
// as part of a refresh response.
func (c *Credential) UpdateRefreshToken(token string) {
	if token != "" {
		c.refreshToken = token
	}
}

// TotalUses 返回成功与失败次数之和，用于评分时的样本量判断。
func (c *Credential) TotalUses() int {
	return c.successCount + c.failCount
}

// SuccessRate 返回成功率；尚无调用记录时视为满分，避免对新凭证的惩罚。
func (c *Credential) SuccessRate() float64 {
	total := c.TotalUses()
	if total == 0 {
		return 1
	}
	return float64(c.successCount) / float64(total)
}
