package entity

import "errors"

var (
	// Credential errors
	ErrInvalidCredentialID  = errors.New("invalid credential id")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrInvalidExternalAPIID = errors.New("invalid external api account id")
	ErrInvalidAPIBase       = errors.New("invalid api base")
)
