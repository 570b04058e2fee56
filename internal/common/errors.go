// Package common defines shared constants and sentinel errors used across
// client and server layers of notekeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository/store-level errors.
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Sync errors.
	ErrSyncInProgress  = errors.New("sync already in progress")
	ErrVersionConflict = errors.New("version conflict")

	// Tag errors.
	ErrPredefinedTag    = errors.New("predefined tags are immutable")
	ErrTagAlreadyExists = errors.New("tag already exists")

	// Auth errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrInvalidCredentials  = errors.New("invalid email/password")
	ErrEmailAlreadyExists  = errors.New("email already registered")
)
