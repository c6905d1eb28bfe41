// Package common defines shared constants and sentinel errors used across
// the storage engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Input validation errors (bad URL, unsaved owner, unusable source).
	ErrInvalidInput = errors.New("invalid input")

	// Lookup errors.
	ErrNotFound         = errors.New("not found")
	ErrVersionNotExists = errors.New("version does not exist")

	// Configuration errors.
	ErrNoCredentials  = errors.New("no credentials configured")
	ErrUnknownStorage = errors.New("unknown storage alias")
	ErrBadOption      = errors.New("unsupported version option")

	// I/O errors raised while persisting or moving artifacts.
	ErrWrite    = errors.New("write error")
	ErrTransfer = errors.New("transfer error")
)
