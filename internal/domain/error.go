package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthorized     = errors.New("action requires administrator rights")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrOperationFailed  = errors.New("operation failed")
	ErrInvalidCallback  = errors.New("invalid callback payload")
	ErrUnknownTariff    = errors.New("unknown tariff")
	ErrTrialAlreadyUsed = errors.New("trial period already used")
	ErrClaimHeld        = errors.New("operation already in progress")
	ErrMediaMissing     = errors.New("media file id not available")
)
