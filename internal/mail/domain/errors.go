package domain

import "errors"

var (
	// ErrNotFound indicates an unknown or hidden message/account.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey indicates an (account_id, external_id) uniqueness
	// violation. Safety net only; callers dedup before inserting.
	ErrDuplicateKey = errors.New("duplicate message key")
	// ErrAuthFailure indicates bad credentials or an expired/revoked OAuth
	// token. Surfaced distinctly so the client can prompt re-auth.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrAdapterUnavailable indicates the remote mailbox could not be
	// reached. Retryable by invoking sync again later.
	ErrAdapterUnavailable = errors.New("mail source unavailable")
	// ErrValidation indicates malformed input fields.
	ErrValidation = errors.New("validation failed")
	// ErrSyncInProgress indicates a sync is already running for the account.
	ErrSyncInProgress = errors.New("sync already in progress for account")
)
