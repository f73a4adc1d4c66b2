package domain

import "errors"

var (
	// ErrInvalidTokenID is returned when a token id cannot be parsed as a
	// decimal or 0x-prefixed hex integer
	ErrInvalidTokenID = errors.New("invalid token id")

	// ErrInvalidChain is returned when a chain identifier is not supported
	ErrInvalidChain = errors.New("invalid chain")

	// ErrInvalidSignature is returned when a wallet signature cannot be
	// recovered to a signer address
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrRateLimited is returned when a caller exceeds its request budget
	ErrRateLimited = errors.New("rate limited")

	// ErrNoMintRecord is returned when no zero-address transfer log exists
	// for a token
	ErrNoMintRecord = errors.New("no mint record found")

	// ErrNoMetadataURI is returned when a token carries no resolvable
	// metadata URI
	ErrNoMetadataURI = errors.New("no metadata URI")

	// ErrMetadataUnreachable is returned when every gateway candidate for a
	// metadata URI fails
	ErrMetadataUnreachable = errors.New("metadata unreachable")
)
