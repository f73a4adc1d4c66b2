package rest

import (
	"errors"
	"strings"
)

// VerifyOwnershipRequest is the body of POST /api/v1/ownership/verify.
type VerifyOwnershipRequest struct {
	TokenID   string `json:"tokenId" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Validate checks the request fields beyond what binding enforces.
func (r *VerifyOwnershipRequest) Validate() error {
	if strings.TrimSpace(r.TokenID) == "" {
		return errors.New("tokenId must not be blank")
	}
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message must not be blank")
	}
	if !strings.HasPrefix(r.Signature, "0x") {
		return errors.New("signature must be a 0x-prefixed hex string")
	}
	return nil
}
