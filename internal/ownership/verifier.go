package ownership

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/providers/ethereum"
)

// VerifyRequest is a claim that the signer of Message currently owns TokenID
type VerifyRequest struct {
	TokenID   string `json:"tokenId"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// VerifyResult reports the recovered signer, the on-chain owner and whether
// they match
type VerifyResult struct {
	TokenID  string `json:"tokenId"`
	Signer   string `json:"signer"`
	Owner    string `json:"owner"`
	Verified bool   `json:"verified"`
}

// Verifier checks wallet-signature ownership claims
//
//go:generate mockgen -source=verifier.go -destination=../mocks/ownership_verifier.go -package=mocks -mock_names=Verifier=MockVerifier
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

type verifier struct {
	chain ethereum.ChainClient
}

// NewVerifier creates an ownership verifier backed by the given chain client
func NewVerifier(chain ethereum.ChainClient) Verifier {
	return &verifier{chain: chain}
}

// Verify recovers the EIP-191 signer of the message and compares it with the
// token's current on-chain owner. A malformed signature is an error; a valid
// signature from a non-owner is a negative result, not an error.
func (v *verifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	tokenID := domain.NormalizeTokenID(req.TokenID)
	if !domain.IsCanonicalTokenID(tokenID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTokenID, req.TokenID)
	}

	signer, err := RecoverSigner(req.Message, req.Signature)
	if err != nil {
		return nil, err
	}

	owner, err := v.chain.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner: %w", err)
	}

	return &VerifyResult{
		TokenID:  tokenID,
		Signer:   signer,
		Owner:    owner,
		Verified: signer == owner && owner != domain.ETHEREUM_ZERO_ADDRESS,
	}, nil
}

// RecoverSigner recovers the address that produced an EIP-191 personal-sign
// signature over message. The returned address is lowercase.
func RecoverSigner(message string, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", domain.ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1
	recovery := make([]byte, len(sig))
	copy(recovery, sig)
	if recovery[crypto.RecoveryIDOffset] >= 27 {
		recovery[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), recovery)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	return domain.NormalizeAddress(crypto.PubkeyToAddress(*pubKey).Hex()), nil
}
