package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/tessera-studio/provenance-api/internal/adapter"
	"github.com/tessera-studio/provenance-api/internal/domain"
	"github.com/tessera-studio/provenance-api/internal/logger"
)

var (
	// transferEventSignature is the ERC721/ERC20 Transfer event signature
	transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// zeroAddressHash is the zero address padded to a topic, the `from` of a mint
	zeroAddressHash = common.BytesToHash(common.HexToAddress(domain.ETHEREUM_ZERO_ADDRESS).Bytes())
)

// MintInfo describes the mint of a token: the transaction that emitted the
// earliest zero-address transfer and the address it minted to
type MintInfo struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Minter      string `json:"minter"`
}

// ChainClient exposes the read-only ERC721 contract operations the
// provenance pipeline needs. A client is scoped to a single contract.
//
//go:generate mockgen -source=client.go -destination=../../mocks/chain_client.go -package=mocks -mock_names=ChainClient=MockChainClient
type ChainClient interface {
	// TokenURI fetches the metadata URI of a token via eth_call
	TokenURI(ctx context.Context, tokenID string) (string, error)

	// OwnerOf fetches the current owner of a token via eth_call
	OwnerOf(ctx context.Context, tokenID string) (string, error)

	// OwnersForToken returns the owner set of a token: the current owner,
	// plus every historical recipient when historical lookups are enabled.
	// Addresses are lowercase and deduplicated; the zero address is excluded.
	OwnersForToken(ctx context.Context, tokenID string) ([]string, error)

	// MintInfo finds the earliest zero-address transfer of a token
	MintInfo(ctx context.Context, tokenID string) (*MintInfo, error)

	// MintedTokenIDsInTx returns the ids of all tokens this contract minted
	// in the given transaction, in log order
	MintedTokenIDsInTx(ctx context.Context, txHash string) ([]string, error)

	// Close closes the underlying connection
	Close()
}

type chainClient struct {
	chain            domain.Chain
	contract         common.Address
	client           adapter.EthClient
	historicalOwners bool
}

// NewClient creates a contract-scoped chain client. When historicalOwners is
// set, OwnersForToken replays transfer logs instead of a single ownerOf call.
func NewClient(chain domain.Chain, contractAddress string, client adapter.EthClient, historicalOwners bool) ChainClient {
	return &chainClient{
		chain:            chain,
		contract:         common.HexToAddress(contractAddress),
		client:           client,
		historicalOwners: historicalOwners,
	}
}

// TokenURI fetches the metadata URI of a token via eth_call
func (c *chainClient) TokenURI(ctx context.Context, tokenID string) (string, error) {
	// ERC721 tokenURI function signature: tokenURI(uint256) returns (string)
	tokenURIABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	tokenNumber, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	data, err := tokenURIABI.Pack("tokenURI", tokenNumber)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call contract: %w", err)
	}

	var uri string
	if err := tokenURIABI.UnpackIntoInterface(&uri, "tokenURI", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}

	return uri, nil
}

// OwnerOf fetches the current owner of a token via eth_call
func (c *chainClient) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	// ERC721 ownerOf function signature: ownerOf(uint256) returns (address)
	ownerOfABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return "", fmt.Errorf("failed to parse ABI: %w", err)
	}

	tokenNumber, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	data, err := ownerOfABI.Pack("ownerOf", tokenNumber)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call contract: %w", err)
	}

	var owner common.Address
	if err := ownerOfABI.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}

	return domain.NormalizeAddress(owner.Hex()), nil
}

// OwnersForToken returns the owner set of a token
func (c *chainClient) OwnersForToken(ctx context.Context, tokenID string) ([]string, error) {
	if !c.historicalOwners {
		owner, err := c.OwnerOf(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		if owner == domain.ETHEREUM_ZERO_ADDRESS {
			return []string{}, nil
		}
		return []string{owner}, nil
	}

	logs, err := c.tokenTransferLogs(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	owners := make([]string, 0, len(logs))
	for _, vLog := range logs {
		to := domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex())
		if to == domain.ETHEREUM_ZERO_ADDRESS || seen[to] {
			continue
		}
		seen[to] = true
		owners = append(owners, to)
	}

	sort.Strings(owners)
	return owners, nil
}

// MintInfo finds the earliest zero-address transfer of a token
func (c *chainClient) MintInfo(ctx context.Context, tokenID string) (*MintInfo, error) {
	logs, err := c.tokenTransferLogs(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	for _, vLog := range logs {
		if vLog.Topics[1] != zeroAddressHash {
			continue
		}
		return &MintInfo{
			TxHash:      vLog.TxHash.Hex(),
			BlockNumber: vLog.BlockNumber,
			Minter:      domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex()),
		}, nil
	}

	return nil, domain.ErrNoMintRecord
}

// MintedTokenIDsInTx returns the ids of all tokens this contract minted in
// the given transaction, in log order
func (c *chainClient) MintedTokenIDsInTx(ctx context.Context, txHash string) ([]string, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	var tokenIDs []string
	for _, vLog := range receipt.Logs {
		if vLog == nil || vLog.Address != c.contract {
			continue
		}
		// ERC721 Transfer has 4 topics; ERC20 shares the signature with 3
		if len(vLog.Topics) != 4 || vLog.Topics[0] != transferEventSignature {
			continue
		}
		if vLog.Topics[1] != zeroAddressHash {
			continue
		}
		tokenIDs = append(tokenIDs, new(big.Int).SetBytes(vLog.Topics[3].Bytes()).String())
	}

	return tokenIDs, nil
}

// Close closes the underlying connection
func (c *chainClient) Close() {
	c.client.Close()
}

// tokenTransferLogs filters all ERC721 Transfer logs of a token on this
// contract, ordered oldest first
func (c *chainClient) tokenTransferLogs(ctx context.Context, tokenID string) ([]types.Log, error) {
	tokenNumber, err := parseTokenID(tokenID)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		ToBlock:   nil,
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{transferEventSignature},
			nil, // any from address
			nil, // any to address
			{common.BigToHash(tokenNumber)},
		},
	}

	logs, err := c.client.FilterLogs(timeoutCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}

	// Keep only well-formed ERC721 transfers
	filtered := logs[:0]
	for _, vLog := range logs {
		if len(vLog.Topics) != 4 {
			logger.Warn("skipping malformed transfer log",
				zap.Int("topics", len(vLog.Topics)),
				zap.String("txHash", vLog.TxHash.Hex()))
			continue
		}
		filtered = append(filtered, vLog)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].BlockNumber != filtered[j].BlockNumber {
			return filtered[i].BlockNumber < filtered[j].BlockNumber
		}
		return filtered[i].Index < filtered[j].Index
	})

	return filtered, nil
}

func parseTokenID(tokenID string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(domain.NormalizeTokenID(tokenID), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTokenID, tokenID)
	}
	return n, nil
}
