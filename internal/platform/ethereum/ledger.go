// Package ethereum binds the marketplace token contracts. One contract per
// token standard; both expose the same name-keyed surface so a work id maps
// to at most one token per contract.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/canvaslab/nft-server/internal/apperr"
	"github.com/canvaslab/nft-server/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc721ABI = `[
	{"name":"mint","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenName","type":"string"},{"name":"tokenSymbol","type":"string"},{"name":"tokenURI","type":"string"}],"outputs":[]},
	{"name":"tokenIdOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenName","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"usedTokenNames","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string[]"}]}
]`

const erc1155ABI = `[
	{"name":"mint","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenName","type":"string"},{"name":"amount","type":"uint256"},{"name":"tokenURI","type":"string"}],"outputs":[]},
	{"name":"tokenIdOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenName","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"usedTokenNames","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string[]"}]}
]`

// Config holds chain connection and contract addresses.
type Config struct {
	RPCURL         string
	ChainID        int64
	ERC721Address  string
	ERC1155Address string
	MineTimeout    time.Duration
}

// Client talks to both token contracts over one RPC connection.
type Client struct {
	eth         *ethclient.Client
	chainID     *big.Int
	mineTimeout time.Duration
	contracts   map[domain.TokenStandard]*boundContract
}

type boundContract struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewClient dials the chain and binds the token contracts.
func NewClient(cfg *Config) (*Client, error) {
	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node: %w", err)
	}

	parsed721, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-721 ABI: %w", err)
	}
	parsed1155, err := abi.JSON(strings.NewReader(erc1155ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-1155 ABI: %w", err)
	}

	mineTimeout := cfg.MineTimeout
	if mineTimeout <= 0 {
		mineTimeout = 2 * time.Minute
	}

	addr721 := common.HexToAddress(cfg.ERC721Address)
	addr1155 := common.HexToAddress(cfg.ERC1155Address)

	return &Client{
		eth:         eth,
		chainID:     big.NewInt(cfg.ChainID),
		mineTimeout: mineTimeout,
		contracts: map[domain.TokenStandard]*boundContract{
			domain.ERC721: {
				address:  addr721,
				contract: bind.NewBoundContract(addr721, parsed721, eth, eth, eth),
			},
			domain.ERC1155: {
				address:  addr1155,
				contract: bind.NewBoundContract(addr1155, parsed1155, eth, eth, eth),
			},
		},
	}, nil
}

// ContractAddress returns the hex address of the contract for the standard.
func (c *Client) ContractAddress(std domain.TokenStandard) string {
	return c.contracts[std].address.Hex()
}

// MintERC721 mints a single-edition token named after the work and waits for
// the transaction to be mined.
func (c *Client) MintERC721(ctx context.Context, user *domain.User, workID, metadataURL string) error {
	return c.mint(ctx, domain.ERC721, user, "mint",
		common.HexToAddress(user.WalletAddress), workID, workID, metadataURL)
}

// MintERC1155 mints an edition of amount tokens named after the work.
func (c *Client) MintERC1155(ctx context.Context, user *domain.User, workID string, amount int64, metadataURL string) error {
	return c.mint(ctx, domain.ERC1155, user, "mint",
		common.HexToAddress(user.WalletAddress), workID, big.NewInt(amount), metadataURL)
}

func (c *Client) mint(ctx context.Context, std domain.TokenStandard, user *domain.User, method string, args ...any) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(user.WalletSecret, "0x"))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "parse wallet secret", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build transactor", err)
	}
	opts.Context = ctx

	tx, err := c.contracts[std].contract.Transact(opts, method, args...)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("%s mint transaction", std), err)
	}

	mineCtx, cancel := context.WithTimeout(ctx, c.mineTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(mineCtx, c.eth, tx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "wait for mint transaction", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return apperr.Newf(apperr.KindInternal, "%s mint transaction %s reverted", std, tx.Hash())
	}

	return nil
}

// TokenIDOf resolves the token id minted under the work id. The contract
// returns zero for names never minted; callers decide whether zero means
// pending or absent.
func (c *Client) TokenIDOf(ctx context.Context, std domain.TokenStandard, workID string) (string, error) {
	var out []any
	err := c.contracts[std].contract.Call(&bind.CallOpts{Context: ctx}, &out, "tokenIdOf", workID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, fmt.Sprintf("%s tokenIdOf %s", std, workID), err)
	}

	id, ok := out[0].(*big.Int)
	if !ok {
		return "", apperr.Newf(apperr.KindInternal, "%s tokenIdOf %s: unexpected return type %T", std, workID, out[0])
	}

	return id.String(), nil
}

// UsedTokenNames lists every work id ever minted on the contract.
func (c *Client) UsedTokenNames(ctx context.Context, std domain.TokenStandard) ([]string, error) {
	var out []any
	err := c.contracts[std].contract.Call(&bind.CallOpts{Context: ctx}, &out, "usedTokenNames")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("%s usedTokenNames", std), err)
	}

	names, ok := out[0].([]string)
	if !ok {
		return nil, apperr.Newf(apperr.KindInternal, "%s usedTokenNames: unexpected return type %T", std, out[0])
	}

	return names, nil
}

// BalanceOf returns the native-coin balance of an address in wei.
func (c *Client) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("balance of %s", address), err)
	}
	return balance, nil
}
