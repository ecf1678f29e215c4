package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/propella-labs/go-propella/service/persist"
)

// The subset of the NFT contract the service calls. mintNFT is the custom mint
// entrypoint; transferFrom and the Transfer event are standard ERC-721.
const contractABI = `[
	{"name":"mintNFT","type":"function","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"tokenURI","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"Transfer","type":"event","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

// ErrTransactionReverted is returned when a mined transaction has a failed receipt
type ErrTransactionReverted struct {
	TxHash string
}

func (e ErrTransactionReverted) Error() string {
	return fmt.Sprintf("transaction reverted: %s", e.TxHash)
}

// Client submits mint and transfer transactions to the NFT contract and waits for
// them to be mined before reporting success. The chain's view of ownership is
// advisory only; the relational ledger stays authoritative even when it diverges.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	wallet   persist.EthereumAddress
}

// NewClient connects the service wallet to the NFT contract at the given address
func NewClient(ctx context.Context, ethcl *ethclient.Client, contractAddress, privateKeyHex string) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing wallet key: %w", err)
	}

	chainID, err := ethcl.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain ID: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsed, ethcl, ethcl, ethcl)

	return &Client{
		eth:      ethcl,
		contract: contract,
		auth:     auth,
		wallet:   persist.EthereumAddress(auth.From.Hex()),
	}, nil
}

// WalletAddress returns the service wallet address, used as the fallback
// chain-facing identity for users with no mapped wallet
func (c *Client) WalletAddress() persist.EthereumAddress {
	return c.wallet
}

// Mint submits a mintNFT transaction addressed to the recipient with the given
// token URI, waits for it to be mined, and returns the minted token ID and the
// transaction hash. The token ID is read from the Transfer event topics of the
// receipt.
func (c *Client) Mint(ctx context.Context, recipient persist.EthereumAddress, tokenURI string) (string, string, error) {
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "mintNFT", common.HexToAddress(recipient.String()), tokenURI)
	if err != nil {
		return "", "", fmt.Errorf("submitting mint transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", "", fmt.Errorf("waiting for mint transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", "", ErrTransactionReverted{TxHash: tx.Hash().Hex()}
	}

	tokenID, err := tokenIDFromReceipt(receipt)
	if err != nil {
		return "", "", err
	}

	return tokenID, tx.Hash().Hex(), nil
}

// Transfer submits a transferFrom transaction moving the token between the two
// addresses, waits for it to be mined, and returns the transaction hash
func (c *Client) Transfer(ctx context.Context, from, to persist.EthereumAddress, tokenID string) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token ID: %s", tokenID)
	}

	opts := *c.auth
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, "transferFrom", common.HexToAddress(from.String()), common.HexToAddress(to.String()), id)
	if err != nil {
		return "", fmt.Errorf("submitting transfer transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("waiting for transfer transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", ErrTransactionReverted{TxHash: tx.Hash().Hex()}
	}

	return tx.Hash().Hex(), nil
}

// tokenIDFromReceipt pulls the minted token ID out of the ERC-721 Transfer event,
// which indexes the token ID as its third topic
func tokenIDFromReceipt(receipt *types.Receipt) (string, error) {
	for _, log := range receipt.Logs {
		if len(log.Topics) >= 4 {
			return new(big.Int).SetBytes(log.Topics[3].Bytes()).String(), nil
		}
	}
	return "", fmt.Errorf("no token ID in transaction logs: %s", receipt.TxHash.Hex())
}
