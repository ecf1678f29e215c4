package persist

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
)

// EthereumAddress represents an Ethereum address
type EthereumAddress string

// ZeroAddress is the all-zero Ethereum address
const ZeroAddress EthereumAddress = "0x0000000000000000000000000000000000000000"

func (a EthereumAddress) String() string {
	return strings.ToLower(string(a))
}

// Value implements the driver.Valuer interface for the EthereumAddress type
func (a EthereumAddress) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements the sql.Scanner interface for the EthereumAddress type
func (a *EthereumAddress) Scan(i interface{}) error {
	if i == nil {
		*a = EthereumAddress("")
		return nil
	}
	*a = EthereumAddress(i.(string))
	return nil
}

// Wallet maps a user to their chain-facing identity. The mapping is the registry
// the orchestrators consult when addressing on-chain mints and transfers.
type Wallet struct {
	ID           DBID            `json:"id"`
	UserID       DBID            `json:"user_id"`
	Address      EthereumAddress `json:"address"`
	CreationTime CreationTime    `json:"created_at"`
}

// WalletRepository represents a repository for interacting with persisted wallets
type WalletRepository interface {
	GetByUserID(context.Context, DBID) (Wallet, error)
	Upsert(context.Context, DBID, EthereumAddress) (Wallet, error)
}

// ErrWalletNotFound is returned when no wallet is mapped to a user
type ErrWalletNotFound struct {
	UserID DBID
}

func (e ErrWalletNotFound) Error() string {
	return fmt.Sprintf("no wallet mapped to user: %s", e.UserID)
}
