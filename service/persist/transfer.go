package persist

import (
	"context"
	"fmt"
)

// TransferRecord represents one completed ownership change of an NFT. Records are
// append-only: they are never mutated or deleted after Execute commits them.
type TransferRecord struct {
	ID            DBID         `json:"id"`
	NFTID         DBID         `json:"nft_id"`
	FromUserID    DBID         `json:"from_user_id"`
	ToUserID      DBID         `json:"to_user_id"`
	TransferredAt CreationTime `json:"transferred_at"`
	TxHash        NullString   `json:"transaction_hash"`
	NFTSnapshot   NullString   `json:"nft_snapshot,omitempty"`
}

// TransferRepository represents a repository for interacting with persisted
// transfer records.
//
// Execute appends the record and updates the NFT's owner as a single atomic unit,
// guarded on the record's FromUserID still being the current owner: a reader must
// never observe the record without the ownership update or vice versa, and of two
// concurrent transfers of the same NFT only one can commit against the prior owner.
type TransferRepository interface {
	Execute(context.Context, TransferRecord) error
	GetByNFT(context.Context, DBID) ([]TransferRecord, error)
	GetByUser(context.Context, DBID) ([]TransferRecord, error)
}

// ErrTransferConflict is returned when a transfer loses the race for an NFT: the
// owner recorded at snapshot time no longer holds it.
type ErrTransferConflict struct {
	NFTID    DBID
	FromUser DBID
}

func (e ErrTransferConflict) Error() string {
	return fmt.Sprintf("NFT %s is no longer owned by %s", e.NFTID, e.FromUser)
}
