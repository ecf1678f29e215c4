package persist

import (
	"context"
	"fmt"
)

// NFT represents a minted digital asset. The relational row is the source of truth
// for ownership at all times; the chain and IPFS fields are advisory provenance and
// are each independently nullable depending on which backends were reachable at
// mint time.
type NFT struct {
	ID           DBID         `json:"id"`
	Name         NullString   `json:"name"`
	Description  NullString   `json:"description"`
	ImagePath    NullString   `json:"image_path"`
	OwnerID      DBID         `json:"owner_id"`
	CreationTime CreationTime `json:"created_at"`
	TokenID      NullString   `json:"token_id"`
	ImageCID     NullString   `json:"ipfs_image_cid"`
	MetadataCID  NullString   `json:"ipfs_metadata_cid"`
	MintTxHash   NullString   `json:"blockchain_tx_hash"`
}

// NFTMetadata is the JSON document uploaded alongside an NFT's image
type NFTMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// NFTRepository represents a repository for interacting with persisted NFTs.
// OwnerID is the only field ever mutated after creation, and only through
// TransferRepository.Execute.
type NFTRepository interface {
	Create(context.Context, NFT) (NFT, error)
	GetByID(context.Context, DBID) (NFT, error)
	GetByOwner(context.Context, DBID) ([]NFT, error)
}

// ErrNFTNotFoundByID is returned when an NFT is not found by its ID
type ErrNFTNotFoundByID struct {
	ID DBID
}

func (e ErrNFTNotFoundByID) Error() string {
	return fmt.Sprintf("NFT not found by ID: %s", e.ID)
}
