package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/propella-labs/go-propella/service/persist"
)

// NFTRepository represents an NFT repository in the postgres database
type NFTRepository struct {
	db             *sql.DB
	createStmt     *sql.Stmt
	getByIDStmt    *sql.Stmt
	getByOwnerStmt *sql.Stmt
}

// NewNFTRepository creates a new postgres repository for interacting with NFTs
func NewNFTRepository(db *sql.DB) *NFTRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO nfts (ID,NAME,DESCRIPTION,IMAGE_PATH,OWNER_ID,TOKEN_ID,IPFS_IMAGE_CID,IPFS_METADATA_CID,MINT_TX_HASH) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING ID,NAME,DESCRIPTION,IMAGE_PATH,OWNER_ID,CREATED_AT,TOKEN_ID,IPFS_IMAGE_CID,IPFS_METADATA_CID,MINT_TX_HASH;`)
	checkNoErr(err)

	getByIDStmt, err := db.PrepareContext(ctx, `SELECT ID,NAME,DESCRIPTION,IMAGE_PATH,OWNER_ID,CREATED_AT,TOKEN_ID,IPFS_IMAGE_CID,IPFS_METADATA_CID,MINT_TX_HASH FROM nfts WHERE ID = $1;`)
	checkNoErr(err)

	getByOwnerStmt, err := db.PrepareContext(ctx, `SELECT ID,NAME,DESCRIPTION,IMAGE_PATH,OWNER_ID,CREATED_AT,TOKEN_ID,IPFS_IMAGE_CID,IPFS_METADATA_CID,MINT_TX_HASH FROM nfts WHERE OWNER_ID = $1 ORDER BY CREATED_AT DESC;`)
	checkNoErr(err)

	return &NFTRepository{db: db, createStmt: createStmt, getByIDStmt: getByIDStmt, getByOwnerStmt: getByOwnerStmt}
}

// Create creates a new NFT in the database
func (n *NFTRepository) Create(pCtx context.Context, pNFT persist.NFT) (persist.NFT, error) {
	var nft persist.NFT
	err := n.createStmt.QueryRowContext(pCtx, pNFT.ID, pNFT.Name, pNFT.Description, pNFT.ImagePath, pNFT.OwnerID, pNFT.TokenID, pNFT.ImageCID, pNFT.MetadataCID, pNFT.MintTxHash).
		Scan(&nft.ID, &nft.Name, &nft.Description, &nft.ImagePath, &nft.OwnerID, &nft.CreationTime, &nft.TokenID, &nft.ImageCID, &nft.MetadataCID, &nft.MintTxHash)
	if err != nil {
		return persist.NFT{}, err
	}
	return nft, nil
}

// GetByID gets the NFT with the given ID
func (n *NFTRepository) GetByID(pCtx context.Context, pID persist.DBID) (persist.NFT, error) {
	var nft persist.NFT
	err := n.getByIDStmt.QueryRowContext(pCtx, pID).
		Scan(&nft.ID, &nft.Name, &nft.Description, &nft.ImagePath, &nft.OwnerID, &nft.CreationTime, &nft.TokenID, &nft.ImageCID, &nft.MetadataCID, &nft.MintTxHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.NFT{}, persist.ErrNFTNotFoundByID{ID: pID}
		}
		return persist.NFT{}, err
	}
	return nft, nil
}

// GetByOwner retrieves all NFTs currently owned by the given user
func (n *NFTRepository) GetByOwner(pCtx context.Context, pOwnerID persist.DBID) ([]persist.NFT, error) {
	rows, err := n.getByOwnerStmt.QueryContext(pCtx, pOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nfts := make([]persist.NFT, 0, 10)
	for rows.Next() {
		nft := persist.NFT{}
		if err := rows.Scan(&nft.ID, &nft.Name, &nft.Description, &nft.ImagePath, &nft.OwnerID, &nft.CreationTime, &nft.TokenID, &nft.ImageCID, &nft.MetadataCID, &nft.MintTxHash); err != nil {
			return nil, err
		}
		nfts = append(nfts, nft)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nfts, nil
}
