package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/propella-labs/go-propella/service/persist"
)

// WalletRepository represents a wallet repository in the postgres database
type WalletRepository struct {
	db              *sql.DB
	getByUserIDStmt *sql.Stmt
	upsertStmt      *sql.Stmt
}

// NewWalletRepository creates a new postgres repository for interacting with wallets
func NewWalletRepository(db *sql.DB) *WalletRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	getByUserIDStmt, err := db.PrepareContext(ctx, `SELECT ID,USER_ID,ADDRESS,CREATED_AT FROM wallets WHERE USER_ID = $1;`)
	checkNoErr(err)

	upsertStmt, err := db.PrepareContext(ctx, `INSERT INTO wallets (ID,USER_ID,ADDRESS) VALUES ($1,$2,$3) ON CONFLICT (USER_ID) DO UPDATE SET ADDRESS = EXCLUDED.ADDRESS RETURNING ID,USER_ID,ADDRESS,CREATED_AT;`)
	checkNoErr(err)

	return &WalletRepository{db: db, getByUserIDStmt: getByUserIDStmt, upsertStmt: upsertStmt}
}

// GetByUserID gets the wallet mapped to the given user
func (w *WalletRepository) GetByUserID(pCtx context.Context, pUserID persist.DBID) (persist.Wallet, error) {
	var wallet persist.Wallet
	err := w.getByUserIDStmt.QueryRowContext(pCtx, pUserID).
		Scan(&wallet.ID, &wallet.UserID, &wallet.Address, &wallet.CreationTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Wallet{}, persist.ErrWalletNotFound{UserID: pUserID}
		}
		return persist.Wallet{}, err
	}
	return wallet, nil
}

// Upsert maps the given user to the given chain address, replacing any prior mapping
func (w *WalletRepository) Upsert(pCtx context.Context, pUserID persist.DBID, pAddress persist.EthereumAddress) (persist.Wallet, error) {
	var wallet persist.Wallet
	err := w.upsertStmt.QueryRowContext(pCtx, persist.GenerateID(), pUserID, pAddress).
		Scan(&wallet.ID, &wallet.UserID, &wallet.Address, &wallet.CreationTime)
	if err != nil {
		return persist.Wallet{}, err
	}
	return wallet, nil
}
