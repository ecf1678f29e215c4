package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/propella-labs/go-propella/service/persist"
)

// TransferRepository represents a transfer-record repository in the postgres
// database. Reads go through prepared statements on the shared sql.DB; the
// Execute write path uses a pgx transaction so the record append and the
// ownership update commit as one unit.
type TransferRepository struct {
	db            *sql.DB
	pgx           *pgxpool.Pool
	getByNFTStmt  *sql.Stmt
	getByUserStmt *sql.Stmt
}

// NewTransferRepository creates a new postgres repository for interacting with
// transfer records
func NewTransferRepository(db *sql.DB, pgx *pgxpool.Pool) *TransferRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	getByNFTStmt, err := db.PrepareContext(ctx, `SELECT ID,NFT_ID,FROM_USER_ID,TO_USER_ID,TRANSFERRED_AT,TX_HASH,NFT_SNAPSHOT FROM transfers WHERE NFT_ID = $1 ORDER BY TRANSFERRED_AT DESC;`)
	checkNoErr(err)

	getByUserStmt, err := db.PrepareContext(ctx, `SELECT ID,NFT_ID,FROM_USER_ID,TO_USER_ID,TRANSFERRED_AT,TX_HASH,NFT_SNAPSHOT FROM transfers WHERE FROM_USER_ID = $1 OR TO_USER_ID = $1 ORDER BY TRANSFERRED_AT DESC;`)
	checkNoErr(err)

	return &TransferRepository{db: db, pgx: pgx, getByNFTStmt: getByNFTStmt, getByUserStmt: getByUserStmt}
}

// Execute appends the transfer record and flips the NFT's owner in a single
// transaction. The UPDATE is guarded on the from-user still owning the NFT, so a
// transfer whose ownership snapshot went stale rolls back entirely and returns
// ErrTransferConflict.
func (t *TransferRepository) Execute(pCtx context.Context, pRecord persist.TransferRecord) error {
	return t.pgx.BeginTxFunc(pCtx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(pCtx, `INSERT INTO transfers (ID,NFT_ID,FROM_USER_ID,TO_USER_ID,TRANSFERRED_AT,TX_HASH,NFT_SNAPSHOT) VALUES ($1,$2,$3,$4,$5,$6,$7);`,
			pRecord.ID, pRecord.NFTID, pRecord.FromUserID, pRecord.ToUserID, pRecord.TransferredAt.Time(), pRecord.TxHash, pRecord.NFTSnapshot)
		if err != nil {
			return err
		}

		ct, err := tx.Exec(pCtx, `UPDATE nfts SET OWNER_ID = $1 WHERE ID = $2 AND OWNER_ID = $3;`,
			pRecord.ToUserID, pRecord.NFTID, pRecord.FromUserID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return persist.ErrTransferConflict{NFTID: pRecord.NFTID, FromUser: pRecord.FromUserID}
		}

		return nil
	})
}

// GetByNFT retrieves the transfer history of an NFT, most recent first
func (t *TransferRepository) GetByNFT(pCtx context.Context, pNFTID persist.DBID) ([]persist.TransferRecord, error) {
	return t.scanRecords(t.getByNFTStmt.QueryContext(pCtx, pNFTID))
}

// GetByUser retrieves all transfers where the user is sender or receiver, most
// recent first
func (t *TransferRepository) GetByUser(pCtx context.Context, pUserID persist.DBID) ([]persist.TransferRecord, error) {
	return t.scanRecords(t.getByUserStmt.QueryContext(pCtx, pUserID))
}

func (t *TransferRepository) scanRecords(rows *sql.Rows, err error) ([]persist.TransferRecord, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]persist.TransferRecord, 0, 10)
	for rows.Next() {
		record := persist.TransferRecord{}
		if err := rows.Scan(&record.ID, &record.NFTID, &record.FromUserID, &record.ToUserID, &record.TransferredAt, &record.TxHash, &record.NFTSnapshot); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
