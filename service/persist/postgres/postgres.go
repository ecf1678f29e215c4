package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/lib/pq"

	"github.com/propella-labs/go-propella/env"
	"github.com/propella-labs/go-propella/service/logger"
)

// Repositories is the set of postgres-backed repositories used by the server
type Repositories struct {
	UserRepository     *UserRepository
	NFTRepository      *NFTRepository
	TransferRepository *TransferRepository
	WalletRepository   *WalletRepository
}

// NewRepositories creates the full set of repositories backed by the given clients
func NewRepositories(db *sql.DB, pgx *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:     NewUserRepository(db),
		NFTRepository:      NewNFTRepository(db),
		TransferRepository: NewTransferRepository(db, pgx),
		WalletRepository:   NewWalletRepository(db),
	}
}

func connectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		env.GetString("POSTGRES_HOST"),
		env.GetInt("POSTGRES_PORT"),
		env.GetString("POSTGRES_USER"),
		env.GetString("POSTGRES_PASSWORD"),
		env.GetString("POSTGRES_DB"),
	)
}

// MustCreateClient panics if a postgres connection cannot be established
func MustCreateClient() *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sql.Open("postgres", connectionString())
	checkNoErr(err)

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		panic(fmt.Errorf("could not ping postgres: %w", err))
	}

	logger.For(ctx).Info("connected to postgres")
	return db
}

// NewPgxClient creates a pgx connection pool for operations that need
// transaction-scoped semantics
func NewPgxClient() *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, connectionString())
	checkNoErr(err)

	return pool
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
