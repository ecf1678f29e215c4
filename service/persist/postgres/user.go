package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/propella-labs/go-propella/service/persist"
)

// UserRepository represents a user repository in the postgres database
type UserRepository struct {
	db               *sql.DB
	createStmt       *sql.Stmt
	getByIDStmt      *sql.Stmt
	getByAadhaarStmt *sql.Stmt
	existsStmt       *sql.Stmt
}

// NewUserRepository creates a new postgres repository for interacting with users
func NewUserRepository(db *sql.DB) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO users (ID,NAME,AADHAAR_NUMBER,PHONE_NUMBER,EMAIL,OWNER_ID) VALUES ($1,$2,$3,$4,$5,$6) RETURNING ID,NAME,AADHAAR_NUMBER,PHONE_NUMBER,EMAIL,OWNER_ID,CREATED_AT;`)
	checkNoErr(err)

	getByIDStmt, err := db.PrepareContext(ctx, `SELECT ID,NAME,AADHAAR_NUMBER,PHONE_NUMBER,EMAIL,OWNER_ID,CREATED_AT FROM users WHERE ID = $1;`)
	checkNoErr(err)

	getByAadhaarStmt, err := db.PrepareContext(ctx, `SELECT ID,NAME,AADHAAR_NUMBER,PHONE_NUMBER,EMAIL,OWNER_ID,CREATED_AT FROM users WHERE AADHAAR_NUMBER = $1;`)
	checkNoErr(err)

	existsStmt, err := db.PrepareContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE ID = $1);`)
	checkNoErr(err)

	return &UserRepository{db: db, createStmt: createStmt, getByIDStmt: getByIDStmt, getByAadhaarStmt: getByAadhaarStmt, existsStmt: existsStmt}
}

// Create creates a new user in the database
func (u *UserRepository) Create(pCtx context.Context, pInput persist.CreateUserInput) (persist.User, error) {
	var user persist.User
	err := u.createStmt.QueryRowContext(pCtx, pInput.ID, pInput.Name, persist.NullString(pInput.AadhaarNumber), persist.NullString(pInput.PhoneNumber), persist.NullString(pInput.Email), persist.NullString(pInput.OwnerID)).
		Scan(&user.ID, &user.Name, &user.AadhaarNumber, &user.PhoneNumber, &user.Email, &user.OwnerID, &user.CreationTime)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persist.User{}, persist.ErrAadhaarAlreadyRegistered{AadhaarNumber: pInput.AadhaarNumber}
		}
		return persist.User{}, err
	}
	return user, nil
}

// GetByID gets the user with the given ID
func (u *UserRepository) GetByID(pCtx context.Context, pID persist.DBID) (persist.User, error) {
	var user persist.User
	err := u.getByIDStmt.QueryRowContext(pCtx, pID).
		Scan(&user.ID, &user.Name, &user.AadhaarNumber, &user.PhoneNumber, &user.Email, &user.OwnerID, &user.CreationTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.User{}, persist.ErrUserNotFound{ID: pID}
		}
		return persist.User{}, err
	}
	return user, nil
}

// GetByAadhaar gets the user registered with the given aadhaar number
func (u *UserRepository) GetByAadhaar(pCtx context.Context, pAadhaar string) (persist.User, error) {
	var user persist.User
	err := u.getByAadhaarStmt.QueryRowContext(pCtx, pAadhaar).
		Scan(&user.ID, &user.Name, &user.AadhaarNumber, &user.PhoneNumber, &user.Email, &user.OwnerID, &user.CreationTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.User{}, persist.ErrUserNotFound{AadhaarNumber: pAadhaar}
		}
		return persist.User{}, err
	}
	return user, nil
}

// Exists reports whether a user with the given ID exists
func (u *UserRepository) Exists(pCtx context.Context, pID persist.DBID) (bool, error) {
	var exists bool
	if err := u.existsStmt.QueryRowContext(pCtx, pID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
