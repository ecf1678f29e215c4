package nft

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/propella-labs/go-propella/service/logger"
	"github.com/propella-labs/go-propella/service/persist"
	"github.com/propella-labs/go-propella/util"
)

// ContentStore is the content-addressable storage consumed by the mint pipeline
type ContentStore interface {
	Put(data []byte) (cid string, err error)
	PutMetadata(name, description, imageCID string) (cid string, err error)
	URI(cid string) string
	GatewayURL(cid string) string
}

// Chain is the blockchain ledger consumed by the mint and transfer pipelines.
// Calls are synchronous: implementations wait for on-chain confirmation before
// returning.
type Chain interface {
	Mint(ctx context.Context, recipient persist.EthereumAddress, tokenURI string) (tokenID, txHash string, err error)
	Transfer(ctx context.Context, from, to persist.EthereumAddress, tokenID string) (txHash string, err error)
	WalletAddress() persist.EthereumAddress
}

// StepStatus tags the outcome of an optional pipeline step
type StepStatus string

const (
	// StepAnchored means the step succeeded and its value was recorded
	StepAnchored StepStatus = "anchored"
	// StepSkipped means the step was not attempted or failed; the reason says why
	StepSkipped StepStatus = "skipped"
)

// StepResult is the tagged outcome of an optional step, so callers and tests can
// tell which provenance was actually anchored and why the rest wasn't
type StepResult struct {
	Status StepStatus `json:"status"`
	Value  string     `json:"value,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

func anchored(value string) StepResult {
	return StepResult{Status: StepAnchored, Value: value}
}

func skipped(reason string) StepResult {
	return StepResult{Status: StepSkipped, Reason: reason}
}

// MintInput is the input for the mint pipeline
type MintInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	OwnerID     persist.DBID `json:"owner_id"`
	Image       []byte       `json:"-"`
}

// MintResult is the output of the mint pipeline. The NFT is always fully persisted;
// the step results report which provenance fields were anchored externally.
type MintResult struct {
	NFT         persist.NFT `json:"nft"`
	ImageCID    StepResult  `json:"ipfs_image_cid"`
	MetadataCID StepResult  `json:"ipfs_metadata_cid"`
	TokenID     StepResult  `json:"token_id"`
	MintTx      StepResult  `json:"blockchain_tx"`
	GatewayURL  string      `json:"ipfs_gateway_url,omitempty"`
}

// TransferInput is the input for the transfer pipeline
type TransferInput struct {
	NFTID    persist.DBID `json:"-"`
	ToUserID persist.DBID `json:"to_user_id" binding:"required"`
}

// TransferResult is the output of the transfer pipeline
type TransferResult struct {
	Record  persist.TransferRecord `json:"record"`
	ChainTx StepResult             `json:"blockchain_tx"`
}

// Service composes the ledger repositories with the optional content-storage and
// chain adapters. Either adapter may be nil (unconfigured) or unreachable; the
// relational ledger write is the only step that can fail a pipeline once
// preconditions hold.
type Service struct {
	userRepo     persist.UserRepository
	nftRepo      persist.NFTRepository
	transferRepo persist.TransferRepository
	walletRepo   persist.WalletRepository
	store        ContentStore
	chain        Chain
	storagePath  string
	callTimeout  time.Duration
}

// NewService creates the NFT pipeline service. store and chain may be nil.
func NewService(userRepo persist.UserRepository, nftRepo persist.NFTRepository, transferRepo persist.TransferRepository, walletRepo persist.WalletRepository, store ContentStore, chain Chain, storagePath string, callTimeout time.Duration) *Service {
	return &Service{
		userRepo:     userRepo,
		nftRepo:      nftRepo,
		transferRepo: transferRepo,
		walletRepo:   walletRepo,
		store:        store,
		chain:        chain,
		storagePath:  storagePath,
		callTimeout:  callTimeout,
	}
}

// Mint turns the input into a persisted NFT owned by the requested user, anchoring
// whatever provenance the optional backends can provide. Only two failures abort
// the pipeline: the owner not existing, and the mandatory writes (local media,
// ledger row) failing. IPFS and chain failures are logged and leave their fields
// unset.
func (s *Service) Mint(pCtx context.Context, pInput MintInput) (MintResult, error) {
	defer util.Track("nft.Mint", time.Now())

	exists, err := s.userRepo.Exists(pCtx, pInput.OwnerID)
	if err != nil {
		return MintResult{}, fmt.Errorf("verifying owner: %w", err)
	}
	if !exists {
		return MintResult{}, persist.ErrUserNotFound{ID: pInput.OwnerID}
	}

	nftID := persist.GenerateID()

	imagePath := filepath.Join(s.storagePath, fmt.Sprintf("%s.jpg", nftID))
	if err := os.WriteFile(imagePath, pInput.Image, 0o644); err != nil {
		return MintResult{}, fmt.Errorf("storing media: %w", err)
	}

	result := MintResult{
		ImageCID:    skipped("content storage not configured"),
		MetadataCID: skipped("image was not uploaded"),
		TokenID:     skipped("chain not configured"),
		MintTx:      skipped("chain not configured"),
	}

	if s.store != nil {
		s.anchorContent(pCtx, pInput, &result)
	}

	nft := persist.NFT{
		ID:          nftID,
		Name:        persist.NullString(pInput.Name),
		Description: persist.NullString(pInput.Description),
		ImagePath:   persist.NullString(imagePath),
		OwnerID:     pInput.OwnerID,
		TokenID:     persist.NullString(result.TokenID.Value),
		ImageCID:    persist.NullString(result.ImageCID.Value),
		MetadataCID: persist.NullString(result.MetadataCID.Value),
		MintTxHash:  persist.NullString(result.MintTx.Value),
	}

	created, err := s.nftRepo.Create(pCtx, nft)
	if err != nil {
		return MintResult{}, fmt.Errorf("persisting NFT: %w", err)
	}
	result.NFT = created

	if result.ImageCID.Status == StepAnchored {
		result.GatewayURL = s.store.GatewayURL(result.ImageCID.Value)
	}

	return result, nil
}

// anchorContent runs the optional IPFS and chain steps of the mint pipeline.
// Each step only runs when the one it depends on anchored, and any failure stops
// the chain of optional steps without affecting the mint.
func (s *Service) anchorContent(pCtx context.Context, pInput MintInput, result *MintResult) {
	imageCID, err := s.store.Put(pInput.Image)
	if err != nil {
		logger.For(pCtx).WithError(err).Warn("failed to upload image to IPFS")
		result.ImageCID = skipped(err.Error())
		return
	}
	result.ImageCID = anchored(imageCID)
	logger.For(pCtx).Infof("image uploaded to IPFS with CID: %s", imageCID)

	metadataCID, err := s.store.PutMetadata(pInput.Name, pInput.Description, imageCID)
	if err != nil {
		logger.For(pCtx).WithError(err).Warn("failed to upload metadata to IPFS")
		result.MetadataCID = skipped(err.Error())
		return
	}
	result.MetadataCID = anchored(metadataCID)

	if s.chain == nil {
		return
	}

	ctx, cancel := context.WithTimeout(pCtx, s.callTimeout)
	defer cancel()

	recipient := s.chainIdentity(ctx, pInput.OwnerID)
	tokenID, txHash, err := s.chain.Mint(ctx, recipient, s.store.URI(metadataCID))
	if err != nil {
		logger.For(pCtx).WithError(err).Warn("failed to mint NFT on chain")
		result.TokenID = skipped(err.Error())
		result.MintTx = skipped(err.Error())
		return
	}
	result.TokenID = anchored(tokenID)
	result.MintTx = anchored(txHash)
	logger.For(pCtx).Infof("NFT minted with token ID %s and tx %s", tokenID, txHash)
}

// Transfer moves ownership of an NFT to the destination user, appending the audit
// record and flipping the owner atomically at the ledger. The on-chain transfer is
// best-effort; its failure only leaves the record's tx hash unset.
func (s *Service) Transfer(pCtx context.Context, pInput TransferInput) (TransferResult, error) {
	defer util.Track("nft.Transfer", time.Now())

	nft, err := s.nftRepo.GetByID(pCtx, pInput.NFTID)
	if err != nil {
		return TransferResult{}, err
	}

	exists, err := s.userRepo.Exists(pCtx, pInput.ToUserID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("verifying destination user: %w", err)
	}
	if !exists {
		return TransferResult{}, persist.ErrUserNotFound{ID: pInput.ToUserID}
	}

	snapshot, err := json.Marshal(nft)
	if err != nil {
		return TransferResult{}, fmt.Errorf("snapshotting NFT: %w", err)
	}

	chainTx := s.anchorTransfer(pCtx, nft, pInput.ToUserID)

	record := persist.TransferRecord{
		ID:            persist.GenerateID(),
		NFTID:         nft.ID,
		FromUserID:    nft.OwnerID,
		ToUserID:      pInput.ToUserID,
		TransferredAt: persist.CreationTime(time.Now()),
		TxHash:        persist.NullString(chainTx.Value),
		NFTSnapshot:   persist.NullString(snapshot),
	}

	if err := s.transferRepo.Execute(pCtx, record); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Record: record, ChainTx: chainTx}, nil
}

// anchorTransfer runs the optional on-chain leg of a transfer
func (s *Service) anchorTransfer(pCtx context.Context, nft persist.NFT, toUserID persist.DBID) StepResult {
	if s.chain == nil {
		return skipped("chain not configured")
	}
	if nft.TokenID == "" {
		return skipped("NFT has no chain token")
	}

	ctx, cancel := context.WithTimeout(pCtx, s.callTimeout)
	defer cancel()

	from := s.chainIdentity(ctx, nft.OwnerID)
	to := s.chainIdentity(ctx, toUserID)

	txHash, err := s.chain.Transfer(ctx, from, to, nft.TokenID.String())
	if err != nil {
		logger.For(pCtx).WithError(err).Warn("on-chain transfer failed, continuing with ledger update")
		return skipped(err.Error())
	}

	logger.For(pCtx).Infof("NFT transferred on chain with tx %s", txHash)
	return anchored(txHash)
}

// chainIdentity resolves a user's chain-facing address from the wallet registry,
// falling back to the service wallet when none is mapped
func (s *Service) chainIdentity(pCtx context.Context, userID persist.DBID) persist.EthereumAddress {
	if s.walletRepo != nil {
		wallet, err := s.walletRepo.GetByUserID(pCtx, userID)
		if err == nil {
			return wallet.Address
		}
		if _, ok := err.(persist.ErrWalletNotFound); !ok {
			logger.For(pCtx).WithError(err).Warn("wallet lookup failed, falling back to service wallet")
		}
	}
	return s.chain.WalletAddress()
}

// GetByOwner lists the NFTs currently owned by a user
func (s *Service) GetByOwner(pCtx context.Context, pOwnerID persist.DBID) ([]persist.NFT, error) {
	return s.nftRepo.GetByOwner(pCtx, pOwnerID)
}

// GetTransferHistory lists an NFT's transfers, most recent first
func (s *Service) GetTransferHistory(pCtx context.Context, pNFTID persist.DBID) ([]persist.TransferRecord, error) {
	if _, err := s.nftRepo.GetByID(pCtx, pNFTID); err != nil {
		return nil, err
	}
	return s.transferRepo.GetByNFT(pCtx, pNFTID)
}

// GetUserTransferHistory lists all transfers a user participated in, most recent
// first
func (s *Service) GetUserTransferHistory(pCtx context.Context, pUserID persist.DBID) ([]persist.TransferRecord, error) {
	return s.transferRepo.GetByUser(pCtx, pUserID)
}
