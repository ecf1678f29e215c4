package nft

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propella-labs/go-propella/service/persist"
)

// memLedger is an in-memory stand-in for the postgres repositories. Execute
// applies the same owner-guarded semantics as the real transfer repository.
type memLedger struct {
	mu        sync.Mutex
	users     map[persist.DBID]persist.User
	nfts      map[persist.DBID]persist.NFT
	transfers []persist.TransferRecord
	wallets   map[persist.DBID]persist.Wallet
}

func newMemLedger() *memLedger {
	return &memLedger{
		users:   map[persist.DBID]persist.User{},
		nfts:    map[persist.DBID]persist.NFT{},
		wallets: map[persist.DBID]persist.Wallet{},
	}
}

func (l *memLedger) addUser(id persist.DBID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[id] = persist.User{ID: id, Name: persist.NullString(fmt.Sprintf("user %s", id))}
}

type memUsers struct{ l *memLedger }

func (r memUsers) Create(ctx context.Context, input persist.CreateUserInput) (persist.User, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	user := persist.User{ID: input.ID, Name: persist.NullString(input.Name)}
	r.l.users[input.ID] = user
	return user, nil
}

func (r memUsers) GetByID(ctx context.Context, id persist.DBID) (persist.User, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	user, ok := r.l.users[id]
	if !ok {
		return persist.User{}, persist.ErrUserNotFound{ID: id}
	}
	return user, nil
}

func (r memUsers) GetByAadhaar(ctx context.Context, aadhaar string) (persist.User, error) {
	return persist.User{}, persist.ErrUserNotFound{AadhaarNumber: aadhaar}
}

func (r memUsers) Exists(ctx context.Context, id persist.DBID) (bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	_, ok := r.l.users[id]
	return ok, nil
}

type memNFTs struct{ l *memLedger }

func (r memNFTs) Create(ctx context.Context, nft persist.NFT) (persist.NFT, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	nft.CreationTime = persist.CreationTime(time.Now())
	r.l.nfts[nft.ID] = nft
	return nft, nil
}

func (r memNFTs) GetByID(ctx context.Context, id persist.DBID) (persist.NFT, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	nft, ok := r.l.nfts[id]
	if !ok {
		return persist.NFT{}, persist.ErrNFTNotFoundByID{ID: id}
	}
	return nft, nil
}

func (r memNFTs) GetByOwner(ctx context.Context, ownerID persist.DBID) ([]persist.NFT, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	owned := []persist.NFT{}
	for _, nft := range r.l.nfts {
		if nft.OwnerID == ownerID {
			owned = append(owned, nft)
		}
	}
	return owned, nil
}

type memTransfers struct{ l *memLedger }

func (r memTransfers) Execute(ctx context.Context, record persist.TransferRecord) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	nft, ok := r.l.nfts[record.NFTID]
	if !ok || nft.OwnerID != record.FromUserID {
		return persist.ErrTransferConflict{NFTID: record.NFTID, FromUser: record.FromUserID}
	}

	r.l.transfers = append(r.l.transfers, record)
	nft.OwnerID = record.ToUserID
	r.l.nfts[record.NFTID] = nft
	return nil
}

func (r memTransfers) GetByNFT(ctx context.Context, nftID persist.DBID) ([]persist.TransferRecord, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	records := []persist.TransferRecord{}
	for i := len(r.l.transfers) - 1; i >= 0; i-- {
		if r.l.transfers[i].NFTID == nftID {
			records = append(records, r.l.transfers[i])
		}
	}
	return records, nil
}

func (r memTransfers) GetByUser(ctx context.Context, userID persist.DBID) ([]persist.TransferRecord, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	records := []persist.TransferRecord{}
	for i := len(r.l.transfers) - 1; i >= 0; i-- {
		if r.l.transfers[i].FromUserID == userID || r.l.transfers[i].ToUserID == userID {
			records = append(records, r.l.transfers[i])
		}
	}
	return records, nil
}

type memWallets struct{ l *memLedger }

func (r memWallets) GetByUserID(ctx context.Context, userID persist.DBID) (persist.Wallet, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	wallet, ok := r.l.wallets[userID]
	if !ok {
		return persist.Wallet{}, persist.ErrWalletNotFound{UserID: userID}
	}
	return wallet, nil
}

func (r memWallets) Upsert(ctx context.Context, userID persist.DBID, address persist.EthereumAddress) (persist.Wallet, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	wallet := persist.Wallet{ID: persist.GenerateID(), UserID: userID, Address: address}
	r.l.wallets[userID] = wallet
	return wallet, nil
}

type fakeStore struct {
	putErr      error
	metadataErr error
	puts        int
}

func (s *fakeStore) Put(data []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.puts++
	return fmt.Sprintf("Qm%d", s.puts), nil
}

func (s *fakeStore) PutMetadata(name, description, imageCID string) (string, error) {
	if s.metadataErr != nil {
		return "", s.metadataErr
	}
	return "QmMeta-" + imageCID, nil
}

func (s *fakeStore) URI(cid string) string        { return "ipfs://" + cid }
func (s *fakeStore) GatewayURL(cid string) string { return "https://ipfs.io/ipfs/" + cid }

const serviceWallet = persist.EthereumAddress("0x00000000000000000000000000000000000000aa")

type fakeChain struct {
	mintErr     error
	transferErr error

	mintedTo    persist.EthereumAddress
	transferTo  persist.EthereumAddress
	transferFor string
}

func (c *fakeChain) Mint(ctx context.Context, recipient persist.EthereumAddress, tokenURI string) (string, string, error) {
	if c.mintErr != nil {
		return "", "", c.mintErr
	}
	c.mintedTo = recipient
	return "42", "0xminttx", nil
}

func (c *fakeChain) Transfer(ctx context.Context, from, to persist.EthereumAddress, tokenID string) (string, error) {
	if c.transferErr != nil {
		return "", c.transferErr
	}
	c.transferTo = to
	c.transferFor = tokenID
	return "0xtransfertx", nil
}

func (c *fakeChain) WalletAddress() persist.EthereumAddress { return serviceWallet }

func newTestService(t *testing.T, ledger *memLedger, store ContentStore, chain Chain) *Service {
	t.Helper()
	return NewService(memUsers{ledger}, memNFTs{ledger}, memTransfers{ledger}, memWallets{ledger}, store, chain, t.TempDir(), time.Second)
}

func TestMintWithoutAdapters(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("owner")
	service := newTestService(t, ledger, nil, nil)

	result, err := service.Mint(context.Background(), MintInput{
		Name:    "Deed 42",
		OwnerID: "owner",
		Image:   []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, StepSkipped, result.ImageCID.Status)
	assert.Equal(t, StepSkipped, result.MetadataCID.Status)
	assert.Equal(t, StepSkipped, result.TokenID.Status)
	assert.Equal(t, StepSkipped, result.MintTx.Status)
	assert.Empty(t, result.GatewayURL)

	assert.NotEmpty(t, result.NFT.ID)
	assert.Equal(t, persist.DBID("owner"), result.NFT.OwnerID)
	assert.Empty(t, result.NFT.TokenID)

	data, err := os.ReadFile(result.NFT.ImagePath.String())
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
	assert.Equal(t, fmt.Sprintf("%s.jpg", result.NFT.ID), filepath.Base(result.NFT.ImagePath.String()))
}

func TestMintAnchorsContentAndChain(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("owner")
	store := &fakeStore{}
	chain := &fakeChain{}
	service := newTestService(t, ledger, store, chain)

	result, err := service.Mint(context.Background(), MintInput{
		Name:        "Deed 42",
		Description: "plot 42, sector 9",
		OwnerID:     "owner",
		Image:       []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, StepAnchored, result.ImageCID.Status)
	assert.Equal(t, "Qm1", result.ImageCID.Value)
	assert.Equal(t, StepAnchored, result.MetadataCID.Status)
	assert.Equal(t, "QmMeta-Qm1", result.MetadataCID.Value)
	assert.Equal(t, StepAnchored, result.TokenID.Status)
	assert.Equal(t, "42", result.TokenID.Value)
	assert.Equal(t, StepAnchored, result.MintTx.Status)
	assert.Equal(t, "0xminttx", result.MintTx.Value)
	assert.Equal(t, "https://ipfs.io/ipfs/Qm1", result.GatewayURL)

	// no wallet mapped, so the mint is addressed to the service wallet
	assert.Equal(t, serviceWallet, chain.mintedTo)

	stored, err := memNFTs{ledger}.GetByID(context.Background(), result.NFT.ID)
	require.NoError(t, err)
	assert.Equal(t, persist.NullString("42"), stored.TokenID)
	assert.Equal(t, persist.NullString("Qm1"), stored.ImageCID)
	assert.Equal(t, persist.NullString("QmMeta-Qm1"), stored.MetadataCID)
	assert.Equal(t, persist.NullString("0xminttx"), stored.MintTxHash)
}

func TestMintAddressesMappedWallet(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("owner")
	_, err := memWallets{ledger}.Upsert(context.Background(), "owner", "0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)

	chain := &fakeChain{}
	service := newTestService(t, ledger, &fakeStore{}, chain)

	_, err = service.Mint(context.Background(), MintInput{Name: "Deed", OwnerID: "owner", Image: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, persist.EthereumAddress("0x00000000000000000000000000000000000000bb"), chain.mintedTo)
}

func TestMintSurvivesStoreFailure(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("owner")
	store := &fakeStore{putErr: errors.New("ipfs node unreachable")}
	service := newTestService(t, ledger, store, &fakeChain{})

	result, err := service.Mint(context.Background(), MintInput{Name: "Deed", OwnerID: "owner", Image: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, StepSkipped, result.ImageCID.Status)
	assert.Equal(t, "ipfs node unreachable", result.ImageCID.Reason)
	assert.Equal(t, StepSkipped, result.MetadataCID.Status)
	assert.Equal(t, StepSkipped, result.TokenID.Status)
	assert.Equal(t, StepSkipped, result.MintTx.Status)

	stored, err := memNFTs{ledger}.GetByID(context.Background(), result.NFT.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ImageCID)
	assert.Empty(t, stored.TokenID)
}

func TestMintSurvivesChainFailure(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("owner")
	chain := &fakeChain{mintErr: errors.New("execution reverted")}
	service := newTestService(t, ledger, &fakeStore{}, chain)

	result, err := service.Mint(context.Background(), MintInput{Name: "Deed", OwnerID: "owner", Image: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, StepAnchored, result.ImageCID.Status)
	assert.Equal(t, StepAnchored, result.MetadataCID.Status)
	assert.Equal(t, StepSkipped, result.TokenID.Status)
	assert.Equal(t, "execution reverted", result.TokenID.Reason)
	assert.Equal(t, StepSkipped, result.MintTx.Status)
}

func TestMintUnknownOwner(t *testing.T) {
	service := newTestService(t, newMemLedger(), nil, nil)

	_, err := service.Mint(context.Background(), MintInput{Name: "Deed", OwnerID: "ghost", Image: []byte("x")})
	assert.ErrorAs(t, err, &persist.ErrUserNotFound{})
}

func mintFor(t *testing.T, service *Service, owner persist.DBID) persist.NFT {
	t.Helper()
	result, err := service.Mint(context.Background(), MintInput{Name: "Deed", OwnerID: owner, Image: []byte("x")})
	require.NoError(t, err)
	return result.NFT
}

func TestTransferFlipsOwnerAndAppendsRecord(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	ledger.addUser("bob")
	chain := &fakeChain{}
	service := newTestService(t, ledger, &fakeStore{}, chain)

	minted := mintFor(t, service, "alice")

	result, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, persist.DBID("alice"), result.Record.FromUserID)
	assert.Equal(t, persist.DBID("bob"), result.Record.ToUserID)
	assert.Equal(t, StepAnchored, result.ChainTx.Status)
	assert.Equal(t, persist.NullString("0xtransfertx"), result.Record.TxHash)
	assert.NotEmpty(t, result.Record.NFTSnapshot)
	assert.Equal(t, "42", chain.transferFor)

	stored, err := memNFTs{ledger}.GetByID(context.Background(), minted.ID)
	require.NoError(t, err)
	assert.Equal(t, persist.DBID("bob"), stored.OwnerID)

	history, err := service.GetTransferHistory(context.Background(), minted.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.Record.ID, history[0].ID)
}

func TestTransferSurvivesChainFailure(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	ledger.addUser("bob")
	chain := &fakeChain{transferErr: errors.New("nonce too low")}
	service := newTestService(t, ledger, &fakeStore{}, chain)

	minted := mintFor(t, service, "alice")

	result, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, StepSkipped, result.ChainTx.Status)
	assert.Equal(t, "nonce too low", result.ChainTx.Reason)
	assert.Empty(t, result.Record.TxHash)

	stored, err := memNFTs{ledger}.GetByID(context.Background(), minted.ID)
	require.NoError(t, err)
	assert.Equal(t, persist.DBID("bob"), stored.OwnerID)
}

func TestTransferSkipsChainForOffChainNFT(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	ledger.addUser("bob")
	chain := &fakeChain{}
	service := newTestService(t, ledger, nil, chain)

	minted := mintFor(t, service, "alice")
	require.Empty(t, minted.TokenID)

	result, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, StepSkipped, result.ChainTx.Status)
	assert.Empty(t, chain.transferFor)
}

func TestTransferUnknownDestination(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	service := newTestService(t, ledger, nil, nil)

	minted := mintFor(t, service, "alice")

	_, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: "ghost"})
	assert.ErrorAs(t, err, &persist.ErrUserNotFound{})

	history, err := memTransfers{ledger}.GetByNFT(context.Background(), minted.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTransferUnknownNFT(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("bob")
	service := newTestService(t, ledger, nil, nil)

	_, err := service.Transfer(context.Background(), TransferInput{NFTID: "missing", ToUserID: "bob"})
	assert.ErrorAs(t, err, &persist.ErrNFTNotFoundByID{})
}

func TestTransferChainRecordsHistory(t *testing.T) {
	ledger := newMemLedger()
	owners := []persist.DBID{"u1", "u2", "u3", "u4"}
	for _, owner := range owners {
		ledger.addUser(owner)
	}
	service := newTestService(t, ledger, nil, nil)

	minted := mintFor(t, service, "u1")

	for _, to := range owners[1:] {
		_, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: to})
		require.NoError(t, err)
	}

	history, err := service.GetTransferHistory(context.Background(), minted.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// most recent first, each hop starting where the previous ended
	assert.Equal(t, persist.DBID("u4"), history[0].ToUserID)
	assert.Equal(t, persist.DBID("u3"), history[0].FromUserID)
	assert.Equal(t, persist.DBID("u3"), history[1].ToUserID)
	assert.Equal(t, persist.DBID("u2"), history[1].FromUserID)
	assert.Equal(t, persist.DBID("u2"), history[2].ToUserID)
	assert.Equal(t, persist.DBID("u1"), history[2].FromUserID)

	u2History, err := service.GetUserTransferHistory(context.Background(), "u2")
	require.NoError(t, err)
	assert.Len(t, u2History, 2)
}

func TestExecuteRejectsStaleOwner(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	ledger.addUser("bob")
	ledger.addUser("carol")
	service := newTestService(t, ledger, nil, nil)

	minted := mintFor(t, service, "alice")

	_, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: "bob"})
	require.NoError(t, err)

	// a transfer built against the pre-commit owner must not apply
	stale := persist.TransferRecord{
		ID:         persist.GenerateID(),
		NFTID:      minted.ID,
		FromUserID: "alice",
		ToUserID:   "carol",
	}
	err = memTransfers{ledger}.Execute(context.Background(), stale)
	assert.ErrorAs(t, err, &persist.ErrTransferConflict{})

	stored, err := memNFTs{ledger}.GetByID(context.Background(), minted.ID)
	require.NoError(t, err)
	assert.Equal(t, persist.DBID("bob"), stored.OwnerID)
}

func TestConcurrentTransfersKeepLedgerConsistent(t *testing.T) {
	ledger := newMemLedger()
	ledger.addUser("alice")
	recipients := []persist.DBID{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8"}
	for _, r := range recipients {
		ledger.addUser(r)
	}
	service := newTestService(t, ledger, nil, nil)

	minted := mintFor(t, service, "alice")

	var wg sync.WaitGroup
	errs := make(chan error, len(recipients))
	for _, to := range recipients {
		wg.Add(1)
		go func(to persist.DBID) {
			defer wg.Done()
			_, err := service.Transfer(context.Background(), TransferInput{NFTID: minted.ID, ToUserID: to})
			errs <- err
		}(to)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorAs(t, err, &persist.ErrTransferConflict{})
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)

	// losers must not leave partial records: history length matches commits, and
	// the hops chain from the original owner to the final one
	history, err := service.GetTransferHistory(context.Background(), minted.ID)
	require.NoError(t, err)
	require.Len(t, history, succeeded)

	stored, err := memNFTs{ledger}.GetByID(context.Background(), minted.ID)
	require.NoError(t, err)

	assert.Equal(t, persist.DBID("alice"), history[len(history)-1].FromUserID)
	assert.Equal(t, stored.OwnerID, history[0].ToUserID)
	for i := 0; i < len(history)-1; i++ {
		assert.Equal(t, history[i+1].ToUserID, history[i].FromUserID)
	}
}

func TestGetTransferHistoryUnknownNFT(t *testing.T) {
	service := newTestService(t, newMemLedger(), nil, nil)

	_, err := service.GetTransferHistory(context.Background(), "missing")
	assert.ErrorAs(t, err, &persist.ErrNFTNotFoundByID{})
}
