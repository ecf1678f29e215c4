package server

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/propella-labs/go-propella/env"
	"github.com/propella-labs/go-propella/middleware"
	"github.com/propella-labs/go-propella/service/auth"
	"github.com/propella-labs/go-propella/service/eth"
	"github.com/propella-labs/go-propella/service/ipfs"
	"github.com/propella-labs/go-propella/service/logger"
	"github.com/propella-labs/go-propella/service/nft"
	"github.com/propella-labs/go-propella/service/persist/postgres"
	"github.com/propella-labs/go-propella/service/rpc"
	sentryutil "github.com/propella-labs/go-propella/service/sentry"
	"github.com/propella-labs/go-propella/service/sms"
	"github.com/propella-labs/go-propella/validate"
)

// Init initializes the server
func Init() {
	SetDefaults()

	logger.SetLoggerOptions(func(l *logrus.Logger) {
		if env.GetString("ENV") != "production" {
			l.SetLevel(logrus.DebugLevel)
		}
	})
	sentryutil.InitSentry()

	router := CoreInit()
	http.Handle("/", router)
}

// CoreInit initializes the dependencies and the router. Everything the service
// needs is wired here so the tests can spin up the same surface against fakes.
func CoreInit() *gin.Engine {
	ctx := context.Background()

	logger.For(ctx).Info("initializing server...")

	if env.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate.RegisterCustomValidators(v)
	}

	pq := postgres.MustCreateClient()
	pgx := postgres.NewPgxClient()
	repos := postgres.NewRepositories(pq, pgx)

	storagePath := env.GetString("STORAGE_PATH")
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		logger.For(ctx).WithError(err).Fatal("failed to create media storage directory")
	}

	var store nft.ContentStore
	if env.GetString("IPFS_URL") != "" {
		store = ipfs.NewStorage(rpc.NewIPFSShell(), env.GetString("IPFS_GATEWAY"))
	} else {
		logger.For(ctx).Warn("IPFS_URL not set, minting without content anchoring")
	}

	chain := newChainClient(ctx)

	otps := auth.NewOTPStore(env.GetDuration("OTP_TTL"))
	sender := sms.NewSender(rpc.NewHTTPClient())
	if !sender.Configured() {
		logger.For(ctx).Warn("Twilio credentials not set, OTP codes will only be logged")
	}

	nftService := nft.NewService(repos.UserRepository, repos.NFTRepository, repos.TransferRepository, repos.WalletRepository, store, chain, storagePath, env.GetDuration("ADAPTER_TIMEOUT"))

	router := gin.Default()
	router.Use(middleware.HandleCORS(), middleware.ErrLogger())

	return handlersInit(router, repos, nftService, otps, sender)
}

// newChainClient dials the chain and binds the NFT contract. The chain leg of
// every pipeline is optional, so a missing or failing configuration downgrades to
// a warning and a nil client.
func newChainClient(ctx context.Context) nft.Chain {
	contractAddress := env.GetString("NFT_CONTRACT_ADDRESS")
	privateKey := env.GetString("WALLET_PRIVATE_KEY")
	if contractAddress == "" || privateKey == "" {
		logger.For(ctx).Warn("chain not configured, minting and transferring off-chain only")
		return nil
	}

	ethcl, err := rpc.NewEthClient()
	if err != nil {
		logger.For(ctx).WithError(err).Warn("failed to connect to chain RPC, continuing without chain")
		return nil
	}

	client, err := eth.NewClient(ctx, ethcl, contractAddress, privateKey)
	if err != nil {
		logger.For(ctx).WithError(err).Warn("failed to bind NFT contract, continuing without chain")
		return nil
	}

	logger.For(ctx).Infof("chain client ready with service wallet %s", client.WalletAddress())
	return client
}

// SetDefaults sets the default values for the environment
func SetDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("PORT", 4000)

	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "postgres")

	viper.SetDefault("STORAGE_PATH", "./nft_storage")

	viper.SetDefault("RPC_URL", "")
	viper.SetDefault("NFT_CONTRACT_ADDRESS", "")
	viper.SetDefault("WALLET_PRIVATE_KEY", "")

	viper.SetDefault("IPFS_URL", "")
	viper.SetDefault("IPFS_GATEWAY", "https://ipfs.io")
	viper.SetDefault("ADAPTER_TIMEOUT", "90s")

	viper.SetDefault("TWILIO_ACCOUNT_SID", "")
	viper.SetDefault("TWILIO_AUTH_TOKEN", "")
	viper.SetDefault("TWILIO_PHONE_NUMBER", "")
	viper.SetDefault("OTP_TTL", "10m")

	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()
}
