package relayer

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/signer"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/tenderly"
	"github.com/AvaProtocol/mizan-relayer/core/config"
	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/metrics"
	"github.com/AvaProtocol/mizan-relayer/storage"
	"github.com/AvaProtocol/mizan-relayer/version"
)

type RelayerStatus string

const (
	initStatus     RelayerStatus = "init"
	runningStatus  RelayerStatus = "running"
	shutdownStatus RelayerStatus = "shutdown"
)

func RunWithConfig(configPath string) error {
	nodeConfig, err := config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %q: %w", configPath, err)
	}

	return NewRelayer(nodeConfig).Start(context.Background())
}

type Relayer struct {
	logger sdklogging.Logger
	config *config.Config

	ethRpcClient *ethclient.Client
	chainID      *big.Int

	db         storage.Storage
	classifier *profit.WrappedAssetClassifier
	flashLoans *FlashLoanService
	replay     *replayGuard

	registry *prometheus.Registry
	metrics  *metrics.RelayerMetrics

	http          *echo.Echo
	sentryEnabled bool

	status RelayerStatus
}

func NewRelayer(c *config.Config) *Relayer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Relayer{
		logger:   c.Logger,
		config:   c,
		registry: registry,
		metrics:  metrics.NewRelayerMetrics(registry),
		status:   initStatus,
	}
}

// Open and setup our database
func (r *Relayer) initDB() error {
	var err error
	r.db, err = storage.New(&storage.Config{Path: r.config.DbPath, InMemory: r.config.DbPath == ""})
	if err != nil {
		return err
	}
	if r.config.DbPath == "" {
		r.logger.Warn("db_path not set, wrapped asset discoveries are kept in memory only")
	} else {
		r.logger.Info("Database opened", "path", r.db.DbPath())
	}

	return r.db.Setup()
}

// dial the chain and wire the flash loan flow
func (r *Relayer) init(ctx context.Context) error {
	var err error

	r.ethRpcClient, err = ethclient.DialContext(ctx, r.config.EthHttpRpcUrl)
	if err != nil {
		return fmt.Errorf("cannot dial %s: %w", r.config.EthHttpRpcUrl, err)
	}

	r.chainID, err = r.ethRpcClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("cannot get chain id: %w", err)
	}

	r.classifier, err = profit.NewWrappedAssetClassifier(r.ethRpcClient, r.logger, r.config.WrappedAssets...).
		WithMetrics(r.metrics).
		WithRegistry(storage.NewWrappedAssetRegistry(r.db))
	if err != nil {
		return fmt.Errorf("cannot load wrapped assets: %w", err)
	}

	transactor, err := signer.FromPrivateKey(r.config.RelayerPrivateKey, r.chainID)
	if err != nil {
		return err
	}

	r.replay, err = newReplayGuard(ctx, r.config.AuthorizationTTL)
	if err != nil {
		return fmt.Errorf("cannot initialize replay cache: %w", err)
	}

	mizanClient := mizan.NewClient(r.config.MizanAddress, r.ethRpcClient)
	r.flashLoans = NewFlashLoanService(
		FlashLoanSettings{
			LoanToken:   r.config.LoanTokenAddress,
			ProfitToken: r.config.ProfitTokenAddress,
			Borrower:    r.config.BorrowerAddress,
		},
		mizanClient,
		NewAuthorizer(mizanClient, r.config.RelayerPrivateKey, r.config.LoanTokenAddress, r.config.AuthorizationTTL),
		tenderly.NewClient(r.config.TenderlyRpcUrl, r.logger),
		mizanClient,
		profit.NewEngine(r.classifier.Check(), r.logger, r.metrics),
		transactor,
		r.replay,
		r.logger,
		r.metrics,
	).WithFeeReader(r.ethRpcClient)

	return nil
}

func (r *Relayer) Start(ctx context.Context) error {
	r.logger.Infof("Starting relayer %s", version.Get())
	r.initSentry()
	defer sentryFlushSafely(2 * time.Second)

	r.logger.Infof("Initialize Storage")
	if err := r.initDB(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer r.db.Close()

	if err := r.init(ctx); err != nil {
		return err
	}
	r.logger.Info("relayer ready",
		"relayer", r.config.RelayerAddress.Hex(),
		"chainId", r.chainID.String(),
		"mizan", r.config.MizanAddress.Hex())

	r.logger.Infof("Starting http server")
	r.startHttpServer(ctx)
	r.status = runningStatus

	started := time.Now()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	// Setup wait signal
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	last := started
wait:
	for {
		select {
		case <-sigs:
			break wait
		case <-ctx.Done():
			break wait
		case now := <-ticker.C:
			r.metrics.AddUptime(float64(now.Sub(last).Milliseconds()))
			last = now
		}
	}

	r.logger.Infof("Shutting down...")
	r.status = shutdownStatus
	r.stopHttpServer()
	if err := r.replay.Close(); err != nil {
		r.logger.Warn("cannot close replay cache", "error", err)
	}
	r.ethRpcClient.Close()

	return nil
}

func (r *Relayer) IsShutdown() bool {
	return r.status == shutdownStatus
}
