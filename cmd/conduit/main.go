// X1-Conduit: cross-consensus message executor daemon.
//
// Conduit executes inbound consensus messages against a persistent
// ledger, queues outbound messages durably, and forwards them to a relay
// uplink when one is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/fortiblox/X1-Conduit/pkg/ledger"
	"github.com/fortiblox/X1-Conduit/pkg/modules"
	"github.com/fortiblox/X1-Conduit/pkg/router"
	"github.com/fortiblox/X1-Conduit/pkg/traps"
	"github.com/fortiblox/X1-Conduit/pkg/xcm"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/barrier"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/executor"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/policy"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/trader"
	"github.com/fortiblox/X1-Conduit/pkg/xcm/weigher"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags; flag values override the config file.
var (
	configPath  = flag.String("config", "", "Path to TOML config file")
	dataDir     = flag.String("data-dir", "", "Data directory for ledger, traps and outbox")
	listenAddr  = flag.String("listen", "", "gRPC listen address for inbound deliveries")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const (
	balancesModuleIndex = 1
	forwardInterval     = 5 * time.Second
	forwardBatch        = 32
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("X1-Conduit %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", cfg.LogLevel)
		os.Exit(1)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	log.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting X1-Conduit")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("daemon failed")
		os.Exit(1)
	}
}

func run(cfg Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Stringer("signal", sig).Msg("shutting down")
		cancel()
	}()

	// Storage.
	led, err := ledger.Open(ledger.DefaultBadgerConfig(filepath.Join(cfg.DataDir, "ledger")))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()

	trapStore, err := traps.Open(traps.DefaultConfig(filepath.Join(cfg.DataDir, "traps.db")))
	if err != nil {
		return fmt.Errorf("open trap store: %w", err)
	}
	defer trapStore.Close()

	outbox, err := router.OpenOutbox(router.OutboxConfig{
		Path: filepath.Join(cfg.DataDir, "outbox.db"),
		Fees: router.FeeSchedule{
			Asset:   nativeAssetID(),
			Base:    cfg.Fees.Base,
			PerByte: cfg.Fees.PerByte,
		},
	})
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer outbox.Close()

	// Outbound transport. Without an uplink endpoint messages stay
	// queued in the outbox until one is configured.
	var uplink *router.Uplink
	if cfg.Uplink.Endpoint != "" {
		uc := router.DefaultUplinkConfig(cfg.Uplink.Endpoint)
		uc.UseTLS = cfg.Uplink.UseTLS
		uplink, err = router.DialUplink(uc)
		if err != nil {
			return fmt.Errorf("dial uplink: %w", err)
		}
		defer uplink.Close()
		go forwardLoop(ctx, log, outbox, uplink)
	} else {
		log.Warn().Msg("no uplink endpoint configured, outbound messages will queue")
	}

	// Dispatchable modules.
	registry := modules.NewRegistry(nil)
	if err := registry.Register(modules.NewBalances(balancesModuleIndex, nativeAssetID(), led)); err != nil {
		return fmt.Errorf("register balances module: %w", err)
	}

	exec, err := buildExecutor(cfg, log, led, trapStore, outbox, registry)
	if err != nil {
		return fmt.Errorf("build executor: %w", err)
	}

	// Inbound gRPC endpoint.
	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	server := grpc.NewServer()
	delivery := newDeliveryServer(log.With().Str("component", "delivery").Logger(), exec)
	router.RegisterUplinkHandler(server, delivery)

	go statusLoop(ctx, log, delivery, outbox)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(lis) }()
	log.Info().Str("addr", cfg.Listen).Msg("delivery endpoint listening")

	select {
	case <-ctx.Done():
		server.GracefulStop()
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	executed, failed := delivery.Stats()
	log.Info().Uint64("executed", executed).Uint64("failed", failed).Msg("X1-Conduit stopped")
	return nil
}

func nativeAssetID() xcm.AssetID {
	return xcm.NewAssetID(xcm.Parent())
}

func siblings(paras []uint32) []xcm.Location {
	out := make([]xcm.Location, 0, len(paras))
	for _, id := range paras {
		out = append(out, xcm.NewLocation(1, xcm.Parachain(id)))
	}
	return out
}

func buildExecutor(cfg Config, log zerolog.Logger, led *ledger.Ledger, trapStore *traps.Store, sender executor.MessageSender, registry *modules.Registry) (*executor.Executor, error) {
	unpaid := append(siblings(cfg.Network.UnpaidParas), xcm.Parent())

	reserves := policy.TrustedReserves{
		// The relay is the reserve for its native asset.
		{Assets: xcm.AllOf(nativeAssetID()), Origin: xcm.Parent()},
	}
	for _, loc := range siblings(cfg.Network.ReserveParas) {
		reserves = append(reserves, policy.Case{Assets: xcm.AllOf(xcm.NewAssetID(loc)), Origin: loc})
	}

	teleporters := make(policy.TrustedTeleporters, 0, len(cfg.Network.TeleportParas))
	for _, loc := range siblings(cfg.Network.TeleportParas) {
		teleporters = append(teleporters, policy.Case{Assets: xcm.AllOf(nativeAssetID()), Origin: loc})
	}

	feeSink := log.With().Str("component", "fees").Logger()
	responseLog := log.With().Str("component", "responses").Logger()

	ec := executor.DefaultConfig()
	ec.AssetTransactor = led
	ec.Locker = led
	ec.Trap = trapStore
	ec.Claims = trapStore
	ec.Sender = sender
	ec.Dispatcher = registry
	ec.PalletsInfo = registry
	ec.Weigher = weigher.New(xcm.NewWeight(cfg.Execution.UnitRefTime, cfg.Execution.UnitProofSize), cfg.Execution.MaxInstructions)
	ec.NewTrader = func() executor.WeightTrader {
		return trader.NewFixedRate(nativeAssetID(), trader.Rate{
			RefTimePerToken:   cfg.Execution.RefTimePerToken,
			ProofSizePerToken: cfg.Execution.ProofSizePerToken,
		})
	}
	ec.Barrier = barrier.Any{
		barrier.TakeWeightCredit{},
		barrier.AllowTopLevelPaidExecutionFrom{Allowed: barrier.AnyLocation},
		barrier.AllowExplicitUnpaidExecutionFrom{Allowed: barrier.OneOf(unpaid...)},
	}
	ec.Reserves = reserves
	ec.Teleporters = teleporters
	ec.Fees = policy.FeeManager{
		Sink: func(fees xcm.Assets, reason executor.FeeReason) {
			feeSink.Debug().Int("assets", len(fees)).Uint8("reason", uint8(reason)).Msg("fee collected")
		},
	}
	ec.Responses = policy.ResponseFunc(func(origin xcm.Location, queryID uint64, _ *xcm.Location, _ xcm.Response, _ xcm.Weight) xcm.Weight {
		responseLog.Info().Stringer("origin", origin).Uint64("query_id", queryID).Msg("response received")
		return xcm.Weight{}
	})
	ec.UniversalLocation = xcm.Interior(
		xcm.GlobalConsensus(xcm.X1Network()),
		xcm.Parachain(cfg.Network.ParaID),
	)
	ec.Logger = log.With().Str("component", "executor").Logger()

	return executor.New(ec)
}

// forwardLoop drains the outbox into the uplink.
func forwardLoop(ctx context.Context, log zerolog.Logger, outbox *router.Outbox, uplink *router.Uplink) {
	ticker := time.NewTicker(forwardInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := outbox.Forward(uplink, forwardBatch)
			if err != nil {
				log.Warn().Err(err).Int("forwarded", n).Msg("outbox forward failed")
			} else if n > 0 {
				log.Debug().Int("forwarded", n).Msg("outbox forwarded")
			}
		}
	}
}

// statusLoop reports execution and queue counters periodically.
func statusLoop(ctx context.Context, log zerolog.Logger, delivery *deliveryServer, outbox *router.Outbox) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			executed, failed := delivery.Stats()
			pending, err := outbox.Len()
			if err != nil {
				pending = -1
			}
			log.Info().
				Uint64("executed", executed).
				Uint64("failed", failed).
				Int("pending_outbound", pending).
				Msg("status")
		}
	}
}
