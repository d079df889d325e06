package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/chainsim/app/services/node/handlers"
	"github.com/ardanlabs/chainsim/business/sys/metrics"
	"github.com/ardanlabs/chainsim/foundation/blockchain/database"
	"github.com/ardanlabs/chainsim/foundation/blockchain/genesis"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/chainsim/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/ardanlabs/chainsim/foundation/blockchain/worker"
	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

// storage is what the simulator persists chains and nodes with.
type storage interface {
	database.Storage
	peer.Storage
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
		}
		Storage struct {
			Kind string `conf:"default:disk,help:memory or disk"`
			Path string `conf:"default:zblock/data"`
		}
		Genesis struct {
			File string `conf:"help:genesis json file, defaults are used when empty"`
		}
		Worker struct {
			SyncInterval time.Duration `conf:"default:5s"`
		}
		Wallets struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "blockchain network simulator",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	gen := genesis.Default()
	if cfg.Genesis.File != "" {
		if gen, err = genesis.Load(cfg.Genesis.File); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}

	// =========================================================================
	// Events Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. The viewer messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	// =========================================================================
	// Blockchain Support

	var store storage
	switch cfg.Storage.Kind {
	case "memory":
		store, err = memory.New()
	case "disk":
		store, err = disk.New(cfg.Storage.Path)
	default:
		err = fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
	if err != nil {
		return fmt.Errorf("constructing storage: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr := metrics.New(promReg)

	ldg, err := ledger.New(ledger.Config{
		Storage:           store,
		DefaultDifficulty: gen.Difficulty,
		MaxSealAttempts:   gen.MaxSealAttempts,
		MaxStaleRetries:   gen.MaxStaleRetries,
		Metrics:           mtr,
		EvHandler:         ledger.EventHandler(ev),
	})
	if err != nil {
		return fmt.Errorf("constructing ledger: %w", err)
	}
	defer ldg.Shutdown()

	registry, err := peer.NewRegistry(peer.Config{
		Storage:   store,
		EvHandler: peer.EventHandler(ev),
	})
	if err != nil {
		return fmt.Errorf("constructing registry: %w", err)
	}
	graph := peer.NewGraph(registry)

	if err := gen.Apply(context.Background(), ldg, registry, graph); err != nil {
		return fmt.Errorf("applying genesis: %w", err)
	}

	for _, info := range ldg.Chains() {
		log.Infow("startup", "status", "chain loaded", "id", info.ID, "name", info.Name, "height", info.Height, "difficulty", info.Difficulty)
	}

	wallets := wallet.NewStore(wallet.Config{EvHandler: wallet.EventHandler(ev)})
	if _, err := os.Stat(cfg.Wallets.Folder); err == nil {
		n, err := wallets.LoadFolder(cfg.Wallets.Folder)
		if err != nil {
			return fmt.Errorf("unable to load wallets: %w", err)
		}
		log.Infow("startup", "status", "wallets loaded", "count", n)
	}

	mp, err := mempool.NewWithStrategy(gen.Strategy)
	if err != nil {
		return fmt.Errorf("constructing mempool: %w", err)
	}

	// The sync chain is the first chain in the genesis.
	var syncChainID string
	if chains := ldg.Chains(); len(chains) > 0 {
		syncChainID = chains[0].ID
	}

	// The worker package implements the mining race, node syncing and the
	// transaction intake.
	wrk, err := worker.Run(worker.Config{
		Ledger:        ldg,
		Mempool:       mp,
		Registry:      registry,
		Miners:        gen.Miners,
		TransPerBlock: gen.TransPerBlock,
		SyncChainID:   syncChainID,
		SyncInterval:  cfg.Worker.SyncInterval,
		EvHandler:     worker.EventHandler(ev),
	})
	if err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	defer wrk.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, ldg, promReg)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Metrics:  mtr,
		Ledger:   ldg,
		Mempool:  mp,
		Miner:    wrk,
		Registry: registry,
		Graph:    graph,
		Wallets:  wallets,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
