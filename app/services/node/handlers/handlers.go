// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/ardanlabs/chainsim/app/services/node/handlers/debug/checkgrp"
	v1 "github.com/ardanlabs/chainsim/app/services/node/handlers/v1"
	"github.com/ardanlabs/chainsim/app/services/node/handlers/v1/chaingrp"
	"github.com/ardanlabs/chainsim/business/sys/metrics"
	"github.com/ardanlabs/chainsim/business/web/mid"
	"github.com/ardanlabs/chainsim/foundation/blockchain/ledger"
	"github.com/ardanlabs/chainsim/foundation/blockchain/mempool"
	"github.com/ardanlabs/chainsim/foundation/blockchain/peer"
	"github.com/ardanlabs/chainsim/foundation/blockchain/wallet"
	"github.com/ardanlabs/chainsim/foundation/events"
	"github.com/ardanlabs/chainsim/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Metrics  *metrics.Metrics
	Ledger   *ledger.Ledger
	Mempool  *mempool.Mempool
	Miner    chaingrp.Miner
	Registry *peer.Registry
	Graph    *peer.Graph
	Wallets  *wallet.Store
	Evts     *events.Events
}

// APIMux constructs a http.Handler with all application routes defined.
func APIMux(cfg MuxConfig) http.Handler {

	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests if config has been provided.
	// Don't forget to apply the CORS middleware to the routes that need it.
	// Example Config: `conf:"default:https://MY_DOMAIN.COM"`
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// Load the v1 routes.
	v1.Routes(app, v1.Config{
		Log:      cfg.Log,
		Ledger:   cfg.Ledger,
		Mempool:  cfg.Mempool,
		Miner:    cfg.Miner,
		Registry: cfg.Registry,
		Graph:    cfg.Graph,
		Wallets:  cfg.Wallets,
		Evts:     cfg.Evts,
	})

	return app
}

// DebugStandardLibraryMux registers all the debug routes from the standard library
// into a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could inject a
// handler into our service without us knowing it.
func DebugStandardLibraryMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Register all the standard library debug endpoints.
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// DebugMux registers all the debug standard library routes and then custom
// debug application routes for the service. This bypassing the use of the
// DefaultServerMux. Using the DefaultServerMux would be a security risk since
// a dependency could inject a handler into our service without us knowing it.
func DebugMux(build string, log *zap.SugaredLogger, l *ledger.Ledger, gatherer prometheus.Gatherer) http.Handler {
	mux := DebugStandardLibraryMux()

	// Register debug check endpoints.
	cgh := checkgrp.Handlers{
		Build:  build,
		Log:    log,
		Ledger: l,
	}
	mux.HandleFunc("/debug/readiness", cgh.Readiness)
	mux.HandleFunc("/debug/liveness", cgh.Liveness)

	// Register the prometheus scrape endpoint.
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
