// Package handlers contains the full set of handler functions and routes
// supported by the viewer website.
package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/ardanlabs/chainsim/business/web/mid"
	"github.com/ardanlabs/chainsim/foundation/web"
	"go.uber.org/zap"
)

// UIConfig contains all the mandatory systems required by the viewer.
type UIConfig struct {
	Build    string
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	NodeHost string // host:port of the node api the page streams events from.
}

// UIMux constructs an http.Handler with all application routes defined.
func UIMux(cfg UIConfig) (*web.App, error) {
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Panics(),
		mid.Cors("*"),
	)

	// Register the index page for the website.
	ig, err := newIndex(cfg.Build, cfg.NodeHost)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	// Register the assets.
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	fileServer := http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
	f := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		fileServer.ServeHTTP(w, r)
		return nil
	}
	app.Handle(http.MethodGet, "", "/assets/*", f)

	return app, nil
}
