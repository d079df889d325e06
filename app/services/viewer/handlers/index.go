package handlers

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/ardanlabs/chainsim/foundation/web"
)

//go:embed assets
var assets embed.FS

type index struct {
	tmpl     *template.Template
	build    string
	nodeHost string
}

func newIndex(build string, nodeHost string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	ig := index{
		tmpl:     tmpl,
		build:    build,
		nodeHost: nodeHost,
	}

	return &ig, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		Build    string
		NodeHost string
		Filter   string
	}{
		Build:    ig.build,
		NodeHost: ig.nodeHost,
		Filter:   r.URL.Query().Get("filter"),
	}

	var buf bytes.Buffer
	if err := ig.tmpl.Execute(&buf, data); err != nil {
		return err
	}

	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)

	return err
}
