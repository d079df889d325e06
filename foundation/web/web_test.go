package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/chainsim/foundation/validate"
	"github.com/ardanlabs/chainsim/foundation/web"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name" validate:"required"`
}

func TestApp(t *testing.T) {
	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(make(chan os.Signal, 1), mw("app"))

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, v.TraceID)

		limit, err := web.QueryInt(r, "limit", 10)
		require.NoError(t, err)

		resp := map[string]any{"id": web.Param(r, "id"), "limit": limit}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
	app.Handle(http.MethodGet, "v1", "/items/:id", h, mw("route"))

	r := httptest.NewRequest(http.MethodGet, "/v1/items/abc?limit=3", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"abc","limit":3}`, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, []string{"app", "route"}, order)
}

func TestShutdownSignal(t *testing.T) {
	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	}
	app.Handle(http.MethodGet, "", "/boom", h)

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Len(t, shutdown, 1)
}

func TestDecode(t *testing.T) {
	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"main"}`))
	require.NoError(t, web.Decode(r, &p))
	require.Equal(t, "main", p.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := web.Decode(r, &payload{})
	require.True(t, validate.IsFieldErrors(err))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	require.Error(t, web.Decode(r, &payload{}))

	var list []string
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`["a","b"]`))
	require.NoError(t, web.Decode(r, &list))
	require.Equal(t, []string{"a", "b"}, list)
}
