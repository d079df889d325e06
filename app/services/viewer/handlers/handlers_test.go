package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/chainsim/app/services/viewer/handlers"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUIMux(t *testing.T) {
	app, err := handlers.UIMux(handlers.UIConfig{
		Build:    "test",
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		NodeHost: "localhost:8080",
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/?filter=main", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "build test")
	require.Contains(t, body, `const nodeHost = "localhost:8080";`)
	require.Contains(t, body, `const filter = "main";`)

	r = httptest.NewRequest(http.MethodGet, "/assets/viewer.css", nil)
	w = httptest.NewRecorder()
	app.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "#events")

	r = httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil)
	w = httptest.NewRecorder()
	app.ServeHTTP(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
}
