package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/chainsim/business/sys/metrics"
	"github.com/ardanlabs/chainsim/foundation/web"
)

// Metrics records the count and duration of every request by method and
// status code. It runs outside of Errors so the status code is final.
func Metrics(m *metrics.Metrics) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			if v, verr := web.GetValues(ctx); verr == nil {
				m.ObserveRequest(r.Method, strconv.Itoa(v.StatusCode), v.Now)
			}

			return err
		}

		return h
	}

	return mw
}
