package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
)

// Recovery turns a panicking handler into a generic 500
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logging.WithContext(r.Context()).Error("Handler panicked", fmt.Errorf("%v", rec),
				logging.Field{Key: "path", Value: r.URL.Path},
				logging.Field{Key: "stack", Value: string(debug.Stack())},
			)
			httpclient.WriteJSON(w, http.StatusInternalServerError, httpclient.ErrorBody{Error: httpclient.GenericErrorMessage})
		}()

		next.ServeHTTP(w, r)
	})
}
