// Package api serves the read side of the call archive over HTTP.
package api

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/calls", handler.Calls)
	mux.HandleFunc("GET /v1/calls/{id}/transcripts", handler.Transcripts)
	mux.HandleFunc("GET /v1/profiles", handler.Profiles)

	return otelhttp.NewHandler(mux, "api")
}
