package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, NewStructuredLogger(logger), middleware.Recoverer, instrument)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	tx := r.PathPrefix("/api/transactions").Subrouter()
	tx.HandleFunc("/payment", h.PaymentHandler).Methods(http.MethodPost)
	tx.HandleFunc("/transfer", h.TransferHandler).Methods(http.MethodPost)

	return r
}
