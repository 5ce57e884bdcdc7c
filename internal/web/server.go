// Package web is the HTTP surface: the booking endpoint the voice assistant
// calls, debug echo endpoints, and the admin dashboard.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/centralino/internal/auth"
	"github.com/example/centralino/internal/booking"
	"github.com/example/centralino/internal/db"
	redisclient "github.com/example/centralino/internal/redis"
	"github.com/example/centralino/internal/store"
)

// Booker runs one validated booking request end to end.
type Booker interface {
	Process(ctx context.Context, req booking.Request) booking.Result
}

type Server struct {
	Engine    Booker
	Bookings  *store.Bookings
	Customers *store.Customers
	Auth      *auth.Store
	Locker    redisclient.Locker // nil disables per-phone locking
	DB        *db.DB

	BookingURL         string
	VenueName          string
	DefaultEmail       string
	DisableFinalSubmit bool
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Get("/", s.handleStatus)
	r.Post("/", s.handleEcho)
	r.Post("/webhook", s.handleEcho)
	r.Get("/healthz", s.handleHealthz)

	r.Post("/book_table", s.handleBookTable)

	r.Post("/admin/login", s.handleAdminLogin)
	r.Post("/admin/logout", s.handleAdminLogout)
	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAuth)
		r.Get("/admin/dashboard", s.handleAdminDashboard)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "Centralino AI - " + s.VenueName,
		"booking_url":          s.BookingURL,
		"disable_final_submit": s.DisableFinalSubmit,
	})
}

// handleEcho logs whatever the voice front end posted. Useful when wiring a
// new assistant flow.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		payload = map[string]any{"raw": "unparseable body"}
	}
	if data, err := json.Marshal(payload); err == nil {
		if len(data) > 2000 {
			data = data[:2000]
		}
		log.Printf("webhook payload=%s request_id=%s", data, GetRequestID(r.Context()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response err=%v", err)
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("listening on %s", addr)
	return srv.ListenAndServe()
}
