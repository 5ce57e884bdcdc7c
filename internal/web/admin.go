package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request_body"})
		return
	}
	id, err := s.Auth.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_credentials"})
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type dashboardBooking struct {
	TS        time.Time `json:"ts"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Date      string    `json:"data"`
	Time      string    `json:"orario"`
	PartySize int       `json:"persone"`
	Seats     int       `json:"seggiolini"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
}

type dashboardCustomer struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Bookings.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	recent, err := s.Bookings.Recent(r.Context(), 25)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	customers, err := s.Customers.Recent(r.Context(), 25)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	last := make([]dashboardBooking, 0, len(recent))
	for _, b := range recent {
		last = append(last, dashboardBooking{
			TS: b.TS, Phone: b.Phone, Name: b.Name, Date: b.Date, Time: b.Time,
			PartySize: b.PartySize, Seats: b.Seats, OK: b.OK, Message: b.Message,
		})
	}
	cust := make([]dashboardCustomer, 0, len(customers))
	for _, c := range customers {
		cust = append(cust, dashboardCustomer{Phone: c.Phone, Name: c.Name, Email: c.Email, UpdatedAt: c.UpdatedAt})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":         stats,
		"last_bookings": last,
		"customers":     cust,
	})
}
