package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"pageinbox/internal/events"
	"pageinbox/internal/services"
	"pageinbox/internal/store"
)

// WebhookHandler receives platform webhook traffic: the GET verification
// handshake and POST event deliveries.
type WebhookHandler struct {
	store       *store.Store
	dispatcher  *services.Dispatcher
	verifyToken string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(st *store.Store, dispatcher *services.Dispatcher, verifyToken string) *WebhookHandler {
	if st == nil {
		log.Fatal().Msg("Store cannot be nil for WebhookHandler")
	}
	if dispatcher == nil {
		log.Fatal().Msg("Dispatcher cannot be nil for WebhookHandler")
	}
	return &WebhookHandler{
		store:       st,
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
	}
}

// Handle routes verification GETs and delivery POSTs.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleReceive(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerify answers the platform's subscription handshake by echoing the
// challenge when the verify token matches.
func (h *WebhookHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		log.Info().Msg("Webhook verification succeeded")
		w.Write([]byte(challenge))
		return
	}

	log.Warn().Str("mode", mode).Msg("Webhook verification failed")
	http.Error(w, "Invalid verification token", http.StatusForbidden)
}

// handleReceive decodes a delivery and dispatches it. The platform retries on
// non-2xx responses, so accepted deliveries are always acknowledged with 200
// even when entry processing fails; failures are logged instead.
func (h *WebhookHandler) handleReceive(w http.ResponseWriter, r *http.Request) {
	integrationID := mux.Vars(r)["integrationID"]

	var env events.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		log.Error().Err(err).Msg("Failed to decode webhook payload")
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	integration, err := h.store.IntegrationByID(integrationID)
	if err != nil {
		log.Error().Err(err).Str("integrationID", integrationID).Msg("Integration lookup failed")
		http.Error(w, "Integration lookup failed", http.StatusInternalServerError)
		return
	}
	if integration == nil {
		log.Warn().Str("integrationID", integrationID).Msg("Webhook for unknown integration")
		http.Error(w, "Unknown integration", http.StatusNotFound)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), integration, &env); err != nil {
		log.Error().Err(err).Str("integrationID", integrationID).Msg("Webhook dispatch failed")
	}

	w.WriteHeader(http.StatusOK)
}
