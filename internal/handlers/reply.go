package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/services"
	"pageinbox/internal/store"
)

// ReplyHandler exposes outbound replies over HTTP.
type ReplyHandler struct {
	store   *store.Store
	replies *services.ReplyService
}

// NewReplyHandler creates a new ReplyHandler.
func NewReplyHandler(st *store.Store, replies *services.ReplyService) *ReplyHandler {
	if st == nil {
		log.Fatal().Msg("Store cannot be nil for ReplyHandler")
	}
	if replies == nil {
		log.Fatal().Msg("ReplyService cannot be nil for ReplyHandler")
	}
	return &ReplyHandler{store: st, replies: replies}
}

type replyRequest struct {
	MessageID     string `json:"messageId"`
	Text          string `json:"text,omitempty"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
	CommentID     string `json:"commentId,omitempty"`
}

// Handle posts a reply on the conversation in the path, triggered by the
// message named in the body.
func (h *ReplyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversationID"]

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Text == "" && req.AttachmentURL == "" {
		http.Error(w, "Reply needs text or an attachment URL", http.StatusBadRequest)
		return
	}

	conv, err := h.store.ConversationByID(conversationID)
	if err != nil {
		log.Error().Err(err).Str("conversationID", conversationID).Msg("Conversation lookup failed")
		http.Error(w, "Conversation lookup failed", http.StatusInternalServerError)
		return
	}

	msg, err := h.store.MessageByID(req.MessageID)
	if err != nil {
		log.Error().Err(err).Str("messageID", req.MessageID).Msg("Message lookup failed")
		http.Error(w, "Message lookup failed", http.StatusInternalServerError)
		return
	}

	err = h.replies.SendReply(r.Context(), conv, services.ReplyOptions{
		Text:          req.Text,
		AttachmentURL: req.AttachmentURL,
		CommentID:     req.CommentID,
	}, msg)
	if err != nil {
		log.Error().Err(err).Str("conversationID", conversationID).Msg("Reply failed")
		switch {
		case errs.IsNotFound(err):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errs.IsTransport(err):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
}
