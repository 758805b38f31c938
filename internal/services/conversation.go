package services

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// ConversationService implements find-or-create-or-reopen semantics for
// conversations keyed by a correlation selector.
type ConversationService struct {
	store *store.Store
}

// NewConversationService creates a new ConversationService.
func NewConversationService(st *store.Store) (*ConversationService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	return &ConversationService{store: st}, nil
}

// ConversationSelector is the correlation key for a conversation lookup. For
// messenger kind the sender/recipient pair matches in either order; for feed
// kind the post id (plus the active page id) matches.
type ConversationSelector struct {
	Kind        models.ChannelKind
	SenderID    string
	RecipientID string
	PostID      string
}

// ChannelData carries the channel fields stamped on a created conversation.
type ChannelData struct {
	Kind        models.ChannelKind
	SenderID    string
	RecipientID string
	PostID      string
}

// Resolve looks up the most recently created conversation matching the
// selector and applies the decision rule:
//
//   - no match: create
//   - closed match with more than one message: create a new conversation
//   - any other match: reopen it (status becomes open), history intact
//
// Creation stamps the active page id and writes an activity log; reopening is
// a pure status transition. A create without page context fails with
// ConfigurationError.
func (s *ConversationService) Resolve(pc *PageContext, sel *ConversationSelector, status models.ConversationStatus, channel ChannelData) (*models.Conversation, error) {
	var match *models.Conversation
	var err error

	if sel != nil {
		switch sel.Kind {
		case models.KindMessenger:
			match, err = s.store.ConversationByMessengerPair(sel.SenderID, sel.RecipientID)
		case models.KindFeed:
			pageID := ""
			if pc != nil {
				pageID = pc.PageID
			}
			match, err = s.store.ConversationByFeedPost(sel.PostID, pageID)
		default:
			return nil, fmt.Errorf("unknown conversation selector kind %q", sel.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("conversation lookup failed: %w", err)
		}
	}

	if match != nil {
		if match.MessageCount > 1 && match.Status == models.StatusClosed {
			// A stale closed thread is not reopened; a fresh conversation
			// tracks the new contact.
			log.Debug().Str("conversationID", match.ID).Msg("Closed conversation past reopen threshold, creating new")
		} else {
			if err := s.store.UpdateConversationStatus(match.ID, models.StatusOpen); err != nil {
				return nil, err
			}
			match.Status = models.StatusOpen
			log.Info().Str("conversationID", match.ID).Msg("Reopened conversation")
			return match, nil
		}
	}

	if pc == nil || pc.PageID == "" {
		return nil, errs.NewConfigurationError("no active page context for conversation create")
	}

	conv := &models.Conversation{
		IntegrationID: pc.Integration.ID,
		Status:        status,
		ChannelKind:   channel.Kind,
		SenderID:      channel.SenderID,
		RecipientID:   channel.RecipientID,
		PostID:        channel.PostID,
		PageID:        pc.PageID,
	}
	if err := s.store.CreateConversation(conv); err != nil {
		return nil, err
	}

	if err := s.store.CreateActivityLog(models.ActivityActionCreate, models.ContentTypeConversation, conv.ID); err != nil {
		log.Error().Err(err).Str("conversationID", conv.ID).Msg("Failed to write conversation activity log")
	}

	log.Info().
		Str("conversationID", conv.ID).
		Str("kind", string(channel.Kind)).
		Str("pageID", pc.PageID).
		Msg("Created conversation")
	return conv, nil
}
