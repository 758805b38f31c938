package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// ReplyService posts outbound replies back to the platform and records the
// returned platform ids on the triggering message.
type ReplyService struct {
	store  *store.Store
	graph  Graph
	tokens TokenSource
}

// NewReplyService creates a new ReplyService.
func NewReplyService(st *store.Store, g Graph, tokens TokenSource) (*ReplyService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("graph client cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	return &ReplyService{store: st, graph: g, tokens: tokens}, nil
}

// ReplyOptions is the outbound payload: text or an attachment URL, and for
// feed conversations an optional comment id to reply under.
type ReplyOptions struct {
	Text          string
	AttachmentURL string
	CommentID     string
}

// SendReply posts the reply for conv. Messenger conversations get a message
// addressed to the stored sender id; feed conversations get a comment on the
// root post or under CommentID. Requires the conversation's integration and
// account to exist.
func (s *ReplyService) SendReply(ctx context.Context, conv *models.Conversation, opts ReplyOptions, trigger *models.ConversationMessage) error {
	if conv == nil {
		return errs.NewNotFoundError("conversation", "")
	}
	if trigger == nil {
		return errs.NewNotFoundError("message", "")
	}

	integration, err := s.store.IntegrationByID(conv.IntegrationID)
	if err != nil {
		return fmt.Errorf("integration lookup failed: %w", err)
	}
	if integration == nil {
		return errs.NewNotFoundError("integration", conv.IntegrationID)
	}

	account, err := s.store.AccountByID(integration.AccountID)
	if err != nil {
		return fmt.Errorf("account lookup failed: %w", err)
	}
	if account == nil {
		return errs.NewNotFoundError("account", integration.AccountID)
	}

	token, err := s.tokens.PageToken(ctx, conv.PageID, account.Token)
	if err != nil {
		return err
	}

	switch conv.ChannelKind {
	case models.KindMessenger:
		return s.sendMessengerReply(ctx, conv, opts, trigger, token)
	case models.KindFeed:
		return s.sendFeedReply(ctx, conv, opts, trigger, token)
	default:
		return fmt.Errorf("unknown conversation channel kind %q", conv.ChannelKind)
	}
}

func (s *ReplyService) sendMessengerReply(ctx context.Context, conv *models.Conversation, opts ReplyOptions, trigger *models.ConversationMessage, token string) error {
	message := map[string]interface{}{}
	if opts.Text != "" {
		message["text"] = opts.Text
	}
	if opts.AttachmentURL != "" {
		message["attachment"] = map[string]interface{}{
			"type": "file",
			"payload": map[string]interface{}{
				"url": opts.AttachmentURL,
			},
		}
	}

	body := map[string]interface{}{
		"recipient": map[string]interface{}{"id": conv.SenderID},
		"message":   message,
	}

	resp, err := s.graph.SendMessage(ctx, token, body)
	if err != nil {
		s.invalidateOnAuthFailure(conv.PageID, err)
		return err
	}

	if err := s.store.UpdateMessageChannel(trigger.ID, map[string]interface{}{"message_id": resp.MessageID}); err != nil {
		return err
	}

	log.Info().
		Str("conversationID", conv.ID).
		Str("platformMessageID", resp.MessageID).
		Msg("Sent messenger reply")
	return nil
}

func (s *ReplyService) sendFeedReply(ctx context.Context, conv *models.Conversation, opts ReplyOptions, trigger *models.ConversationMessage, token string) error {
	target := conv.PostID
	if opts.CommentID != "" {
		target = opts.CommentID
	}
	if target == "" {
		return errs.NewConfigurationError("feed conversation %s carries no post id", conv.ID)
	}

	body := map[string]interface{}{}
	if opts.Text != "" {
		body["message"] = opts.Text
	}
	if opts.AttachmentURL != "" {
		body["attachment_url"] = opts.AttachmentURL
	}

	ref, err := s.graph.CreateComment(ctx, target, token, body)
	if err != nil {
		s.invalidateOnAuthFailure(conv.PageID, err)
		return err
	}

	fields := map[string]interface{}{"comment_id": ref.ID}
	if opts.CommentID != "" {
		fields["parent_id"] = opts.CommentID
	}
	if err := s.store.UpdateMessageChannel(trigger.ID, fields); err != nil {
		return err
	}

	if err := s.store.IncrementCommentCount(conv.ID, conv.PostID); err != nil {
		log.Error().Err(err).Str("conversationID", conv.ID).Msg("Failed to increment root post comment count")
	}

	log.Info().
		Str("conversationID", conv.ID).
		Str("platformCommentID", ref.ID).
		Msg("Sent feed reply")
	return nil
}

// invalidateOnAuthFailure drops the cached page token when the platform
// rejects it, so the next call mints a fresh one.
func (s *ReplyService) invalidateOnAuthFailure(pageID string, err error) {
	if errs.AuthStatus(err) {
		s.tokens.Invalidate(pageID)
		log.Warn().Str("pageID", pageID).Msg("Invalidated cached page token after auth failure")
	}
}
