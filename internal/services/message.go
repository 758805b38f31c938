package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
	"pageinbox/internal/events"
	"pageinbox/internal/media"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// ParentRestorer backfills missing ancestor context before a comment message
// is ingested.
type ParentRestorer interface {
	EnsureParentPost(ctx context.Context, pc *PageContext, conv *models.Conversation, platformUserID, commentID, postID string) (bool, error)
}

// MessageService turns classified events into persisted messages attached to
// resolved conversations and customers.
type MessageService struct {
	store         *store.Store
	conversations *ConversationService
	customers     *CustomerService
	reactions     *ReactionService
	graph         Graph
	notifier      Notifier
	archiver      *media.Archiver
	restorer      ParentRestorer
}

// NewMessageService creates a new MessageService. The parent restorer is
// attached afterwards because it ingests through this service.
func NewMessageService(st *store.Store, conversations *ConversationService, customers *CustomerService, reactions *ReactionService, g Graph, notifier Notifier, archiver *media.Archiver) (*MessageService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if conversations == nil {
		return nil, fmt.Errorf("conversation service cannot be nil")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer service cannot be nil")
	}
	if reactions == nil {
		return nil, fmt.Errorf("reaction service cannot be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("graph client cannot be nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	return &MessageService{
		store:         st,
		conversations: conversations,
		customers:     customers,
		reactions:     reactions,
		graph:         g,
		notifier:      notifier,
		archiver:      archiver,
	}, nil
}

// AttachRestorer wires the parent-post restorer after construction.
func (s *MessageService) AttachRestorer(r ParentRestorer) {
	s.restorer = r
}

// MessageChannelData carries the platform channel fields stamped on a created
// message.
type MessageChannelData struct {
	MessageID    *string
	CommentID    *string
	PostID       string
	ParentID     string
	IsPost       bool
	Item         string
	Link         string
	Photo        string
	Video        string
	Photos       []string
	CreatedTime  string
	CommentCount int
}

// CreateMessage persists one message on the given conversation, resolving the
// customer, updating the conversation's content snapshot and notifying the
// pub/sub collaborator. Callers are responsible for the pre-ingestion
// duplicate check; a unique-index hit during insert still maps to
// errs.ErrDuplicateEvent for the concurrent-delivery race.
func (s *MessageService) CreateMessage(ctx context.Context, pc *PageContext, conv *models.Conversation, platformUserID, content string, attachments []models.Attachment, channel MessageChannelData) (*models.ConversationMessage, error) {
	if conv == nil {
		return nil, errs.NewNotFoundError("conversation", "")
	}

	token := ""
	if pc != nil {
		token = pc.PageToken
	}
	customer, err := s.customers.ResolveOrCreate(ctx, platformUserID, conv.IntegrationID, token)
	if err != nil {
		return nil, err
	}

	msg := &models.ConversationMessage{
		ConversationID: conv.ID,
		CustomerID:     customer.ID,
		Content:        content,
		Attachments:    s.archiveAttachments(ctx, conv.ID, attachments),
		MessageID:      channel.MessageID,
		CommentID:      channel.CommentID,
		PostID:         channel.PostID,
		ParentID:       channel.ParentID,
		IsPost:         channel.IsPost,
		Item:           channel.Item,
		Link:           channel.Link,
		Photo:          channel.Photo,
		Video:          channel.Video,
		Photos:         channel.Photos,
		CreatedTime:    channel.CreatedTime,
		CommentCount:   channel.CommentCount,
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, err
	}

	if err := s.store.RecordConversationSnapshot(conv.ID, content); err != nil {
		log.Error().Err(err).Str("conversationID", conv.ID).Msg("Failed to record conversation snapshot")
	}
	conv.MessageCount++
	conv.Content = content

	// Notification failures are logged, not fatal: the message is durable and
	// clients reconcile on reconnect.
	if err := s.notifier.PublishNewMessage(ctx, msg); err != nil {
		log.Error().Err(err).Str("messageID", msg.ID).Msg("Failed to publish message notification")
	}
	if err := s.notifier.PublishToCustomerSubscription(ctx, msg, customer.ID); err != nil {
		log.Error().Err(err).Str("messageID", msg.ID).Str("customerID", customer.ID).Msg("Failed to publish customer subscription notification")
	}

	log.Info().
		Str("messageID", msg.ID).
		Str("conversationID", conv.ID).
		Str("customerID", customer.ID).
		Msg("Ingested message")
	return msg, nil
}

func (s *MessageService) archiveAttachments(ctx context.Context, conversationID string, attachments []models.Attachment) models.AttachmentList {
	if len(attachments) == 0 {
		return nil
	}
	out := make(models.AttachmentList, len(attachments))
	copy(out, attachments)
	if !s.archiver.Enabled() {
		return out
	}
	for i := range out {
		archived, err := s.archiver.Archive(ctx, conversationID, out[i].URL)
		if err != nil {
			log.Warn().Err(err).Str("url", out[i].URL).Msg("Attachment archiving failed, keeping original URL")
			continue
		}
		out[i].ArchiveURL = archived
	}
	return out
}

// HandleMessengerEvent ingests one element of an entry's messaging array.
// Echo messages and replayed message ids are skipped.
func (s *MessageService) HandleMessengerEvent(ctx context.Context, pc *PageContext, ev events.MessengerEvent) error {
	if ev.Message == nil {
		return nil
	}
	if ev.Message.IsEcho {
		log.Debug().Str("mid", ev.Message.MID).Msg("Skipping messenger echo")
		return nil
	}

	mid := ev.Message.MID
	existing, err := s.store.MessageByPlatformMessageID(mid)
	if err != nil {
		return fmt.Errorf("messenger duplicate check failed: %w", err)
	}
	if existing != nil {
		log.Debug().Str("mid", mid).Msg("Messenger event already ingested, skipping")
		return nil
	}

	sel := &ConversationSelector{
		Kind:        models.KindMessenger,
		SenderID:    ev.Sender.ID,
		RecipientID: ev.Recipient.ID,
	}
	channel := ChannelData{
		Kind:        models.KindMessenger,
		SenderID:    ev.Sender.ID,
		RecipientID: ev.Recipient.ID,
	}
	conv, err := s.conversations.Resolve(pc, sel, models.StatusNew, channel)
	if err != nil {
		return err
	}

	var attachments []models.Attachment
	for _, a := range ev.Message.Attachments {
		attachments = append(attachments, models.Attachment{Type: a.Type, URL: a.Payload.URL})
	}

	_, err = s.CreateMessage(ctx, pc, conv, ev.Sender.ID, ev.Message.Text, attachments, MessageChannelData{MessageID: &mid})
	if errs.IsDuplicate(err) {
		log.Debug().Str("mid", mid).Msg("Messenger event raced a concurrent delivery, skipping")
		return nil
	}
	return err
}

// HandleFeedChange ingests one element of an entry's changes array. Reactions
// route to the aggregator; comments and posts become messages, with parent
// context restored before a comment is stored.
func (s *MessageService) HandleFeedChange(ctx context.Context, pc *PageContext, change events.FeedChange) error {
	classified := events.ClassifyFeed(change.Value)

	switch classified.Kind {
	case events.FeedSkip:
		log.Debug().Str("item", change.Value.Item).Str("verb", change.Value.Verb).Msg("Skipping feed change")
		return nil

	case events.FeedReactionEvent:
		return s.reactions.Apply(classified.Reaction)

	case events.FeedCommentEvent:
		return s.ingestComment(ctx, pc, classified.Comment)

	case events.FeedPostEvent:
		return s.ingestPost(ctx, pc, classified.Post)

	case events.FeedGenericEvent:
		return s.ingestGeneric(ctx, pc, *classified.Value)

	default:
		return fmt.Errorf("unhandled feed event kind %d", classified.Kind)
	}
}

// feedStatus auto-closes threads for content authored by one of the
// integration's own pages.
func feedStatus(pc *PageContext, senderID string) models.ConversationStatus {
	if pc.Integration.OwnsPage(senderID) {
		return models.StatusClosed
	}
	return models.StatusNew
}

func (s *MessageService) resolveFeedConversation(pc *PageContext, postID, senderID string, status models.ConversationStatus) (*models.Conversation, error) {
	sel := &ConversationSelector{Kind: models.KindFeed, PostID: postID}
	channel := ChannelData{Kind: models.KindFeed, SenderID: senderID, PostID: postID}
	return s.conversations.Resolve(pc, sel, status, channel)
}

func (s *MessageService) ingestComment(ctx context.Context, pc *PageContext, c *events.FeedComment) error {
	existing, err := s.store.MessageByCommentID(c.CommentID)
	if err != nil {
		return fmt.Errorf("comment duplicate check failed: %w", err)
	}
	if existing != nil {
		log.Debug().Str("commentID", c.CommentID).Msg("Comment already ingested, skipping")
		return nil
	}

	conv, err := s.resolveFeedConversation(pc, c.PostID, c.From.ID, feedStatus(pc, c.From.ID))
	if err != nil {
		return err
	}

	// Guarantee the conversation already contains its originating post and
	// immediate parent chain before the comment itself lands.
	if s.restorer != nil {
		if _, err := s.restorer.EnsureParentPost(ctx, pc, conv, c.From.ID, c.CommentID, c.PostID); err != nil {
			return err
		}
	}

	commentID := c.CommentID
	channel := MessageChannelData{
		CommentID:   &commentID,
		PostID:      c.PostID,
		ParentID:    c.ParentID,
		Item:        c.Item,
		CreatedTime: c.CreatedTime,
	}
	_, err = s.CreateMessage(ctx, pc, conv, c.From.ID, c.Message, nil, channel)
	if errs.IsDuplicate(err) {
		log.Debug().Str("commentID", c.CommentID).Msg("Comment raced a concurrent delivery, skipping")
		return nil
	}
	return err
}

func (s *MessageService) ingestPost(ctx context.Context, pc *PageContext, p *events.FeedPost) error {
	existing, err := s.store.PostMessageAnywhere(p.PostID)
	if err != nil {
		return fmt.Errorf("post duplicate check failed: %w", err)
	}
	if existing != nil {
		log.Debug().Str("postID", p.PostID).Msg("Post already ingested, skipping")
		return nil
	}

	conv, err := s.resolveFeedConversation(pc, p.PostID, p.From.ID, feedStatus(pc, p.From.ID))
	if err != nil {
		return err
	}

	channel := MessageChannelData{
		PostID:      p.PostID,
		IsPost:      true,
		Item:        p.Item,
		Link:        p.Link,
		Photo:       p.Photo,
		Video:       p.Video,
		Photos:      p.Photos,
		CreatedTime: p.CreatedTime,
	}
	_, err = s.CreateMessage(ctx, pc, conv, p.From.ID, p.Message, nil, channel)
	if errs.IsDuplicate(err) {
		log.Debug().Str("postID", p.PostID).Msg("Post raced a concurrent delivery, skipping")
		return nil
	}
	return err
}

// ingestGeneric handles feed items outside the known taxonomy. The webhook's
// own post_id is not stable for these, so the authoritative id comes from an
// external lookup before the item is ingested as a plain post.
func (s *MessageService) ingestGeneric(ctx context.Context, pc *PageContext, v events.FeedValue) error {
	if v.PostID == "" {
		log.Debug().Str("item", v.Item).Msg("Feed change carries no post id, skipping")
		return nil
	}

	stableID, err := s.graph.ObjectID(ctx, v.PostID, pc.PageToken)
	if err != nil {
		return err
	}

	return s.ingestPost(ctx, pc, &events.FeedPost{
		PostID:      stableID,
		Item:        v.Item,
		Link:        v.Link,
		From:        v.From,
		Message:     v.Message,
		CreatedTime: v.CreatedTime,
	})
}
