// Package store is the persistence repository: scoped per-entity reads and
// writes over conversations, messages, customers, integrations, accounts and
// activity logs. No multi-document transactions; cross-entity consistency is
// best-effort.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pageinbox/internal/errs"
	"pageinbox/internal/models"
)

// Store wraps the database handle with typed queries.
type Store struct {
	db *gorm.DB
}

// New creates a Store over the given handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// first runs a query expecting at most one row; a miss returns (nil, nil).
func first[T any](q *gorm.DB) (*T, error) {
	var row T
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// IntegrationByID returns the integration or (nil, nil) on miss.
func (s *Store) IntegrationByID(id string) (*models.Integration, error) {
	return first[models.Integration](s.db.Where("id = ?", id))
}

// AccountByID returns the account or (nil, nil) on miss.
func (s *Store) AccountByID(id string) (*models.Account, error) {
	return first[models.Account](s.db.Where("id = ?", id))
}

// ConversationByID returns the conversation or (nil, nil) on miss.
func (s *Store) ConversationByID(id string) (*models.Conversation, error) {
	return first[models.Conversation](s.db.Where("id = ?", id))
}

// ConversationByMessengerPair finds the most recently created messenger
// conversation correlated by the sender/recipient pair in either order.
func (s *Store) ConversationByMessengerPair(senderID, recipientID string) (*models.Conversation, error) {
	q := s.db.
		Where("channel_kind = ?", models.KindMessenger).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			senderID, recipientID, recipientID, senderID).
		Order("created_at DESC")
	return first[models.Conversation](q)
}

// ConversationByFeedPost finds the most recently created feed conversation
// correlated by post id and page id.
func (s *Store) ConversationByFeedPost(postID, pageID string) (*models.Conversation, error) {
	q := s.db.
		Where("channel_kind = ?", models.KindFeed).
		Where("post_id = ? AND page_id = ?", postID, pageID).
		Order("created_at DESC")
	return first[models.Conversation](q)
}

// CreateConversation inserts a new conversation, assigning an id if unset.
func (s *Store) CreateConversation(conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if err := s.db.Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// UpdateConversationStatus patches a conversation's status.
func (s *Store) UpdateConversationStatus(id string, status models.ConversationStatus) error {
	err := s.db.Model(&models.Conversation{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	return nil
}

// RecordConversationSnapshot stores the last message text on the conversation
// and bumps its message count.
func (s *Store) RecordConversationSnapshot(id, content string) error {
	err := s.db.Model(&models.Conversation{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":       content,
			"message_count": gorm.Expr("message_count + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record conversation snapshot: %w", err)
	}
	return nil
}

// MessageByID returns the message or (nil, nil) on miss.
func (s *Store) MessageByID(id string) (*models.ConversationMessage, error) {
	return first[models.ConversationMessage](s.db.Where("id = ?", id))
}

// MessageByPlatformMessageID returns the message carrying the given messenger
// message id, or (nil, nil) on miss.
func (s *Store) MessageByPlatformMessageID(mid string) (*models.ConversationMessage, error) {
	return first[models.ConversationMessage](s.db.Where("message_id = ?", mid))
}

// MessageByCommentID returns the message carrying the given comment id, or
// (nil, nil) on miss.
func (s *Store) MessageByCommentID(commentID string) (*models.ConversationMessage, error) {
	return first[models.ConversationMessage](s.db.Where("comment_id = ?", commentID))
}

// PostMessage returns the conversation's message flagged as the originating
// post for the given post id, or (nil, nil) on miss.
func (s *Store) PostMessage(conversationID, postID string) (*models.ConversationMessage, error) {
	q := s.db.Where("conversation_id = ? AND post_id = ? AND is_post = ?", conversationID, postID, true)
	return first[models.ConversationMessage](q)
}

// PostMessageAnywhere returns the message flagged as the originating post for
// the given post id in any conversation, or (nil, nil) on miss.
func (s *Store) PostMessageAnywhere(postID string) (*models.ConversationMessage, error) {
	q := s.db.Where("post_id = ? AND is_post = ?", postID, true)
	return first[models.ConversationMessage](q)
}

// CreateMessage inserts a message, assigning an id if unset. A unique-index
// violation on message_id/comment_id means a concurrent delivery already
// ingested the event; it is reported as errs.ErrDuplicateEvent.
func (s *Store) CreateMessage(msg *models.ConversationMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if err := s.db.Create(msg).Error; err != nil {
		if isDuplicateKey(err) {
			return errs.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// UpdateMessageChannel patches late-arriving channel fields on a message.
func (s *Store) UpdateMessageChannel(id string, fields map[string]interface{}) error {
	err := s.db.Model(&models.ConversationMessage{}).Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update message channel data: %w", err)
	}
	return nil
}

// MessageSelector targets messages by platform object id. The post selector
// addresses the post message itself, not its descendant comments.
type MessageSelector struct {
	PostID    string
	CommentID string
}

func (s *Store) selectMessages(sel MessageSelector) (*gorm.DB, error) {
	switch {
	case sel.PostID != "":
		return s.db.Model(&models.ConversationMessage{}).
			Where("post_id = ? AND is_post = ?", sel.PostID, true), nil
	case sel.CommentID != "":
		return s.db.Model(&models.ConversationMessage{}).
			Where("comment_id = ?", sel.CommentID), nil
	default:
		return nil, fmt.Errorf("message selector carries no post or comment id")
	}
}

// AdjustLikeCount bulk-updates like counters on every message matching the
// selector.
func (s *Store) AdjustLikeCount(sel MessageSelector, delta int) error {
	q, err := s.selectMessages(sel)
	if err != nil {
		return err
	}
	if err := q.Update("like_count", gorm.Expr("like_count + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to adjust like count: %w", err)
	}
	return nil
}

// MessagesBySelector loads every message matching the selector.
func (s *Store) MessagesBySelector(sel MessageSelector) ([]models.ConversationMessage, error) {
	q, err := s.selectMessages(sel)
	if err != nil {
		return nil, err
	}
	var rows []models.ConversationMessage
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages by selector: %w", err)
	}
	return rows, nil
}

// SaveReactions persists a message's reaction map.
func (s *Store) SaveReactions(id string, reactions models.ReactionMap) error {
	err := s.db.Model(&models.ConversationMessage{}).Where("id = ?", id).
		Update("reactions", reactions).Error
	if err != nil {
		return fmt.Errorf("failed to save reactions: %w", err)
	}
	return nil
}

// IncrementCommentCount bumps the comment counter on the conversation's root
// post message.
func (s *Store) IncrementCommentCount(conversationID, postID string) error {
	err := s.db.Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND post_id = ? AND is_post = ?", conversationID, postID, true).
		Update("comment_count", gorm.Expr("comment_count + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment comment count: %w", err)
	}
	return nil
}

// CustomerByPlatformID returns the integration's customer for a platform user
// id, or (nil, nil) on miss.
func (s *Store) CustomerByPlatformID(integrationID, platformUserID string) (*models.Customer, error) {
	q := s.db.Where("integration_id = ? AND platform_user_id = ?", integrationID, platformUserID)
	return first[models.Customer](q)
}

// CustomerByID returns the customer or (nil, nil) on miss.
func (s *Store) CustomerByID(id string) (*models.Customer, error) {
	return first[models.Customer](s.db.Where("id = ?", id))
}

// CreateCustomer inserts a customer, assigning an id if unset. A concurrent
// duplicate creation for the same platform user id trips the unique index and
// is reported as errs.ErrDuplicateEvent so the caller can re-read.
func (s *Store) CreateCustomer(customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if err := s.db.Create(customer).Error; err != nil {
		if isDuplicateKey(err) {
			return errs.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// CreateActivityLog appends an audit entry.
func (s *Store) CreateActivityLog(action, contentType, contentID string) error {
	entry := models.ActivityLog{
		ID:          uuid.NewString(),
		Action:      action,
		ContentType: contentType,
		ContentID:   contentID,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}
