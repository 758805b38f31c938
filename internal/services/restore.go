package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pageinbox/internal/adapters/graph"
	"pageinbox/internal/errs"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

// PostRestoreService backfills missing ancestor context when a comment
// arrives before its post: the originating post itself, and the immediate
// parent comment together with that parent's direct replies. Deeper ancestor
// chains beyond one level are not backfilled.
type PostRestoreService struct {
	store    *store.Store
	graph    Graph
	messages *MessageService
}

// NewPostRestoreService creates a new PostRestoreService.
func NewPostRestoreService(st *store.Store, g Graph, messages *MessageService) (*PostRestoreService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if g == nil {
		return nil, fmt.Errorf("graph client cannot be nil")
	}
	if messages == nil {
		return nil, fmt.Errorf("message service cannot be nil")
	}
	return &PostRestoreService{store: st, graph: g, messages: messages}, nil
}

// EnsureParentPost guarantees conv contains the originating post for postID
// before the triggering comment is ingested. It reports whether any backfill
// happened. A conversation that already holds the post message is left alone.
func (s *PostRestoreService) EnsureParentPost(ctx context.Context, pc *PageContext, conv *models.Conversation, platformUserID, commentID, postID string) (bool, error) {
	if postID == "" || commentID == "" {
		return false, nil
	}
	if conv == nil {
		return false, errs.NewNotFoundError("conversation", "")
	}

	existing, err := s.store.PostMessage(conv.ID, postID)
	if err != nil {
		return false, fmt.Errorf("post lookup failed: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	post, err := s.graph.FetchPost(ctx, postID, pc.PageToken)
	if err != nil {
		return false, err
	}

	authorID := platformUserID
	if post.From != nil && post.From.ID != "" {
		authorID = post.From.ID
	}

	channel := MessageChannelData{
		PostID:       postID,
		IsPost:       true,
		Link:         post.Link,
		CreatedTime:  post.CreatedTime,
		CommentCount: post.CommentTotal(),
	}
	if _, err := s.messages.CreateMessage(ctx, pc, conv, authorID, post.Message, nil, channel); err != nil && !errs.IsDuplicate(err) {
		return false, err
	}
	log.Info().Str("postID", postID).Str("conversationID", conv.ID).Msg("Restored originating post")

	if err := s.restoreParentThread(ctx, pc, conv, commentID, postID); err != nil {
		return true, err
	}
	return true, nil
}

// restoreParentThread backfills the triggering comment's immediate parent
// comment and the parent's direct replies, children first, then the parent.
func (s *PostRestoreService) restoreParentThread(ctx context.Context, pc *PageContext, conv *models.Conversation, commentID, postID string) error {
	trigger, err := s.graph.FetchComment(ctx, commentID, pc.PageToken)
	if err != nil {
		return err
	}
	if trigger.Parent == nil || trigger.Parent.ID == "" || trigger.Parent.ID == postID {
		return nil
	}

	parent, err := s.graph.FetchComment(ctx, trigger.Parent.ID, pc.PageToken)
	if err != nil {
		return err
	}
	children, err := s.graph.ChildComments(ctx, parent.ID, pc.PageToken)
	if err != nil {
		return err
	}

	thread := append(children, *parent)
	for _, c := range thread {
		if err := s.restoreComment(ctx, pc, conv, c, postID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostRestoreService) restoreComment(ctx context.Context, pc *PageContext, conv *models.Conversation, c graph.Comment, postID string) error {
	if c.ID == "" {
		return nil
	}

	existing, err := s.store.MessageByCommentID(c.ID)
	if err != nil {
		return fmt.Errorf("restored-comment duplicate check failed: %w", err)
	}
	if existing != nil {
		return nil
	}

	authorID := ""
	if c.From != nil {
		authorID = c.From.ID
	}
	if authorID == "" {
		log.Warn().Str("commentID", c.ID).Msg("Restored comment has no author, skipping")
		return nil
	}

	parentID := ""
	if c.Parent != nil && c.Parent.ID != postID {
		parentID = c.Parent.ID
	}

	commentID := c.ID
	channel := MessageChannelData{
		CommentID:   &commentID,
		PostID:      postID,
		ParentID:    parentID,
		Item:        "comment",
		CreatedTime: c.CreatedTime,
	}
	_, err = s.messages.CreateMessage(ctx, pc, conv, authorID, c.Message, nil, channel)
	if errs.IsDuplicate(err) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Debug().Str("commentID", c.ID).Str("conversationID", conv.ID).Msg("Restored comment")
	return nil
}
