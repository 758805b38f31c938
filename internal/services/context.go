// Package services implements the webhook ingestion pipeline: dispatching,
// conversation/customer resolution, message ingestion, parent-post restore,
// reaction aggregation and outbound replies.
package services

import (
	"context"

	"pageinbox/internal/adapters/graph"
	"pageinbox/internal/models"
)

// PageContext is the explicit per-entry processing context: the owning
// integration, the active page id and its access token. It is threaded
// through every operation instead of being stored on a long-lived object.
type PageContext struct {
	Integration *models.Integration
	PageID      string
	PageToken   string
}

// Graph is the slice of the external Graph API the pipeline consumes.
type Graph interface {
	UserProfile(ctx context.Context, userID, token string) (*graph.UserProfile, error)
	UserAvatar(ctx context.Context, userID, token string) (string, error)
	ObjectID(ctx context.Context, id, token string) (string, error)
	FetchPost(ctx context.Context, postID, token string) (*graph.Post, error)
	FetchComment(ctx context.Context, commentID, token string) (*graph.Comment, error)
	ChildComments(ctx context.Context, commentID, token string) ([]graph.Comment, error)
	SendMessage(ctx context.Context, token string, body interface{}) (*graph.SendMessageResponse, error)
	CreateComment(ctx context.Context, objectID, token string, body interface{}) (*graph.ObjectRef, error)
}

// TokenSource mints and caches page access tokens.
type TokenSource interface {
	PageToken(ctx context.Context, pageID, userToken string) (string, error)
	Invalidate(pageID string)
}

// Notifier is the pub/sub collaborator that pushes ingested messages to
// connected clients.
type Notifier interface {
	PublishNewMessage(ctx context.Context, msg *models.ConversationMessage) error
	PublishToCustomerSubscription(ctx context.Context, msg *models.ConversationMessage, customerID string) error
}
