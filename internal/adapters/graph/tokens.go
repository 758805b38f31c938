package graph

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// CachedTokens mints page access tokens from an account's user token and
// keeps them in a short-lived cache keyed by page id. Invalidate drops a
// page's entry after an auth failure so the next call refetches.
type CachedTokens struct {
	client *Client
	cache  *gocache.Cache
}

// NewCachedTokens creates a token source backed by the given client.
func NewCachedTokens(client *Client) (*CachedTokens, error) {
	if client == nil {
		return nil, fmt.Errorf("graph client cannot be nil")
	}
	return &CachedTokens{
		client: client,
		cache:  gocache.New(10*time.Minute, 15*time.Minute),
	}, nil
}

// PageToken returns a page access token for pageID, minting one through the
// Graph API on cache miss.
func (t *CachedTokens) PageToken(ctx context.Context, pageID, userToken string) (string, error) {
	if cached, found := t.cache.Get(pageID); found {
		return cached.(string), nil
	}

	token, err := t.client.PageAccessToken(ctx, pageID, userToken)
	if err != nil {
		return "", err
	}

	t.cache.SetDefault(pageID, token)
	log.Debug().Str("pageID", pageID).Msg("Minted page access token")
	return token, nil
}

// Invalidate removes the cached token for pageID.
func (t *CachedTokens) Invalidate(pageID string) {
	t.cache.Delete(pageID)
}
