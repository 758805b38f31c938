// Package graph is the external Graph API adapter. Every call is a blocking
// round trip; failures map to errs.TransportError and are never retried here.
package graph

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"pageinbox/internal/errs"
)

// Client talks to the Graph API over HTTP. When an app secret is configured
// every call carries an appsecret_proof so the platform can verify the
// request originates from this app.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	appSecret  string
}

// NewClient creates a new Graph API client rooted at baseURL.
func NewClient(baseURL, appSecret string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("graph baseURL cannot be empty")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)

	log.Info().Str("baseURL", baseURL).Msg("Graph client configured")

	return &Client{httpClient: client, baseURL: baseURL, appSecret: appSecret}, nil
}

// sign adds the appsecret_proof parameter: the hex HMAC-SHA256 of the access
// token keyed by the app secret.
func (c *Client) sign(req *resty.Request, token string) {
	if c.appSecret == "" {
		return
	}
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write([]byte(token))
	req.SetQueryParam("appsecret_proof", hex.EncodeToString(mac.Sum(nil)))
}

// Get performs a GET against path with the given access token and query
// params, decoding the response into result when non-nil.
func (c *Client) Get(ctx context.Context, path, token string, params map[string]string, result interface{}) error {
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("access_token", token).
		SetQueryParams(params)
	c.sign(req, token)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Get(path)
	if err != nil {
		return &errs.TransportError{Op: "GET " + path, Err: err}
	}
	if resp.IsError() {
		log.Error().Str("path", path).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Graph API GET returned an error")
		return &errs.TransportError{Op: "GET " + path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Post performs a POST against path with the given access token and JSON
// body, decoding the response into result when non-nil.
func (c *Client) Post(ctx context.Context, path, token string, body interface{}, result interface{}) error {
	req := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("access_token", token).
		SetBody(body)
	c.sign(req, token)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)
	if err != nil {
		return &errs.TransportError{Op: "POST " + path, Err: err}
	}
	if resp.IsError() {
		log.Error().Str("path", path).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Graph API POST returned an error")
		return &errs.TransportError{Op: "POST " + path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// PageAccessToken mints a page access token from the account's user token.
func (c *Client) PageAccessToken(ctx context.Context, pageID, userToken string) (string, error) {
	var result tokenResponse
	err := c.Get(ctx, pageID, userToken, map[string]string{"fields": "access_token"}, &result)
	if err != nil {
		return "", fmt.Errorf("failed to mint page access token for page %s: %w", pageID, err)
	}
	if result.AccessToken == "" {
		return "", &errs.TransportError{Op: "GET " + pageID, Body: "empty access_token in response"}
	}
	return result.AccessToken, nil
}

// UserProfile fetches a user's display name fields.
func (c *Client) UserProfile(ctx context.Context, userID, token string) (*UserProfile, error) {
	var profile UserProfile
	err := c.Get(ctx, userID, token, map[string]string{"fields": "first_name,last_name,name"}, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// UserAvatar fetches a user's avatar URL.
func (c *Client) UserAvatar(ctx context.Context, userID, token string) (string, error) {
	var picture pictureResponse
	params := map[string]string{"height": "600", "redirect": "false"}
	err := c.Get(ctx, userID+"/picture", token, params, &picture)
	if err != nil {
		return "", fmt.Errorf("failed to fetch avatar for user %s: %w", userID, err)
	}
	return picture.Data.URL, nil
}

// ObjectID resolves the stable id of a platform object. The webhook's own
// post_id is not stable across deliveries for the same logical post; this
// lookup result is authoritative.
func (c *Client) ObjectID(ctx context.Context, id, token string) (string, error) {
	var ref ObjectRef
	err := c.Get(ctx, id, token, map[string]string{"fields": "id"}, &ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve stable id for object %s: %w", id, err)
	}
	if ref.ID == "" {
		return id, nil
	}
	return ref.ID, nil
}

// FetchPost fetches a wall post together with its comment-summary count.
func (c *Client) FetchPost(ctx context.Context, postID, token string) (*Post, error) {
	var post Post
	params := map[string]string{"fields": "message,link,created_time,from,comments.summary(true).limit(0)"}
	err := c.Get(ctx, postID, token, params, &post)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %s: %w", postID, err)
	}
	return &post, nil
}

// FetchComment fetches a single comment's metadata including its parent reference.
func (c *Client) FetchComment(ctx context.Context, commentID, token string) (*Comment, error) {
	var comment Comment
	params := map[string]string{"fields": "message,from,parent,created_time"}
	err := c.Get(ctx, commentID, token, params, &comment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment %s: %w", commentID, err)
	}
	return &comment, nil
}

// ChildComments fetches the direct replies of a comment.
func (c *Client) ChildComments(ctx context.Context, commentID, token string) ([]Comment, error) {
	var list commentList
	params := map[string]string{"fields": "message,from,parent,created_time"}
	err := c.Get(ctx, commentID+"/comments", token, params, &list)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch child comments of %s: %w", commentID, err)
	}
	return list.Data, nil
}

// SendMessage posts a message to the platform's messaging endpoint.
func (c *Client) SendMessage(ctx context.Context, token string, body interface{}) (*SendMessageResponse, error) {
	var result SendMessageResponse
	if err := c.Post(ctx, "me/messages", token, body, &result); err != nil {
		return nil, fmt.Errorf("failed to send messenger message: %w", err)
	}
	return &result, nil
}

// CreateComment posts a comment under the given post or comment.
func (c *Client) CreateComment(ctx context.Context, objectID, token string, body interface{}) (*ObjectRef, error) {
	var ref ObjectRef
	if err := c.Post(ctx, objectID+"/comments", token, body, &ref); err != nil {
		return nil, fmt.Errorf("failed to create comment under %s: %w", objectID, err)
	}
	return &ref, nil
}
