package services

import (
	"context"
	"path/filepath"
	"testing"

	"pageinbox/internal/adapters/graph"
	"pageinbox/internal/db"
	"pageinbox/internal/errs"
	"pageinbox/internal/media"
	"pageinbox/internal/models"
	"pageinbox/internal/store"
)

const (
	testIntegrationID = "int-1"
	testAccountID     = "acc-1"
	testPageID        = "page-1"
	testPageToken     = "page-token"
	testUserToken     = "user-token"
)

type fakeGraph struct {
	profiles  map[string]*graph.UserProfile
	avatarURL string
	avatarErr error

	posts     map[string]*graph.Post
	comments  map[string]*graph.Comment
	children  map[string][]graph.Comment
	objectIDs map[string]string

	sendResp   *graph.SendMessageResponse
	sendErr    error
	commentRef *graph.ObjectRef
	commentErr error

	profileCalls  int
	postFetches   int
	lastSendToken string
	lastSendBody  interface{}
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		profiles:  map[string]*graph.UserProfile{},
		posts:     map[string]*graph.Post{},
		comments:  map[string]*graph.Comment{},
		children:  map[string][]graph.Comment{},
		objectIDs: map[string]string{},
	}
}

func (g *fakeGraph) UserProfile(ctx context.Context, userID, token string) (*graph.UserProfile, error) {
	g.profileCalls++
	if p, ok := g.profiles[userID]; ok {
		return p, nil
	}
	return &graph.UserProfile{ID: userID, FirstName: "User", LastName: userID}, nil
}

func (g *fakeGraph) UserAvatar(ctx context.Context, userID, token string) (string, error) {
	if g.avatarErr != nil {
		return "", g.avatarErr
	}
	return g.avatarURL, nil
}

func (g *fakeGraph) ObjectID(ctx context.Context, id, token string) (string, error) {
	if stable, ok := g.objectIDs[id]; ok {
		return stable, nil
	}
	return id, nil
}

func (g *fakeGraph) FetchPost(ctx context.Context, postID, token string) (*graph.Post, error) {
	g.postFetches++
	if p, ok := g.posts[postID]; ok {
		return p, nil
	}
	return nil, &errs.TransportError{Op: "GET " + postID, StatusCode: 404, Body: "post not found"}
}

func (g *fakeGraph) FetchComment(ctx context.Context, commentID, token string) (*graph.Comment, error) {
	if c, ok := g.comments[commentID]; ok {
		return c, nil
	}
	return nil, &errs.TransportError{Op: "GET " + commentID, StatusCode: 404, Body: "comment not found"}
}

func (g *fakeGraph) ChildComments(ctx context.Context, commentID, token string) ([]graph.Comment, error) {
	return g.children[commentID], nil
}

func (g *fakeGraph) SendMessage(ctx context.Context, token string, body interface{}) (*graph.SendMessageResponse, error) {
	g.lastSendToken = token
	g.lastSendBody = body
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	return g.sendResp, nil
}

func (g *fakeGraph) CreateComment(ctx context.Context, objectID, token string, body interface{}) (*graph.ObjectRef, error) {
	if g.commentErr != nil {
		return nil, g.commentErr
	}
	return g.commentRef, nil
}

type fakeTokens struct {
	mintCalls   int
	lastUserTok string
	invalidated []string
}

func (t *fakeTokens) PageToken(ctx context.Context, pageID, userToken string) (string, error) {
	t.mintCalls++
	t.lastUserTok = userToken
	return testPageToken, nil
}

func (t *fakeTokens) Invalidate(pageID string) {
	t.invalidated = append(t.invalidated, pageID)
}

type fakeNotifier struct {
	inserted      []string
	subscriptions []string
}

func (n *fakeNotifier) PublishNewMessage(ctx context.Context, msg *models.ConversationMessage) error {
	n.inserted = append(n.inserted, msg.ID)
	return nil
}

func (n *fakeNotifier) PublishToCustomerSubscription(ctx context.Context, msg *models.ConversationMessage, customerID string) error {
	n.subscriptions = append(n.subscriptions, customerID)
	return nil
}

type testEnv struct {
	store       *store.Store
	graph       *fakeGraph
	tokens      *fakeTokens
	notifier    *fakeNotifier
	integration *models.Integration

	conversations *ConversationService
	customers     *CustomerService
	reactions     *ReactionService
	messages      *MessageService
	restore       *PostRestoreService
	dispatcher    *Dispatcher
	replies       *ReplyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	handle, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(handle); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	st, err := store.New(handle)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	integration := &models.Integration{
		ID:        testIntegrationID,
		AccountID: testAccountID,
		Kind:      "facebook",
		Name:      "Test Pages",
		PageIDs:   models.StringList{testPageID},
	}
	if err := st.DB().Create(integration).Error; err != nil {
		t.Fatalf("seed integration: %v", err)
	}
	if err := st.DB().Create(&models.Account{ID: testAccountID, Token: testUserToken}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	g := newFakeGraph()
	tokens := &fakeTokens{}
	notifier := &fakeNotifier{}

	conversations, err := NewConversationService(st)
	if err != nil {
		t.Fatalf("new conversation service: %v", err)
	}
	customers, err := NewCustomerService(st, g)
	if err != nil {
		t.Fatalf("new customer service: %v", err)
	}
	reactions, err := NewReactionService(st)
	if err != nil {
		t.Fatalf("new reaction service: %v", err)
	}
	messages, err := NewMessageService(st, conversations, customers, reactions, g, notifier, media.NewArchiver(media.Config{}))
	if err != nil {
		t.Fatalf("new message service: %v", err)
	}
	restore, err := NewPostRestoreService(st, g, messages)
	if err != nil {
		t.Fatalf("new restore service: %v", err)
	}
	messages.AttachRestorer(restore)
	dispatcher, err := NewDispatcher(st, tokens, messages)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	replies, err := NewReplyService(st, g, tokens)
	if err != nil {
		t.Fatalf("new reply service: %v", err)
	}

	return &testEnv{
		store:         st,
		graph:         g,
		tokens:        tokens,
		notifier:      notifier,
		integration:   integration,
		conversations: conversations,
		customers:     customers,
		reactions:     reactions,
		messages:      messages,
		restore:       restore,
		dispatcher:    dispatcher,
		replies:       replies,
	}
}

func (e *testEnv) pageContext() *PageContext {
	return &PageContext{
		Integration: e.integration,
		PageID:      testPageID,
		PageToken:   testPageToken,
	}
}

func (e *testEnv) messageCount(t *testing.T) int {
	t.Helper()
	var count int64
	if err := e.store.DB().Model(&models.ConversationMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	return int(count)
}

func (e *testEnv) conversationCount(t *testing.T) int {
	t.Helper()
	var count int64
	if err := e.store.DB().Model(&models.Conversation{}).Count(&count).Error; err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	return int(count)
}

// seedPost inserts a feed conversation with its root post message and returns
// the conversation.
func (e *testEnv) seedPost(t *testing.T, postID string) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		IntegrationID: testIntegrationID,
		Status:        models.StatusNew,
		ChannelKind:   models.KindFeed,
		SenderID:      "400",
		PostID:        postID,
		PageID:        testPageID,
	}
	if err := e.store.CreateConversation(conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	msg := &models.ConversationMessage{
		ConversationID: conv.ID,
		CustomerID:     "cust-seed",
		Content:        "seed post",
		PostID:         postID,
		IsPost:         true,
	}
	if err := e.store.CreateMessage(msg); err != nil {
		t.Fatalf("seed post message: %v", err)
	}
	return conv
}

func strptr(s string) *string { return &s }
