package store

import (
	"path/filepath"
	"testing"

	"pageinbox/internal/db"
	"pageinbox/internal/errs"
	"pageinbox/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	handle, err := db.Open(filepath.Join(t.TempDir(), "store_test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(handle); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, err := New(handle)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func strptr(s string) *string { return &s }

func TestCreateMessageRejectsDuplicateMessageID(t *testing.T) {
	st := newTestStore(t)

	first := &models.ConversationMessage{ConversationID: "conv-1", MessageID: strptr("m1")}
	if err := st.CreateMessage(first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	dup := &models.ConversationMessage{ConversationID: "conv-1", MessageID: strptr("m1")}
	if err := st.CreateMessage(dup); !errs.IsDuplicate(err) {
		t.Fatalf("err = %v, want duplicate signal", err)
	}
}

func TestCreateMessageRejectsDuplicateCommentID(t *testing.T) {
	st := newTestStore(t)

	if err := st.CreateMessage(&models.ConversationMessage{CommentID: strptr("c1")}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := st.CreateMessage(&models.ConversationMessage{CommentID: strptr("c1")}); !errs.IsDuplicate(err) {
		t.Fatalf("err = %v, want duplicate signal", err)
	}
}

func TestCreateMessageAllowsManyWithoutPlatformIDs(t *testing.T) {
	st := newTestStore(t)

	// Restored posts carry neither a message id nor a comment id; the unique
	// indexes must not collide on the absent values.
	for i := 0; i < 3; i++ {
		if err := st.CreateMessage(&models.ConversationMessage{ConversationID: "conv-1"}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestCreateCustomerRejectsDuplicatePlatformUser(t *testing.T) {
	st := newTestStore(t)

	first := &models.Customer{IntegrationID: "int-1", PlatformUserID: "100"}
	if err := st.CreateCustomer(first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := &models.Customer{IntegrationID: "int-1", PlatformUserID: "100"}
	if err := st.CreateCustomer(dup); !errs.IsDuplicate(err) {
		t.Fatalf("err = %v, want duplicate signal", err)
	}

	// Same platform user under another integration is a distinct customer.
	other := &models.Customer{IntegrationID: "int-2", PlatformUserID: "100"}
	if err := st.CreateCustomer(other); err != nil {
		t.Fatalf("cross-integration insert: %v", err)
	}
}

func TestConversationByMessengerPairIsOrderIndependent(t *testing.T) {
	st := newTestStore(t)

	conv := &models.Conversation{
		IntegrationID: "int-1",
		ChannelKind:   models.KindMessenger,
		SenderID:      "100",
		RecipientID:   "page-1",
	}
	if err := st.CreateConversation(conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := st.ConversationByMessengerPair("page-1", "100")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found == nil || found.ID != conv.ID {
		t.Fatalf("found = %v, want %s", found, conv.ID)
	}
}

func TestConversationByFeedPostScopedToPage(t *testing.T) {
	st := newTestStore(t)

	conv := &models.Conversation{
		IntegrationID: "int-1",
		ChannelKind:   models.KindFeed,
		PostID:        "p1",
		PageID:        "page-1",
	}
	if err := st.CreateConversation(conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := st.ConversationByFeedPost("p1", "page-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found == nil || found.ID != conv.ID {
		t.Fatalf("found = %v, want %s", found, conv.ID)
	}

	miss, err := st.ConversationByFeedPost("p1", "page-2")
	if err != nil {
		t.Fatalf("lookup other page: %v", err)
	}
	if miss != nil {
		t.Fatalf("found %s for a foreign page, want miss", miss.ID)
	}
}

func TestAdjustLikeCountTargetsPostOnly(t *testing.T) {
	st := newTestStore(t)

	post := &models.ConversationMessage{ConversationID: "conv-1", PostID: "p1", IsPost: true}
	if err := st.CreateMessage(post); err != nil {
		t.Fatalf("insert post: %v", err)
	}
	comment := &models.ConversationMessage{ConversationID: "conv-1", PostID: "p1", CommentID: strptr("c1")}
	if err := st.CreateMessage(comment); err != nil {
		t.Fatalf("insert comment: %v", err)
	}

	if err := st.AdjustLikeCount(MessageSelector{PostID: "p1"}, 1); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	gotPost, err := st.MessageByID(post.ID)
	if err != nil || gotPost == nil {
		t.Fatalf("post lookup: msg=%v err=%v", gotPost, err)
	}
	if gotPost.LikeCount != 1 {
		t.Fatalf("post likes = %d, want 1", gotPost.LikeCount)
	}
	gotComment, err := st.MessageByID(comment.ID)
	if err != nil || gotComment == nil {
		t.Fatalf("comment lookup: msg=%v err=%v", gotComment, err)
	}
	if gotComment.LikeCount != 0 {
		t.Fatalf("comment likes = %d, want 0", gotComment.LikeCount)
	}
}

func TestRecordConversationSnapshot(t *testing.T) {
	st := newTestStore(t)

	conv := &models.Conversation{IntegrationID: "int-1", ChannelKind: models.KindMessenger}
	if err := st.CreateConversation(conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.RecordConversationSnapshot(conv.ID, "latest text"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	got, err := st.ConversationByID(conv.ID)
	if err != nil || got == nil {
		t.Fatalf("lookup: conv=%v err=%v", got, err)
	}
	if got.Content != "latest text" || got.MessageCount != 1 {
		t.Fatalf("conversation = content %q count %d, want latest text/1", got.Content, got.MessageCount)
	}
}
