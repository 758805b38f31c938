package events

import "testing"

func TestClassifyFeedReactionsForAnyVerb(t *testing.T) {
	for _, verb := range []string{"add", "remove", "edit"} {
		c := ClassifyFeed(FeedValue{Item: "reaction", Verb: verb, PostID: "p1", ReactionType: "love"})
		if c.Kind != FeedReactionEvent {
			t.Fatalf("verb %q: kind = %d, want reaction", verb, c.Kind)
		}
		if c.Reaction.Verb != verb || c.Reaction.ReactionType != "love" {
			t.Fatalf("verb %q: reaction = %+v", verb, c.Reaction)
		}
	}
}

func TestClassifyFeedLikeKeepsItemKind(t *testing.T) {
	c := ClassifyFeed(FeedValue{Item: "like", Verb: "remove", CommentID: "c1"})
	if c.Kind != FeedReactionEvent {
		t.Fatalf("kind = %d, want reaction", c.Kind)
	}
	if c.Reaction.Kind != "like" || c.Reaction.CommentID != "c1" {
		t.Fatalf("reaction = %+v", c.Reaction)
	}
}

func TestClassifyFeedSkipsNonAddVerbs(t *testing.T) {
	for _, v := range []FeedValue{
		{Item: "comment", Verb: "edited", CommentID: "c1"},
		{Item: "status", Verb: "remove", PostID: "p1"},
		{Item: "photo", Verb: "hide", PostID: "p1"},
	} {
		if c := ClassifyFeed(v); c.Kind != FeedSkip {
			t.Fatalf("item %q verb %q: kind = %d, want skip", v.Item, v.Verb, c.Kind)
		}
	}
}

func TestClassifyFeedComment(t *testing.T) {
	c := ClassifyFeed(FeedValue{
		Item:      "comment",
		Verb:      "add",
		PostID:    "p1",
		CommentID: "c1",
		From:      Party{ID: "200"},
		Message:   "hello",
	})
	if c.Kind != FeedCommentEvent {
		t.Fatalf("kind = %d, want comment", c.Kind)
	}
	if c.Comment.CommentID != "c1" || c.Comment.PostID != "p1" {
		t.Fatalf("comment = %+v", c.Comment)
	}
	if c.Comment.ParentID != "" {
		t.Fatalf("parent id = %q, want empty for a top-level comment", c.Comment.ParentID)
	}
}

func TestClassifyFeedCommentPrefersValueID(t *testing.T) {
	c := ClassifyFeed(FeedValue{Item: "comment", Verb: "add", ID: "c-new", CommentID: "c-old", PostID: "p1"})
	if c.Comment.CommentID != "c-new" {
		t.Fatalf("comment id = %q, want c-new", c.Comment.CommentID)
	}
}

func TestClassifyFeedCommentParentResolution(t *testing.T) {
	// Explicit parent object wins.
	c := ClassifyFeed(FeedValue{
		Item: "comment", Verb: "add", CommentID: "c2", PostID: "p1",
		Parent:   &Party{ID: "c1"},
		ParentID: "other",
	})
	if c.Comment.ParentID != "c1" {
		t.Fatalf("parent id = %q, want c1", c.Comment.ParentID)
	}

	// parent_id equal to the post id means a direct reply to the post.
	c = ClassifyFeed(FeedValue{
		Item: "comment", Verb: "add", CommentID: "c2", PostID: "p1", ParentID: "p1",
	})
	if c.Comment.ParentID != "" {
		t.Fatalf("parent id = %q, want empty", c.Comment.ParentID)
	}

	// A differing parent_id names another comment.
	c = ClassifyFeed(FeedValue{
		Item: "comment", Verb: "add", CommentID: "c2", PostID: "p1", ParentID: "c1",
	})
	if c.Comment.ParentID != "c1" {
		t.Fatalf("parent id = %q, want c1", c.Comment.ParentID)
	}
}

func TestClassifyFeedPostItems(t *testing.T) {
	for _, item := range []string{"status", "photo", "video", "link", "share"} {
		c := ClassifyFeed(FeedValue{Item: item, Verb: "add", PostID: "p1"})
		if c.Kind != FeedPostEvent {
			t.Fatalf("item %q: kind = %d, want post", item, c.Kind)
		}
	}
}

func TestClassifyFeedPostLinkDisambiguation(t *testing.T) {
	c := ClassifyFeed(FeedValue{Item: "video", Verb: "add", PostID: "p1", Link: "https://v", VideoID: "v1"})
	if c.Post.Video != "https://v" || c.Post.Link != "" {
		t.Fatalf("video post = %+v", c.Post)
	}

	c = ClassifyFeed(FeedValue{Item: "photo", Verb: "add", PostID: "p1", Link: "https://p", PhotoID: "ph1"})
	if c.Post.Photo != "https://p" || c.Post.Link != "" {
		t.Fatalf("photo post = %+v", c.Post)
	}

	c = ClassifyFeed(FeedValue{Item: "link", Verb: "add", PostID: "p1", Link: "https://l"})
	if c.Post.Link != "https://l" || c.Post.Photo != "" || c.Post.Video != "" {
		t.Fatalf("link post = %+v", c.Post)
	}
}

func TestClassifyFeedUnknownItemIsGeneric(t *testing.T) {
	c := ClassifyFeed(FeedValue{Item: "milestone", Verb: "add", PostID: "p1"})
	if c.Kind != FeedGenericEvent {
		t.Fatalf("kind = %d, want generic", c.Kind)
	}
	if c.Value == nil || c.Value.PostID != "p1" {
		t.Fatalf("value = %+v", c.Value)
	}
}
