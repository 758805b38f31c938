// Package events models the inbound webhook payload and classifies each
// nested event into a closed set of variants at the ingestion boundary.
package events

// Envelope is the top-level webhook payload: { object, entry[] }.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry carries one page's events within a delivery. A shared feed can route
// entries for pages owned by other integrations; those are skipped upstream.
type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessengerEvent `json:"messaging,omitempty"`
	Changes   []FeedChange     `json:"changes,omitempty"`
}

// Party is a sender or recipient reference.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MessengerEvent is one element of an entry's messaging array.
type MessengerEvent struct {
	Sender    Party             `json:"sender"`
	Recipient Party             `json:"recipient"`
	Timestamp int64             `json:"timestamp"`
	Message   *MessengerMessage `json:"message,omitempty"`
}

// MessengerMessage is the message body of a messenger event.
type MessengerMessage struct {
	MID         string          `json:"mid"`
	Text        string          `json:"text,omitempty"`
	IsEcho      bool            `json:"is_echo,omitempty"`
	Attachments []RawAttachment `json:"attachments,omitempty"`
}

// RawAttachment is a platform attachment as delivered on the wire.
type RawAttachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload carries the attachment download URL.
type AttachmentPayload struct {
	URL string `json:"url"`
}

// FeedChange is one element of an entry's changes array.
type FeedChange struct {
	Field string    `json:"field"`
	Value FeedValue `json:"value"`
}

// FeedValue is the loosely-shaped change payload. Classification below turns
// it into one of the tagged variants.
type FeedValue struct {
	Item         string   `json:"item"`
	Verb         string   `json:"verb"`
	ID           string   `json:"id,omitempty"`
	PostID       string   `json:"post_id,omitempty"`
	CommentID    string   `json:"comment_id,omitempty"`
	ParentID     string   `json:"parent_id,omitempty"`
	Parent       *Party   `json:"parent,omitempty"`
	From         Party    `json:"from"`
	Message      string   `json:"message,omitempty"`
	Link         string   `json:"link,omitempty"`
	PhotoID      string   `json:"photo_id,omitempty"`
	VideoID      string   `json:"video_id,omitempty"`
	Photos       []string `json:"photos,omitempty"`
	CreatedTime  string   `json:"created_time,omitempty"`
	ReactionType string   `json:"reaction_type,omitempty"`
}

// FeedEventKind tags a classified feed event.
type FeedEventKind int

const (
	// FeedSkip marks events the pipeline ignores (edits, removals of
	// non-reaction items, unrecognized verbs).
	FeedSkip FeedEventKind = iota
	// FeedCommentEvent is a new comment on a post or on another comment.
	FeedCommentEvent
	// FeedPostEvent is a new wall post (status, photo, video, link, share).
	FeedPostEvent
	// FeedReactionEvent is a like or typed reaction add/remove.
	FeedReactionEvent
	// FeedGenericEvent is an unrecognized item; the stable post id must be
	// resolved through the external API before it can be ingested as a post.
	FeedGenericEvent
)

// FeedComment is the comment variant.
type FeedComment struct {
	PostID      string
	CommentID   string
	ParentID    string
	Item        string
	From        Party
	Message     string
	CreatedTime string
}

// FeedPost is the wall-post variant.
type FeedPost struct {
	PostID      string
	Item        string
	Link        string
	Photo       string
	Video       string
	Photos      []string
	From        Party
	Message     string
	CreatedTime string
}

// FeedReaction is the like/reaction variant.
type FeedReaction struct {
	Kind         string // "like" or "reaction"
	Verb         string
	PostID       string
	CommentID    string
	ReactionType string
	From         Party
}

// Classified is the tagged result of classifying one feed change value.
type Classified struct {
	Kind     FeedEventKind
	Comment  *FeedComment
	Post     *FeedPost
	Reaction *FeedReaction
	Value    *FeedValue
}

// postItems is the platform's post taxonomy: items that open a feed thread.
var postItems = map[string]bool{
	"status": true,
	"photo":  true,
	"video":  true,
	"link":   true,
	"share":  true,
}

// ClassifyFeed validates a feed change value and returns its tagged variant.
// Reactions are classified for both add and remove verbs; everything else is
// only processed on verb "add".
func ClassifyFeed(v FeedValue) Classified {
	if v.Item == "like" || v.Item == "reaction" {
		return Classified{
			Kind: FeedReactionEvent,
			Reaction: &FeedReaction{
				Kind:         v.Item,
				Verb:         v.Verb,
				PostID:       v.PostID,
				CommentID:    v.CommentID,
				ReactionType: v.ReactionType,
				From:         v.From,
			},
		}
	}

	if v.Verb != "add" {
		return Classified{Kind: FeedSkip, Value: &v}
	}

	if v.Item == "comment" && (v.CommentID != "" || v.ID != "") {
		return Classified{Kind: FeedCommentEvent, Comment: commentMeta(v)}
	}

	if postItems[v.Item] {
		return Classified{Kind: FeedPostEvent, Post: postMeta(v)}
	}

	return Classified{Kind: FeedGenericEvent, Value: &v}
}

// commentMeta extracts comment metadata. The comment id prefers the value's
// own id over comment_id. The parent id comes from an explicit parent object
// when present; otherwise, when the comment's post id differs from its
// parent_id, the immediate parent is another comment and parent_id is used.
func commentMeta(v FeedValue) *FeedComment {
	commentID := v.ID
	if commentID == "" {
		commentID = v.CommentID
	}

	parentID := ""
	if v.Parent != nil && v.Parent.ID != "" {
		parentID = v.Parent.ID
	} else if v.ParentID != "" && v.ParentID != v.PostID {
		parentID = v.ParentID
	}

	return &FeedComment{
		PostID:      v.PostID,
		CommentID:   commentID,
		ParentID:    parentID,
		Item:        v.Item,
		From:        v.From,
		Message:     v.Message,
		CreatedTime: v.CreatedTime,
	}
}

// postMeta extracts post metadata. A link accompanied by a video id is a
// video post, by a photo id a photo post, otherwise a plain link.
func postMeta(v FeedValue) *FeedPost {
	post := &FeedPost{
		PostID:      v.PostID,
		Item:        v.Item,
		Photos:      v.Photos,
		From:        v.From,
		Message:     v.Message,
		CreatedTime: v.CreatedTime,
	}

	if v.Link != "" {
		switch {
		case v.VideoID != "":
			post.Video = v.Link
		case v.PhotoID != "":
			post.Photo = v.Link
		default:
			post.Link = v.Link
		}
	}

	return post
}
