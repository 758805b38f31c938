package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusNew    ConversationStatus = "new"
	StatusOpen   ConversationStatus = "open"
	StatusClosed ConversationStatus = "closed"
)

// ChannelKind distinguishes direct-message threads from wall-post threads.
type ChannelKind string

const (
	KindMessenger ChannelKind = "messenger"
	KindFeed      ChannelKind = "feed"
)

// StringList is a JSON-encoded list of strings stored in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// Contains reports whether v is an element of the list.
func (l StringList) Contains(v string) bool {
	for _, item := range l {
		if item == v {
			return true
		}
	}
	return false
}

// UserRef identifies a platform user on a reaction entry.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ReactionMap holds reactor lists keyed by reaction type ("like", "love", ...).
type ReactionMap map[string][]UserRef

func (m ReactionMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ReactionMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// Attachment is a media item carried by an inbound or outbound message.
type Attachment struct {
	Type       string `json:"type"`
	URL        string `json:"url"`
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// AttachmentList is a JSON-encoded list of attachments.
type AttachmentList []Attachment

func (l AttachmentList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *AttachmentList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// Integration is one connected page set. Immutable at event-processing time.
type Integration struct {
	ID        string `gorm:"primaryKey"`
	AccountID string `gorm:"index"`
	Kind      string `gorm:"index"`
	Name      string
	PageIDs   StringList `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

// OwnsPage reports whether the integration owns the given page id.
func (i *Integration) OwnsPage(pageID string) bool {
	return i.PageIDs.Contains(pageID)
}

// Account holds the long-lived user access token used to mint page access
// tokens. Read-only from the pipeline's perspective.
type Account struct {
	ID        string    `gorm:"primaryKey"`
	Token     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Conversation groups related messages for one customer/channel thread.
//
// Correlation invariant: for messenger kind the sender/recipient pair is
// order-independent; for feed kind the post id plus page id correlates it.
type Conversation struct {
	ID            string             `gorm:"primaryKey"`
	IntegrationID string             `gorm:"index"`
	Status        ConversationStatus `gorm:"index"`
	MessageCount  int
	Content       string `gorm:"type:text;comment:last message text snapshot"`

	// Channel data.
	ChannelKind ChannelKind `gorm:"index"`
	SenderID    string      `gorm:"index"`
	RecipientID string      `gorm:"index"`
	PostID      string      `gorm:"index"`
	PageID      string      `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ConversationMessage belongs to exactly one conversation and one customer.
// Created once per unique platform event id; only counters and late-arriving
// channel fields mutate afterwards. MessageID and CommentID carry unique
// indexes so a replayed insert fails instead of duplicating the record.
type ConversationMessage struct {
	ID             string         `gorm:"primaryKey"`
	ConversationID string         `gorm:"index"`
	CustomerID     string         `gorm:"index"`
	Content        string         `gorm:"type:text"`
	Attachments    AttachmentList `gorm:"type:text"`

	// Channel data.
	MessageID    *string `gorm:"uniqueIndex"`
	CommentID    *string `gorm:"uniqueIndex"`
	PostID       string  `gorm:"index"`
	ParentID     string
	IsPost       bool
	Item         string
	Link         string
	Photo        string
	Video        string
	Photos       StringList `gorm:"type:text"`
	CreatedTime  string
	LikeCount    int
	Reactions    ReactionMap `gorm:"type:text"`
	CommentCount int

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Customer is one platform user per integration. Profile fields are populated
// on first contact and not refreshed afterwards.
type Customer struct {
	ID             string    `gorm:"primaryKey"`
	IntegrationID  string    `gorm:"uniqueIndex:idx_customer_platform"`
	PlatformUserID string    `gorm:"uniqueIndex:idx_customer_platform"`
	FirstName      string
	LastName       string
	Avatar         string
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// FullName joins the customer's first and last name.
func (c *Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ActivityLog is an append-only audit entry for conversation creation and
// customer registration.
type ActivityLog struct {
	ID          string    `gorm:"primaryKey"`
	Action      string    `gorm:"index"`
	ContentType string    `gorm:"index"`
	ContentID   string    `gorm:"index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

const (
	ActivityActionCreate = "create"

	ContentTypeConversation = "conversation"
	ContentTypeCustomer     = "customer"
)
