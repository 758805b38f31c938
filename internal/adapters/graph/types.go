package graph

// UserProfile is the profile shape returned for a platform user. Messenger
// profiles omit the combined Name field while feed profiles provide it, so
// callers prefer FirstName/LastName and fall back to splitting Name.
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"`
}

// pictureResponse wraps the avatar lookup: {"data": {"url": ...}}.
type pictureResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// tokenResponse wraps a page access token lookup.
type tokenResponse struct {
	ID          string `json:"id"`
	AccessToken string `json:"access_token"`
}

// ObjectRef is a bare platform object reference.
type ObjectRef struct {
	ID string `json:"id"`
}

// Post is a wall post with an optional comment summary.
type Post struct {
	ID          string  `json:"id"`
	Message     string  `json:"message,omitempty"`
	Link        string  `json:"link,omitempty"`
	CreatedTime string  `json:"created_time,omitempty"`
	From        *Author `json:"from,omitempty"`
	Comments    *struct {
		Summary *struct {
			TotalCount int `json:"total_count"`
		} `json:"summary,omitempty"`
	} `json:"comments,omitempty"`
}

// CommentTotal returns the post's comment-summary count, defaulting to zero
// when no summary is present.
func (p *Post) CommentTotal() int {
	if p.Comments == nil || p.Comments.Summary == nil {
		return 0
	}
	return p.Comments.Summary.TotalCount
}

// Author is the acting user on a post or comment.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Comment is a single comment object.
type Comment struct {
	ID          string     `json:"id"`
	Message     string     `json:"message,omitempty"`
	CreatedTime string     `json:"created_time,omitempty"`
	From        *Author    `json:"from,omitempty"`
	Parent      *ObjectRef `json:"parent,omitempty"`
}

// commentList wraps a comment collection: {"data": [...]}.
type commentList struct {
	Data []Comment `json:"data"`
}

// SendMessageResponse is returned by the messaging endpoint.
type SendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}
