package notification

import "time"

// Notification types, matching the side effects that create them.
const (
	TypeGroupInvitation = "group_invitation"
	TypeMessage         = "message"
	TypePostLike        = "post_like"
	TypePostComment     = "post_comment"
	TypeCommentReply    = "comment_reply"
)

type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipientId"`
	SenderID    int64     `json:"senderId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RelatedID   *int64    `json:"relatedId,omitempty"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}
