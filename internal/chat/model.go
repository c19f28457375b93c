package chat

import (
	"strings"
	"time"
)

const (
	MaxGroupParticipants = 50
	MaxMessageLength     = 1000
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

// Participant is a conversation member with their public profile fields
// resolved (fetched via JOIN).
type Participant struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	ProfileImage *string   `json:"profileImage"`
	IsOnline     bool      `json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
	IsAdmin      bool      `json:"isAdmin"`
}

type Conversation struct {
	ID               int64         `json:"id"`
	IsGroup          bool          `json:"isGroup"`
	GroupName        *string       `json:"groupName,omitempty"`
	GroupIcon        *string       `json:"groupIcon,omitempty"`
	GroupDescription string        `json:"groupDescription,omitempty"`
	CreatedBy        int64         `json:"createdBy"`
	Participants     []Participant `json:"participants,omitempty"`
	LastMessage      *Message      `json:"lastMessage"`
	LastActivity     time.Time     `json:"lastActivity"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Sender is the denormalized message author shipped with every message.
type Sender struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profileImage"`
}

type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	Sender         Sender      `json:"sender"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"messageType"`
	FileURL        *string     `json:"fileUrl,omitempty"`
	FileName       *string     `json:"fileName,omitempty"`
	FileSize       *int64      `json:"fileSize,omitempty"`
	ReadBy         []ReadEntry `json:"readBy,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type ReadEntry struct {
	UserID int64     `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type GroupInvitation struct {
	ID        int64            `json:"id"`
	GroupID   int64            `json:"groupId"`
	GroupName string           `json:"groupName,omitempty"`
	InviterID int64            `json:"inviterId"`
	InviteeID int64            `json:"inviteeId"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

type DashboardStats struct {
	TotalPosts         int64 `json:"totalPosts"`
	TotalConversations int64 `json:"totalConversations"`
	TotalGroups        int64 `json:"totalGroups"`
	TotalGroupsAsAdmin int64 `json:"totalGroupsAsAdmin"`
	TotalComments      int64 `json:"totalComments"`
	PendingInvitations int64 `json:"pendingInvitations"`
}

// ---- request payloads ----

type CreateConversationRequest struct {
	ParticipantID int64 `json:"participantId"`
}

type CreateGroupRequest struct {
	GroupName        string  `json:"groupName"`
	GroupDescription string  `json:"groupDescription"`
	GroupIcon        *string `json:"groupIcon"`
	Participants     []int64 `json:"participants"`
}

func (r *CreateGroupRequest) Validate() map[string]string {
	errs := map[string]string{}
	r.GroupName = strings.TrimSpace(r.GroupName)

	if r.GroupName == "" {
		errs["groupName"] = "Group name is required"
	} else if len(r.GroupName) > 50 {
		errs["groupName"] = "Group name must be less than 50 characters"
	}
	if len(r.GroupDescription) > 200 {
		errs["groupDescription"] = "Group description must be less than 200 characters"
	}
	if len(r.Participants) == 0 {
		errs["participants"] = "At least one participant is required"
	} else if len(r.Participants) > MaxGroupParticipants {
		errs["participants"] = "Maximum 50 participants allowed"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

type UpdateGroupRequest struct {
	GroupName        *string `json:"groupName"`
	GroupDescription *string `json:"groupDescription"`
	GroupIcon        *string `json:"groupIcon"`
}

func (r *UpdateGroupRequest) Validate() map[string]string {
	errs := map[string]string{}

	if r.GroupName != nil {
		n := strings.TrimSpace(*r.GroupName)
		*r.GroupName = n
		if n == "" {
			errs["groupName"] = "Group name is required"
		} else if len(n) > 50 {
			errs["groupName"] = "Group name must be less than 50 characters"
		}
	}
	if r.GroupDescription != nil && len(*r.GroupDescription) > 200 {
		errs["groupDescription"] = "Group description must be less than 200 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

type SendMessageRequest struct {
	ConversationID int64       `json:"conversationId"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"messageType"`
	FileURL        *string     `json:"fileUrl"`
	FileName       *string     `json:"fileName"`
	FileSize       *int64      `json:"fileSize"`
}

func (r *SendMessageRequest) Validate() map[string]string {
	errs := map[string]string{}

	if r.ConversationID == 0 {
		errs["conversationId"] = "Conversation ID is required"
	}
	if strings.TrimSpace(r.Content) == "" {
		errs["content"] = "Message content is required"
	} else if len(r.Content) > MaxMessageLength {
		errs["content"] = "Message must be less than 1000 characters"
	}

	// Type defaults to text; non-text messages must carry a file.
	if r.MessageType == "" {
		r.MessageType = TypeText
	}
	switch r.MessageType {
	case TypeText:
	case TypeImage, TypeFile:
		if r.FileURL == nil || *r.FileURL == "" {
			errs["fileUrl"] = "File URL is required for file messages"
		}
	default:
		errs["messageType"] = "Message type must be one of text, image, file"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

type InviteToGroupRequest struct {
	GroupID   int64 `json:"groupId"`
	InviteeID int64 `json:"inviteeId"`
}

type RespondToInvitationRequest struct {
	InvitationID int64  `json:"invitationId"`
	Response     string `json:"response"`
}
