package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/masumkhan081/socket-talk/internal/notification"
)

var (
	ErrNotParticipant        = errors.New("user is not a participant of the conversation")
	ErrParticipantsNotFound  = errors.New("some participants not found")
	ErrGroupTooSmall         = errors.New("group conversations must have at least 2 participants")
	ErrSelfInvitation        = errors.New("cannot invite yourself to a group")
	ErrAlreadyMember         = errors.New("user is already a member of the group")
	ErrInvitationAlreadySent = errors.New("an invitation has already been sent to this user")
)

// AuthorStats is the slice of the post feature the dashboard needs.
type AuthorStats interface {
	CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error)
	CountCommentsByAuthor(ctx context.Context, authorID int64) (int64, error)
}

type Service struct {
	repo   *Repository
	notifs *notification.Repository
	stats  AuthorStats
}

func NewService(repo *Repository, notifs *notification.Repository, stats AuthorStats) *Service {
	return &Service{repo: repo, notifs: notifs, stats: stats}
}

func (s *Service) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// CreateDirectConversation returns the existing pair conversation when one
// is already there; created reports whether a new one was made.
func (s *Service) CreateDirectConversation(ctx context.Context, userID, participantID int64) (conv *Conversation, created bool, err error) {
	if _, err := s.repo.GetUserPublic(ctx, participantID); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetDirectBetween(ctx, userID, participantID)
	if err == nil {
		if existing.Participants, err = s.repo.participantsFor(ctx, existing.ID); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, false, err
	}

	conv, err = s.repo.CreateDirect(ctx, userID, participantID)
	return conv, true, err
}

func (s *Service) CreateGroup(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Conversation, error) {
	// Dedupe and make sure the creator is always included.
	seen := map[int64]struct{}{creatorID: {}}
	all := []int64{creatorID}
	for _, id := range req.Participants {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		all = append(all, id)
	}

	if len(all) < 2 {
		return nil, ErrGroupTooSmall
	}
	if len(all) > MaxGroupParticipants {
		return nil, fmt.Errorf("group conversations cannot have more than %d participants", MaxGroupParticipants)
	}

	n, err := s.repo.CountUsers(ctx, all)
	if err != nil {
		return nil, err
	}
	if n != len(all) {
		return nil, ErrParticipantsNotFound
	}

	return s.repo.CreateGroup(ctx, creatorID, req, all)
}

func (s *Service) UpdateGroup(ctx context.Context, userID, groupID int64, req *UpdateGroupRequest) (*Conversation, error) {
	if _, err := s.repo.GetGroupIfAdmin(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.repo.UpdateGroup(ctx, groupID, req)
}

func (s *Service) InviteToGroup(ctx context.Context, inviterID int64, req *InviteToGroupRequest) (*GroupInvitation, error) {
	if req.InviteeID == inviterID {
		return nil, ErrSelfInvitation
	}

	group, err := s.repo.GetGroupIfAdmin(ctx, req.GroupID, inviterID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserPublic(ctx, req.InviteeID); err != nil {
		return nil, err
	}

	member, err := s.repo.IsParticipant(ctx, req.GroupID, req.InviteeID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	// Pre-check only; the accept path re-verifies under lock.
	n, err := s.repo.CountParticipants(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if n >= MaxGroupParticipants {
		return nil, ErrGroupFull
	}

	pending, err := s.repo.HasPendingInvitation(ctx, req.GroupID, req.InviteeID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrInvitationAlreadySent
	}

	inv, err := s.repo.CreateInvitation(ctx, req.GroupID, inviterID, req.InviteeID)
	if err != nil {
		return nil, err
	}

	inviter, err := s.repo.GetUserPublic(ctx, inviterID)
	if err != nil {
		return nil, err
	}

	groupName := ""
	if group.GroupName != nil {
		groupName = *group.GroupName
	}
	s.notify(ctx, &notification.Notification{
		RecipientID: req.InviteeID,
		SenderID:    inviterID,
		Type:        notification.TypeGroupInvitation,
		Title:       "Group Invitation",
		Message:     fmt.Sprintf("%s invited you to join %q", inviter.Username, groupName),
		RelatedID:   &inv.ID,
	})

	return inv, nil
}

func (s *Service) RespondToInvitation(ctx context.Context, userID int64, req *RespondToInvitationRequest) (*GroupInvitation, error) {
	inv, err := s.repo.GetPendingInvitationFor(ctx, req.InvitationID, userID)
	if err != nil {
		return nil, err
	}

	status := InvitationStatus(req.Response)

	// Admission happens before the status flips so a full group leaves the
	// invitation pending instead of silently consuming it.
	if status == StatusAccepted {
		if err := s.repo.AddParticipant(ctx, inv.GroupID, userID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SetInvitationStatus(ctx, inv.ID, status); err != nil {
		return nil, err
	}
	inv.Status = status
	return inv, nil
}

func (s *Service) LeaveGroup(ctx context.Context, userID, groupID int64) error {
	return s.repo.LeaveGroup(ctx, groupID, userID)
}

func (s *Service) ListMessages(ctx context.Context, userID, conversationID int64, page, limit int) ([]*Message, int64, error) {
	member, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, 0, err
	}
	if !member {
		return nil, 0, ErrNotParticipant
	}
	return s.repo.ListMessages(ctx, conversationID, page, limit)
}

// SendMessage re-validates participation on every call; membership can
// change mid-session and must never be trusted from connect time.
func (s *Service) SendMessage(ctx context.Context, senderID int64, req *SendMessageRequest) (*Message, error) {
	member, err := s.repo.IsParticipant(ctx, req.ConversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotParticipant
	}
	return s.repo.CreateMessage(ctx, senderID, req)
}

func (s *Service) MarkMessagesRead(ctx context.Context, readerID, conversationID int64, messageIDs []int64) error {
	return s.repo.MarkMessagesRead(ctx, readerID, conversationID, messageIDs)
}

func (s *Service) DashboardStats(ctx context.Context, userID int64) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalConversations, err = s.repo.CountConversations(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalGroups, err = s.repo.CountGroups(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalGroupsAsAdmin, err = s.repo.CountGroupsAsAdmin(ctx, userID); err != nil {
		return nil, err
	}
	if stats.PendingInvitations, err = s.repo.CountPendingInvitations(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalPosts, err = s.stats.CountPostsByAuthor(ctx, userID); err != nil {
		return nil, err
	}
	if stats.TotalComments, err = s.stats.CountCommentsByAuthor(ctx, userID); err != nil {
		return nil, err
	}
	return stats, nil
}

// ConnectUser resolves a websocket connection's subject against the store
// and returns the rooms it should initially join.
func (s *Service) ConnectUser(ctx context.Context, userID int64) (*Participant, []int64, error) {
	u, err := s.repo.GetUserPublic(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.repo.ConversationIDsFor(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SetUserPresence(ctx, userID, true); err != nil {
		return nil, nil, err
	}
	return u, rooms, nil
}

func (s *Service) SetOffline(ctx context.Context, userID int64) error {
	return s.repo.SetUserPresence(ctx, userID, false)
}

// notify records a notification; failures are off the critical path and
// only logged.
func (s *Service) notify(ctx context.Context, n *notification.Notification) {
	if err := s.notifs.Create(ctx, n); err != nil {
		log.Printf("create notification (%s -> user %d): %v", n.Type, n.RecipientID, err)
	}
}
