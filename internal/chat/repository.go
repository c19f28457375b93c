package chat

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrGroupFull            = errors.New("group is full")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetUserPublic resolves a user id to their public profile fields.
func (r *Repository) GetUserPublic(ctx context.Context, id int64) (*Participant, error) {
	query := `SELECT id, username, profile_image, is_online, last_seen FROM users WHERE id = $1`
	p := &Participant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Username, &p.ProfileImage, &p.IsOnline, &p.LastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) CountUsers(ctx context.Context, ids []int64) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE id = ANY($1)`
	var n int
	err := r.db.QueryRowContext(ctx, query, ids).Scan(&n)
	return n, err
}

// SetUserPresence flips the online flag and refreshes last_seen.
func (r *Repository) SetUserPresence(ctx context.Context, userID int64, online bool) error {
	query := `UPDATE users SET is_online = $2, last_seen = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID, online)
	return err
}

func (r *Repository) ConversationIDsFor(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT conversation_id FROM conversation_participants WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	var ok bool
	err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&ok)
	return ok, err
}

const conversationColumns = `c.id, c.is_group, c.group_name, c.group_icon, c.group_description,
	c.created_by, c.last_activity, c.created_at`

func scanConversation(s interface{ Scan(...interface{}) error }) (*Conversation, error) {
	c := &Conversation{}
	err := s.Scan(&c.ID, &c.IsGroup, &c.GroupName, &c.GroupIcon, &c.GroupDescription,
		&c.CreatedBy, &c.LastActivity, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListConversations returns every conversation the user participates in,
// most recently active first, with participants and last message resolved.
func (r *Repository) ListConversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.last_activity DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range convs {
		if c.Participants, err = r.participantsFor(ctx, c.ID); err != nil {
			return nil, err
		}
		if c.LastMessage, err = r.lastMessageFor(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (r *Repository) participantsFor(ctx context.Context, conversationID int64) ([]Participant, error) {
	query := `
		SELECT u.id, u.username, u.profile_image, u.is_online, u.last_seen, p.is_admin
		FROM conversation_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id = $1
		ORDER BY p.joined_at, u.id
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.Username, &p.ProfileImage, &p.IsOnline, &p.LastSeen, &p.IsAdmin); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *Repository) lastMessageFor(ctx context.Context, conversationID int64) (*Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.content, m.message_type, m.file_url, m.file_name, m.file_size,
		       m.created_at, u.id, u.username, u.profile_image
		FROM conversations c
		JOIN messages m ON m.id = c.last_message_id
		JOIN users u ON u.id = m.sender_id
		WHERE c.id = $1
	`
	m := &Message{}
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(
		&m.ID, &m.ConversationID, &m.Content, &m.MessageType, &m.FileURL, &m.FileName, &m.FileSize,
		&m.CreatedAt, &m.Sender.ID, &m.Sender.Username, &m.Sender.ProfileImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetConversation loads a conversation header with participants resolved.
func (r *Repository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = $1`
	c, err := scanConversation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if c.Participants, err = r.participantsFor(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// GetDirectBetween finds the existing one-to-one conversation of two users.
func (r *Repository) GetDirectBetween(ctx context.Context, userA, userB int64) (*Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		JOIN conversation_participants p1 ON p1.conversation_id = c.id AND p1.user_id = $1
		JOIN conversation_participants p2 ON p2.conversation_id = c.id AND p2.user_id = $2
		WHERE c.is_group = FALSE
		LIMIT 1
	`
	return scanConversation(r.db.QueryRowContext(ctx, query, userA, userB))
}

func (r *Repository) CreateDirect(ctx context.Context, creatorID, otherID int64) (*Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	insert := `INSERT INTO conversations (is_group, created_by) VALUES (FALSE, $1) RETURNING id`
	if err := tx.QueryRowContext(ctx, insert, creatorID).Scan(&id); err != nil {
		return nil, err
	}

	addMember := `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`
	for _, uid := range []int64{creatorID, otherID} {
		if _, err := tx.ExecContext(ctx, addMember, id, uid); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetConversation(ctx, id)
}

// CreateGroup creates a group conversation. The creator is always a
// participant and an admin.
func (r *Repository) CreateGroup(ctx context.Context, creatorID int64, req *CreateGroupRequest, participantIDs []int64) (*Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	insert := `
		INSERT INTO conversations (is_group, group_name, group_icon, group_description, created_by)
		VALUES (TRUE, $1, $2, $3, $4)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, insert, req.GroupName, req.GroupIcon, req.GroupDescription, creatorID).Scan(&id); err != nil {
		return nil, err
	}

	addMember := `INSERT INTO conversation_participants (conversation_id, user_id, is_admin) VALUES ($1, $2, $3)`
	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, addMember, id, uid, uid == creatorID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetConversation(ctx, id)
}

// GetGroupIfAdmin loads a group only when the user administers it;
// otherwise the group is reported as not found, never as forbidden.
func (r *Repository) GetGroupIfAdmin(ctx context.Context, groupID, userID int64) (*Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE c.id = $1 AND c.is_group = TRUE AND p.user_id = $2 AND p.is_admin = TRUE
	`
	return scanConversation(r.db.QueryRowContext(ctx, query, groupID, userID))
}

func (r *Repository) UpdateGroup(ctx context.Context, groupID int64, req *UpdateGroupRequest) (*Conversation, error) {
	query := `
		UPDATE conversations
		SET group_name = COALESCE($2, group_name),
		    group_description = COALESCE($3, group_description),
		    group_icon = COALESCE($4, group_icon),
		    updated_at = NOW()
		WHERE id = $1 AND is_group = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, groupID, req.GroupName, req.GroupDescription, req.GroupIcon); err != nil {
		return nil, err
	}
	return r.GetConversation(ctx, groupID)
}

// AddParticipant admits the user, enforcing the participant cap inside
// one transaction. Adding an existing member is a no-op.
func (r *Repository) AddParticipant(ctx context.Context, conversationID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the conversation row so concurrent admissions cannot both read
	// a below-cap count.
	var id int64
	lock := `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, conversationID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return err
	}

	var member bool
	exists := `SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	if err := tx.QueryRowContext(ctx, exists, conversationID, userID).Scan(&member); err != nil {
		return err
	}
	if member {
		return tx.Commit()
	}

	var n int
	count := `SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = $1`
	if err := tx.QueryRowContext(ctx, count, conversationID).Scan(&n); err != nil {
		return err
	}
	if n >= MaxGroupParticipants {
		return ErrGroupFull
	}

	insert := `INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insert, conversationID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repository) CountParticipants(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = $1`,
		conversationID).Scan(&n)
	return n, err
}

// LeaveGroup removes the user from a group's participants and admins. If
// the admin set is emptied and participants remain, the earliest-joined
// participant is promoted.
func (r *Repository) LeaveGroup(ctx context.Context, groupID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var isGroup bool
	check := `SELECT is_group FROM conversations WHERE id = $1`
	if err := tx.QueryRowContext(ctx, check, groupID).Scan(&isGroup); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConversationNotFound
		}
		return err
	}
	if !isGroup {
		return ErrConversationNotFound
	}

	remove := `DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`
	res, err := tx.ExecContext(ctx, remove, groupID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrConversationNotFound
	}

	promote := `
		UPDATE conversation_participants
		SET is_admin = TRUE
		WHERE conversation_id = $1
		  AND user_id = (
			SELECT user_id FROM conversation_participants
			WHERE conversation_id = $1
			ORDER BY joined_at, user_id
			LIMIT 1
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND is_admin = TRUE
		  )
	`
	if _, err := tx.ExecContext(ctx, promote, groupID); err != nil {
		return err
	}

	return tx.Commit()
}

// ListMessages returns one page of a conversation's messages, oldest first
// within the page, with read receipts attached.
func (r *Repository) ListMessages(ctx context.Context, conversationID int64, page, limit int) ([]*Message, int64, error) {
	query := `
		SELECT m.id, m.conversation_id, m.content, m.message_type, m.file_url, m.file_name, m.file_size,
		       m.created_at, u.id, u.username, u.profile_image
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.MessageType, &m.FileURL,
			&m.FileName, &m.FileSize, &m.CreatedAt, &m.Sender.ID, &m.Sender.Username, &m.Sender.ProfileImage); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Query is newest-first; flip so the page reads oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	if err := r.attachReadEntries(ctx, msgs); err != nil {
		return nil, 0, err
	}

	var total int64
	count := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := r.db.QueryRowContext(ctx, count, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *Repository) attachReadEntries(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]int64, len(msgs))
	byID := make(map[int64]*Message, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		byID[m.ID] = m
	}

	query := `SELECT message_id, user_id, read_at FROM message_reads WHERE message_id = ANY($1) ORDER BY read_at`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID int64
		var entry ReadEntry
		if err := rows.Scan(&msgID, &entry.UserID, &entry.ReadAt); err != nil {
			return err
		}
		if m := byID[msgID]; m != nil {
			m.ReadBy = append(m.ReadBy, entry)
		}
	}
	return rows.Err()
}

// CreateMessage persists a message, auto-marks it read by its sender, and
// bumps the parent conversation's last-message pointer and activity time,
// all in one transaction. The returned message carries resolved sender
// fields.
func (r *Repository) CreateMessage(ctx context.Context, senderID int64, req *SendMessageRequest) (*Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m := &Message{
		ConversationID: req.ConversationID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
	}

	insert := `
		INSERT INTO messages (conversation_id, sender_id, content, message_type, file_url, file_name, file_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	if err := tx.QueryRowContext(ctx, insert, req.ConversationID, senderID, req.Content,
		req.MessageType, req.FileURL, req.FileName, req.FileSize).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, err
	}

	markRead := `INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, markRead, m.ID, senderID); err != nil {
		return nil, err
	}

	bump := `UPDATE conversations SET last_message_id = $2, last_activity = NOW(), updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, req.ConversationID, m.ID); err != nil {
		return nil, err
	}

	sender := `SELECT id, username, profile_image FROM users WHERE id = $1`
	if err := tx.QueryRowContext(ctx, sender, senderID).Scan(&m.Sender.ID, &m.Sender.Username, &m.Sender.ProfileImage); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	m.ReadBy = []ReadEntry{{UserID: senderID, ReadAt: m.CreatedAt}}
	return m, nil
}

// MarkMessagesRead records read receipts for the given messages, skipping
// the reader's own messages. Re-marking an already-read message is a no-op.
func (r *Repository) MarkMessagesRead(ctx context.Context, readerID, conversationID int64, messageIDs []int64) error {
	query := `
		INSERT INTO message_reads (message_id, user_id)
		SELECT id, $1 FROM messages
		WHERE id = ANY($2) AND conversation_id = $3 AND sender_id <> $1
		ON CONFLICT (message_id, user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, readerID, messageIDs, conversationID)
	return err
}

// ---- group invitations ----

func (r *Repository) HasPendingInvitation(ctx context.Context, groupID, inviteeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM group_invitations WHERE group_id = $1 AND invitee_id = $2 AND status = 'pending')`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, groupID, inviteeID).Scan(&exists)
	return exists, err
}

func (r *Repository) CreateInvitation(ctx context.Context, groupID, inviterID, inviteeID int64) (*GroupInvitation, error) {
	query := `
		INSERT INTO group_invitations (group_id, inviter_id, invitee_id)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at
	`
	inv := &GroupInvitation{GroupID: groupID, InviterID: inviterID, InviteeID: inviteeID}
	if err := r.db.QueryRowContext(ctx, query, groupID, inviterID, inviteeID).Scan(&inv.ID, &inv.Status, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetPendingInvitationFor loads a pending invitation addressed to the user.
func (r *Repository) GetPendingInvitationFor(ctx context.Context, invitationID, inviteeID int64) (*GroupInvitation, error) {
	query := `
		SELECT i.id, i.group_id, COALESCE(c.group_name, ''), i.inviter_id, i.invitee_id, i.status, i.created_at
		FROM group_invitations i
		JOIN conversations c ON c.id = i.group_id
		WHERE i.id = $1 AND i.invitee_id = $2 AND i.status = 'pending'
	`
	inv := &GroupInvitation{}
	err := r.db.QueryRowContext(ctx, query, invitationID, inviteeID).Scan(
		&inv.ID, &inv.GroupID, &inv.GroupName, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *Repository) SetInvitationStatus(ctx context.Context, invitationID int64, status InvitationStatus) error {
	query := `UPDATE group_invitations SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, invitationID, status)
	return err
}

// ---- dashboard counters ----

func (r *Repository) CountConversations(ctx context.Context, userID int64) (int64, error) {
	return r.countOne(ctx, `SELECT COUNT(*) FROM conversation_participants WHERE user_id = $1`, userID)
}

func (r *Repository) CountGroups(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM conversation_participants p
		JOIN conversations c ON c.id = p.conversation_id
		WHERE p.user_id = $1 AND c.is_group = TRUE
	`
	return r.countOne(ctx, query, userID)
}

func (r *Repository) CountGroupsAsAdmin(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM conversation_participants p
		JOIN conversations c ON c.id = p.conversation_id
		WHERE p.user_id = $1 AND p.is_admin = TRUE AND c.is_group = TRUE
	`
	return r.countOne(ctx, query, userID)
}

func (r *Repository) CountPendingInvitations(ctx context.Context, userID int64) (int64, error) {
	return r.countOne(ctx, `SELECT COUNT(*) FROM group_invitations WHERE invitee_id = $1 AND status = 'pending'`, userID)
}

func (r *Repository) countOne(ctx context.Context, query string, arg interface{}) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&n)
	return n, err
}
