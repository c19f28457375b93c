package chat

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// pgxArgConverter mirrors the pgx stdlib driver, which accepts slice
// arguments (e.g. []int64 for = ANY($1)) that the default converter rejects.
type pgxArgConverter struct{}

func (pgxArgConverter) ConvertValue(v interface{}) (driver.Value, error) {
	if driver.IsValue(v) {
		return v, nil
	}
	if _, ok := v.([]int64); ok {
		return v, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(pgxArgConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(NewRepository(db), nil, nil), mock
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.SendMessage(context.Background(), 1, &SendMessageRequest{
		ConversationID: 7,
		Content:        "hello",
		MessageType:    TypeText,
	})
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListMessagesRejectsNonParticipant(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, _, err := svc.ListMessages(context.Background(), 1, 7, 1, 50)
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestCreateGroupRequiresTwoParticipants(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateGroup(context.Background(), 1, &CreateGroupRequest{
		GroupName:    "solo",
		Participants: []int64{1}, // only the creator after dedupe
	})
	if !errors.Is(err, ErrGroupTooSmall) {
		t.Fatalf("err = %v, want ErrGroupTooSmall", err)
	}
}

func TestCreateGroupUnknownParticipant(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	_, err := svc.CreateGroup(context.Background(), 1, &CreateGroupRequest{
		GroupName:    "trio",
		Participants: []int64{2, 3},
	})
	if !errors.Is(err, ErrParticipantsNotFound) {
		t.Fatalf("err = %v, want ErrParticipantsNotFound", err)
	}
}

func TestInviteToGroupSelfInvitation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.InviteToGroup(context.Background(), 1, &InviteToGroupRequest{
		GroupID: 7, InviteeID: 1,
	})
	if !errors.Is(err, ErrSelfInvitation) {
		t.Fatalf("err = %v, want ErrSelfInvitation", err)
	}
}

func TestInviteToGroupRejectedWhenFull(t *testing.T) {
	svc, mock := newTestService(t)

	convRow := sqlmock.NewRows([]string{
		"id", "is_group", "group_name", "group_icon", "group_description",
		"created_by", "last_activity", "created_at",
	}).AddRow(7, true, "crowded", nil, "", 1, time.Now(), time.Now())

	mock.ExpectQuery("FROM conversations c").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(convRow)
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "profile_image", "is_online", "last_seen"}).
			AddRow(2, "bob", nil, false, time.Now()))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(MaxGroupParticipants))

	_, err := svc.InviteToGroup(context.Background(), 1, &InviteToGroupRequest{
		GroupID: 7, InviteeID: 2,
	})
	if !errors.Is(err, ErrGroupFull) {
		t.Fatalf("err = %v, want ErrGroupFull", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAcceptInvitationRejectedWhenGroupFull(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM group_invitations i").
		WithArgs(int64(3), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "group_id", "group_name", "inviter_id", "invitee_id", "status", "created_at",
		}).AddRow(3, 7, "crowded", 1, 2, "pending", time.Now()))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM conversations").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(MaxGroupParticipants))
	mock.ExpectRollback()
	// No invitation-status update: a full group leaves it pending.

	_, err := svc.RespondToInvitation(context.Background(), 2, &RespondToInvitationRequest{
		InvitationID: 3, Response: "accepted",
	})
	if !errors.Is(err, ErrGroupFull) {
		t.Fatalf("err = %v, want ErrGroupFull", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAcceptInvitationAdmitsExistingMemberIdempotently(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM group_invitations i").
		WithArgs(int64(3), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "group_id", "group_name", "inviter_id", "invitee_id", "status", "created_at",
		}).AddRow(3, 7, "crowded", 1, 2, "pending", time.Now()))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM conversations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE group_invitations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inv, err := svc.RespondToInvitation(context.Background(), 2, &RespondToInvitationRequest{
		InvitationID: 3, Response: "accepted",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if inv.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", inv.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLeaveGroupPromotesReplacementAdmin(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_group FROM conversations").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"is_group"}).AddRow(true))
	mock.ExpectExec("DELETE FROM conversation_participants").
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversation_participants").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.LeaveGroup(context.Background(), 1, 7); err != nil {
		t.Fatalf("leave group: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLeaveGroupRejectsDirectConversation(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT is_group FROM conversations").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"is_group"}).AddRow(false))
	mock.ExpectRollback()

	if err := svc.LeaveGroup(context.Background(), 1, 5); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestMarkMessagesReadSkipsOwnMessages(t *testing.T) {
	svc, mock := newTestService(t)

	// The insert filters on sender_id <> reader at the SQL level.
	mock.ExpectExec(regexp.QuoteMeta("sender_id <> $1")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := svc.MarkMessagesRead(context.Background(), 1, 7, []int64{10, 11, 12}); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
