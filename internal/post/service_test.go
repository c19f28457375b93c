package post

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/masumkhan081/socket-talk/internal/notification"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(NewRepository(db), notification.NewRepository(db)), mock
}

func TestLikeAfterDislikeFlipsBothCounts(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT kind FROM post_reactions").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("dislike"))
	mock.ExpectExec("UPDATE post_reactions SET kind").
		WithArgs(int64(7), int64(1), KindLike).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM post_reactions WHERE post_id").
		WillReturnRows(sqlmock.NewRows([]string{"likes", "dislikes"}).AddRow(1, 0))
	mock.ExpectCommit()
	// The post author gets a like notification.
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	result, err := svc.LikePost(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !result.Active {
		t.Fatal("like should be active after flipping a dislike")
	}
	if result.LikeCount != 1 || result.DislikeCount != 0 {
		t.Fatalf("counts = %d/%d, want 1/0", result.LikeCount, result.DislikeCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLikeTwiceRemovesReaction(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT kind FROM post_reactions").
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("like"))
	mock.ExpectExec("DELETE FROM post_reactions").
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM post_reactions WHERE post_id").
		WillReturnRows(sqlmock.NewRows([]string{"likes", "dislikes"}).AddRow(0, 0))
	mock.ExpectCommit()
	// Removing a like must not notify.

	result, err := svc.LikePost(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if result.Active {
		t.Fatal("second like should toggle the reaction off")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT kind FROM post_reactions").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectExec("INSERT INTO post_reactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM post_reactions WHERE post_id").
		WillReturnRows(sqlmock.NewRows([]string{"likes", "dislikes"}).AddRow(1, 0))
	mock.ExpectCommit()

	if _, err := svc.LikePost(context.Background(), 1, 7); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLikeUnknownPost(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WillReturnRows(sqlmock.NewRows(nil))

	if _, err := svc.LikePost(context.Background(), 1, 99); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestReplyToReplyRejected(t *testing.T) {
	svc, mock := newTestService(t)

	parent := int64(5)
	grandparent := int64(3)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(2))
	mock.ExpectQuery("SELECT post_id, parent_comment_id FROM comments").
		WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "parent_comment_id"}).AddRow(7, grandparent))

	_, err := svc.CreateComment(context.Background(), 1, &CreateCommentRequest{
		PostID:          7,
		Content:         "nested",
		ParentCommentID: &parent,
	})
	if !errors.Is(err, ErrReplyTooDeep) {
		t.Fatalf("err = %v, want ErrReplyTooDeep", err)
	}
}

func TestReplyToCommentOnOtherPostRejected(t *testing.T) {
	svc, mock := newTestService(t)

	parent := int64(5)

	mock.ExpectQuery("SELECT author_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(2))
	mock.ExpectQuery("SELECT post_id, parent_comment_id FROM comments").
		WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "parent_comment_id"}).AddRow(8, nil))

	_, err := svc.CreateComment(context.Background(), 1, &CreateCommentRequest{
		PostID:          7,
		Content:         "wrong thread",
		ParentCommentID: &parent,
	})
	if !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("err = %v, want ErrCommentNotFound", err)
	}
}

func TestUpdatePostNotOwned(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE posts SET content").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.UpdatePost(context.Background(), 7, 1, &UpdatePostRequest{Content: "edited"})
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestValidatePostContentLimits(t *testing.T) {
	long := make([]byte, MaxPostLength+1)
	for i := range long {
		long[i] = 'a'
	}
	req := &CreatePostRequest{Content: string(long)}
	if errs := req.Validate(); errs == nil || errs["content"] == "" {
		t.Fatal("over-length content must fail validation")
	}

	if errs := (&CreatePostRequest{Content: "  "}).Validate(); errs == nil {
		t.Fatal("blank content must fail validation")
	}

	if errs := (&CreatePostRequest{Content: "fine"}).Validate(); errs != nil {
		t.Fatalf("valid content rejected: %v", errs)
	}
}
