package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/masumkhan081/socket-talk/internal/auth"
)

type stubMailer struct {
	verificationTo    string
	verificationToken string
	resetTo           string
	failSend          bool
}

func (m *stubMailer) SendVerificationEmail(to, username, token string) error {
	m.verificationTo = to
	m.verificationToken = token
	if m.failSend {
		return errors.New("smtp down")
	}
	return nil
}

func (m *stubMailer) SendPasswordResetEmail(to, username, token string) error {
	m.resetTo = to
	if m.failSend {
		return errors.New("smtp down")
	}
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *stubMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &stubMailer{}
	tokens := auth.NewAuthenticator("access-secret", "refresh-secret", "test",
		15*time.Minute, 7*24*time.Hour)
	return NewService(NewRepository(db), tokens, mailer), mock, mailer
}

func userRow(id int64, email, passwordHash string, verified bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "profile_image", "bio",
		"is_email_verified", "is_online", "last_seen", "created_at",
	}).AddRow(id, "alice", email, passwordHash, nil, "", verified, false, time.Now(), time.Now())
}

func TestSignupEmailConflictWinsOverUsername(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT BOOL_OR(username = $1)")).
		WithArgs("alice", "alice@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"u", "e"}).AddRow(true, true))

	_, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "alice", Email: "alice@x.com", Password: "password1",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSignupCreatesUnverifiedAccountAndMails(t *testing.T) {
	svc, mock, mailer := newTestService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT BOOL_OR(username = $1)")).
		WithArgs("alice", "alice@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"u", "e"}).AddRow(nil, nil))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	u, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "alice", Email: "alice@x.com", Password: "password1",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.ID != 42 {
		t.Fatalf("id = %d, want 42", u.ID)
	}
	if u.IsEmailVerified {
		t.Fatal("new account must start unverified")
	}
	if mailer.verificationTo != "alice@x.com" || mailer.verificationToken == "" {
		t.Fatalf("verification mail not sent: to=%q token=%q",
			mailer.verificationTo, mailer.verificationToken)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSignupSurvivesMailFailure(t *testing.T) {
	svc, mock, mailer := newTestService(t)
	mailer.failSend = true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT BOOL_OR(username = $1)")).
		WillReturnRows(sqlmock.NewRows([]string{"u", "e"}).AddRow(nil, nil))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	if _, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "alice", Email: "alice@x.com", Password: "password1",
	}); err != nil {
		t.Fatalf("signup must not fail on mail error, got %v", err)
	}
}

func TestSigninUnknownEmail(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("ghost@x.com").
		WillReturnRows(sqlmock.NewRows(nil))

	_, _, err := svc.Signin(context.Background(), &SigninRequest{
		Email: "ghost@x.com", Password: "whatever1",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSigninWrongPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("alice@x.com").
		WillReturnRows(userRow(1, "alice@x.com", string(hash), true))

	_, _, err := svc.Signin(context.Background(), &SigninRequest{
		Email: "alice@x.com", Password: "wrong-horse",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSigninIssuesTokenPairAndMarksOnline(t *testing.T) {
	svc, mock, _ := newTestService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	mock.ExpectQuery("FROM users WHERE email").
		WithArgs("alice@x.com").
		WillReturnRows(userRow(1, "alice@x.com", string(hash), true))
	mock.ExpectExec("UPDATE users SET is_online").
		WithArgs(int64(1), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, pair, err := svc.Signin(context.Background(), &SigninRequest{
		Email: "alice@x.com", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if !u.IsOnline {
		t.Fatal("user not marked online")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestForgotPasswordHidesUnknownEmail(t *testing.T) {
	svc, mock, mailer := newTestService(t)

	mock.ExpectQuery("FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows(nil))

	if err := svc.ForgotPassword(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("unknown email must look like success, got %v", err)
	}
	if mailer.resetTo != "" {
		t.Fatal("no mail should be sent for unknown email")
	}
}

func TestForgotPasswordRollsBackTokenOnMailFailure(t *testing.T) {
	svc, mock, mailer := newTestService(t)
	mailer.failSend = true

	mock.ExpectQuery("FROM users WHERE email").
		WillReturnRows(userRow(1, "alice@x.com", "hash", true))
	mock.ExpectExec("UPDATE users SET password_reset_token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_reset_token = NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.ForgotPassword(context.Background(), "alice@x.com"); err == nil {
		t.Fatal("expected mail failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := svc.VerifyEmail(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
