package user

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/masumkhan081/socket-talk/internal/auth"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Mailer is the slice of the email package the service needs.
type Mailer interface {
	SendVerificationEmail(to, username, token string) error
	SendPasswordResetEmail(to, username, token string) error
}

type Service struct {
	repo   *Repository
	tokens *auth.Authenticator
	mailer Mailer
}

func NewService(repo *Repository, tokens *auth.Authenticator, mailer Mailer) *Service {
	return &Service{repo: repo, tokens: tokens, mailer: mailer}
}

// Signup creates an unverified account. Hashing and token issuance are
// explicit steps here, not hidden in the persistence layer.
func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*User, error) {
	usernameTaken, emailTaken, err := s.repo.CheckTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		return nil, ErrEmailTaken
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	verificationToken := uuid.NewString()
	if _, err := s.repo.CreateUser(ctx, u, verificationToken, time.Now().Add(24*time.Hour)); err != nil {
		return nil, err
	}

	// A failed mail send must not fail the signup.
	if err := s.mailer.SendVerificationEmail(u.Email, u.Username, verificationToken); err != nil {
		log.Printf("verification email to %s failed: %v", u.Email, err)
	}

	return u, nil
}

func (s *Service) Signin(ctx context.Context, req *SigninRequest) (*User, auth.TokenPair, error) {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.GenerateTokenPair(u.ID, u.Email)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	if err := s.repo.SetOnline(ctx, u.ID, true); err != nil {
		return nil, auth.TokenPair{}, err
	}
	u.IsOnline = true
	u.LastSeen = time.Now()

	return u, pair, nil
}

func (s *Service) Signout(ctx context.Context, userID int64) error {
	return s.repo.SetOnline(ctx, userID, false)
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidToken
	}

	// The subject must still exist.
	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidToken
	}

	return s.tokens.GenerateTokenPair(u.ID, u.Email)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if err := s.repo.VerifyEmail(ctx, token); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// ForgotPassword issues a reset token. The caller treats an unknown email
// as success so account existence is never revealed.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	u, err := s.repo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.repo.SetPasswordResetToken(ctx, u.ID, token, time.Now().Add(time.Hour)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(u.Email, u.Username, token); err != nil {
		// Reset mail is on the critical path here: roll the token back so a
		// stale one cannot linger.
		if clearErr := s.repo.ClearPasswordResetToken(ctx, u.ID); clearErr != nil {
			log.Printf("clearing reset token for user %d failed: %v", u.ID, clearErr)
		}
		return err
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, token, string(hash)); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*User, error) {
	if req.Username != nil {
		taken, err := s.repo.IsUsernameTakenByOther(ctx, *req.Username, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}
	return s.repo.UpdateProfile(ctx, userID, req)
}

func (s *Service) SearchUsers(ctx context.Context, callerID int64, query string) ([]PublicUser, error) {
	return s.repo.Search(ctx, callerID, query)
}

// ValidateToken satisfies the middleware's TokenValidator interface.
func (s *Service) ValidateToken(tokenString string) (int64, string, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return 0, "", err
	}
	return claims.UserID, claims.Email, nil
}

// IsEmailVerified satisfies the middleware's VerificationChecker interface.
func (s *Service) IsEmailVerified(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsEmailVerified, nil
}
