package user

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	ProfileImage    *string   `json:"profileImage"`
	Bio             string    `json:"bio"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	IsOnline        bool      `json:"isOnline"`
	LastSeen        time.Time `json:"lastSeen"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PublicUser is the projection other users are allowed to see.
type PublicUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	ProfileImage *string   `json:"profileImage"`
	IsOnline     bool      `json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// UpdateProfileRequest uses pointers so "absent" and "empty" stay distinct.
type UpdateProfileRequest struct {
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	ProfileImage *string `json:"profileImage"`
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

func (r *SignupRequest) Validate() map[string]string {
	errs := map[string]string{}
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	switch {
	case r.Username == "":
		errs["username"] = "Username is required"
	case len(r.Username) < 3 || len(r.Username) > 30:
		errs["username"] = "Username must be between 3 and 30 characters"
	case !usernameRe.MatchString(r.Username):
		errs["username"] = "Username can only contain letters, numbers, and underscores"
	}

	if r.Email == "" {
		errs["email"] = "Email is required"
	} else if !emailRe.MatchString(r.Email) {
		errs["email"] = "Please provide a valid email address"
	}

	if len(r.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *SigninRequest) Validate() map[string]string {
	errs := map[string]string{}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if r.Email == "" {
		errs["email"] = "Email is required"
	}
	if r.Password == "" {
		errs["password"] = "Password is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *ResetPasswordRequest) Validate() map[string]string {
	errs := map[string]string{}
	if r.Token == "" {
		errs["token"] = "Reset token is required"
	}
	if len(r.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r *UpdateProfileRequest) Validate() map[string]string {
	errs := map[string]string{}

	if r.Username != nil {
		u := strings.TrimSpace(*r.Username)
		*r.Username = u
		switch {
		case len(u) < 3 || len(u) > 30:
			errs["username"] = "Username must be between 3 and 30 characters"
		case !usernameRe.MatchString(u):
			errs["username"] = "Username can only contain letters, numbers, and underscores"
		}
	}
	if r.Bio != nil && len(*r.Bio) > 500 {
		errs["bio"] = "Bio must be less than 500 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
