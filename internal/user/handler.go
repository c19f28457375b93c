package user

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/masumkhan081/socket-talk/internal/api"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	u, err := h.Service.Signup(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			api.JSON(w, http.StatusConflict, api.Response{
				Success: false,
				Message: "User already exists",
				Errors:  map[string]string{"email": "A user with this email already exists"},
			})
		case errors.Is(err, ErrUsernameTaken):
			api.JSON(w, http.StatusConflict, api.Response{
				Success: false,
				Message: "User already exists",
				Errors:  map[string]string{"username": "A user with this username already exists"},
			})
		default:
			log.Printf("signup error: %v", err)
			api.Internal(w)
		}
		return
	}

	api.Created(w, "Account created successfully", map[string]interface{}{
		"message": "Please check your email to verify your account",
		"userId":  u.ID,
	})
}

func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	u, pair, err := h.Service.Signin(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
			return
		}
		log.Printf("signin error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Signed in successfully", map[string]interface{}{
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	userID, ok := myMiddleware.UserID(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "Access token required", "No token provided")
		return
	}

	if err := h.Service.Signout(r.Context(), userID); err != nil {
		log.Printf("signout error: %v", err)
		api.Internal(w)
		return
	}
	api.OK(w, "Signed out successfully", nil)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", "Refresh token is required")
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "Invalid refresh token", "Please sign in again")
		return
	}

	api.OK(w, "Token refreshed successfully", pair)
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", "Verification token is required")
		return
	}

	if err := h.Service.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			api.Fail(w, http.StatusBadRequest, "Invalid or expired verification token",
				"Please request a new verification email")
			return
		}
		log.Printf("verify email error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Email verified successfully", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", "Email is required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.Service.ForgotPassword(r.Context(), req.Email); err != nil {
		log.Printf("forgot password error: %v", err)
		api.Fail(w, http.StatusInternalServerError, "Failed to send password reset email", "Please try again later")
		return
	}

	api.OK(w, "If an account with that email exists, we have sent a password reset link", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			api.Fail(w, http.StatusBadRequest, "Invalid or expired reset token",
				"Please request a new password reset")
			return
		}
		log.Printf("reset password error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Password reset successfully", nil)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	u, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Fail(w, http.StatusNotFound, "User not found", "User account no longer exists")
			return
		}
		log.Printf("get profile error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Profile retrieved successfully", map[string]interface{}{"user": u})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			api.Fail(w, http.StatusConflict, "Username already taken", "Please choose a different username")
		case errors.Is(err, ErrUserNotFound):
			api.Fail(w, http.StatusNotFound, "User not found", "User account no longer exists")
		default:
			log.Printf("update profile error: %v", err)
			api.Internal(w)
		}
		return
	}

	api.OK(w, "Profile updated successfully", map[string]interface{}{"user": u})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" || len(query) > 50 {
		api.ValidationFail(w, map[string]string{"query": "Search query must be between 1 and 50 characters"})
		return
	}

	users, err := h.Service.SearchUsers(r.Context(), userID, query)
	if err != nil {
		log.Printf("search users error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Users found successfully", map[string]interface{}{"users": users})
}
