package notification

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/masumkhan081/socket-talk/internal/api"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
)

type Handler struct {
	Repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifs, err := h.Repo.ListForRecipient(r.Context(), userID, limit)
	if err != nil {
		log.Printf("list notifications error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Notifications retrieved successfully", map[string]interface{}{"notifications": notifs})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "notificationId"), 10, 64)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid notification id", "Notification id must be numeric")
		return
	}

	if err := h.Repo.MarkRead(r.Context(), userID, id); err != nil {
		log.Printf("mark notification read error: %v", err)
		api.Internal(w)
		return
	}

	api.OK(w, "Notification marked as read", nil)
}
