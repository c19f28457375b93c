package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/masumkhan081/socket-talk/internal/api"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	convs, err := h.service.ListConversations(r.Context(), userID)
	if err != nil {
		api.Internal(w, err)
		return
	}
	api.OK(w, "Conversations retrieved successfully", map[string]interface{}{"conversations": convs})
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ParticipantID == 0 {
		api.Fail(w, http.StatusBadRequest, "participantId is required")
		return
	}
	if req.ParticipantID == userID {
		api.Fail(w, http.StatusBadRequest, "Cannot start a conversation with yourself")
		return
	}

	conv, created, err := h.service.CreateDirectConversation(r.Context(), userID, req.ParticipantID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Fail(w, http.StatusNotFound, "User not found")
			return
		}
		api.Internal(w, err)
		return
	}

	data := map[string]interface{}{"conversation": conv}
	if created {
		api.Created(w, "Conversation created successfully", data)
		return
	}
	api.OK(w, "Conversation already exists", data)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	conv, err := h.service.CreateGroup(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupTooSmall):
			api.Fail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrParticipantsNotFound):
			api.Fail(w, http.StatusNotFound, "Some participants not found")
		default:
			api.Internal(w, err)
		}
		return
	}
	api.Created(w, "Group created successfully", map[string]interface{}{"conversation": conv})
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	groupID, err := idParam(r, "groupId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid group id")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	conv, err := h.service.UpdateGroup(r.Context(), userID, groupID, &req)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			api.Fail(w, http.StatusNotFound, "Group not found or you are not an admin")
			return
		}
		api.Internal(w, err)
		return
	}
	api.OK(w, "Group updated successfully", map[string]interface{}{"conversation": conv})
}

func (h *Handler) InviteToGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req InviteToGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == 0 || req.InviteeID == 0 {
		api.Fail(w, http.StatusBadRequest, "groupId and inviteeId are required")
		return
	}

	inv, err := h.service.InviteToGroup(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfInvitation):
			api.Fail(w, http.StatusBadRequest, "Cannot invite yourself to a group")
		case errors.Is(err, ErrConversationNotFound):
			api.Fail(w, http.StatusNotFound, "Group not found or you are not an admin")
		case errors.Is(err, ErrUserNotFound):
			api.Fail(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrAlreadyMember):
			api.Fail(w, http.StatusConflict, "User is already a member of this group")
		case errors.Is(err, ErrGroupFull):
			api.Fail(w, http.StatusConflict, "Group is full")
		case errors.Is(err, ErrInvitationAlreadySent):
			api.Fail(w, http.StatusConflict, "An invitation has already been sent to this user")
		default:
			api.Internal(w, err)
		}
		return
	}
	api.Created(w, "Invitation sent successfully", map[string]interface{}{"invitation": inv})
}

func (h *Handler) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req RespondToInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvitationID == 0 {
		api.Fail(w, http.StatusBadRequest, "invitationId is required")
		return
	}
	if req.Response != string(StatusAccepted) && req.Response != string(StatusRejected) {
		api.Fail(w, http.StatusBadRequest, "response must be accepted or rejected")
		return
	}

	inv, err := h.service.RespondToInvitation(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvitationNotFound):
			api.Fail(w, http.StatusNotFound, "Invitation not found or already handled")
		case errors.Is(err, ErrGroupFull):
			api.Fail(w, http.StatusConflict, "Group is full")
		default:
			api.Internal(w, err)
		}
		return
	}
	api.OK(w, "Invitation "+string(inv.Status), map[string]interface{}{"invitation": inv})
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	groupID, err := idParam(r, "groupId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid group id")
		return
	}

	if err := h.service.LeaveGroup(r.Context(), userID, groupID); err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			api.Fail(w, http.StatusNotFound, "Group not found or you are not a member")
			return
		}
		api.Internal(w, err)
		return
	}
	api.OK(w, "Left group successfully", nil)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	conversationID, err := idParam(r, "conversationId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	msgs, total, err := h.service.ListMessages(r.Context(), userID, conversationID, page, limit)
	if err != nil {
		if errors.Is(err, ErrNotParticipant) {
			// Membership failures read as not-found so the endpoint never
			// confirms a conversation exists.
			api.Fail(w, http.StatusNotFound, "Conversation not found")
			return
		}
		api.Internal(w, err)
		return
	}
	api.OK(w, "Messages retrieved successfully", map[string]interface{}{
		"messages": msgs,
		"pagination": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// SendMessage is the REST variant of the send_message socket event; the
// stored message is also fanned out to connected clients.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	conversationID, err := idParam(r, "conversationId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ConversationID = conversationID
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrNotParticipant) {
			// Membership failures read as not-found so the endpoint never
			// confirms a conversation exists.
			api.Fail(w, http.StatusNotFound, "Conversation not found")
			return
		}
		api.Internal(w, err)
		return
	}

	h.hub.Publish(r.Context(), conversationID, 0, EventNewMessage, map[string]*Message{"message": msg})
	api.Created(w, "Message sent successfully", map[string]interface{}{"message": msg})
}

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	stats, err := h.service.DashboardStats(r.Context(), userID)
	if err != nil {
		api.Internal(w, err)
		return
	}
	api.OK(w, "Dashboard stats retrieved successfully", map[string]interface{}{"stats": stats})
}

// ServeWs upgrades an authenticated request to a websocket session,
// registers the client with the hub and announces the user's presence.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := myMiddleware.UserID(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	u, rooms, err := h.service.ConnectUser(r.Context(), userID)
	if err != nil {
		log.Printf("ws connect (user %d): %v", userID, err)
		api.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}

	client := &Client{
		hub:          h.hub,
		service:      h.service,
		conn:         conn,
		Send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		UserID:       u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		initialRooms: rooms,
		joined:       make(map[int64]struct{}),
	}
	h.hub.Register <- client

	h.hub.Publish(r.Context(), 0, u.ID, EventUserOnline, presencePayload{
		UserID:   u.ID,
		Username: u.Username,
		IsOnline: true,
		LastSeen: time.Now(),
	})

	go client.WritePump()
	go client.ReadPump()
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
