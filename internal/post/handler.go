package post

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/masumkhan081/socket-talk/internal/api"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	posts, total, err := h.service.ListPosts(r.Context(), userID, page, limit)
	if err != nil {
		api.Internal(w, err)
		return
	}
	api.OK(w, "Posts retrieved successfully", map[string]interface{}{
		"posts": posts,
		"pagination": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	postID, err := idParam(r, "postId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	p, err := h.service.GetPost(r.Context(), userID, postID)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Post retrieved successfully", map[string]interface{}{"post": p})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	p, err := h.service.CreatePost(r.Context(), userID, &req)
	if err != nil {
		api.Internal(w, err)
		return
	}
	api.Created(w, "Post created successfully", map[string]interface{}{"post": p})
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	postID, err := idParam(r, "postId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	p, err := h.service.UpdatePost(r.Context(), postID, userID, &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Post updated successfully", map[string]interface{}{"post": p})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	postID, err := idParam(r, "postId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	if err := h.service.DeletePost(r.Context(), postID, userID); err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Post deleted successfully", nil)
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.postReaction(w, r, h.service.LikePost, "like")
}

func (h *Handler) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.postReaction(w, r, h.service.DislikePost, "dislike")
}

func (h *Handler) postReaction(w http.ResponseWriter, r *http.Request,
	react func(ctx context.Context, userID, postID int64) (*ReactionResult, error), verb string) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req PostReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == 0 {
		api.Fail(w, http.StatusBadRequest, "postId is required")
		return
	}

	result, err := react(r.Context(), userID, req.PostID)
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "Post " + verb + "d"
	if !result.Active {
		msg = "Post " + verb + " removed"
	}
	api.OK(w, msg, map[string]interface{}{"reaction": result})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	postID, err := idParam(r, "postId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	comments, err := h.service.ListComments(r.Context(), userID, postID)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Comments retrieved successfully", map[string]interface{}{"comments": comments})
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	c, err := h.service.CreateComment(r.Context(), userID, &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.Created(w, "Comment created successfully", map[string]interface{}{"comment": c})
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	commentID, err := idParam(r, "commentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid comment id")
		return
	}

	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); errs != nil {
		api.ValidationFail(w, errs)
		return
	}

	c, err := h.service.UpdateComment(r.Context(), commentID, userID, &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Comment updated successfully", map[string]interface{}{"comment": c})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := myMiddleware.UserID(r.Context())
	commentID, err := idParam(r, "commentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "Invalid comment id")
		return
	}

	if err := h.service.DeleteComment(r.Context(), commentID, userID); err != nil {
		h.fail(w, err)
		return
	}
	api.OK(w, "Comment deleted successfully", nil)
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.commentReaction(w, r, h.service.LikeComment, "like")
}

func (h *Handler) DislikeComment(w http.ResponseWriter, r *http.Request) {
	h.commentReaction(w, r, h.service.DislikeComment, "dislike")
}

func (h *Handler) commentReaction(w http.ResponseWriter, r *http.Request,
	react func(ctx context.Context, userID, commentID int64) (*ReactionResult, error), verb string) {
	userID, _ := myMiddleware.UserID(r.Context())

	var req CommentReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommentID == 0 {
		api.Fail(w, http.StatusBadRequest, "commentId is required")
		return
	}

	result, err := react(r.Context(), userID, req.CommentID)
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "Comment " + verb + "d"
	if !result.Active {
		msg = "Comment " + verb + " removed"
	}
	api.OK(w, msg, map[string]interface{}{"reaction": result})
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		api.Fail(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, ErrCommentNotFound):
		api.Fail(w, http.StatusNotFound, "Comment not found")
	case errors.Is(err, ErrReplyTooDeep):
		api.Fail(w, http.StatusBadRequest, "Replies to replies are not allowed")
	default:
		api.Internal(w, err)
	}
}
