package post

import (
	"strings"
	"time"
)

const (
	MaxPostLength    = 2500
	MaxPostWords     = 500
	MaxCommentLength = 1000
)

type ReactionKind string

const (
	KindLike    ReactionKind = "like"
	KindDislike ReactionKind = "dislike"
)

// Author is the slim user projection embedded in posts and comments.
type Author struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

type Post struct {
	ID           int64     `json:"id"`
	Author       Author    `json:"author"`
	Content      string    `json:"content"`
	LikeCount    int64     `json:"likeCount"`
	DislikeCount int64     `json:"dislikeCount"`
	CommentCount int64     `json:"commentCount"`
	IsLiked      bool      `json:"isLiked"`
	IsDisliked   bool      `json:"isDisliked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Comment struct {
	ID              int64      `json:"id"`
	PostID          int64      `json:"postId"`
	Author          Author     `json:"author"`
	Content         string     `json:"content"`
	ParentCommentID *int64     `json:"parentCommentId,omitempty"`
	LikeCount       int64      `json:"likeCount"`
	DislikeCount    int64      `json:"dislikeCount"`
	IsLiked         bool       `json:"isLiked"`
	IsDisliked      bool       `json:"isDisliked"`
	Replies         []*Comment `json:"replies,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ReactionResult is what like/dislike endpoints return: whether the
// caller's reaction is now active, plus both counters so the client can
// render a flip in one round trip.
type ReactionResult struct {
	Active       bool  `json:"active"`
	LikeCount    int64 `json:"likeCount"`
	DislikeCount int64 `json:"dislikeCount"`
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

func (r *CreatePostRequest) Validate() map[string]string {
	return validatePostContent(r.Content)
}

type UpdatePostRequest struct {
	Content string `json:"content"`
}

func (r *UpdatePostRequest) Validate() map[string]string {
	return validatePostContent(r.Content)
}

func validatePostContent(content string) map[string]string {
	errs := make(map[string]string)
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		errs["content"] = "Content is required"
	case len(trimmed) > MaxPostLength:
		errs["content"] = "Content cannot exceed 2500 characters"
	case len(strings.Fields(trimmed)) > MaxPostWords:
		errs["content"] = "Content cannot exceed 500 words"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type PostReactionRequest struct {
	PostID int64 `json:"postId"`
}

type CommentReactionRequest struct {
	CommentID int64 `json:"commentId"`
}

type CreateCommentRequest struct {
	PostID          int64  `json:"postId"`
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parentCommentId,omitempty"`
}

func (r *CreateCommentRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.PostID == 0 {
		errs["postId"] = "postId is required"
	}
	validateCommentContent(r.Content, errs)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

func (r *UpdateCommentRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateCommentContent(r.Content, errs)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateCommentContent(content string, errs map[string]string) {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		errs["content"] = "Content is required"
	case len(trimmed) > MaxCommentLength:
		errs["content"] = "Content cannot exceed 1000 characters"
	}
}
