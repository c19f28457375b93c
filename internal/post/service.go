package post

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/masumkhan081/socket-talk/internal/notification"
)

type Service struct {
	repo   *Repository
	notifs *notification.Repository
}

func NewService(repo *Repository, notifs *notification.Repository) *Service {
	return &Service{repo: repo, notifs: notifs}
}

func (s *Service) ListPosts(ctx context.Context, viewerID int64, page, limit int) ([]*Post, int64, error) {
	return s.repo.ListPosts(ctx, viewerID, page, limit)
}

func (s *Service) GetPost(ctx context.Context, viewerID, postID int64) (*Post, error) {
	return s.repo.GetPost(ctx, viewerID, postID)
}

func (s *Service) CreatePost(ctx context.Context, authorID int64, req *CreatePostRequest) (*Post, error) {
	return s.repo.CreatePost(ctx, authorID, strings.TrimSpace(req.Content))
}

func (s *Service) UpdatePost(ctx context.Context, postID, authorID int64, req *UpdatePostRequest) (*Post, error) {
	return s.repo.UpdatePost(ctx, postID, authorID, strings.TrimSpace(req.Content))
}

func (s *Service) DeletePost(ctx context.Context, postID, authorID int64) error {
	return s.repo.DeletePost(ctx, postID, authorID)
}

// LikePost toggles the caller's like. Liking someone else's post
// notifies its author.
func (s *Service) LikePost(ctx context.Context, userID, postID int64) (*ReactionResult, error) {
	return s.reactToPost(ctx, userID, postID, KindLike)
}

func (s *Service) DislikePost(ctx context.Context, userID, postID int64) (*ReactionResult, error) {
	return s.reactToPost(ctx, userID, postID, KindDislike)
}

func (s *Service) reactToPost(ctx context.Context, userID, postID int64, kind ReactionKind) (*ReactionResult, error) {
	authorID, err := s.repo.PostAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.TogglePostReaction(ctx, postID, userID, kind)
	if err != nil {
		return nil, err
	}

	if kind == KindLike && result.Active && authorID != userID {
		s.notify(ctx, &notification.Notification{
			RecipientID: authorID,
			SenderID:    userID,
			Type:        notification.TypePostLike,
			Title:       "New Like",
			Message:     "Someone liked your post",
			RelatedID:   &postID,
		})
	}
	return result, nil
}

func (s *Service) ListComments(ctx context.Context, viewerID, postID int64) ([]*Comment, error) {
	if _, err := s.repo.PostAuthorID(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, viewerID, postID)
}

// CreateComment notifies the post author for top-level comments and the
// parent comment's author for replies. The actor never notifies itself.
func (s *Service) CreateComment(ctx context.Context, authorID int64, req *CreateCommentRequest) (*Comment, error) {
	postAuthorID, err := s.repo.PostAuthorID(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	req.Content = strings.TrimSpace(req.Content)
	c, err := s.repo.CreateComment(ctx, authorID, req)
	if err != nil {
		return nil, err
	}

	if req.ParentCommentID != nil {
		parentAuthorID, err := s.repo.CommentAuthorID(ctx, *req.ParentCommentID)
		if err == nil && parentAuthorID != authorID {
			s.notify(ctx, &notification.Notification{
				RecipientID: parentAuthorID,
				SenderID:    authorID,
				Type:        notification.TypeCommentReply,
				Title:       "New Reply",
				Message:     fmt.Sprintf("%s replied to your comment", c.Author.Username),
				RelatedID:   &c.ID,
			})
		}
	} else if postAuthorID != authorID {
		s.notify(ctx, &notification.Notification{
			RecipientID: postAuthorID,
			SenderID:    authorID,
			Type:        notification.TypePostComment,
			Title:       "New Comment",
			Message:     fmt.Sprintf("%s commented on your post", c.Author.Username),
			RelatedID:   &c.ID,
		})
	}
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, commentID, authorID int64, req *UpdateCommentRequest) (*Comment, error) {
	return s.repo.UpdateComment(ctx, commentID, authorID, strings.TrimSpace(req.Content))
}

func (s *Service) DeleteComment(ctx context.Context, commentID, authorID int64) error {
	return s.repo.DeleteComment(ctx, commentID, authorID)
}

func (s *Service) LikeComment(ctx context.Context, userID, commentID int64) (*ReactionResult, error) {
	if _, err := s.repo.CommentAuthorID(ctx, commentID); err != nil {
		return nil, err
	}
	return s.repo.ToggleCommentReaction(ctx, commentID, userID, KindLike)
}

func (s *Service) DislikeComment(ctx context.Context, userID, commentID int64) (*ReactionResult, error) {
	if _, err := s.repo.CommentAuthorID(ctx, commentID); err != nil {
		return nil, err
	}
	return s.repo.ToggleCommentReaction(ctx, commentID, userID, KindDislike)
}

func (s *Service) notify(ctx context.Context, n *notification.Notification) {
	if err := s.notifs.Create(ctx, n); err != nil {
		log.Printf("create notification (%s -> user %d): %v", n.Type, n.RecipientID, err)
	}
}
