package post

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrReplyTooDeep    = errors.New("replies to replies are not allowed")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const postColumns = `
	p.id, p.content, p.created_at, p.updated_at,
	u.id, u.username, u.profile_image,
	(SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = p.id AND r.kind = 'like'),
	(SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = p.id AND r.kind = 'dislike'),
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	EXISTS(SELECT 1 FROM post_reactions r WHERE r.post_id = p.id AND r.user_id = $1 AND r.kind = 'like'),
	EXISTS(SELECT 1 FROM post_reactions r WHERE r.post_id = p.id AND r.user_id = $1 AND r.kind = 'dislike')`

func scanPost(row interface{ Scan(...interface{}) error }) (*Post, error) {
	p := &Post{}
	err := row.Scan(&p.ID, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.ProfileImage,
		&p.LikeCount, &p.DislikeCount, &p.CommentCount,
		&p.IsLiked, &p.IsDisliked)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPosts returns the feed newest first, with the viewer's own
// reaction flags resolved.
func (r *Repository) ListPosts(ctx context.Context, viewerID int64, page, limit int) ([]*Post, int64, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, viewerID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *Repository) GetPost(ctx context.Context, viewerID, postID int64) (*Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $2`

	p, err := scanPost(r.db.QueryRowContext(ctx, query, viewerID, postID))
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (r *Repository) CreatePost(ctx context.Context, authorID int64, content string) (*Post, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (author_id, content) VALUES ($1, $2) RETURNING id`,
		authorID, content).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetPost(ctx, authorID, id)
}

// UpdatePost only touches rows owned by the author; anything else reads
// as not found.
func (r *Repository) UpdatePost(ctx context.Context, postID, authorID int64, content string) (*Post, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET content = $1, updated_at = NOW() WHERE id = $2 AND author_id = $3`,
		content, postID, authorID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrPostNotFound
	}
	return r.GetPost(ctx, authorID, postID)
}

func (r *Repository) DeletePost(ctx context.Context, postID, authorID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, authorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repository) PostAuthorID(ctx context.Context, postID int64) (int64, error) {
	var authorID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID)
	if err == sql.ErrNoRows {
		return 0, ErrPostNotFound
	}
	return authorID, err
}

// TogglePostReaction applies like/dislike toggle semantics in one
// transaction: same kind again removes it, the opposite kind replaces it.
func (r *Repository) TogglePostReaction(ctx context.Context, postID, userID int64, kind ReactionKind) (*ReactionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing ReactionKind
	err = tx.QueryRowContext(ctx,
		`SELECT kind FROM post_reactions WHERE post_id = $1 AND user_id = $2 FOR UPDATE`,
		postID, userID).Scan(&existing)

	result := &ReactionResult{}
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_reactions (post_id, user_id, kind) VALUES ($1, $2, $3)`,
			postID, userID, kind); err != nil {
			return nil, err
		}
		result.Active = true
	case err != nil:
		return nil, err
	case existing == kind:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2`,
			postID, userID); err != nil {
			return nil, err
		}
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE post_reactions SET kind = $3, created_at = NOW() WHERE post_id = $1 AND user_id = $2`,
			postID, userID, kind); err != nil {
			return nil, err
		}
		result.Active = true
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE kind = 'like'),
		       COUNT(*) FILTER (WHERE kind = 'dislike')
		FROM post_reactions WHERE post_id = $1`, postID).
		Scan(&result.LikeCount, &result.DislikeCount)
	if err != nil {
		return nil, err
	}
	return result, tx.Commit()
}

const commentColumns = `
	c.id, c.post_id, c.content, c.parent_comment_id, c.created_at, c.updated_at,
	u.id, u.username, u.profile_image,
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.kind = 'like'),
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.kind = 'dislike'),
	EXISTS(SELECT 1 FROM comment_reactions r WHERE r.comment_id = c.id AND r.user_id = $1 AND r.kind = 'like'),
	EXISTS(SELECT 1 FROM comment_reactions r WHERE r.comment_id = c.id AND r.user_id = $1 AND r.kind = 'dislike')`

func scanComment(row interface{ Scan(...interface{}) error }) (*Comment, error) {
	c := &Comment{}
	err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.ParentCommentID,
		&c.CreatedAt, &c.UpdatedAt,
		&c.Author.ID, &c.Author.Username, &c.Author.ProfileImage,
		&c.LikeCount, &c.DislikeCount, &c.IsLiked, &c.IsDisliked)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns the post's comments oldest first, with one level
// of replies nested under their parents.
func (r *Repository) ListComments(ctx context.Context, viewerID, postID int64) ([]*Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $2
		ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, viewerID, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]*Comment)
	top := []*Comment{}
	var all []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		byID[c.ID] = c
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range all {
		if c.ParentCommentID == nil {
			top = append(top, c)
			continue
		}
		if parent, ok := byID[*c.ParentCommentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return top, nil
}

func (r *Repository) GetComment(ctx context.Context, viewerID, commentID int64) (*Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $2`

	c, err := scanComment(r.db.QueryRowContext(ctx, query, viewerID, commentID))
	if err == sql.ErrNoRows {
		return nil, ErrCommentNotFound
	}
	return c, err
}

// CreateComment enforces the one-level reply rule: the parent must be a
// top-level comment on the same post.
func (r *Repository) CreateComment(ctx context.Context, authorID int64, req *CreateCommentRequest) (*Comment, error) {
	if req.ParentCommentID != nil {
		var parentPostID int64
		var parentOfParent *int64
		err := r.db.QueryRowContext(ctx,
			`SELECT post_id, parent_comment_id FROM comments WHERE id = $1`,
			*req.ParentCommentID).Scan(&parentPostID, &parentOfParent)
		if err == sql.ErrNoRows {
			return nil, ErrCommentNotFound
		}
		if err != nil {
			return nil, err
		}
		if parentPostID != req.PostID {
			return nil, ErrCommentNotFound
		}
		if parentOfParent != nil {
			return nil, ErrReplyTooDeep
		}
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (post_id, author_id, content, parent_comment_id)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		req.PostID, authorID, req.Content, req.ParentCommentID).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetComment(ctx, authorID, id)
}

func (r *Repository) UpdateComment(ctx context.Context, commentID, authorID int64, content string) (*Comment, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2 AND author_id = $3`,
		content, commentID, authorID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrCommentNotFound
	}
	return r.GetComment(ctx, authorID, commentID)
}

func (r *Repository) DeleteComment(ctx context.Context, commentID, authorID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND author_id = $2`, commentID, authorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *Repository) CommentAuthorID(ctx context.Context, commentID int64) (int64, error) {
	var authorID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT author_id FROM comments WHERE id = $1`, commentID).Scan(&authorID)
	if err == sql.ErrNoRows {
		return 0, ErrCommentNotFound
	}
	return authorID, err
}

func (r *Repository) ToggleCommentReaction(ctx context.Context, commentID, userID int64, kind ReactionKind) (*ReactionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing ReactionKind
	err = tx.QueryRowContext(ctx,
		`SELECT kind FROM comment_reactions WHERE comment_id = $1 AND user_id = $2 FOR UPDATE`,
		commentID, userID).Scan(&existing)

	result := &ReactionResult{}
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comment_reactions (comment_id, user_id, kind) VALUES ($1, $2, $3)`,
			commentID, userID, kind); err != nil {
			return nil, err
		}
		result.Active = true
	case err != nil:
		return nil, err
	case existing == kind:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comment_reactions WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID); err != nil {
			return nil, err
		}
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE comment_reactions SET kind = $3, created_at = NOW() WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID, kind); err != nil {
			return nil, err
		}
		result.Active = true
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE kind = 'like'),
		       COUNT(*) FILTER (WHERE kind = 'dislike')
		FROM comment_reactions WHERE comment_id = $1`, commentID).
		Scan(&result.LikeCount, &result.DislikeCount)
	if err != nil {
		return nil, err
	}
	return result, tx.Commit()
}

func (r *Repository) CountPostsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID).Scan(&n)
	return n, err
}

func (r *Repository) CountCommentsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE author_id = $1`, authorID).Scan(&n)
	return n, err
}
