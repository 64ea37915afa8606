package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateComment adds a comment (or reply, when parentID is set) to a
// published post. The reply level is parent.Level+1 and may not pass the
// configured depth limit. Parent and post counters move in the same
// transaction; the author earns comment points atomically with the insert.
func (s *Store) CreateComment(postID, authorID int64, content string, parentID *int64, language string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty comment content", ErrInvalidArgument)
	}
	if language == "" {
		language = "vi"
	}

	comment := &Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
		Language: language,
		Status:   CommentStatusActive,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var post Post
		if err := tx.Select("id", "status").First(&post, postID).Error; err != nil {
			return asStoreErr(err)
		}
		if post.Status != PostStatusPublished {
			return fmt.Errorf("%w: post is not published", ErrInvalidArgument)
		}

		if parentID != nil {
			var parent Comment
			if err := forUpdate(tx).First(&parent, *parentID).Error; err != nil {
				return asStoreErr(err)
			}
			if parent.PostID != postID {
				return fmt.Errorf("%w: parent comment belongs to another post", ErrInvalidArgument)
			}
			if parent.Status == CommentStatusDeleted {
				return fmt.Errorf("%w: parent comment is deleted", ErrNotFound)
			}
			if parent.Level >= s.MaxCommentDepth {
				return fmt.Errorf("%w: parent is at level %d", ErrDepthExceeded, parent.Level)
			}
			comment.ParentID = parentID
			comment.Level = parent.Level + 1
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if comment.ParentID != nil {
			if err := tx.Model(&Comment{}).Where("id = ?", *comment.ParentID).
				UpdateColumn("replies_count", gorm.Expr("replies_count + 1")).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&Post{}).Where("id = ?", postID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			return err
		}

		_, err := addPointsTx(tx, authorID, PointsCreateComment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment lets the author edit the content. Moderators do not edit
// other people's comments; they hide them.
func (s *Store) UpdateComment(commentID, requesterID int64, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty comment content", ErrInvalidArgument)
	}
	var comment Comment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
			return asStoreErr(err)
		}
		if comment.Status == CommentStatusDeleted {
			return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
		}
		if comment.AuthorID != requesterID {
			return fmt.Errorf("%w: only the author can edit a comment", ErrForbidden)
		}
		comment.Content = content
		comment.IsEdited = true
		return tx.Model(&Comment{}).Where("id = ?", commentID).Updates(map[string]any{
			"content":   content,
			"is_edited": true,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// SoftDeleteComment transitions the comment to deleted and decrements the
// post and parent counters, floored at zero. Deleting an already-deleted
// comment is a no-op so the decrement never runs twice. Allowed for the
// author and for moderators.
func (s *Store) SoftDeleteComment(commentID, requesterID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var comment Comment
		if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
			return asStoreErr(err)
		}
		if comment.Status == CommentStatusDeleted {
			return nil
		}

		var requester User
		if err := tx.First(&requester, requesterID).Error; err != nil {
			return asStoreErr(err)
		}
		if comment.AuthorID != requesterID && !CanModerate(&requester) {
			return fmt.Errorf("%w: not the author or a moderator", ErrForbidden)
		}

		if err := tx.Model(&Comment{}).Where("id = ?", commentID).
			Update("status", CommentStatusDeleted).Error; err != nil {
			return err
		}
		if comment.ParentID != nil {
			if err := tx.Model(&Comment{}).Where("id = ?", *comment.ParentID).
				UpdateColumn("replies_count", gorm.Expr(counterDecrExpr("replies_count"))).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr(counterDecrExpr("comments_count"))).Error
	})
}

// LikeComment bumps the like counter. Comment likes are count-only; there
// is no per-user membership list for them.
func (s *Store) LikeComment(commentID int64) error {
	res := s.DB.Model(&Comment{}).
		Where("id = ? AND status <> ?", commentID, CommentStatusDeleted).
		UpdateColumn("likes_count", gorm.Expr("likes_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	return nil
}

func (s *Store) UnlikeComment(commentID int64) error {
	res := s.DB.Model(&Comment{}).
		Where("id = ? AND status <> ?", commentID, CommentStatusDeleted).
		UpdateColumn("likes_count", gorm.Expr(counterDecrExpr("likes_count")))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	return nil
}

// FlagComment marks a comment as reported: a single report soft-hides it
// from listings by moving active → pending until a moderator looks at it.
func (s *Store) FlagComment(commentID int64, reason string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		_, err := flagCommentTx(tx, commentID, reason)
		return err
	})
}

// flagCommentTx runs inside a caller-owned transaction so the flag can
// land atomically with the report it belongs to. Returns the comment
// with the post-flag status.
func flagCommentTx(tx *gorm.DB, commentID int64, reason string) (*Comment, error) {
	if !reportReasons[reason] {
		return nil, fmt.Errorf("%w: unknown report reason %q", ErrInvalidArgument, reason)
	}
	var comment Comment
	if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	if comment.Status == CommentStatusDeleted {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	updates := map[string]any{
		"is_flagged":  true,
		"flag_reason": reason,
	}
	if comment.Status == CommentStatusActive {
		updates["status"] = CommentStatusPending
		comment.Status = CommentStatusPending
	}
	comment.IsFlagged = true
	comment.FlagReason = reason
	if err := tx.Model(&Comment{}).Where("id = ?", commentID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// HideComment is the moderator action taking a comment out of listings
// without deleting it.
func (s *Store) HideComment(commentID int64, moderator *User) error {
	return s.moderateComment(commentID, moderator, CommentStatusHidden)
}

// RestoreComment clears the flag and puts a pending or hidden comment
// back into listings.
func (s *Store) RestoreComment(commentID int64, moderator *User) error {
	return s.moderateComment(commentID, moderator, CommentStatusActive)
}

func (s *Store) moderateComment(commentID int64, moderator *User, target string) error {
	if !CanModerate(moderator) {
		return fmt.Errorf("%w: moderator role required", ErrForbidden)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var comment Comment
		if err := forUpdate(tx).First(&comment, commentID).Error; err != nil {
			return asStoreErr(err)
		}
		if comment.Status == CommentStatusDeleted {
			return fmt.Errorf("%w: comment is deleted", ErrInvalidStateTransition)
		}
		if comment.Status == target {
			return nil
		}
		updates := map[string]any{"status": target}
		if target == CommentStatusActive {
			updates["is_flagged"] = false
			updates["flag_reason"] = ""
		}
		return tx.Model(&Comment{}).Where("id = ?", commentID).Updates(updates).Error
	})
}

// GetComment returns a comment regardless of status; listing endpoints
// filter by status themselves.
func (s *Store) GetComment(commentID int64) (*Comment, error) {
	var comment Comment
	if err := s.DB.First(&comment, commentID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &comment, nil
}

// ListPostComments returns active top-level comments, newest first, with
// the total count for pagination.
func (s *Store) ListPostComments(postID int64, page, perPage int) ([]Comment, int64, error) {
	limit, offset := normalizePage(page, perPage)
	q := s.DB.Model(&Comment{}).
		Where("post_id = ? AND parent_id IS NULL AND status = ?", postID, CommentStatusActive)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []Comment
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&comments).Error
	return comments, total, err
}

// ListReplies returns active direct replies, oldest first.
func (s *Store) ListReplies(parentID int64) ([]Comment, error) {
	var replies []Comment
	err := s.DB.
		Where("parent_id = ? AND status = ?", parentID, CommentStatusActive).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

// ListFlaggedComments feeds the moderation queue.
func (s *Store) ListFlaggedComments(page, perPage int) ([]Comment, int64, error) {
	limit, offset := normalizePage(page, perPage)
	q := s.DB.Model(&Comment{}).Where("status = ?", CommentStatusPending)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []Comment
	err := q.Order("updated_at ASC").Limit(limit).Offset(offset).Find(&comments).Error
	return comments, total, err
}
