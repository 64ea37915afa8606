package app

import (
	"errors"
	"testing"
)

func TestCreateCommentAndCounters(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)
	commenter := seedUser(t, s, RoleUser)

	before, _ := s.GetUser(commenter.ID)
	comment, err := s.CreateComment(post.ID, commenter.ID, "Tuyệt vời!", nil, "vi")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if comment.Level != 0 {
		t.Fatalf("top-level comment level = %d, want 0", comment.Level)
	}

	gotPost, _ := s.GetPost(post.ID)
	if gotPost.CommentsCount != 1 {
		t.Fatalf("comments_count = %d, want 1", gotPost.CommentsCount)
	}
	after, _ := s.GetUser(commenter.ID)
	if after.Points != before.Points+PointsCreateComment {
		t.Fatalf("comment points: %d -> %d, want +%d", before.Points, after.Points, PointsCreateComment)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)

	if _, err := s.CreateComment(post.ID, author.ID, "   ", nil, "vi"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank content: got %v, want ErrInvalidArgument", err)
	}
	if _, err := s.CreateComment(123456, author.ID, "hello", nil, "vi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing post: got %v, want ErrNotFound", err)
	}

	draft, err := s.CreatePost(author.ID, PostInput{Title: "draft post", Content: "not yet public"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := s.CreateComment(draft.ID, author.ID, "early", nil, "vi"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("comment on draft: got %v, want ErrInvalidArgument", err)
	}
}

func TestReplyDepthLimit(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)

	parent, err := s.CreateComment(post.ID, author.ID, "level 0", nil, "vi")
	if err != nil {
		t.Fatalf("level 0: %v", err)
	}
	// Walk the chain down to the maximum level.
	for level := 1; level <= s.MaxCommentDepth; level++ {
		reply, err := s.CreateComment(post.ID, author.ID, "reply", &parent.ID, "vi")
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if reply.Level != level {
			t.Fatalf("reply level = %d, want %d", reply.Level, level)
		}
		parent = reply
	}

	// parent now sits at MaxCommentDepth; one more reply must fail.
	if _, err := s.CreateComment(post.ID, author.ID, "too deep", &parent.ID, "vi"); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("got %v, want ErrDepthExceeded", err)
	}
}

func TestReplyToForeignPostRejected(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	postA := seedPublishedPost(t, s, author.ID)
	postB := seedPublishedPost(t, s, author.ID)

	parent, err := s.CreateComment(postA.ID, author.ID, "on A", nil, "vi")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := s.CreateComment(postB.ID, author.ID, "crossed", &parent.ID, "vi"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestSoftDeleteComment(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)

	parent, _ := s.CreateComment(post.ID, author.ID, "parent", nil, "vi")
	reply, err := s.CreateComment(post.ID, author.ID, "child", &parent.ID, "vi")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}

	if err := s.SoftDeleteComment(reply.ID, author.ID); err != nil {
		t.Fatalf("SoftDeleteComment: %v", err)
	}

	gotReply, _ := s.GetComment(reply.ID)
	if gotReply.Status != CommentStatusDeleted {
		t.Fatalf("status = %q, want deleted", gotReply.Status)
	}
	gotParent, _ := s.GetComment(parent.ID)
	if gotParent.RepliesCount != 0 {
		t.Fatalf("replies_count = %d, want 0", gotParent.RepliesCount)
	}
	gotPost, _ := s.GetPost(post.ID)
	if gotPost.CommentsCount != 1 {
		t.Fatalf("comments_count = %d, want 1", gotPost.CommentsCount)
	}

	// Double delete: no-op, counters untouched.
	if err := s.SoftDeleteComment(reply.ID, author.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	gotPost, _ = s.GetPost(post.ID)
	if gotPost.CommentsCount != 1 {
		t.Fatalf("comments_count after double delete = %d, want 1", gotPost.CommentsCount)
	}
	gotParent, _ = s.GetComment(parent.ID)
	if gotParent.RepliesCount != 0 {
		t.Fatalf("replies_count went negative or moved: %d", gotParent.RepliesCount)
	}
}

func TestSoftDeleteCommentPermissions(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	stranger := seedUser(t, s, RoleUser)
	moderator := seedUser(t, s, RoleModerator)
	post := seedPublishedPost(t, s, author.ID)

	comment, _ := s.CreateComment(post.ID, author.ID, "mine", nil, "vi")

	if err := s.SoftDeleteComment(comment.ID, stranger.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger delete: got %v, want ErrForbidden", err)
	}
	if err := s.SoftDeleteComment(comment.ID, moderator.ID); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	moderator := seedUser(t, s, RoleModerator)
	post := seedPublishedPost(t, s, author.ID)

	comment, _ := s.CreateComment(post.ID, author.ID, "original", nil, "vi")

	if _, err := s.UpdateComment(comment.ID, moderator.ID, "edited by mod"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("moderator edit: got %v, want ErrForbidden", err)
	}
	updated, err := s.UpdateComment(comment.ID, author.ID, "fixed typo")
	if err != nil {
		t.Fatalf("author edit: %v", err)
	}
	if !updated.IsEdited || updated.Content != "fixed typo" {
		t.Fatalf("edit not applied: %+v", updated)
	}
}

func TestCommentLikeCounterFloor(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)
	comment, _ := s.CreateComment(post.ID, author.ID, "likeable", nil, "vi")

	if err := s.UnlikeComment(comment.ID); err != nil {
		t.Fatalf("UnlikeComment on zero: %v", err)
	}
	got, _ := s.GetComment(comment.ID)
	if got.LikesCount != 0 {
		t.Fatalf("likes_count = %d, want floor at 0", got.LikesCount)
	}

	_ = s.LikeComment(comment.ID)
	_ = s.LikeComment(comment.ID)
	_ = s.UnlikeComment(comment.ID)
	got, _ = s.GetComment(comment.ID)
	if got.LikesCount != 1 {
		t.Fatalf("likes_count = %d, want 1", got.LikesCount)
	}
}

func TestFlagAndModerateComment(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	moderator := seedUser(t, s, RoleModerator)
	post := seedPublishedPost(t, s, author.ID)
	comment, _ := s.CreateComment(post.ID, author.ID, "sketchy", nil, "vi")

	if err := s.FlagComment(comment.ID, "nonsense-reason"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad reason: got %v, want ErrInvalidArgument", err)
	}
	if err := s.FlagComment(comment.ID, "spam"); err != nil {
		t.Fatalf("FlagComment: %v", err)
	}
	got, _ := s.GetComment(comment.ID)
	if got.Status != CommentStatusPending || !got.IsFlagged {
		t.Fatalf("after flag: status=%q flagged=%v", got.Status, got.IsFlagged)
	}

	// A flagged comment leaves the public listing.
	visible, _, err := s.ListPostComments(post.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListPostComments: %v", err)
	}
	for _, c := range visible {
		if c.ID == comment.ID {
			t.Fatalf("pending comment still listed")
		}
	}

	if err := s.RestoreComment(comment.ID, moderator); err != nil {
		t.Fatalf("RestoreComment: %v", err)
	}
	got, _ = s.GetComment(comment.ID)
	if got.Status != CommentStatusActive || got.IsFlagged {
		t.Fatalf("after restore: status=%q flagged=%v", got.Status, got.IsFlagged)
	}

	if err := s.HideComment(comment.ID, moderator); err != nil {
		t.Fatalf("HideComment: %v", err)
	}

	// Terminal state: moderation on a deleted comment must fail.
	if err := s.SoftDeleteComment(comment.ID, moderator.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.RestoreComment(comment.ID, moderator); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("restore deleted: got %v, want ErrInvalidStateTransition", err)
	}
}

func TestModerationRequiresRole(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)
	comment, _ := s.CreateComment(post.ID, author.ID, "fine", nil, "vi")

	if err := s.HideComment(comment.ID, author); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestListRepliesExcludesDeleted(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)
	parent, _ := s.CreateComment(post.ID, author.ID, "thread", nil, "vi")

	first, _ := s.CreateComment(post.ID, author.ID, "first", &parent.ID, "vi")
	second, _ := s.CreateComment(post.ID, author.ID, "second", &parent.ID, "vi")
	if err := s.SoftDeleteComment(first.ID, author.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	replies, err := s.ListReplies(parent.ID)
	if err != nil {
		t.Fatalf("ListReplies: %v", err)
	}
	if len(replies) != 1 || replies[0].ID != second.ID {
		t.Fatalf("replies = %+v, want only the surviving one", replies)
	}
}
