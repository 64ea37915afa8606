package app

import "testing"

func TestCanViewPost(t *testing.T) {
	author := &User{ID: 1, Role: RoleUser, IsActive: true}
	stranger := &User{ID: 2, Role: RoleUser, IsActive: true}
	moderator := &User{ID: 3, Role: RoleModerator, IsActive: true}
	editor := &User{ID: 4, Role: RoleEditor, IsActive: true}
	banned := &User{ID: 1, Role: RoleUser, IsActive: false}

	published := &Post{ID: 10, AuthorID: 1, Status: PostStatusPublished}
	draft := &Post{ID: 11, AuthorID: 1, Status: PostStatusDraft}
	archived := &Post{ID: 12, AuthorID: 1, Status: PostStatusArchived}

	cases := []struct {
		name   string
		viewer *User
		post   *Post
		want   bool
	}{
		{"anonymous sees published", nil, published, true},
		{"anonymous blocked from draft", nil, draft, false},
		{"stranger blocked from draft", stranger, draft, false},
		{"author sees own draft", author, draft, true},
		{"moderator sees draft", moderator, draft, true},
		{"editor sees draft", editor, draft, true},
		{"author sees own archived", author, archived, true},
		{"stranger blocked from archived", stranger, archived, false},
		{"banned author blocked", banned, draft, false},
	}
	for _, c := range cases {
		if got := CanViewPost(c.viewer, c.post); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCanViewComment(t *testing.T) {
	author := &User{ID: 1, Role: RoleUser, IsActive: true}
	stranger := &User{ID: 2, Role: RoleUser, IsActive: true}
	moderator := &User{ID: 3, Role: RoleModerator, IsActive: true}

	cases := []struct {
		name    string
		viewer  *User
		comment *Comment
		want    bool
	}{
		{"anyone sees active", nil, &Comment{AuthorID: 1, Status: CommentStatusActive}, true},
		{"anonymous blocked from pending", nil, &Comment{AuthorID: 1, Status: CommentStatusPending}, false},
		{"author sees own pending", author, &Comment{AuthorID: 1, Status: CommentStatusPending}, true},
		{"moderator sees pending", moderator, &Comment{AuthorID: 1, Status: CommentStatusPending}, true},
		{"stranger blocked from hidden", stranger, &Comment{AuthorID: 1, Status: CommentStatusHidden}, false},
		{"deleted invisible to author", author, &Comment{AuthorID: 1, Status: CommentStatusDeleted}, false},
		{"deleted invisible to moderator", moderator, &Comment{AuthorID: 1, Status: CommentStatusDeleted}, false},
	}
	for _, c := range cases {
		if got := CanViewComment(c.viewer, c.comment); got != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role string
		perm Permission
		want bool
	}{
		{RoleAdmin, PermManageUsers, true},
		{RoleAdmin, PermSellTours, true},
		{RoleModerator, PermModerateContent, true},
		{RoleModerator, PermManageUsers, false},
		{RoleEditor, PermEditAnyPost, true},
		{RoleEditor, PermModerateContent, false},
		{RoleSeller, PermSellTours, true},
		{RoleUser, PermSellTours, false},
	}
	for _, c := range cases {
		u := &User{ID: 1, Role: c.role, IsActive: true}
		if got := HasPermission(u, c.perm); got != c.want {
			t.Fatalf("%s/%s: got %v, want %v", c.role, c.perm, got, c.want)
		}
	}

	if HasPermission(nil, PermSellTours) {
		t.Fatalf("nil user must hold no permissions")
	}
	if HasPermission(&User{Role: RoleAdmin, IsActive: false}, PermManageUsers) {
		t.Fatalf("inactive admin must hold no permissions")
	}
}
