package app

type Permission string

const (
	PermModerateContent Permission = "moderate_content"
	PermViewReports     Permission = "view_reports"
	PermResolveReports  Permission = "resolve_reports"
	PermManageUsers     Permission = "manage_users"
	PermEditAnyPost     Permission = "edit_any_post"
	PermSellTours       Permission = "sell_tours"
	PermViewDashboard   Permission = "view_dashboard"
)

var rolePermissions = map[string]map[Permission]bool{
	RoleModerator: {
		PermModerateContent: true,
		PermViewReports:     true,
		PermResolveReports:  true,
		PermViewDashboard:   true,
	},
	RoleEditor: {
		PermEditAnyPost:   true,
		PermViewDashboard: true,
	},
	RoleSeller: {
		PermSellTours: true,
	},
}

// HasPermission is the role check. Admins hold every permission.
func HasPermission(u *User, perm Permission) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.Role == RoleAdmin {
		return true
	}
	if perms, ok := rolePermissions[u.Role]; ok {
		return perms[perm]
	}
	return false
}

// The visibility functions below are pure: they read only their arguments
// and never touch the database, so handlers and tests call them freely.

func CanModerate(u *User) bool {
	return HasPermission(u, PermModerateContent)
}

// CanEditPost: the author, editors, moderators and admins.
func CanEditPost(u *User, p *Post) bool {
	if u == nil || p == nil || !u.IsActive {
		return false
	}
	return u.ID == p.AuthorID || HasPermission(u, PermEditAnyPost) || CanModerate(u)
}

// CanViewPost: published posts are public (viewer may be nil); drafts and
// archived posts are visible only to whoever could edit them.
func CanViewPost(u *User, p *Post) bool {
	if p == nil {
		return false
	}
	if p.Status == PostStatusPublished {
		return true
	}
	return CanEditPost(u, p) || CanModerate(u)
}

// CanViewComment: active comments are public; pending and hidden ones are
// visible to the author and moderators; deleted ones to nobody.
func CanViewComment(u *User, c *Comment) bool {
	if c == nil {
		return false
	}
	switch c.Status {
	case CommentStatusActive:
		return true
	case CommentStatusPending, CommentStatusHidden:
		return u != nil && (u.ID == c.AuthorID || CanModerate(u))
	default:
		return false
	}
}

// CanManageBooking: the tour seller and admins move booking status.
func CanManageBooking(u *User, t *Tour) bool {
	if u == nil || t == nil || !u.IsActive {
		return false
	}
	return u.ID == t.SellerID || u.Role == RoleAdmin
}
