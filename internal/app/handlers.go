package app

import (
	"net/http"
	"strings"
	"time"
)

// ==========================================
// ACCOUNTS
// ==========================================

func (srv *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, err := srv.store.Register(body.Username, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := generateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	srv.logActivity(user.ID, "register", "user", user.ID, user.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "token": token})
}

func (srv *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	user, err := srv.store.Authenticate(body.Login, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := generateJWT(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

func (srv *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (srv *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in ProfileInput
	if err := decodeJSONBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	updated, err := srv.store.UpdateProfile(user.ID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (srv *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	awarded, err := srv.store.CheckIn(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "check_in", "user", user.ID, "")
	writeJSON(w, http.StatusOK, map[string]any{"points_awarded": awarded})
}

func (srv *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	user, err := srv.store.GetUser(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Public profile view: no email, no embedded lists beyond counts.
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"username":   user.Username,
		"full_name":  user.FullName,
		"bio":        user.Bio,
		"avatar_url": user.AvatarURL,
		"location":   user.Location,
		"points":     user.Points,
		"level":      user.Level,
		"badges":     user.Badges,
		"followers":  user.FollowerCount(),
		"following":  user.FollowingCount(),
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
	})
}

func (srv *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	srv.handleFollowEdge(w, r, true)
}

func (srv *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	srv.handleFollowEdge(w, r, false)
}

func (srv *Server) handleFollowEdge(w http.ResponseWriter, r *http.Request, follow bool) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	targetID, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if follow {
		err = srv.store.Follow(user.ID, targetID)
	} else {
		err = srv.store.Unfollow(user.ID, targetID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"following": follow})
}

func (srv *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "leaderboard"
	if cached, ok := srv.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	users, err := srv.store.UserLeaderboard(queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	board := make([]map[string]any, 0, len(users))
	for _, u := range users {
		board = append(board, map[string]any{
			"id":       u.ID,
			"username": u.Username,
			"points":   u.Points,
			"level":    u.Level,
			"badges":   u.Badges,
		})
	}
	srv.cache.Set(cacheKey, board, 2*time.Minute)
	writeJSON(w, http.StatusOK, board)
}

// ==========================================
// POSTS
// ==========================================

func (srv *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := PostFilter{
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		AuthorID: int64(queryInt(r, "author_id", 0)),
		Search:   q.Get("search"),
	}
	// Non-published listings are reserved for the author and staff.
	if status := q.Get("status"); status != "" && status != PostStatusPublished {
		viewer := srv.viewerOrNil(r)
		if viewer == nil {
			writeError(w, http.StatusForbidden, "published posts only")
			return
		}
		if !CanModerate(viewer) && !HasPermission(viewer, PermEditAnyPost) {
			filter.AuthorID = viewer.ID
		}
		filter.Status = status
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	posts, total, err := srv.store.ListPosts(filter, page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: posts, Total: total, Page: page, PerPage: perPage})
}

func (srv *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in PostInput
	if err := decodeJSONBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	post, err := srv.store.CreatePost(user.ID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.cache.Delete("featured-posts")
	srv.logActivity(user.ID, "create_post", "post", post.ID, post.Slug)
	writeJSON(w, http.StatusCreated, post)
}

func (srv *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	post, err := srv.store.GetPost(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.servePost(w, r, post)
}

func (srv *Server) handleGetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	post, err := srv.store.GetPostBySlug(slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.servePost(w, r, post)
}

func (srv *Server) servePost(w http.ResponseWriter, r *http.Request, post *Post) {
	viewer := srv.viewerOrNil(r)
	if !CanViewPost(viewer, post) {
		// A draft another user cannot see does not exist for them.
		writeError(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	if post.Status == PostStatusPublished {
		if err := srv.store.IncrementPostViews(post.ID); err == nil {
			post.ViewsCount++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"post":             post,
		"engagement_score": EngagementScore(post),
	})
}

func (srv *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in PostInput
	if err := decodeJSONBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	post, err := srv.store.UpdatePost(user, id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.cache.Delete("featured-posts")
	writeJSON(w, http.StatusOK, post)
}

func (srv *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	post, err := srv.store.PublishPost(user, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "publish_post", "post", post.ID, post.Slug)
	writeJSON(w, http.StatusOK, post)
}

func (srv *Server) handleArchivePost(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.ArchivePost(user, id); err != nil {
		writeServiceError(w, err)
		return
	}
	srv.cache.Delete("featured-posts")
	srv.logActivity(user.ID, "archive_post", "post", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"archived": true})
}

func (srv *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	liked, err := srv.store.ToggleLike(user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": liked})
}

func (srv *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	bookmarked, err := srv.store.ToggleBookmark(user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarked": bookmarked})
}

func (srv *Server) handleSharePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.SharePost(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shared": true})
}

func (srv *Server) handleFeaturedPosts(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "featured-posts"
	if cached, ok := srv.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	posts, err := srv.store.FeaturedPosts(queryInt(r, "limit", 6))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.cache.Set(cacheKey, posts, 5*time.Minute)
	writeJSON(w, http.StatusOK, posts)
}

func (srv *Server) handleTopPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := srv.store.TopPostsByEngagement(queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	type scored struct {
		Post  Post    `json:"post"`
		Score float64 `json:"engagement_score"`
	}
	out := make([]scored, 0, len(posts))
	for _, p := range posts {
		out = append(out, scored{Post: p, Score: EngagementScore(&p)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (srv *Server) handleNearbyPosts(w http.ResponseWriter, r *http.Request) {
	lat := queryFloat(r, "lat", 0)
	lng := queryFloat(r, "lng", 0)
	if lat == 0 && lng == 0 {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	nearby, err := srv.store.NearbyPosts(lat, lng, queryFloat(r, "radius_km", 50), queryInt(r, "limit", 20))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nearby)
}

// ==========================================
// COMMENTS
// ==========================================

func (srv *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	comments, total, err := srv.store.ListPostComments(postID, page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: comments, Total: total, Page: page, PerPage: perPage})
}

func (srv *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	postID, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		Content  string `json:"content"`
		ParentID *int64 `json:"parent_id"`
		Language string `json:"language"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	comment, err := srv.store.CreateComment(postID, user.ID, body.Content, body.ParentID, body.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "create_comment", "comment", comment.ID, "")
	writeJSON(w, http.StatusCreated, comment)
}

func (srv *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	parentID, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	replies, err := srv.store.ListReplies(parentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

func (srv *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	comment, err := srv.store.UpdateComment(id, user.ID, body.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (srv *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.SoftDeleteComment(id, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "delete_comment", "comment", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (srv *Server) handleLikeComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.LikeComment(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": true})
}

func (srv *Server) handleUnlikeComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.UnlikeComment(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"liked": false})
}

// handleReportComment flags the comment and files a report in the
// moderation queue, then pings the admin chat.
func (srv *Server) handleReportComment(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		Reason      string `json:"reason"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}

	report, comment, err := srv.store.ReportComment(user.ID, id, body.Reason, body.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.notifier.NotifyFlaggedComment(comment, body.Reason)
	srv.logActivity(user.ID, "report_comment", "comment", id, body.Reason)
	writeJSON(w, http.StatusCreated, report)
}

// ==========================================
// REPORTS
// ==========================================

func (srv *Server) handleFileReport(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		TargetType  string `json:"target_type"`
		TargetID    int64  `json:"target_id"`
		Reason      string `json:"reason"`
		Description string `json:"description"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	report, err := srv.store.FileReport(user.ID, body.TargetType, body.TargetID, body.Reason, body.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.notifier.NotifyReport(report)
	srv.logActivity(user.ID, "file_report", body.TargetType, body.TargetID, body.Reason)
	writeJSON(w, http.StatusCreated, report)
}

// ==========================================
// TOURS AND BOOKINGS
// ==========================================

func (srv *Server) handleListTours(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	tours, total, err := srv.store.ListTours(r.URL.Query().Get("category"), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: tours, Total: total, Page: page, PerPage: perPage})
}

func (srv *Server) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in TourInput
	if err := decodeJSONBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	tour, err := srv.store.CreateTour(user, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "create_tour", "tour", tour.ID, tour.Slug)
	writeJSON(w, http.StatusCreated, tour)
}

func (srv *Server) handleGetTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tour, err := srv.store.GetTour(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

func (srv *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var bookings []Booking
	if r.URL.Query().Get("as") == "seller" {
		bookings, err = srv.store.ListSellerBookings(user.ID)
	} else {
		bookings, err = srv.store.ListUserBookings(user.ID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (srv *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in BookingInput
	if err := decodeJSONBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	booking, err := srv.store.CreateBooking(user.ID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "create_booking", "tour", booking.TourID, "")
	writeJSON(w, http.StatusCreated, booking)
}

func (srv *Server) handleUpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.UpdateBookingStatus(user, id, body.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": body.Status})
}

// ==========================================
// NFT BADGES
// ==========================================

func (srv *Server) handleListNFTs(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	nfts, err := srv.store.ListUserNFTs(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nfts)
}

func (srv *Server) handleMintNFT(w http.ResponseWriter, r *http.Request) {
	user, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var body struct {
		BadgeType  string `json:"badge_type"`
		BadgeLevel string `json:"badge_level"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	nft, err := srv.store.MintNFT(user.ID, body.BadgeType, body.BadgeLevel)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(user.ID, "mint_nft", "nft", nft.ID, nft.BadgeType+"_"+nft.BadgeLevel)
	writeJSON(w, http.StatusCreated, nft)
}
