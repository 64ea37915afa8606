package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Server wires the store, cache and side channels into the HTTP API.
type Server struct {
	store    *Store
	cache    *TTLCache
	notifier *Notifier
	activity ActivitySink

	httpServer *http.Server
}

func NewServer(store *Store, notifier *Notifier, activity ActivitySink) *Server {
	return &Server{
		store:    store,
		cache:    NewTTLCache(),
		notifier: notifier,
		activity: activity,
	}
}

func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", srv.handleHealth)

	// Accounts.
	mux.HandleFunc("POST /api/auth/register", srv.handleRegister)
	mux.HandleFunc("POST /api/auth/login", srv.handleLogin)
	mux.HandleFunc("GET /api/me", srv.requireAuth(srv.handleGetMe))
	mux.HandleFunc("PUT /api/me", srv.requireAuth(srv.handleUpdateMe))
	mux.HandleFunc("POST /api/me/checkin", srv.requireAuth(srv.handleCheckIn))
	mux.HandleFunc("GET /api/users/{id}", srv.handleGetUser)
	mux.HandleFunc("POST /api/users/{id}/follow", srv.requireAuth(srv.handleFollow))
	mux.HandleFunc("DELETE /api/users/{id}/follow", srv.requireAuth(srv.handleUnfollow))
	mux.HandleFunc("GET /api/leaderboard", srv.handleLeaderboard)

	// Posts.
	mux.HandleFunc("GET /api/posts", srv.optionalAuth(srv.handleListPosts))
	mux.HandleFunc("POST /api/posts", srv.requireAuth(srv.handleCreatePost))
	mux.HandleFunc("GET /api/posts/featured", srv.handleFeaturedPosts)
	mux.HandleFunc("GET /api/posts/top", srv.handleTopPosts)
	mux.HandleFunc("GET /api/posts/nearby", srv.handleNearbyPosts)
	mux.HandleFunc("GET /api/posts/slug/{slug}", srv.optionalAuth(srv.handleGetPostBySlug))
	mux.HandleFunc("GET /api/posts/{id}", srv.optionalAuth(srv.handleGetPost))
	mux.HandleFunc("PUT /api/posts/{id}", srv.requireAuth(srv.handleUpdatePost))
	mux.HandleFunc("DELETE /api/posts/{id}", srv.requireAuth(srv.handleArchivePost))
	mux.HandleFunc("POST /api/posts/{id}/publish", srv.requireAuth(srv.handlePublishPost))
	mux.HandleFunc("POST /api/posts/{id}/like", srv.requireAuth(srv.handleToggleLike))
	mux.HandleFunc("POST /api/posts/{id}/bookmark", srv.requireAuth(srv.handleToggleBookmark))
	mux.HandleFunc("POST /api/posts/{id}/share", srv.handleSharePost)

	// Comments.
	mux.HandleFunc("GET /api/posts/{id}/comments", srv.handleListComments)
	mux.HandleFunc("POST /api/posts/{id}/comments", srv.requireAuth(srv.handleCreateComment))
	mux.HandleFunc("GET /api/comments/{id}/replies", srv.handleListReplies)
	mux.HandleFunc("PUT /api/comments/{id}", srv.requireAuth(srv.handleUpdateComment))
	mux.HandleFunc("DELETE /api/comments/{id}", srv.requireAuth(srv.handleDeleteComment))
	mux.HandleFunc("POST /api/comments/{id}/like", srv.requireAuth(srv.handleLikeComment))
	mux.HandleFunc("POST /api/comments/{id}/unlike", srv.requireAuth(srv.handleUnlikeComment))
	mux.HandleFunc("POST /api/comments/{id}/report", srv.requireAuth(srv.handleReportComment))

	// Reports.
	mux.HandleFunc("POST /api/reports", srv.requireAuth(srv.handleFileReport))

	// Tours and bookings.
	mux.HandleFunc("GET /api/tours", srv.handleListTours)
	mux.HandleFunc("POST /api/tours", srv.requireAuth(srv.handleCreateTour))
	mux.HandleFunc("GET /api/tours/{id}", srv.handleGetTour)
	mux.HandleFunc("GET /api/bookings", srv.requireAuth(srv.handleListBookings))
	mux.HandleFunc("POST /api/bookings", srv.requireAuth(srv.handleCreateBooking))
	mux.HandleFunc("PUT /api/bookings/{id}/status", srv.requireAuth(srv.handleUpdateBookingStatus))

	// NFT badges.
	mux.HandleFunc("GET /api/nfts", srv.requireAuth(srv.handleListNFTs))
	mux.HandleFunc("POST /api/nfts/mint", srv.requireAuth(srv.handleMintNFT))

	// Admin.
	mux.HandleFunc("GET /api/admin/stats", srv.requirePermission(PermViewDashboard, srv.handleAdminStats))
	mux.HandleFunc("GET /api/admin/activity", srv.requirePermission(PermViewDashboard, srv.handleAdminActivity))
	mux.HandleFunc("GET /api/admin/activity.png", srv.requirePermission(PermViewDashboard, srv.handleAdminActivityChart))
	mux.HandleFunc("GET /api/admin/reports", srv.requirePermission(PermViewReports, srv.handleAdminListReports))
	mux.HandleFunc("GET /api/admin/reports/{id}", srv.requirePermission(PermViewReports, srv.handleAdminGetReport))
	mux.HandleFunc("POST /api/admin/reports/{id}/review", srv.requirePermission(PermResolveReports, srv.handleAdminReviewReport))
	mux.HandleFunc("POST /api/admin/reports/{id}/resolve", srv.requirePermission(PermResolveReports, srv.handleAdminResolveReport))
	mux.HandleFunc("POST /api/admin/reports/{id}/dismiss", srv.requirePermission(PermResolveReports, srv.handleAdminDismissReport))
	mux.HandleFunc("GET /api/admin/comments/flagged", srv.requirePermission(PermModerateContent, srv.handleAdminFlaggedComments))
	mux.HandleFunc("POST /api/admin/comments/{id}/hide", srv.requirePermission(PermModerateContent, srv.handleAdminHideComment))
	mux.HandleFunc("POST /api/admin/comments/{id}/restore", srv.requirePermission(PermModerateContent, srv.handleAdminRestoreComment))
	mux.HandleFunc("POST /api/admin/users/{id}/ban", srv.requirePermission(PermManageUsers, srv.handleAdminBanUser))
	mux.HandleFunc("POST /api/admin/users/{id}/unban", srv.requirePermission(PermManageUsers, srv.handleAdminUnbanUser))
	mux.HandleFunc("POST /api/admin/users/{id}/role", srv.requirePermission(PermManageUsers, srv.handleAdminSetRole))

	return srv.withRateLimit(mux)
}

func (srv *Server) Start(addr string) {
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("✅ HTTP API listening on %s", addr)
	if err := srv.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("❌ HTTP server failed: %v", err)
	}
}

func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.httpServer == nil {
		return nil
	}
	return srv.httpServer.Shutdown(ctx)
}

// ==========================================
// RESPONSE HELPERS
// ==========================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": message,
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, httpStatusFor(err), err.Error())
}

func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrDepthExceeded):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidStateTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSONBody(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body", ErrInvalidArgument)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id in path", ErrInvalidArgument)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return def
	}
	return v
}

type pagedResponse struct {
	Items   any   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}
