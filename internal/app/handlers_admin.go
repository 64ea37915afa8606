package app

import (
	"net/http"
	"time"
)

func (srv *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "platform-stats"
	if cached, ok := srv.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	stats, err := srv.store.PlatformStats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.cache.Set(cacheKey, stats, time.Minute)
	writeJSON(w, http.StatusOK, stats)
}

func (srv *Server) handleAdminActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := srv.activity.Recent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (srv *Server) handleAdminActivityChart(w http.ResponseWriter, r *http.Request) {
	series, err := srv.store.ActivitySeries(queryInt(r, "days", 14))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	png, err := renderActivityChart(series)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ==========================================
// REPORT QUEUE
// ==========================================

func (srv *Server) handleAdminListReports(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	reports, total, err := srv.store.ListReports(r.URL.Query().Get("status"), page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: reports, Total: total, Page: page, PerPage: perPage})
}

func (srv *Server) handleAdminGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	report, err := srv.store.GetReport(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	target, err := srv.store.ResolveReportTarget(report)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report": report,
		"target": target, // nil when the target was deleted after filing
	})
}

func (srv *Server) handleAdminReviewReport(w http.ResponseWriter, r *http.Request) {
	admin, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.StartReview(id, admin.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(admin.ID, "review_report", "report", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"status": ReportStatusReviewing})
}

func (srv *Server) handleAdminResolveReport(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminCloseReport(w, r, ReportStatusResolved)
}

func (srv *Server) handleAdminDismissReport(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminCloseReport(w, r, ReportStatusDismissed)
}

func (srv *Server) handleAdminCloseReport(w http.ResponseWriter, r *http.Request, status string) {
	admin, err := srv.currentUser(r)
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
		Notes string `json:"notes"`
	}
	_ = decodeJSONBody(r, &body) // notes are optional

	if status == ReportStatusResolved {
		err = srv.store.ResolveReport(id, admin.ID, body.Notes)
	} else {
		err = srv.store.DismissReport(id, admin.ID, body.Notes)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(admin.ID, "close_report", "report", id, status)
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

// ==========================================
// COMMENT MODERATION
// ==========================================

func (srv *Server) handleAdminFlaggedComments(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	comments, total, err := srv.store.ListFlaggedComments(page, perPage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: comments, Total: total, Page: page, PerPage: perPage})
}

func (srv *Server) handleAdminHideComment(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminModerateComment(w, r, true)
}

func (srv *Server) handleAdminRestoreComment(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminModerateComment(w, r, false)
}

func (srv *Server) handleAdminModerateComment(w http.ResponseWriter, r *http.Request, hide bool) {
	moderator, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if hide {
		err = srv.store.HideComment(id, moderator)
	} else {
		err = srv.store.RestoreComment(id, moderator)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	action := "restore_comment"
	if hide {
		action = "hide_comment"
	}
	srv.logActivity(moderator.ID, action, "comment", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"hidden": hide})
}

// ==========================================
// USER MANAGEMENT
// ==========================================

func (srv *Server) handleAdminBanUser(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminSetActive(w, r, false)
}

func (srv *Server) handleAdminUnbanUser(w http.ResponseWriter, r *http.Request) {
	srv.handleAdminSetActive(w, r, true)
}

func (srv *Server) handleAdminSetActive(w http.ResponseWriter, r *http.Request, active bool) {
	admin, err := srv.currentUser(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.SetUserActive(admin, id, active); err != nil {
		writeServiceError(w, err)
		return
	}
	action := "unban_user"
	if !active {
		action = "ban_user"
	}
	srv.logActivity(admin.ID, action, "user", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"is_active": active})
}

func (srv *Server) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	admin, err := srv.currentUser(r)
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
		Role string `json:"role"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := srv.store.SetUserRole(admin, id, body.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	srv.logActivity(admin.ID, "set_role", "user", id, body.Role)
	writeJSON(w, http.StatusOK, map[string]any{"role": body.Role})
}
