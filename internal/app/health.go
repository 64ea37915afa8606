package app

import (
	"net/http"
	"time"
)

type healthInfo struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	Alloc      string `json:"alloc"`
	Sys        string `json:"sys"`
	Database   string `json:"database"`
	Time       string `json:"time"`
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gor, alloc, _, sys := runtimeStats()

	dbStatus := "ok"
	if sqlDB, err := srv.store.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	info := healthInfo{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(appStartedAt)),
		Goroutines: gor,
		Alloc:      formatBytes(alloc),
		Sys:        formatBytes(sys),
		Database:   dbStatus,
		Time:       time.Now().Format(time.RFC3339),
	}
	if dbStatus != "ok" {
		info.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, info)
}
