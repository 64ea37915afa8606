package app

import (
	"log"
	"time"
)

// startHousekeeping runs the periodic maintenance loop: log rotation,
// cache and rate-limit cleanup, runtime watchdog, and the weekly
// moderation digest.
func startHousekeeping(srv *Server, store *Store, notifier *Notifier) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	var lastDigest, lastVacuum time.Time

	for range ticker.C {
		cleanupRateLimits(36 * time.Hour)
		RotateLogsIfNeeded()
		monitorRuntime()

		if srv != nil && srv.cache != nil {
			if removed := srv.cache.CleanupExpired(); removed > 0 {
				log.Printf("🧹 Cache cleanup: %d expired entries removed", removed)
			}
		}

		now := time.Now()
		if notifier != nil && now.Weekday() == time.Monday && now.Sub(lastDigest) > 24*time.Hour {
			lastDigest = now
			runHeavy("weekly-digest", func() { notifier.SendWeeklyDigest(store) })
		}
		if now.Sub(lastVacuum) > 7*24*time.Hour {
			lastVacuum = now
			runHeavy("db-vacuum", func() {
				if err := store.Vacuum(); err != nil {
					log.Printf("⚠️ VACUUM failed: %v", err)
				}
			})
		}
	}
}

var lastGoroutines int
var lastAliveLog time.Time

func monitorRuntime() {
	gor, alloc, _, sys := runtimeStats()
	if lastGoroutines > 0 && gor > lastGoroutines+300 {
		log.Printf("⚠️ Possible leak: goroutines grew %d -> %d", lastGoroutines, gor)
	}
	if gor > 2000 {
		log.Printf("⚠️ High goroutine count: %d", gor)
	}
	if alloc > 600*1024*1024 {
		log.Printf("⚠️ High memory usage: %s (sys %s)", formatBytes(alloc), formatBytes(sys))
	}
	if lastAliveLog.IsZero() || time.Since(lastAliveLog) > 6*time.Hour {
		uptime := time.Since(appStartedAt)
		log.Printf("💓 Watchdog: uptime %s, goroutines %d, mem %s", formatDuration(uptime), gor, formatBytes(alloc))
		lastAliveLog = time.Now()
	}
	lastGoroutines = gor
}
