package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirConfigs = "configs"
	dirStorage = "storage"
	dirDB      = "storage/db"
	dirBackups = "storage/backups"
	dirTmp     = "storage/tmp"
	dirUploads = "uploads"
	dirLogs    = "logs"
)

var (
	configFilePath = filepath.Join(dirConfigs, "config.json")

	dbFilePath       = filepath.Join(dirDB, "viego.db")
	dbSHMFilePath    = dbFilePath + "-shm"
	dbWALFilePath    = dbFilePath + "-wal"
	dbBackupFilePath = filepath.Join(dirBackups, "viego_backup_auto.db")

	logFilePath = filepath.Join(dirLogs, "server.log")
	errLogPath  = filepath.Join(dirLogs, "errors.log")
)

func initAppLayout() {
	dirs := []string{dirConfigs, dirStorage, dirDB, dirBackups, dirTmp, dirUploads, dirLogs}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("⚠️ Failed to create directory %s: %v\n", dir, err)
		}
	}

	migrateLegacyFile("config.json", configFilePath)

	migrateLegacyFile("viego.db", dbFilePath)
	migrateLegacyFile("viego.db-shm", dbSHMFilePath)
	migrateLegacyFile("viego.db-wal", dbWALFilePath)
	migrateLegacyFile("viego_backup_auto.db", dbBackupFilePath)

	migrateLegacyFile("server.log", logFilePath)
	migrateLegacyFile("errors.log", errLogPath)
	migrateLegacyLogFiles()
}

func migrateLegacyLogFiles() {
	patterns := []string{
		"server-*.log",
		"server-*.log.gz",
		"errors-*.log",
		"errors-*.log.gz",
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, oldPath := range matches {
			target := filepath.Join(dirLogs, filepath.Base(oldPath))
			migrateLegacyFile(oldPath, target)
		}
	}
}

func migrateLegacyFile(oldPath, newPath string) {
	info, err := os.Stat(oldPath)
	if err != nil || info.IsDir() {
		return
	}
	if _, err := os.Stat(newPath); err == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		fmt.Printf("⚠️ Failed to create directory for %s: %v\n", newPath, err)
		return
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		fmt.Printf("⚠️ Failed to move %s -> %s: %v\n", oldPath, newPath, err)
	}
}
