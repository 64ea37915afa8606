package app

import (
	"compress/gzip"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	logMaxSizeMB  = 10
	logMaxBackups = 10
)

// logSink is one log file with its rotation state. Two sinks exist: the
// main server log and the error tee.
type logSink struct {
	path   string
	prefix string
	file   *os.File
}

var (
	logMu        sync.Mutex
	mainSink     = &logSink{prefix: "server"}
	errSink      = &logSink{prefix: "errors"}
	appStartedAt time.Time
)

func InitLogger() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.SetPrefix("VIEGO ")

	logMu.Lock()
	defer logMu.Unlock()

	mainSink.path = logFilePath
	errSink.path = errLogPath
	if mainSink.file != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		log.Printf("⚠️ Failed to create log directory: %v", err)
	}
	mainSink.rotateIfStale()
	errSink.rotateIfStale()
	if mainSink.file == nil {
		if err := mainSink.open(); err != nil {
			log.Printf("⚠️ Failed to open %s: %v", mainSink.path, err)
			return
		}
	}
	if errSink.file == nil {
		if err := errSink.open(); err != nil {
			log.Printf("⚠️ Failed to open %s: %v", errSink.path, err)
		}
	}
	log.SetOutput(teeWriter())
}

func CloseLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	mainSink.close()
	errSink.close()
}

func markStart() {
	appStartedAt = time.Now()
}

// safeGo launches fn on a goroutine that logs panics instead of crashing
// the process.
func safeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("💥 PANIC [%s]: %v\n%s", name, r, string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// RotateLogsIfNeeded is called from housekeeping; rotation also happens
// once on boot so a restart never appends to yesterday's file.
func RotateLogsIfNeeded() {
	logMu.Lock()
	defer logMu.Unlock()
	mainSink.rotateIfStale()
	errSink.rotateIfStale()
	log.SetOutput(teeWriter())
}

func (s *logSink) open() error {
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	s.file = file
	return nil
}

func (s *logSink) close() {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
}

// rotateIfStale renames the current file aside when it crossed the size
// cap or carries entries from a previous day, reopens a fresh one, and
// compresses the rotated copy off the hot path.
func (s *logSink) rotateIfStale() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	oversize := info.Size() >= int64(logMaxSizeMB)*1024*1024
	stale := !sameDay(info.ModTime(), time.Now()) && info.Size() > 0
	if !oversize && !stale {
		return
	}

	s.close()
	dir := filepath.Dir(s.path)
	rotated := filepath.Join(dir, s.prefix+"-"+time.Now().Format("20060102-150405")+".log")
	if err := os.Rename(s.path, rotated); err != nil {
		return
	}
	_ = s.open()
	safeGo("log-compress-"+s.prefix, func() { compressLog(rotated) })
	s.pruneBackups(dir)
}

// pruneBackups keeps the newest logMaxBackups rotated files for this sink.
func (s *logSink) pruneBackups(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	type backup struct {
		name string
		mod  time.Time
	}
	var backups []backup
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, s.prefix+"-") {
			continue
		}
		if ext := filepath.Ext(name); ext != ".log" && ext != ".gz" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: name, mod: info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].mod.After(backups[j].mod) })
	for i := logMaxBackups; i < len(backups); i++ {
		_ = os.Remove(filepath.Join(dir, backups[i].name))
	}
}

// teeWriter fans log lines out to stdout and the main file, duplicating
// error-marked lines into the error sink.
func teeWriter() io.Writer {
	out := io.Writer(os.Stdout)
	if mainSink.file != nil {
		out = io.MultiWriter(os.Stdout, mainSink.file)
	}
	if errSink.file == nil {
		return out
	}
	return &levelWriter{out: out, err: errSink.file}
}

type levelWriter struct {
	out io.Writer
	err io.Writer
}

var errorMarkers = []string{"⚠️", "❌", "PANIC", "ERROR"}

func (w *levelWriter) Write(p []byte) (int, error) {
	_, _ = w.out.Write(p)
	line := string(p)
	for _, marker := range errorMarkers {
		if strings.Contains(line, marker) {
			_, _ = w.err.Write(p)
			break
		}
	}
	return len(p), nil
}

func compressLog(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	gz := gzip.NewWriter(out)
	_, _ = io.Copy(gz, in)
	_ = gz.Close()
	_ = out.Close()
	_ = os.Remove(path)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
