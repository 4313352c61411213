package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxTraceSize is the size at which a trace file is rotated (16MB).
	DefaultMaxTraceSize = 16 * 1024 * 1024
	TraceFileExtension  = ".jsonl"
	ArchiveDir          = "archive"
)

// TraceEntry is one line of a search trace.
type TraceEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	EventType string         `json:"event_type"`
	Details   map[string]any `json:"details,omitempty"`
}

// TraceLogger appends search events to a JSONL file, rotating it into an
// archive directory when it grows past maxSize.
type TraceLogger struct {
	mu              sync.Mutex
	file            *os.File
	currentSize     int64
	maxSize         int64
	path            string
	runID           string
	rotationCounter int
	lastErr         error
}

func NewTraceLogger(path, runID string, maxSize int64) (*TraceLogger, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxTraceSize
	}
	l := &TraceLogger{path: path, runID: runID, maxSize: maxSize}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *TraceLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat trace file: %w", err)
	}
	l.file = file
	l.currentSize = stat.Size()
	return nil
}

// Record is a Subscriber that writes the event. Write failures are kept
// and reported by Err.
func (l *TraceLogger) Record(e Event) {
	err := l.Write(&TraceEntry{Timestamp: e.Timestamp, RunID: l.runID, EventType: string(e.Type), Details: e.Data})
	if err != nil {
		l.mu.Lock()
		if l.lastErr == nil {
			l.lastErr = err
		}
		l.mu.Unlock()
	}
}

// Err returns the first error Record hit.
func (l *TraceLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *TraceLogger) Write(entry *TraceEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.RunID == "" {
		entry.RunID = l.runID
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}
	data = append(data, '\n')

	if l.currentSize > 0 && l.currentSize+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate trace: %w", err)
		}
	}

	n, err := l.file.Write(data)
	if err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	l.currentSize += int64(n)
	return nil
}

func (l *TraceLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}

	archiveDir := filepath.Join(filepath.Dir(l.path), ArchiveDir)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	l.rotationCounter++
	base := strings.TrimSuffix(filepath.Base(l.path), TraceFileExtension)
	name := fmt.Sprintf("%s.%s.%d%s", base, time.Now().Format("20060102_150405"), l.rotationCounter, TraceFileExtension)
	if err := os.Rename(l.path, filepath.Join(archiveDir, name)); err != nil {
		return fmt.Errorf("archive trace file: %w", err)
	}
	return l.open()
}

func (l *TraceLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadTrace parses a trace file. Malformed lines are skipped and counted.
func ReadTrace(path string) ([]TraceEntry, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open trace file: %w", err)
	}
	defer file.Close()

	var entries []TraceEntry
	bad := 0
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e TraceEntry
		if err := json.Unmarshal(line, &e); err != nil {
			bad++
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return entries, bad, fmt.Errorf("read trace file: %w", err)
	}
	return entries, bad, nil
}
