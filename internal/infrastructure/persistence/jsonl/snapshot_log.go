package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	filePrefix = "heartbeat_"
	fileSuffix = ".jsonl"
	dayLayout  = "20060102"

	defaultBufferSize = 64 * 1024
	maxLineSize       = 10 * 1024 * 1024
)

// SnapshotLog appends snapshots to one JSON Lines file per UTC day.
// Implements port.SnapshotLog.
type SnapshotLog struct {
	dir       string
	mu        sync.Mutex
	telemetry port.Telemetry
	now       func() time.Time
	log       *logger.Logger
}

// NewSnapshotLog creates a log rooted at dir. The directory is created lazily.
func NewSnapshotLog(dir string, telemetry port.Telemetry, log *logger.Logger) *SnapshotLog {
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}
	return &SnapshotLog{
		dir:       dir,
		telemetry: telemetry,
		now:       time.Now,
		log:       log.With("component", "snapshot_log"),
	}
}

// FileName returns the log file name for the UTC day of t.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(dayLayout) + fileSuffix
}

// Append writes the snapshot as a single line. Failures are logged, never returned.
func (l *SnapshotLog) Append(snapshot *dto.MetricsSnapshotDTO) {
	err := l.append(snapshot)
	l.telemetry.SnapshotPersisted(err)
	if err != nil {
		l.log.Error("Failed to persist snapshot", err, "dir", l.dir)
	}
}

func (l *SnapshotLog) append(snapshot *dto.MetricsSnapshotDTO) error {
	line, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(l.dir, FileName(l.now()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("failed to write log line: %w", err)
	}
	return file.Close()
}

// ReadDay returns up to limit of the most recent snapshots recorded on day,
// oldest first. Malformed lines are skipped. limit <= 0 means no limit.
func (l *SnapshotLog) ReadDay(day time.Time, limit int) ([]dto.MetricsSnapshotDTO, error) {
	path := filepath.Join(l.dir, FileName(day))

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", port.ErrSnapshotsNotFound, day.UTC().Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, defaultBufferSize), maxLineSize)

	snapshots := make([]dto.MetricsSnapshotDTO, 0)
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap dto.MetricsSnapshotDTO
		if err := json.Unmarshal(line, &snap); err != nil {
			skipped++
			continue
		}
		snapshots = append(snapshots, snap)
	}
	if err := scanner.Err(); err != nil {
		return snapshots, fmt.Errorf("failed to scan log file: %w", err)
	}
	if skipped > 0 {
		l.log.Warn("Skipped malformed snapshot lines", "file", path, "count", skipped)
	}

	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[len(snapshots)-limit:]
	}
	return snapshots, nil
}

// Files lists log files in the directory sorted by day.
func (l *SnapshotLog) Files() ([]port.SnapshotLogFile, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []port.SnapshotLogFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	files := make([]port.SnapshotLogFile, 0, len(entries))
	for _, entry := range entries {
		day, ok := parseFileName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		files = append(files, port.SnapshotLogFile{
			Path: filepath.Join(l.dir, entry.Name()),
			Day:  day,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Day.Before(files[j].Day) })
	return files, nil
}

// ReadFile returns the raw content of a day file. Reads are serialized with appends.
func (l *SnapshotLog) ReadFile(file port.SnapshotLogFile) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return data, nil
}

func parseFileName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	day, err := time.ParseInLocation(dayLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
