package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventScan      EventType = "scan"
	EventProbe     EventType = "probe"
	EventGroup     EventType = "group"
	EventDiff      EventType = "diff"
	EventMerge     EventType = "merge"
	EventDelete    EventType = "delete"
	EventEstimate  EventType = "estimate"
	EventTranscode EventType = "transcode"
	EventReplace   EventType = "replace"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	AssetID   string            `json:"asset_id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Rule      string            `json:"rule,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Count     int               `json:"count,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Generate filename with timestamp
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// Open file for writing
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	// Filter by minimum level
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil // Skip events below minimum level
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogScan logs an asset discovery event
func (l *EventLogger) LogScan(assetID, path string, sizeBytes int64) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventScan,
		AssetID: assetID,
		Path:    path,
		Bytes:   sizeBytes,
	})
}

// LogProbe logs a fingerprint/probe event
func (l *EventLogger) LogProbe(assetID, path string, err error) error {
	level := LevelDebug
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventProbe,
		AssetID: assetID,
		Path:    path,
		Error:   errMsg,
	})
}

// LogGroup logs a duplicate group event
func (l *EventLogger) LogGroup(rule string, keepID string, deleteCount int, bytes int64) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventGroup,
		Rule:    rule,
		AssetID: keepID,
		Count:   deleteCount,
		Bytes:   bytes,
	})
}

// LogDiff logs a diff creation event
func (l *EventLogger) LogDiff(rule string, groupCount, deleteCount int, bytes int64) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventDiff,
		Rule:  rule,
		Count: deleteCount,
		Bytes: bytes,
		Extra: map[string]string{
			"groups": fmt.Sprintf("%d", groupCount),
		},
	})
}

// LogMerge logs a metadata merge event
func (l *EventLogger) LogMerge(intoID string, favorite bool, albumCount int, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventMerge,
		AssetID: intoID,
		Count:   albumCount,
		Error:   errMsg,
		Extra: map[string]string{
			"favorite": fmt.Sprintf("%t", favorite),
		},
	})
}

// LogDelete logs a delete batch event
func (l *EventLogger) LogDelete(count int, bytes int64, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level: level,
		Event: EventDelete,
		Count: count,
		Bytes: bytes,
		Error: errMsg,
	})
}

// LogEstimate logs a transcode size estimate event
func (l *EventLogger) LogEstimate(assetID string, currentBytes, estimatedBytes int64, eligible bool) error {
	return l.Log(&Event{
		Level:   LevelDebug,
		Event:   EventEstimate,
		AssetID: assetID,
		Bytes:   estimatedBytes,
		Extra: map[string]string{
			"current_bytes": fmt.Sprintf("%d", currentBytes),
			"eligible":      fmt.Sprintf("%t", eligible),
		},
	})
}

// LogTranscode logs a transcode event
func (l *EventLogger) LogTranscode(assetID, path string, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventTranscode,
		AssetID:  assetID,
		Path:     path,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
	})
}

// LogReplace logs an atomic content replace event
func (l *EventLogger) LogReplace(assetID string, bytesSaved int64, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventReplace,
		AssetID: assetID,
		Bytes:   bytesSaved,
		Error:   errMsg,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
