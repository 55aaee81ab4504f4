package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogEntry represents a parsed log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogReader reads the category files written by MultiLogger
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{
		logsDir: logsDir,
	}
}

// ValidCategory reports whether category is one MultiLogger writes
func ValidCategory(category LogCategory) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// GetLogPath returns the path to a category log file for a specific date
func (lr *LogReader) GetLogPath(category LogCategory, date time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, date.Format(dateLayout))
	return filepath.Join(lr.logsDir, filename)
}

// ReadLogs returns the last limit entries of a category log (all when limit <= 0)
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, limit int) ([]LogEntry, error) {
	file, err := os.Open(lr.GetLogPath(category, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseEntry(line, category))
	}
	return entries, nil
}

// SearchLogs returns entries whose message, level or fields contain query (case-insensitive)
func (lr *LogReader) SearchLogs(category LogCategory, date time.Time, query string, limit int) ([]LogEntry, error) {
	entries, err := lr.ReadLogs(category, date, 0)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var filtered []LogEntry
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Message), query) ||
			strings.Contains(strings.ToLower(entry.Level), query) ||
			fieldsContain(entry.Fields, query) {
			filtered = append(filtered, entry)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// parseEntry decodes one JSON line. Lines that are not JSON become plain info entries.
func parseEntry(line string, category LogCategory) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{
			Timestamp: time.Now().Format(time.RFC3339),
			Level:     "info",
			Message:   line,
			Category:  string(category),
		}
	}

	entry := LogEntry{Category: string(category)}
	for key, value := range raw {
		s, _ := value.(string)
		switch key {
		case "timestamp":
			entry.Timestamp = s
		case "level":
			entry.Level = s
		case "message":
			entry.Message = s
		case "category":
			entry.Category = s
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[key] = value
		}
	}
	return entry
}

func fieldsContain(fields map[string]interface{}, query string) bool {
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}

// tailPollInterval is how often TailLogs checks the file for new lines
const tailPollInterval = 200 * time.Millisecond

// TailLogs sends the last backlog entries of today's category log to out,
// then every entry appended to the file, until ctx is done. It waits for the
// file when it does not exist yet. A line is only sent once its newline has
// been written.
func (lr *LogReader) TailLogs(ctx context.Context, category LogCategory, backlog int, out chan<- LogEntry) error {
	if backlog < 0 {
		backlog = 0
	}
	ticker := time.NewTicker(tailPollInterval)
	defer ticker.Stop()

	var file *os.File
	for {
		f, err := os.Open(lr.GetLogPath(category, time.Now()))
		if err == nil {
			file = f
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var pending strings.Builder
	var initial []LogEntry
	catchingUp := true

	for {
		chunk, err := reader.ReadString('\n')
		pending.WriteString(chunk)

		if err == nil {
			line := strings.TrimSpace(pending.String())
			pending.Reset()
			if line == "" {
				continue
			}
			entry := parseEntry(line, category)
			if catchingUp {
				initial = append(initial, entry)
				if len(initial) > backlog {
					initial = initial[len(initial)-backlog:]
				}
				continue
			}
			if !sendEntry(ctx, out, entry) {
				return nil
			}
			continue
		}
		if err != io.EOF {
			return err
		}

		if catchingUp {
			catchingUp = false
			for _, entry := range initial {
				if !sendEntry(ctx, out, entry) {
					return nil
				}
			}
			initial = nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func sendEntry(ctx context.Context, out chan<- LogEntry, entry LogEntry) bool {
	select {
	case out <- entry:
		return true
	case <-ctx.Done():
		return false
	}
}
