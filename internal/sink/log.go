package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Status labels written to the log
const (
	StatusMotion      = "Motion Detected"
	StatusNoMotion    = "No motion"
	StatusUnavailable = "Unavailable"
	StatusChanged     = "C"
	StatusUnchanged   = "NC"
)

// Log receives one row per sealed window
type Log interface {
	WriteRow(index int, statuses []string) error
	Close() error
}

// CSVLog writes "Second,<columns>" followed by one row per window.
// Every row is flushed so a crash loses at most the row being written.
type CSVLog struct {
	path    string
	columns int

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	rows int
}

// OpenLog creates path and writes the header
func OpenLog(path string, columns []string) (*CSVLog, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("sink: log needs at least one column")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: create log: %w", err)
	}

	l := &CSVLog{path: path, columns: len(columns), file: f, w: csv.NewWriter(f)}
	header := append([]string{"Second"}, columns...)
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *CSVLog) write(record []string) error {
	if err := l.w.Write(record); err != nil {
		return fmt.Errorf("sink: write %s: %w", l.path, err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("sink: flush %s: %w", l.path, err)
	}
	return nil
}

// WriteRow appends "<index>,<status...>". The number of statuses must match
// the header.
func (l *CSVLog) WriteRow(index int, statuses []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("sink: write to closed log %s", l.path)
	}
	if len(statuses) != l.columns {
		return fmt.Errorf("sink: row has %d statuses, header has %d columns", len(statuses), l.columns)
	}

	record := make([]string, 0, len(statuses)+1)
	record = append(record, strconv.Itoa(index))
	record = append(record, statuses...)
	if err := l.write(record); err != nil {
		return err
	}
	l.rows++
	return nil
}

// Rows returns the number of data rows written
func (l *CSVLog) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Path returns the file path
func (l *CSVLog) Path() string {
	return l.path
}

// Close flushes and closes the file. Safe to call more than once.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	l.w.Flush()
	flushErr := l.w.Error()
	closeErr := l.file.Close()
	l.file = nil

	if flushErr != nil {
		return fmt.Errorf("sink: flush %s: %w", l.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sink: close %s: %w", l.path, closeErr)
	}
	return nil
}
