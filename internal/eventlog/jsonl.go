package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
)

// jsonlReader streams records from a JSON-lines file in file order
type jsonlReader struct {
	file    *os.File
	scanner *bufio.Scanner
	query   Query
	line    int
}

// openJSONL opens a JSON-lines file for the given query. Reverse queries load
// the whole file and walk it backwards; ctx cancels the load.
func openJSONL(ctx context.Context, path string, q Query) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ClassifyFSError(err)
	}
	if info, err := f.Stat(); err != nil {
		f.Close()
		return nil, domain.ClassifyFSError(err)
	} else if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrProviderFault, path)
	}

	if q.Reverse {
		defer f.Close()
		return loadReverse(ctx, f, q)
	}

	return &jsonlReader{
		file:    f,
		scanner: newLineScanner(f),
		query:   q,
	}, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, constants.ScannerBufferSize), constants.ScannerMaxBufferSize)
	return scanner
}

// Next returns the next record inside the query range
func (r *jsonlReader) Next() (*Record, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		rec, ok, err := parseInRange(raw, r.line, r.query)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", domain.ErrProviderFault, r.line+1, err)
	}
	return nil, io.EOF
}

// Close releases the underlying file
func (r *jsonlReader) Close() error {
	return r.file.Close()
}

// reverseReader walks lines loaded in memory from last to first
type reverseReader struct {
	lines [][]byte
	query Query
	next  int
}

func loadReverse(ctx context.Context, f *os.File, q Query) (Reader, error) {
	scanner := newLineScanner(f)
	var lines [][]byte
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, domain.ErrCancelled
		}
		lines = append(lines, bytes.Clone(scanner.Bytes()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", domain.ErrProviderFault, len(lines)+1, err)
	}
	return &reverseReader{lines: lines, query: q, next: len(lines) - 1}, nil
}

func (r *reverseReader) Next() (*Record, error) {
	for ; r.next >= 0; r.next-- {
		raw := bytes.TrimSpace(r.lines[r.next])
		if len(raw) == 0 {
			continue
		}
		rec, ok, err := parseInRange(raw, r.next+1, r.query)
		if err != nil {
			r.next = -1
			return nil, err
		}
		if ok {
			r.next--
			return rec, nil
		}
	}
	return nil, io.EOF
}

func (r *reverseReader) Close() error {
	r.lines = nil
	return nil
}

// parseInRange unmarshals one line and reports whether it is inside the range
func parseInRange(raw []byte, line int, q Query) (*Record, bool, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: line %d: %v", domain.ErrProviderFault, line, err)
	}
	t, err := rec.Time()
	if err != nil {
		return nil, false, fmt.Errorf("%w: line %d: invalid time_created %q", domain.ErrProviderFault, line, rec.TimeCreated)
	}
	return &rec, q.Contains(t), nil
}

// probeJSONL checks the first non-empty line parses as a record.
// An empty file is a valid archive with no records.
func probeJSONL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return domain.ClassifyFSError(err)
	}
	defer f.Close()

	scanner := newLineScanner(f)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("%w: not a record archive: %v", domain.ErrProviderFault, err)
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFault, err)
	}
	return nil
}

// jsonlWriter writes records as JSON lines
type jsonlWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func createJSONL(path string) (*jsonlWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, domain.ClassifyFSError(err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &jsonlWriter{file: f, buf: buf, enc: enc}, nil
}

func (w *jsonlWriter) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("writing record %d: %w", rec.RecordID, err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flushing archive: %w", err)
	}
	return w.file.Close()
}
