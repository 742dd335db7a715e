package simlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdSink writes one JSON line per entry into hourly rotated
// zstd-compressed files: <dir>/<prefix>-2006-01-02-15.jsonl.zst.
type JSONLZstdSink struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewJSONLZstdSink returns a sink rooted at baseDir. Files are created lazily
// on the first write.
func NewJSONLZstdSink(baseDir, prefix string) *JSONLZstdSink {
	return &JSONLZstdSink{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Close flushes and closes the current file.
func (s *JSONLZstdSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// Write appends v as one JSON line.
func (s *JSONLZstdSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hour := s.now().UTC().Format("2006-01-02-15")
	if hour != s.curHour {
		if err := s.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder.
func (s *JSONLZstdSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

// Path returns the file the sink is currently writing, or "" before the
// first write.
func (s *JSONLZstdSink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curHour == "" {
		return ""
	}
	return s.pathForHour(s.curHour)
}

func (s *JSONLZstdSink) rotateLocked(hour string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f = f
	s.enc = enc
	s.w = bufio.NewWriterSize(enc, 64*1024)
	s.curHour = hour
	return nil
}

func (s *JSONLZstdSink) closeLocked() error {
	var err error
	if s.w != nil {
		_ = s.w.Flush()
	}
	if s.enc != nil {
		err = s.enc.Close()
		s.enc = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	s.w = nil
	return err
}

func (s *JSONLZstdSink) pathForHour(hour string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", s.prefix, hour))
}

// ReadJSONLZstd decodes every entry of a file written by JSONLZstdSink.
func ReadJSONLZstd(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode log line: %w", err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
