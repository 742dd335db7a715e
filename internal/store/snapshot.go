package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// SnapshotVersion is written into every snapshot header.
const SnapshotVersion = 1

// Header is the first line of a snapshot.
type Header struct {
	Version int `json:"version"`
	Cycle   int `json:"cycle"`
	Keys    int `json:"keys"`
}

type record struct {
	Key   string `json:"k"`
	Value []byte `json:"v"`
}

// WriteSnapshot dumps every key of s into a zstd-compressed JSONL file: a
// header line followed by one record per key.
func WriteSnapshot(path string, cycle int, s Store) error {
	keys, err := s.Keys("")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	je := json.NewEncoder(bw)

	if err := je.Encode(Header{Version: SnapshotVersion, Cycle: cycle, Keys: len(keys)}); err != nil {
		_ = enc.Close()
		return err
	}
	for _, k := range keys {
		v, ok, err := s.Load(k)
		if err != nil {
			_ = enc.Close()
			return err
		}
		if !ok {
			continue
		}
		if err := je.Encode(record{Key: k, Value: v}); err != nil {
			_ = enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot restores a snapshot into s and returns its header. Existing
// keys not present in the snapshot are left alone.
func ReadSnapshot(path string, s Store) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024))
	if err := jd.Decode(&h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if h.Version != SnapshotVersion {
		return h, fmt.Errorf("snapshot version %d not supported", h.Version)
	}
	for {
		var r record
		if err := jd.Decode(&r); err != nil {
			if err == io.EOF {
				break
			}
			return h, fmt.Errorf("snapshot record: %w", err)
		}
		if err := s.Save(r.Key, r.Value); err != nil {
			return h, err
		}
	}
	return h, nil
}
