// Package wal is the durable-intent log. Every accepted mutation is
// framed into append-only segment files before the in-memory state
// changes; replaying the segments rebuilds book and ledger after a
// restart. Frame layout:
//
//	[type:1][seq:8][time:8][len:4][payload][crc32:4]
//
// The checksum covers header and payload, so torn or corrupted tails
// are detected on replay.
package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultSegmentSize = 2 * 1024 * 1024

// Config controls segment placement and rotation.
type Config struct {
	Dir         string
	SegmentSize int64
}

// WAL appends records to the current segment, rotating by size.
type WAL struct {
	dir      string
	segSize  int64
	current  *segment
	segIndex int
}

// Open creates the directory if needed and opens the next segment
// after any existing ones, so appends never clobber replayable data.
func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: mkdir: %w", err)
	}

	index, err := nextSegmentIndex(cfg.Dir)
	if err != nil {
		return nil, err
	}
	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}
	return &WAL{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
	}, nil
}

// Append frames and writes one record.
func (w *WAL) Append(r *Record) error {
	payloadLen := uint32(len(r.Data))
	buf := make([]byte, 1+8+8+4+payloadLen+4)

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[21:], r.Data)
	binary.BigEndian.PutUint32(buf[21+payloadLen:], CRC32(buf[:21+payloadLen]))

	if err := w.current.append(buf); err != nil {
		return err
	}
	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

// Sync flushes the current segment to stable storage.
func (w *WAL) Sync() error { return w.current.sync() }

// Close closes the current segment.
func (w *WAL) Close() error { return w.current.close() }

// TruncateBefore removes whole segments whose records are all at or
// below seq. Used after a durable snapshot makes them redundant.
func (w *WAL) TruncateBefore(seq uint64) error {
	files, err := filepath.Glob(filepath.Join(w.dir, "segment-*.wal"))
	if err != nil {
		return err
	}
	for _, path := range files {
		if path == w.current.path {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}

func (w *WAL) rotate() error {
	if err := w.current.close(); err != nil {
		return err
	}
	w.segIndex++
	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}
	w.current = seg
	return nil
}

type segment struct {
	path   string
	file   *os.File
	offset int64
	opened time.Time
}

func openSegment(dir string, index int) (*segment, error) {
	path := filepath.Join(dir, fmt.Sprintf("segment-%06d.wal", index))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open segment: %w", err)
	}
	return &segment{path: path, file: f, opened: time.Now()}, nil
}

func (s *segment) append(b []byte) error {
	n, err := s.file.Write(b)
	if err != nil {
		return err
	}
	s.offset += int64(n)
	return nil
}

func (s *segment) sync() error  { return s.file.Sync() }
func (s *segment) close() error { return s.file.Close() }

func nextSegmentIndex(dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return 0, err
	}
	next := 0
	for _, path := range files {
		var idx int
		if _, err := fmt.Sscanf(filepath.Base(path), "segment-%06d.wal", &idx); err == nil {
			if idx+1 > next {
				next = idx + 1
			}
		}
	}
	return next, nil
}
