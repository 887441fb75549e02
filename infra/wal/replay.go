package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ReplayHandler consumes one replayed record.
type ReplayHandler func(*Record) error

// Replay walks every segment in order and feeds each valid record to
// fn. It returns the highest sequence seen, which becomes the
// sequencer floor before the engine accepts traffic. A corrupted or
// torn record is tolerated only at the tail of the LAST segment —
// everything before it was durably applied, everything after it never
// acknowledged. Damage in any earlier segment fails the whole replay:
// records after it are known durable, so skipping the damaged stretch
// would silently drop applied operations.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	for i, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}
		for {
			rec, rerr := readRecord(f)
			if rerr != nil {
				// only a bare io.EOF from the header read marks a clean
				// segment end; everything else is damage
				if rerr != io.EOF && i != len(files)-1 {
					_ = f.Close()
					return lastSeq, fmt.Errorf("wal: segment %s: %w", filepath.Base(path), rerr)
				}
				break
			}
			if rec.Seq <= lastSeq {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: non-monotonic seq %d", rec.Seq)
			}
			lastSeq = rec.Seq
			if err := fn(rec); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}
	return lastSeq, nil
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, 21)
	if _, err := io.ReadFull(r, header); err != nil {
		// io.EOF at a record boundary is the clean end of the segment
		return nil, err
	}

	t := RecordType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := binary.BigEndian.Uint64(header[9:17])
	l := binary.BigEndian.Uint32(header[17:21])

	rest := make([]byte, l+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("wal: torn record: %w", err)
	}
	payload := rest[:l]
	crc := binary.BigEndian.Uint32(rest[l:])
	if !CRC32Valid(append(header, payload...), crc) {
		return nil, fmt.Errorf("wal: crc mismatch")
	}

	return &Record{Type: t, Seq: seq, Time: int64(ts), Data: payload}, nil
}

// maxSeqInSegment scans one segment for its highest sequence. Used
// only by TruncateBefore.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		header := make([]byte, 21)
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}
		if seq := binary.BigEndian.Uint64(header[1:9]); seq > max {
			max = seq
		}
		payloadLen := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(payloadLen+4), io.SeekCurrent); err != nil {
			return max, err
		}
	}
}
