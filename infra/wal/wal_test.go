package wal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWAL_AppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	// --- write phase ---
	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}

	const n = 100
	for i := 1; i <= n; i++ {
		data := (&PlacePayload{
			Market: "SOL-USDC",
			Trader: uint64(i),
			Side:   0,
			Price:  int64(i * 10),
			Size:   int64(i),
		}).Encode()
		if err := w.Append(NewRecord(RecordPlace, uint64(i), data)); err != nil {
			t.Fatalf("append: %v", err)
		}
		if i%20 == 0 {
			_ = w.Sync()
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// --- replay phase ---
	count := 0
	lastSeq, err := Replay(dir, func(rec *Record) error {
		if rec.Type != RecordPlace {
			t.Fatalf("unexpected record type: %v", rec.Type)
		}
		var p PlacePayload
		if err := p.Decode(rec.Data); err != nil {
			return err
		}
		count++
		if p.Trader != rec.Seq || p.Price != int64(count*10) {
			t.Fatalf("payload mismatch at seq %d: %+v", rec.Seq, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != n || lastSeq != n {
		t.Fatalf("expected %d records up to seq %d, got %d / %d", n, n, count, lastSeq)
	}
}

func TestWAL_Rotation(t *testing.T) {
	dir := t.TempDir()

	// a 1-byte budget rotates after every append
	w, err := Open(Config{Dir: dir, SegmentSize: 1})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Append(NewRecord(RecordCancel, uint64(i), []byte("x"))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if len(files) < 3 {
		t.Fatalf("expected rotated segments, found %d", len(files))
	}

	// replay crosses segment boundaries transparently
	count := 0
	if _, err := Replay(dir, func(*Record) error { count++; return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 records across segments, got %d", count)
	}
}

func TestWAL_ReopenAppendsAfterExisting(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = w.Append(NewRecord(RecordPlace, 1, []byte("a")))
	_ = w.Close()

	// a second open must not clobber the first segment
	w2, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = w2.Append(NewRecord(RecordPlace, 2, []byte("b")))
	_ = w2.Close()

	count := 0
	if _, err := Replay(dir, func(*Record) error { count++; return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both records to survive reopen, got %d", count)
	}
}

func TestWAL_CRCIntegrity(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Append(NewRecord(RecordPlace, uint64(i), []byte("valid-record"))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = w.Sync()
	_ = w.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if len(files) != 1 {
		t.Fatalf("expected one segment, got %d", len(files))
	}
	f, err := os.OpenFile(files[0], os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	// flip a byte inside the last record's payload to break its CRC
	info, _ := f.Stat()
	if _, err := f.WriteAt([]byte{0xFF}, info.Size()-6); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// the torn tail ends replay; everything before it still applies
	count := 0
	lastSeq, err := Replay(dir, func(*Record) error { count++; return nil })
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != 2 || lastSeq != 2 {
		t.Fatalf("expected 2 clean records, got %d up to seq %d", count, lastSeq)
	}
}

// Corruption in a rotated-out segment must fail replay outright:
// records in later segments are known durable, so skipping the
// damaged stretch would silently drop applied operations.
func TestWAL_CorruptMiddleSegmentFailsReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 1}) // one record per segment
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Append(NewRecord(RecordPlace, uint64(i), []byte("valid-record"))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = w.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if len(files) < 3 {
		t.Fatalf("expected three segments, got %d", len(files))
	}

	f, err := os.OpenFile(files[0], os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	info, _ := f.Stat()
	if _, err := f.WriteAt([]byte{0xFF}, info.Size()-6); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Replay(dir, func(*Record) error { return nil }); err == nil {
		t.Fatal("expected replay to fail on mid-log corruption")
	}
}

func TestWAL_NonMonotonicSeqRejected(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Append(NewRecord(RecordPlace, 5, []byte("a")))
	_ = w.Append(NewRecord(RecordPlace, 5, []byte("b")))
	_ = w.Close()

	if _, err := Replay(dir, func(*Record) error { return nil }); err == nil {
		t.Fatal("expected replay to reject duplicate sequence")
	}
}

func TestWAL_TruncateBefore(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 10; i++ {
		if err := w.Append(NewRecord(RecordMatch, uint64(i), nil)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := w.TruncateBefore(5); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	_ = w.Close()

	var seqs []uint64
	if _, err := Replay(dir, func(rec *Record) error {
		seqs = append(seqs, rec.Seq)
		return nil
	}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(seqs) != 5 || seqs[0] != 6 || seqs[4] != 10 {
		t.Fatalf("expected seqs 6..10 after truncation, got %v", seqs)
	}
}

func TestPayload_Roundtrip(t *testing.T) {
	in := PlacePayload{
		Market: "BTC-USDC",
		Trader: 42,
		Side:   1,
		Price:  -1, // zigzag survives negatives
		Size:   9_000_000_000,
		TIF:    3,
	}
	var out PlacePayload
	if err := out.Decode(in.Encode()); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", out, in)
	}

	if err := out.Decode([]byte{0xFF, 0xFF}); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload on garbage, got %v", err)
	}

	pin := ParamsPayload{
		Market:      "BTC-USDC",
		BaseAsset:   "BTC",
		QuoteAsset:  "USDC",
		TickSize:    10,
		LotSize:     1,
		MakerFeeBps: 25,
		TakerFeeBps: 75,
		Paused:      true,
	}
	var pout ParamsPayload
	if err := pout.Decode(pin.Encode()); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if pout != pin {
		t.Fatalf("params roundtrip mismatch: %+v vs %+v", pout, pin)
	}
}
