package wal

import "time"

type RecordType uint8

const (
	RecordPlace RecordType = iota
	RecordCancel
	RecordDeposit
	RecordWithdraw
	RecordMatch
	RecordParams
)

// Record is one durable intent. Seq is the service-wide WAL sequence,
// strictly monotonic across segments.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

// NewRecord stamps a record with the current time.
func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
