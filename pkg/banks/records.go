package banks

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Record is an opaque statement record as returned by the bank
type Record struct {
	data json.RawMessage
}

// NewRecord creates a record from raw json. The json is compacted,
// order of keys is kept
func NewRecord(raw []byte) (Record, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Record{}, err
	}
	return Record{data: buf.Bytes()}, nil
}

// JSON returns compact json of the record
func (r Record) JSON() []byte {
	return r.data
}

func (r Record) String() string {
	return string(r.data)
}

// Time returns a value of the "time" field (unix seconds) if present
func (r Record) Time() (time.Time, bool) {
	var fields struct {
		Time json.RawMessage `json:"time"`
	}
	if err := json.Unmarshal(r.data, &fields); err != nil || len(fields.Time) == 0 {
		return time.Time{}, false
	}
	ts, err := strconv.ParseInt(string(fields.Time), 10, 64)
	if err != nil || ts <= 0 {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

// Records is a finite sequence of records that can be iterated just once
//
//	for records.Next() {
//		record := records.Record()
//	}
type Records struct {
	items   []Record
	pos     int
	current Record
}

// NewRecords creates a sequence of given records
func NewRecords(items []Record) *Records {
	return &Records{items: items}
}

// ParseRecords parses a json array. Nothing is returned unless the whole body is valid
func ParseRecords(body []byte) (*Records, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(body, &rawItems); err != nil {
		return nil, err
	}
	items := make([]Record, len(rawItems))
	for i, raw := range rawItems {
		record, err := NewRecord(raw)
		if err != nil {
			return nil, err
		}
		items[i] = record
	}
	return NewRecords(items), nil
}

// Next advances to the next record. Returns false when exhausted
func (r *Records) Next() bool {
	if r.pos >= len(r.items) {
		r.current = Record{}
		return false
	}
	r.current = r.items[r.pos]
	r.items[r.pos] = Record{}
	r.pos++
	return true
}

// Record returns the current record
func (r *Records) Record() Record {
	return r.current
}

// Len returns total number of records in the sequence
func (r *Records) Len() int {
	return len(r.items)
}
