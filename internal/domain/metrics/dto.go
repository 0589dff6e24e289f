package metrics

import (
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// DailyPoint is one day of aggregate attendance counts.
type DailyPoint struct {
	Date      string `json:"date"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
	LateEntry int    `json:"late_entry"`
	EarlyExit int    `json:"early_exit"`
	Overtime  int    `json:"overtime"`
}

// Snapshot is the latest aggregate summary. It is replaced wholesale on every
// delivered poll, never merged.
type Snapshot struct {
	Points []DailyPoint `json:"daily_metrics"`
}

// Fingerprint is a BLAKE2b-256 digest of the canonical JSON encoding. Two
// snapshots are deep-equal iff their fingerprints match.
func (s Snapshot) Fingerprint() [32]byte {
	points := s.Points
	if points == nil {
		points = []DailyPoint{}
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return [32]byte{}
	}
	return blake2b.Sum256(raw)
}

func (s Snapshot) Equal(o Snapshot) bool {
	return s.Fingerprint() == o.Fingerprint()
}

// Clone returns a copy that shares no backing array with s.
func (s Snapshot) Clone() Snapshot {
	points := make([]DailyPoint, len(s.Points))
	copy(points, s.Points)
	return Snapshot{Points: points}
}
