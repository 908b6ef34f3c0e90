package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Timestamp is a point in time serialized as milliseconds since the Unix epoch.
// Values are kept at millisecond precision so a document survives an
// encode/decode round trip unchanged.
type Timestamp struct {
	time.Time
}

func NewTimestamp(value time.Time) Timestamp {
	return Timestamp{Time: time.UnixMilli(value.UnixMilli())}
}

func NewTimestampPtr(value time.Time) *Timestamp {
	stamp := NewTimestamp(value)
	return &stamp
}

func (stamp Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", stamp.UnixMilli())), nil
}

func (stamp *Timestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var millis float64
	if err := json.Unmarshal(trimmed, &millis); err != nil {
		return fmt.Errorf("timestamp must be epoch milliseconds: %w", err)
	}
	if math.IsNaN(millis) || math.IsInf(millis, 0) {
		return fmt.Errorf("timestamp %v is not finite", millis)
	}

	stamp.Time = time.UnixMilli(int64(math.Round(millis)))
	return nil
}
