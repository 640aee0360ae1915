// Package cdc decides when a change-data-capture stream has caught up to a
// target write-ahead-log position. The target is captured once at stream
// start and compared against the position carried by each change event.
package cdc

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// LSN is a Postgres log sequence number.
type LSN uint64

// ParseLSN parses the textual X/Y form used by Postgres, e.g. "16/B374D848".
func ParseLSN(s string) (LSN, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid lsn %q", s)
	}

	hi, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid lsn %q: %w", s, err)
	}

	lo, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid lsn %q: %w", s, err)
	}

	return LSN(hi<<32 | lo), nil
}

func (l LSN) String() string {
	return fmt.Sprintf("%X/%X", uint64(l)>>32, uint64(l)&0xFFFFFFFF)
}

// SnapshotMetadata is the snapshot marker carried in a change event's
// source block.
type SnapshotMetadata string

const (
	SnapshotTrue  SnapshotMetadata = "true"
	SnapshotFalse SnapshotMetadata = "false"
	SnapshotLast  SnapshotMetadata = "last"
)

// EventPosition is the source block of one change event.
type EventPosition struct {
	LSN      LSN              `json:"lsn"`
	Snapshot SnapshotMetadata `json:"snapshot"`
}

// PositionFromJSON extracts the position from a raw change-event payload.
func PositionFromJSON(data []byte) (EventPosition, error) {
	var event struct {
		Source *EventPosition `json:"source"`
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return EventPosition{}, fmt.Errorf("failed to decode change event: %w", err)
	}
	if event.Source == nil {
		return EventPosition{}, fmt.Errorf("change event has no source block")
	}

	return *event.Source, nil
}

// TargetPosition is the log position a stream must reach before it is
// considered caught up. It is immutable once captured.
type TargetPosition struct {
	target LSN
}

func NewTargetPosition(target LSN) TargetPosition {
	return TargetPosition{target: target}
}

// CurrentTargetPosition captures the server's current WAL position as the
// target for a stream that is about to start.
func CurrentTargetPosition(db *sql.DB) (TargetPosition, error) {
	var raw string
	if err := db.QueryRow(`SELECT pg_current_wal_lsn()`).Scan(&raw); err != nil {
		return TargetPosition{}, fmt.Errorf("failed to read current wal lsn: %w", err)
	}

	lsn, err := ParseLSN(raw)
	if err != nil {
		return TargetPosition{}, err
	}

	log.Printf("Identified target lsn: %s", lsn)
	return TargetPosition{target: lsn}, nil
}

// Target returns the captured position.
func (p TargetPosition) Target() LSN {
	return p.target
}

// Reached reports whether the given event position is at or past the target.
// Events emitted while a snapshot is still in progress never signal
// catch-up; the final snapshot event always does.
func (p TargetPosition) Reached(ev EventPosition) bool {
	switch ev.Snapshot {
	case SnapshotTrue:
		return false
	case SnapshotLast:
		log.Printf("Signalling close because snapshot is complete")
		return true
	default:
		reached := ev.LSN >= p.target
		if reached {
			log.Printf("Signalling close because event lsn %s is after target lsn %s", ev.LSN, p.target)
		}
		return reached
	}
}
