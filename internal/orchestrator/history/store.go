// Package history keeps recent lookups and fans successful ones out to
// display subscribers.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/syncx"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Sources of a lookup.
const (
	SourcePoint  = "point"
	SourceCursor = "cursor"
	SourceDefine = "define"
)

// EventShowDef asks display surfaces to show an entry.
const EventShowDef = "showDef"

// Record is one successful lookup.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Word      string    `json:"word"`
	Source    string    `json:"source"`
	X         int       `json:"x,omitempty"`
	Y         int       `json:"y,omitempty"`
	Entry     string    `json:"entry"` // pretty JSON
}

// Event is pushed to subscribers for every recorded lookup.
type Event struct {
	Type   string
	Record Record
}

// Store is a bounded in-memory history.
type Store struct {
	records  *syncx.RWGuard[[]Record]
	maxSize  int
	eventsCh chan Event
}

// NewStore creates a history holding at most maxEntries records.
func NewStore(maxEntries, eventBuffer int) *Store {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Store{
		records:  syncx.NewGuard(make([]Record, 0, maxEntries)),
		maxSize:  maxEntries,
		eventsCh: make(chan Event, eventBuffer),
	}
}

// Add stamps rec with an id and time, stores it and emits a showDef event.
func (s *Store) Add(rec Record) Record {
	rec.ID = uuid.New().String()
	rec.Timestamp = time.Now()

	s.records.Write(func(rs *[]Record) {
		*rs = append(*rs, rec)
		if len(*rs) > s.maxSize {
			*rs = (*rs)[len(*rs)-s.maxSize:]
		}
	})
	s.Emit(Event{Type: EventShowDef, Record: rec})
	return rec
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []Record {
	var out []Record
	s.records.Read(func(rs []Record) {
		if n <= 0 || n > len(rs) {
			n = len(rs)
		}
		out = make([]Record, 0, n)
		for i := len(rs) - 1; i >= len(rs)-n; i-- {
			out = append(out, rs[i])
		}
	})
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	var n int
	s.records.Read(func(rs []Record) { n = len(rs) })
	return n
}

// Events returns the channel of lookup events.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

// Emit sends an event (non-blocking).
func (s *Store) Emit(event Event) {
	select {
	case s.eventsCh <- event:
	default:
	}
}

// ExportXLSX renders the history, newest first, as a workbook.
func (s *Store) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	recs := s.Recent(0)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "History"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "name sheet")
	}

	headers := []string{"Time", "Word", "Source", "X", "Y", "Entry"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Timestamp.Format(time.RFC3339))
		write(2, r.Word)
		write(3, r.Source)
		if r.Source != SourceDefine {
			write(4, r.X)
			write(5, r.Y)
		}
		write(6, r.Entry)
	}

	_ = f.SetColWidth(sheet, "A", "A", 22)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "C", "E", 8)
	_ = f.SetColWidth(sheet, "F", "F", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "xlsx write")
	}

	trace.Logger(ctx).Info("history exported", "rows", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
