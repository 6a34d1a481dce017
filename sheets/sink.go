// Package sheets appends registration rows to per-event tabs of a Google
// spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mbolis/festreg/log"
)

// MaxColumns is the widest range the sink addresses (A through Z).
// Wider forms are clamped, so their extra columns are neither probed for a
// header nor covered by the append range.
const MaxColumns = 26

// HeaderState is the outcome of looking for a header row in a tab.
type HeaderState int

const (
	HeaderAbsent HeaderState = iota
	HeaderPresent
	ProbeFailed
)

func (s HeaderState) String() string {
	switch s {
	case HeaderAbsent:
		return "absent"
	case HeaderPresent:
		return "present"
	case ProbeFailed:
		return "probe failed"
	}
	return fmt.Sprintf("HeaderState(%d)", int(s))
}

// Sink writes rows to a spreadsheet, creating the destination tab and its
// header row the first time they are needed.
type Sink struct {
	connect ConnectFunc
	locks   keyedMutex
}

func NewSink(connect ConnectFunc) *Sink {
	return &Sink{connect: connect}
}

// EnsureSheetAndAppend appends row to the tab titled title, creating the tab
// if the spreadsheet has none by that name and writing headers to its first
// row if that row is blank. Rows are never deduplicated.
//
// Calls for the same tab are serialized within this process. Nothing guards
// against another process doing the same check-then-write at once.
func (s *Sink) EnsureSheetAndAppend(ctx context.Context, spreadsheetID, title string, headers, row []string) error {
	svc, err := s.connect(ctx)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(spreadsheetID + "\x00" + title)
	defer unlock()

	logger := log.WithFields(log.Fields{"sheet": title})

	created, err := ensureTab(ctx, svc, spreadsheetID, title)
	if err != nil {
		return err
	}
	if created {
		logger.Info("created sheet")
	}

	if len(headers) > MaxColumns {
		logger.Warnf("form has %d columns, only the first %d are addressed", len(headers), MaxColumns)
	}
	lastCol := ColumnLetter(len(headers))
	headerRange := A1(title, "A1:"+lastCol+"1")

	state, probeErr := ProbeHeader(ctx, svc, spreadsheetID, headerRange)
	switch state {
	case HeaderPresent:
	case ProbeFailed:
		// an unreadable first row counts as a missing header
		logger.WithError(probeErr).Warn("header probe failed, writing header")
		fallthrough
	case HeaderAbsent:
		if err := svc.Update(ctx, spreadsheetID, headerRange, [][]string{headers}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		logger.Debug("wrote header row")
	}

	if err := svc.Append(ctx, spreadsheetID, A1(title, "A:"+lastCol), [][]string{row}); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// ensureTab finds a tab by exact title, adding it when missing.
func ensureTab(ctx context.Context, svc Service, spreadsheetID, title string) (created bool, err error) {
	tabs, err := svc.Tabs(ctx, spreadsheetID)
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, t := range tabs {
		if t.Title == title {
			return false, nil
		}
	}

	if _, err := svc.AddTab(ctx, spreadsheetID, title); err != nil {
		if errors.Is(err, ErrCreateSheet) {
			return false, err
		}
		return false, fmt.Errorf("add sheet: %w", err)
	}
	return true, nil
}

// ProbeHeader reads the first row of rng. Any non-blank cell counts as a
// header.
func ProbeHeader(ctx context.Context, svc Service, spreadsheetID, rng string) (HeaderState, error) {
	rows, err := svc.Values(ctx, spreadsheetID, rng)
	if err != nil {
		return ProbeFailed, err
	}
	if len(rows) == 0 {
		return HeaderAbsent, nil
	}
	for _, cell := range rows[0] {
		if strings.TrimSpace(cell) != "" {
			return HeaderPresent, nil
		}
	}
	return HeaderAbsent, nil
}

// ColumnLetter is the A1 letter of the n-th column, clamped to A..Z.
func ColumnLetter(n int) string {
	switch {
	case n < 1:
		n = 1
	case n > MaxColumns:
		n = MaxColumns
	}
	return string(rune('A' + n - 1))
}

// A1 builds a range reference inside the named tab, quoting the title.
func A1(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

// keyedMutex hands out one mutex per key, dropping it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
