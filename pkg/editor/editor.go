// Package editor owns the mutable, presentable copy of a completed
// analysis and brokers in-place edit sessions over its two language lanes.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// Lane identifies one of the two text tracks of an analysis.
type Lane int

const (
	LaneNone Lane = iota
	LaneSource
	LaneTarget
)

func (l Lane) String() string {
	switch l {
	case LaneSource:
		return "source"
	case LaneTarget:
		return "target"
	default:
		return "none"
	}
}

// SaveStatus is the lifecycle state of one lane's save operation.
type SaveStatus int

const (
	SaveIdle SaveStatus = iota
	SaveSaving
	SaveSaved
	SaveError
)

func (s SaveStatus) String() string {
	switch s {
	case SaveSaving:
		return "saving"
	case SaveSaved:
		return "saved"
	case SaveError:
		return "error"
	default:
		return "idle"
	}
}

// Analysis is the materialized result of a completed pipeline run. It is
// owned exclusively by a Store once the run finishes; nothing mutates it
// outside the Store's operations.
type Analysis struct {
	ID           string
	Title        string
	SourceURL    string
	ThumbnailURL string
	StartSeconds int
	EndSeconds   int
	Source       transcript.Transcript
	Target       transcript.Transcript
	Article      string
	Costs        cost.Breakdown
}

// Clone deep-copies the analysis.
func (a Analysis) Clone() Analysis {
	out := a
	out.Source = a.Source.Clone()
	out.Target = a.Target.Clone()
	out.Costs = a.Costs.Clone()
	return out
}

// LanePayload carries exactly one lane's text for persistence, in whichever
// representation the analysis uses.
type LanePayload struct {
	Segmented bool
	Text      string
	Segments  []transcript.Segment
}

// SaveResponse is the persistence layer's answer to a lane save. Cascade is
// non-nil only for source-lane saves whose translation was re-derived.
type SaveResponse struct {
	Cascade *transcript.Transcript
}

// Saver persists a single lane of an analysis.
type Saver interface {
	SaveLane(ctx context.Context, id string, lane Lane, payload LanePayload) (*SaveResponse, error)
}

var (
	// ErrSessionActive rejects a second concurrent edit session.
	ErrSessionActive = errors.New("another edit session is already active")
	// ErrNoSession rejects draft operations outside a session.
	ErrNoSession = errors.New("no edit session is active")
)

type snapshot struct {
	source transcript.Transcript
	target transcript.Transcript
}

type session struct {
	lane Lane
	snap snapshot
}

// Store holds the editable analysis plus at most one edit session. The
// saved status auto-reverts to idle after a hold interval so a UI can flash
// confirmation without sticking.
type Store struct {
	mu        sync.Mutex
	result    Analysis
	saver     Saver
	session   *session
	status    map[Lane]SaveStatus
	savedHold time.Duration
	statusGen int
}

// Option configures a Store.
type Option func(*Store)

// WithSavedHold overrides how long a lane shows "saved" before reverting
// to idle.
func WithSavedHold(d time.Duration) Option {
	return func(s *Store) { s.savedHold = d }
}

// NewStore takes ownership of a completed analysis.
func NewStore(result Analysis, saver Saver, opts ...Option) *Store {
	s := &Store{
		result:    result.Clone(),
		saver:     saver,
		status:    map[Lane]SaveStatus{LaneSource: SaveIdle, LaneTarget: SaveIdle},
		savedHold: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analysis returns a copy of the current visible state, drafts included.
func (s *Store) Analysis() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

// ActiveLane returns the lane with an open edit session, or LaneNone.
func (s *Store) ActiveLane() Lane {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return LaneNone
	}
	return s.session.lane
}

// SaveStatus returns the save status for a lane.
func (s *Store) SaveStatus(lane Lane) SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[lane]
}

// EnterEdit opens an edit session for a lane, capturing a deep snapshot of
// both lanes so CancelEdit can restore the exact prior state. Rejected when
// any session is already open.
func (s *Store) EnterEdit(lane Lane) error {
	if lane != LaneSource && lane != LaneTarget {
		return fmt.Errorf("cannot edit lane %s", lane)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return ErrSessionActive
	}
	s.session = &session{
		lane: lane,
		snap: snapshot{
			source: s.result.Source.Clone(),
			target: s.result.Target.Clone(),
		},
	}
	s.status[lane] = SaveIdle
	s.statusGen++
	return nil
}

// UpdateDraft mutates the in-memory draft for the session's lane: the whole
// text when index is negative, or one segment's text for a segmented
// analysis. The snapshot is untouched.
func (s *Store) UpdateDraft(lane Lane, index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	if s.session.lane != lane {
		return fmt.Errorf("edit session is open on lane %s, not %s", s.session.lane, lane)
	}

	tr := s.lane(lane)
	if index < 0 {
		if tr.Segmented {
			return fmt.Errorf("lane %s is segmented; update a segment instead", lane)
		}
		tr.Text = text
		return nil
	}
	if !tr.Segmented {
		return fmt.Errorf("lane %s is full text; update without a segment index", lane)
	}
	if index >= len(tr.Segments) {
		return fmt.Errorf("segment index %d out of range (%d segments)", index, len(tr.Segments))
	}
	tr.Segments[index].Text = text
	tr.Text = transcript.JoinText(tr.Segments)
	return nil
}

// CancelEdit restores both lanes from the snapshot and discards the
// session. After cancel, the visible state is identical to the state at
// EnterEdit time.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return
	}
	lane := s.session.lane
	s.result.Source = s.session.snap.source.Clone()
	s.result.Target = s.session.snap.target.Clone()
	s.session = nil
	s.status[lane] = SaveIdle
	s.statusGen++
}

// SaveEdit persists the current draft for the session's lane. On success a
// source-lane save may carry a cascaded re-derivation of the target lane,
// which overwrites the target draft wholesale; the session closes and the
// status flips to saved (reverting to idle after the hold interval). On
// failure the status flips to error and the session stays open with the
// draft preserved, so the caller can retry or cancel.
func (s *Store) SaveEdit(ctx context.Context, lane Lane) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.session.lane != lane {
		current := s.session.lane
		s.mu.Unlock()
		return fmt.Errorf("edit session is open on lane %s, not %s", current, lane)
	}

	tr := s.lane(lane)
	payload := LanePayload{
		Segmented: tr.Segmented,
		Text:      tr.Text,
		Segments:  append([]transcript.Segment(nil), tr.Segments...),
	}
	id := s.result.ID
	s.status[lane] = SaveSaving
	s.statusGen++
	s.mu.Unlock()

	resp, err := s.saver.SaveLane(ctx, id, lane, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status[lane] = SaveError
		s.statusGen++
		return err
	}

	if lane == LaneSource && resp != nil && resp.Cascade != nil {
		s.result.Target = resp.Cascade.Clone()
	}
	s.session = nil
	s.status[lane] = SaveSaved
	s.statusGen++
	s.scheduleIdle(lane, s.statusGen)
	return nil
}

// SetArticle records a generated article and folds its costs into the
// stored breakdown.
func (s *Store) SetArticle(markdown string, delta cost.Breakdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result.Article = markdown
	s.result.Costs = s.result.Costs.Merge(delta)
}

func (s *Store) lane(lane Lane) *transcript.Transcript {
	if lane == LaneSource {
		return &s.result.Source
	}
	return &s.result.Target
}

// scheduleIdle reverts a saved status to idle after the hold interval,
// unless a newer transition superseded it. Caller holds the lock.
func (s *Store) scheduleIdle(lane Lane, gen int) {
	time.AfterFunc(s.savedHold, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.statusGen != gen || s.status[lane] != SaveSaved {
			return
		}
		s.status[lane] = SaveIdle
	})
}
