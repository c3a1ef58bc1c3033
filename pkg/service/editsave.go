package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/editor"
	"github.com/minbar-app/minbar/pkg/store"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// EditSave implements the edit-save interface. Saving the source lane
// invalidates its translation, so those saves re-derive the target lane
// and return it as a cascade; target-lane saves persist only.
type EditSave struct {
	gen   adapter.TextGenerator
	model string
	langs config.Languages
	store *store.Store
	log   zerolog.Logger
}

// NewEditSave wires the edit persistence service.
func NewEditSave(gen adapter.TextGenerator, st *store.Store, cfg *config.Config, log zerolog.Logger) *EditSave {
	return &EditSave{
		gen:   gen,
		model: cfg.Models.Translation,
		langs: cfg.Languages,
		store: st,
		log:   log,
	}
}

// SaveLane persists exactly one lane of the analysis. The save either
// fully applies or fully fails: the record is only updated after a
// source-lane re-translation has succeeded.
func (e *EditSave) SaveLane(ctx context.Context, id string, lane editor.Lane, payload editor.LanePayload) (*editor.SaveResponse, error) {
	switch lane {
	case editor.LaneTarget:
		update := store.LaneUpdate{TargetText: &payload.Text}
		if payload.Segmented {
			update.Segments = &store.SegmentsDoc{Target: payload.Segments}
		}
		if err := e.store.UpdateLanes(ctx, id, update); err != nil {
			return nil, err
		}
		e.log.Info().Str("analysis_id", id).Msg("target lane saved")
		return &editor.SaveResponse{}, nil

	case editor.LaneSource:
		var src transcript.Transcript
		if payload.Segmented {
			src = transcript.FromSegments(payload.Segments)
		} else {
			src = transcript.FromText(payload.Text)
		}

		target, _, err := translateTranscript(ctx, e.gen, e.model, e.langs, src, e.log)
		if err != nil {
			return nil, fmt.Errorf("retranslation failed: %w", err)
		}

		update := store.LaneUpdate{
			SourceText: &payload.Text,
			TargetText: &target.Text,
		}
		if payload.Segmented {
			update.Segments = &store.SegmentsDoc{
				Source: payload.Segments,
				Target: target.Segments,
			}
		}
		if err := e.store.UpdateLanes(ctx, id, update); err != nil {
			return nil, err
		}
		e.log.Info().Str("analysis_id", id).Msg("source lane saved, translation re-derived")
		return &editor.SaveResponse{Cascade: &target}, nil

	default:
		return nil, fmt.Errorf("cannot save lane %s", lane)
	}
}
