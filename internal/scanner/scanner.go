// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scanner extracts research findings and paper metadata from an
// ordered sequence of document chunks.
//
// A Scanner walks the chunks one at a time. For each chunk it asks the model
// which findings the chunk adds or refines, routes the answer into work
// items, runs those items concurrently and commits their results to a
// RunState through pure merge functions. After the last chunk the raw
// findings are consolidated into a deduplicated set.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-scanner/internal/llm"
	"github.com/pdiddy/paper-scanner/internal/logger"
	"github.com/pdiddy/paper-scanner/internal/metrics"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

const (
	// TransitionHeadroom is added to the transitions a queue needs when no
	// explicit cap is configured.
	TransitionHeadroom = 1000

	// DefaultMaxConcurrency bounds the work items run at once for a chunk.
	DefaultMaxConcurrency = 4
)

type phase int

const (
	phaseInit phase = iota
	phaseSelect
	phaseDispatch
	phaseCommit
	phaseConsolidate
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseInit:
		return "INIT"
	case phaseSelect:
		return "LOOP_SELECT"
	case phaseDispatch:
		return "LOOP_DISPATCH"
	case phaseCommit:
		return "LOOP_COMMIT"
	case phaseConsolidate:
		return "CONSOLIDATE"
	case phaseDone:
		return "DONE"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Delta is the result of one work item. A nil field contributes nothing.
type Delta struct {
	Finding  *types.Finding
	Created  bool
	Metadata *types.PaperMetadata
}

// Scanner drives the extraction state machine. A Scanner holds no run
// state and may serve several runs, one Run call per document.
type Scanner struct {
	cfg          types.ScannerConfig
	analyzer     *Analyzer
	mutator      *Mutator
	consolidator *Consolidator
	log          logger.Logger
	metrics      *metrics.Metrics
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithMetrics records chunk, finding and run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New returns a Scanner that calls the model through client. Zero values
// in cfg take the package defaults.
func New(client *llm.Client, cfg types.ScannerConfig, opts ...Option) *Scanner {
	if cfg.MinChunkLength <= 0 {
		cfg.MinChunkLength = DefaultMinChunkLength
	}
	if cfg.MaxTransitions < 0 {
		cfg.MaxTransitions = 0
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.MaxMutationsPerChunk <= 0 {
		cfg.MaxMutationsPerChunk = DefaultMaxMutationsPerChunk
	}
	s := &Scanner{
		cfg:          cfg,
		mutator:      NewMutator(client),
		consolidator: NewConsolidator(client),
		log:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.analyzer = NewAnalyzer(client, cfg.MaxMutationsPerChunk, s.log)
	return s
}

// Run scans chunks and returns the final state. On failure the returned
// state, when non-nil, is for inspection only: its in-flight chunk is marked
// failed and nothing of that chunk was committed. Failures other than
// ErrNoContent are *RunError values.
func (s *Scanner) Run(ctx context.Context, chunks []string) (*RunState, error) {
	if !hasContent(chunks) {
		return nil, ErrNoContent
	}

	start := time.Now()
	var (
		state       *RunState
		pending     []Delta
		transitions int
		limit       = s.cfg.MaxTransitions
	)
	if limit == 0 {
		limit = TransitionHeadroom
	}

	for p := phaseInit; p != phaseDone; {
		if transitions >= limit {
			var chunkID string
			if state != nil && state.Current != nil {
				chunkID = state.Current.ID
				state.failCurrent()
			}
			return state, &RunError{
				Stage:   StageLoop,
				ChunkID: chunkID,
				Err:     fmt.Errorf("%w: %d transitions, stopped before %s", ErrIterationLimit, transitions, p),
			}
		}
		transitions++

		switch p {
		case phaseInit:
			queue, err := PrepareChunks(chunks, s.cfg.MinChunkLength)
			if err != nil {
				return nil, &RunError{Stage: StagePrepare, Err: err}
			}
			state = newRunState(queue)
			if s.cfg.MaxTransitions == 0 {
				limit = TransitionBudget(len(queue)) + TransitionHeadroom
			}
			s.log.Info("scan started", "chunks", len(state.Queue), "raw_chunks", len(chunks), "max_transitions", limit)
			p = phaseSelect

		case phaseSelect:
			if state.Current != nil {
				s.metrics.ObserveChunk()
			}
			if !state.selectNext() {
				p = phaseConsolidate
				continue
			}
			s.log.Debug("processing chunk", "chunk", state.Current.ID,
				"position", len(state.Processed)+1, "remaining", len(state.Queue))
			p = phaseDispatch

		case phaseDispatch:
			deltas, err := s.dispatch(ctx, state)
			if err != nil {
				state.failCurrent()
				s.log.Error("chunk failed", "chunk", state.Current.ID, "err", err)
				return state, err
			}
			pending = deltas
			p = phaseCommit

		case phaseCommit:
			created, updated := countFindings(pending)
			if err := state.commit(pending); err != nil {
				state.failCurrent()
				s.log.Error("chunk failed", "chunk", state.Current.ID, "err", err)
				return state, &RunError{Stage: StageCommit, ChunkID: state.Current.ID, Err: err}
			}
			pending = nil
			s.metrics.ObserveFindings(metrics.FindingsCreated, created)
			s.metrics.ObserveFindings(metrics.FindingsUpdated, updated)
			p = phaseSelect

		case phaseConsolidate:
			if err := s.consolidate(ctx, state); err != nil {
				return state, &RunError{Stage: StageConsolidate, Err: err}
			}
			p = phaseDone
		}
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRun(elapsed.Seconds())
	s.log.Info("scan finished",
		"chunks", len(state.Processed),
		"findings", len(state.Findings),
		"consolidated", len(state.ConsolidatedFindings),
		"elapsed", elapsed.Round(time.Millisecond))
	return state, nil
}

// dispatch analyzes and routes the current chunk, then runs its work items
// concurrently. Results are returned only when every item succeeded.
func (s *Scanner) dispatch(ctx context.Context, state *RunState) ([]Delta, error) {
	chunk := state.Current

	analysis, err := s.analyzer.Analyze(ctx, *chunk, state.FindingList())
	if err != nil {
		return nil, &RunError{Stage: StageAnalyze, ChunkID: chunk.ID, Err: err}
	}
	chunk.Analysis = &analysis

	items, err := Route(*chunk, analysis, state.Findings)
	if err != nil {
		return nil, &RunError{Stage: StageRoute, ChunkID: chunk.ID, Err: err}
	}

	deltas := make([]Delta, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, item := range items {
		g.Go(func() error {
			d, err := s.execute(gctx, item)
			if err != nil {
				return err
			}
			deltas[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &RunError{Stage: StageMutate, ChunkID: chunk.ID, Err: err}
	}
	return deltas, nil
}

func (s *Scanner) execute(ctx context.Context, item WorkItem) (Delta, error) {
	switch it := item.(type) {
	case CreateFinding:
		f, err := s.mutator.CreateFinding(ctx, it)
		if err != nil {
			return Delta{}, err
		}
		return Delta{Finding: &f, Created: true}, nil
	case UpdateFinding:
		f, err := s.mutator.UpdateFinding(ctx, it)
		if err != nil {
			return Delta{}, err
		}
		return Delta{Finding: &f}, nil
	case UpdateMetadata:
		m := MetadataDelta(it.ChunkID, it.Metadata)
		return Delta{Metadata: &m}, nil
	case Noop:
		return Delta{}, nil
	default:
		return Delta{}, fmt.Errorf("unknown work item %T", item)
	}
}

func (s *Scanner) consolidate(ctx context.Context, state *RunState) error {
	if len(state.Findings) == 0 {
		s.log.Info("no findings to consolidate")
		return nil
	}
	consolidated, err := s.consolidator.Consolidate(ctx, state.FindingList())
	if err != nil {
		return err
	}
	state.ConsolidatedFindings = consolidated
	s.metrics.ObserveFindings(metrics.FindingsConsolidated, len(consolidated))
	return nil
}

// TransitionBudget is the number of transitions a run over n queued chunks
// takes: INIT, three per chunk, the final LOOP_SELECT and CONSOLIDATE.
func TransitionBudget(n int) int {
	return 3*n + 3
}

func countFindings(deltas []Delta) (created, updated int) {
	for _, d := range deltas {
		if d.Finding == nil {
			continue
		}
		if d.Created {
			created++
		} else {
			updated++
		}
	}
	return created, updated
}

func hasContent(chunks []string) bool {
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
