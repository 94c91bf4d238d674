// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContent rejects a run whose input carries no text at all.
	ErrNoContent = errors.New("no document content provided")

	// ErrIterationLimit stops a run that exceeded its transition budget.
	ErrIterationLimit = errors.New("state machine transition limit reached")

	// ErrDataIntegrity marks an update directive that names a finding the
	// run does not have. It is never retried.
	ErrDataIntegrity = errors.New("update references an unknown finding")
)

// DataIntegrityError reports the chunk and the unknown finding id.
type DataIntegrityError struct {
	ChunkID   string
	FindingID string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("chunk %s: update references unknown finding %q", e.ChunkID, e.FindingID)
}

// Is makes errors.Is(err, ErrDataIntegrity) match.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// Stage names the part of a run that failed.
type Stage string

const (
	StagePrepare     Stage = "chunk preparation"
	StageAnalyze     Stage = "analysis"
	StageRoute       Stage = "routing"
	StageMutate      Stage = "finding mutation"
	StageCommit      Stage = "commit"
	StageConsolidate Stage = "consolidation"
	StageLoop        Stage = "extraction loop"
)

// RunError is the single terminal error of a failed run.
type RunError struct {
	Stage   Stage
	ChunkID string
	Err     error
}

func (e *RunError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("scan failed during %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("scan failed during %s of chunk %s: %v", e.Stage, e.ChunkID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
