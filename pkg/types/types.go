// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-scanner
// pipeline: chunks, findings, paper metadata, the analysis records returned
// by the extraction model, the run result handed to persistence, and the
// configuration for every stage.
package types
