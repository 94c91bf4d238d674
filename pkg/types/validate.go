// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; a Validate caches struct metadata and is safe for
// concurrent use.
var validate = validator.New()

// Validate checks c against its field rules.
func (c Chunk) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid chunk %q: %w", c.ID, err)
	}
	return nil
}

// Validate checks f against its field rules.
func (f Finding) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid finding %q: %w", f.ID, err)
	}
	return nil
}

// Validate checks m against its field rules.
func (m PaperMetadata) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid paper metadata: %w", err)
	}
	return nil
}
