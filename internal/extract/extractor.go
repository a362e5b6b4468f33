// Package extract turns raw inquiry email text into the ParsedEvent record
// the validator and quote engine consume. Two interchangeable strategies
// produce the same contract: an offline fuzzy matcher and an LLM-backed
// extractor. The downstream core never learns which one ran.
package extract

import (
	"context"

	"github.com/kreeda-labs/backend-quotes/internal/common"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
)

// Extractor is the single operation every strategy implements.
type Extractor interface {
	Extract(ctx context.Context, rawEmail string) (inquiry.ParsedEvent, error)
}

// EmailID derives the stable per-run identifier for an email: the SHA-256
// of its raw content, so the same email always maps to the same artifacts.
func EmailID(rawEmail string) string {
	return common.Sha256Hex(rawEmail)
}
