package genome

import "errors"

var (
	// ErrInvalidArgument reports a malformed request: unknown strategy, length
	// mismatch between genomes or masks, or a genome too short for a strategy.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoSamples is returned when a chromosome's utility is queried before any
	// fitness-gain sample was recorded.
	ErrNoSamples = errors.New("chromosome has no fitness samples")
)
