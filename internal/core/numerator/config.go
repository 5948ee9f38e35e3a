// Package numerator provides identifier and sequence generation for sales documents.
package numerator

// Strategy defines how a SequenceStore allocates counter values.
type Strategy int

const (
	// StrategyStrict hits the backing store for every value.
	// Guarantees sequential numbers without gaps.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the process restarts.
	StrategyCached
)

// Options configures a SequenceStore.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() Options {
	return Options{Strategy: StrategyStrict, RangeSize: 50}
}

const (
	// MaxAttempts bounds collision retries for random identifiers.
	MaxAttempts = 3

	// SuffixLength is the random tail length of unique ids.
	SuffixLength = 6

	// ReferenceLength is the length of a transaction reference.
	ReferenceLength = 12

	// NumberPadWidth is the zero-padded width of transaction numbers.
	NumberPadWidth = 8
)
