// Package metrics provides constants used across metric definitions.
package metrics

// Operation type constants recorded by the export pipeline.
const (
	// OpConvert represents the external model conversion step.
	OpConvert = "convert"
	// OpFinalize represents copying the converted artifact into place.
	OpFinalize = "finalize"
	// OpExport represents a complete export run.
	OpExport = "export"
)

// Status label values.
const (
	// StatusSuccess marks an operation that completed.
	StatusSuccess = "success"
	// StatusError marks an operation that failed.
	StatusError = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1s is the starting bucket for 1s histograms (1s to ~9 hours range).
	BucketStart1s = 1.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
