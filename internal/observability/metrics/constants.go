// Package metrics provides constants used across metric definitions.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation label values for RenderMetrics.
const (
	// OpThumbnail is a thumbnail decode, scale and encode.
	OpThumbnail = "thumbnail"
	// OpChart is a label count chart render.
	OpChart = "chart"
)

// Cache result label values.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart100B is the starting bucket for byte size histograms.
	BucketStart100B = 100.0
	// BucketFactor2 is the common exponential growth factor of 2.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10
	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
