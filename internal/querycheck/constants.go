package querycheck

// Query kinds.
const (
	KindSimilar    = "similar"
	KindCompatible = "compatible"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// PercentageMultiplier converts ratios to percentages in reports.
const PercentageMultiplier = 100
