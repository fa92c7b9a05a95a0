package monitor

// Bucket is the display bucket of a fear & greed index value.
type Bucket struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Default sentiment display before the first successful fetch.
const (
	DefaultSentimentColor = "#aebfc4e0"
	DefaultSentimentIcon  = "gauge"
)

var (
	BucketDistressed = Bucket{Name: "distressed", Color: "#d32f2fe0", Icon: "gauge-empty"}
	BucketNeutral    = Bucket{Name: "neutral", Color: "#f57c00e0", Icon: "gauge-low"}
	BucketGreedy     = Bucket{Name: "greedy", Color: "#afb42be0", Icon: "gauge"}
)

// SentimentBucket maps an index in [0,100] to its bucket.
// 33 and 66 both belong to neutral.
func SentimentBucket(index int) Bucket {
	switch {
	case index < 33:
		return BucketDistressed
	case index <= 66:
		return BucketNeutral
	default:
		return BucketGreedy
	}
}
