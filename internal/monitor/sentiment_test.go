package monitor

import "testing"

func TestSentimentBucket(t *testing.T) {
	tests := []struct {
		index int
		want  Bucket
	}{
		{0, BucketDistressed},
		{10, BucketDistressed},
		{32, BucketDistressed},
		{33, BucketNeutral},
		{45, BucketNeutral},
		{66, BucketNeutral},
		{67, BucketGreedy},
		{100, BucketGreedy},
	}
	for _, tt := range tests {
		if got := SentimentBucket(tt.index); got != tt.want {
			t.Errorf("SentimentBucket(%d) = %+v, want %+v", tt.index, got, tt.want)
		}
	}
}

func TestSentimentBucketTotalAndOrdered(t *testing.T) {
	rank := map[string]int{"distressed": 0, "neutral": 1, "greedy": 2}
	prev := -1
	for i := 0; i <= 100; i++ {
		b := SentimentBucket(i)
		r, ok := rank[b.Name]
		if !ok {
			t.Fatalf("SentimentBucket(%d) returned unknown bucket %q", i, b.Name)
		}
		if r < prev {
			t.Fatalf("SentimentBucket(%d) = %s went backwards", i, b.Name)
		}
		prev = r
	}
}
