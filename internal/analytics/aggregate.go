package analytics

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// BucketByDay counts the times that fall on each day of the range. Days without
// events are zero, times outside the range are ignored.
func BucketByDay(r Range, times []time.Time) []int {
	buckets := make([]int, r.Days())
	for _, t := range times {
		if !r.Contains(t) {
			continue
		}
		buckets[int(t.UTC().Sub(r.From)/day)]++
	}
	return buckets
}

// CountIn counts the times that fall in the range
func CountIn(r Range, times []time.Time) int {
	n := 0
	for _, t := range times {
		if r.Contains(t) {
			n++
		}
	}
	return n
}

// PercentDelta is the change from prev to cur in percent, rounded to one decimal.
// With no previous value the delta is 100 when there is any current value and 0 otherwise.
func PercentDelta(cur, prev int) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	delta := float64(cur-prev) / float64(prev) * 100
	rounded, err := stats.Round(delta, 1)
	if err != nil {
		return delta
	}
	return rounded
}

// Percent is part of total in percent rounded to an integer, 0 when total is 0
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	rounded, err := stats.Round(float64(part)/float64(total)*100, 0)
	if err != nil {
		return 0
	}
	return int(rounded)
}

// MeanRating is the mean of the ratings rounded to one decimal, 0 for no ratings
func MeanRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	data := make(stats.Float64Data, 0, len(ratings))
	for _, r := range ratings {
		data = append(data, float64(r))
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	rounded, err := stats.Round(mean, 1)
	if err != nil {
		return mean
	}
	return rounded
}

// Ranked is a counted item. Label breaks ties between equal counts.
type Ranked struct {
	Key   string
	Label string
	Count int
}

// TopN returns the n items with the highest counts. Ties go to the label, then the key,
// in ascending order. The input slice is not modified.
func TopN(items []Ranked, n int) []Ranked {
	list := make([]Ranked, len(items))
	copy(list, items)
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		if list[i].Label != list[j].Label {
			return list[i].Label < list[j].Label
		}
		return list[i].Key < list[j].Key
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
