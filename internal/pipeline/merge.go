package pipeline

import "StockFeed/internal/model"

// MergeResult is the outcome of merging fetched bars into a stored series.
type MergeResult struct {
	Bars    []model.Bar
	Added   int  // timestamps not present in the stored series
	Revised int  // stored bars whose fields the fetch replaced
	Changed bool // false when Bars equals the stored series exactly
}

// Merge combines stored and fetched bars into one ascending series with
// exactly one bar per timestamp. Fetched bars replace stored bars at the same
// timestamp, and within either input a later row replaces an earlier one.
func Merge(existing, fetched []model.Bar) MergeResult {
	prev := make(map[int64]model.Bar, len(existing))
	for _, b := range existing {
		prev[b.Time.UnixNano()] = b
	}

	all := make([]model.Bar, 0, len(existing)+len(fetched))
	all = append(all, existing...)
	all = append(all, fetched...)
	merged := model.SortDedupe(all)

	res := MergeResult{Bars: merged}
	for _, b := range merged {
		old, ok := prev[b.Time.UnixNano()]
		switch {
		case !ok:
			res.Added++
		case !sameBar(old, b):
			res.Revised++
		}
	}
	res.Changed = res.Added > 0 || res.Revised > 0 || len(merged) != len(existing)
	return res
}

func sameBar(a, b model.Bar) bool {
	return a.Time.Equal(b.Time) &&
		a.Open == b.Open &&
		a.High == b.High &&
		a.Low == b.Low &&
		a.Close == b.Close &&
		a.Volume == b.Volume
}
