package store

import (
	"path"

	"StockFeed/internal/model"
)

// DefaultPrefix is the root folder of all series objects.
const DefaultPrefix = "data"

// Key derives the object key of a series: {prefix}/{h|d|w}/{symbol}.csv.
func Key(prefix, symbol string, tf model.Timeframe) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return path.Join(prefix, tf.Code(), symbol+".csv")
}
