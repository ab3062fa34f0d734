package store

import (
	"context"
	"errors"
	"fmt"

	"StockFeed/internal/model"
	"StockFeed/internal/symbols"
)

// SeriesStore reads and writes whole series through a Blob backend.
type SeriesStore struct {
	Blob   Blob
	Prefix string
}

// NewSeriesStore binds a backend to a key prefix.
func NewSeriesStore(blob Blob, prefix string) *SeriesStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SeriesStore{Blob: blob, Prefix: prefix}
}

// Key returns the object key for a symbol and timeframe.
func (s *SeriesStore) Key(symbol string, tf model.Timeframe) string {
	return Key(s.Prefix, symbol, tf)
}

// objectKey is Key for symbols that are safe to use as a path segment.
func (s *SeriesStore) objectKey(symbol string, tf model.Timeframe) (string, error) {
	if tf.Code() == "" {
		return "", fmt.Errorf("invalid timeframe %q", tf)
	}
	if err := symbols.Validate(symbol); err != nil {
		return "", err
	}
	return s.Key(symbol, tf), nil
}

// ReadSeries loads a series ordered by time. It returns ErrNotFound when
// nothing has been stored for the key yet.
func (s *SeriesStore) ReadSeries(ctx context.Context, symbol string, tf model.Timeframe) (*model.Series, error) {
	key, err := s.objectKey(symbol, tf)
	if err != nil {
		return nil, err
	}
	data, err := s.Blob.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "get", Key: key, Err: err}
	}
	bars, err := DecodeCSV(data)
	if err != nil {
		return nil, &StoreError{Op: "decode", Key: key, Err: err}
	}
	return &model.Series{Symbol: symbol, Timeframe: tf, Bars: bars}, nil
}

// WriteSeries overwrites the stored series. Callers must not run two writers
// for the same key concurrently.
func (s *SeriesStore) WriteSeries(ctx context.Context, series *model.Series) error {
	key, err := s.objectKey(series.Symbol, series.Timeframe)
	if err != nil {
		return err
	}
	data, err := EncodeCSV(series.Timeframe, series.Bars)
	if err != nil {
		return &StoreError{Op: "encode", Key: key, Err: err}
	}
	if err := s.Blob.Put(ctx, key, data); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Exists reports whether a series has been stored.
func (s *SeriesStore) Exists(ctx context.Context, symbol string, tf model.Timeframe) (bool, error) {
	key, err := s.objectKey(symbol, tf)
	if err != nil {
		return false, err
	}
	ok, err := s.Blob.Exists(ctx, key)
	if err != nil {
		return false, &StoreError{Op: "exists", Key: key, Err: err}
	}
	return ok, nil
}
