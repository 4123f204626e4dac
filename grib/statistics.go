package grib

import (
	"errors"
	"fmt"
	"math"
)

// Statistics are scalar aggregates over every field of one file.
type Statistics struct {
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
	Average float64 `json:"average"`
	Stdev   float64 `json:"stdev"`
	Count   int64   `json:"count"`
}

// Statistics computes aggregate statistics over every field's values in one
// streaming pass: running per-cell minimum, maximum, sum and sum of squares,
// reduced to scalars on completion. The result is cached to a sidecar and
// memoized on the Reader; a prior cached result is returned without
// recomputation.
//
// Fields with missing values are not supported: any not-a-number cell in the
// aggregate returns ErrStatisticsNaN rather than a silently wrong result.
func (r *Reader) Statistics() (*Statistics, error) {
	if r.stats != nil {
		return r.stats, nil
	}

	// A parseable sidecar with a zero count is treated as absent, like every
	// other malformed sidecar.
	var cached Statistics
	if err := r.sc.load(statisticsNamespace, r.path, &cached); err == nil && cached.Count > 0 {
		r.stats = &cached
		return r.stats, nil
	}

	stats, err := r.computeStatistics()
	if err != nil {
		return nil, err
	}
	r.sc.save(statisticsNamespace, r.path, stats)
	r.stats = stats
	return stats, nil
}

func (r *Reader) computeStatistics() (*Statistics, error) {
	it, err := r.Fields()
	if err != nil {
		return nil, err
	}
	defer closer(it)()

	var minCell, maxCell, sum, sumSq []float64
	var count int64

	for {
		field, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				break
			}
			return nil, err
		}
		v, err := field.Values()
		if cerr := field.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}

		if count == 0 {
			minCell = append([]float64(nil), v...)
			maxCell = append([]float64(nil), v...)
			sum = append([]float64(nil), v...)
			sumSq = make([]float64, len(v))
			for i, x := range v {
				sumSq[i] = x * x
			}
		} else {
			if len(v) != len(sum) {
				return nil, fmt.Errorf("grib: statistics: field %d has %d values, want %d", count, len(v), len(sum))
			}
			for i, x := range v {
				if x < minCell[i] {
					minCell[i] = x
				}
				if x > maxCell[i] {
					maxCell[i] = x
				}
				sum[i] += x
				sumSq[i] += x * x
			}
		}
		count++
	}

	if count == 0 {
		return nil, errors.New("grib: statistics over empty file")
	}

	for _, x := range sum {
		if math.IsNaN(x) {
			return nil, ErrStatisticsNaN
		}
	}

	// The per-cell sum array is averaged before dividing by the message
	// count. Cached sidecars were produced with this exact reduction; do not
	// re-derive it.
	average := mean(sum) / float64(count)
	stdev := math.Sqrt(mean(sumSq)/float64(count) - average*average)

	return &Statistics{
		Minimum: minFloat(minCell),
		Maximum: maxFloat(maxCell),
		Average: average,
		Stdev:   stdev,
		Count:   count,
	}, nil
}

func mean(v []float64) float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	return total / float64(len(v))
}

func minFloat(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxFloat(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
