package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/ftrac/internal/queryir"
)

// Weight selects what a CDF accumulates.
type Weight string

const (
	// WeightSum accumulates the values themselves: a point's ratio is the
	// share of the column total held by values up to it.
	WeightSum Weight = "sum"
	// WeightCount accumulates rows: the classic empirical distribution.
	WeightCount Weight = "count"
)

// ParseWeight validates a weight name. The empty string means WeightSum.
func ParseWeight(s string) (Weight, error) {
	switch Weight(s) {
	case "", WeightSum:
		return WeightSum, nil
	case WeightCount:
		return WeightCount, nil
	default:
		return "", fmt.Errorf("unknown cdf weight %q (want sum or count)", s)
	}
}

// Point is one step of a cumulative distribution.
type Point struct {
	Value float64 `json:"value"`
	Ratio float64 `json:"ratio"`
}

// CDFOptions control CDF construction and compression.
type CDFOptions struct {
	VThreshold float64 // relative value change needed to keep a point
	RThreshold float64 // relative ratio change needed to keep a point
	Weight     Weight  // empty = WeightSum
}

// ErrNegativeThreshold is returned for compression thresholds below zero.
var ErrNegativeThreshold = errors.New("cdf threshold must be non-negative")

// zeroCDF is the distribution of an empty or all-zero selection.
func zeroCDF() []Point {
	return []Point{{Value: 0, Ratio: 0}}
}

// CDF builds the compressed cumulative distribution of column over the
// rows of table matching attrs.
func (e *Engine) CDF(ctx context.Context, table queryir.Table, column string, opts CDFOptions, attrs queryir.Attrs) ([]Point, error) {
	if err := checkThresholds(opts.VThreshold, opts.RThreshold); err != nil {
		return nil, err
	}
	weight, err := ParseWeight(string(opts.Weight))
	if err != nil {
		return nil, err
	}

	pred, err := e.filter(table, attrs)
	if err != nil {
		return nil, err
	}
	values, err := e.values(ctx, table, column, pred)
	if err != nil {
		return nil, err
	}

	points, err := BuildCDF(values, weight)
	if err != nil {
		return nil, err
	}
	return Compress(points, opts.VThreshold, opts.RThreshold)
}

// BuildCDF returns one point per distinct value, ascending, with the
// cumulative weight up to and including that value divided by the total.
// Ratios are non-decreasing and the last is exactly 1.
//
// Empty and all-zero input yield [(0, 0)] under either weight.
// WeightSum rejects negative values.
func BuildCDF(values []float64, weight Weight) ([]Point, error) {
	if weight == "" {
		weight = WeightSum
	}
	if weight != WeightSum && weight != WeightCount {
		return nil, fmt.Errorf("unknown cdf weight %q", weight)
	}

	sorted := slices.Clone(values)
	for _, v := range sorted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cdf: non-finite value %v", v)
		}
		if weight == WeightSum && v < 0 {
			return nil, fmt.Errorf("cdf: negative value %v cannot be sum-weighted", v)
		}
	}
	slices.Sort(sorted)

	if len(sorted) == 0 || (sorted[0] == 0 && sorted[len(sorted)-1] == 0) {
		return zeroCDF(), nil
	}

	var points []Point
	var cum float64
	for i, v := range sorted {
		cum += weightOf(v, weight)
		if i+1 < len(sorted) && sorted[i+1] == v {
			continue
		}
		points = append(points, Point{Value: v, Ratio: cum})
	}

	// Dividing by the final running sum rather than the precomputed total
	// pins the last ratio at exactly 1.
	for i := range points {
		points[i].Ratio /= cum
	}
	return points, nil
}

func weightOf(v float64, w Weight) float64 {
	if w == WeightCount {
		return 1
	}
	return v
}

// Compress drops points that add little to the curve.
//
// Walking in order, a point is kept when its value differs from the last
// kept value by more than vth of that value, or its ratio differs from the
// last kept ratio by more than rth of that ratio. A zero reference counts
// any change. The first and last points are always kept.
func Compress(points []Point, vth, rth float64) ([]Point, error) {
	if err := checkThresholds(vth, rth); err != nil {
		return nil, err
	}
	if len(points) <= 2 {
		return slices.Clone(points), nil
	}

	kept := []Point{points[0]}
	last := points[0]
	for _, p := range points[1 : len(points)-1] {
		if exceeds(p.Value, last.Value, vth) || exceeds(p.Ratio, last.Ratio, rth) {
			kept = append(kept, p)
			last = p
		}
	}
	return append(kept, points[len(points)-1]), nil
}

// exceeds reports whether x moved away from ref by more than th relative
// to ref.
func exceeds(x, ref, th float64) bool {
	if ref == 0 {
		return x != ref
	}
	return math.Abs(x-ref)/math.Abs(ref) > th
}

func checkThresholds(vth, rth float64) error {
	if vth < 0 || math.IsNaN(vth) {
		return fmt.Errorf("vthreshold %v: %w", vth, ErrNegativeThreshold)
	}
	if rth < 0 || math.IsNaN(rth) {
		return fmt.Errorf("rthreshold %v: %w", rth, ErrNegativeThreshold)
	}
	return nil
}
