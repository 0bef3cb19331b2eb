package internal

import (
	"bytes"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// Vol is an annualized volatility value. NaN means the maturity group had
// too few observations for a sample standard deviation; it is kept
// distinct from zero and serialized as JSON null.
type Vol float64

func (v Vol) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (v *Vol) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Vol(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Vol(f)
	return nil
}

// AnnualizedVolatility filters the dataset by instrument type, groups by
// maturity date and computes the annualized standard deviation of daily
// log-return differences per group. Rows enter each group in dataset
// order, so the series is already sorted by reference date.
func (d *Dataset) AnnualizedVolatility(instrument InstrumentType) map[string]Vol {
	groups := make(map[string][]float64)
	for _, rec := range d.Records {
		if rec.InstrumentType != instrument {
			continue
		}
		rate, _ := rec.IndicativeRate.Float64()
		key := rec.MaturityDate.String()
		groups[key] = append(groups[key], math.Log(1+rate/100))
	}

	out := make(map[string]Vol, len(groups))
	for key, series := range groups {
		out[key] = Vol(diffStdDev(series) * math.Sqrt(tradingDaysPerYear))
	}
	return out
}

// diffStdDev computes the sample standard deviation (N-1 denominator) of
// the first differences of series. Fewer than two observations leave the
// deviation undefined; a single difference estimates it directly by its
// magnitude.
func diffStdDev(series []float64) float64 {
	if len(series) < 2 {
		return math.NaN()
	}

	diffs := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		diffs[i-1] = series[i] - series[i-1]
	}

	if len(diffs) == 1 {
		return math.Abs(diffs[0])
	}
	return stat.StdDev(diffs, nil)
}
