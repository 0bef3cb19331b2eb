package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketRecord is one row of the secondary-market TPF feed. The vendor
// schema is open-ended: the fields the pipeline depends on are typed,
// everything else lands in Extra untouched.
type MarketRecord struct {
	InstrumentType InstrumentType  // tipo_titulo
	SelicCode      string          // codigo_selic
	MaturityDate   Date            // data_vencimento
	IndicativeRate decimal.Decimal // taxa_indicativa, percent
	ReferenceDate  Date            // data_referencia, set at assembly time

	Extra map[string]json.RawMessage
}

func (r *MarketRecord) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("market record: %w", err)
	}

	for key, raw := range fields {
		var err error
		switch key {
		case "tipo_titulo":
			err = json.Unmarshal(raw, &r.InstrumentType)
		case "codigo_selic":
			r.SelicCode = strings.Trim(string(raw), "\"")
		case "data_vencimento":
			err = json.Unmarshal(raw, &r.MaturityDate)
		case "taxa_indicativa":
			err = json.Unmarshal(raw, &r.IndicativeRate)
		case "data_referencia":
			err = json.Unmarshal(raw, &r.ReferenceDate)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("market record field %q: %w", key, err)
		}
	}
	return nil
}

func (r MarketRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+5)
	for k, v := range r.Extra {
		out[k] = v
	}

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("market record field %q: %w", key, err)
		}
		out[key] = b
		return nil
	}

	if err := put("tipo_titulo", r.InstrumentType); err != nil {
		return nil, err
	}
	if r.SelicCode != "" {
		if err := put("codigo_selic", r.SelicCode); err != nil {
			return nil, err
		}
	}
	if err := put("data_vencimento", r.MaturityDate); err != nil {
		return nil, err
	}
	if err := put("taxa_indicativa", r.IndicativeRate); err != nil {
		return nil, err
	}
	if err := put("data_referencia", r.ReferenceDate); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Dataset accumulates per-date record batches in fetch order. Rows for an
// earlier reference date always precede rows for a later one; within a
// date the vendor order is kept.
type Dataset struct {
	Records []MarketRecord
}

// Append tags every record in the batch with its reference date and adds
// the batch to the dataset. The caller's slice is left untouched; each
// record is copied before tagging. An empty batch is a no-op.
func (d *Dataset) Append(refDate Date, records []MarketRecord) {
	for _, rec := range records {
		rec.ReferenceDate = refDate
		d.Records = append(d.Records, rec)
	}
}

func (d *Dataset) Len() int { return len(d.Records) }

// VolatilitySnapshot is the output of one pipeline run: annualized
// volatility per maturity for a single instrument type over a
// business-day window.
type VolatilitySnapshot struct {
	Instrument InstrumentType `json:"instrument"`
	WindowFrom Date           `json:"window_from"`
	WindowTo   Date           `json:"window_to"`
	Rows       int            `json:"rows"`
	Volatility map[string]Vol `json:"volatility"`
	ComputedAt time.Time      `json:"computed_at"`
}
