// Package query defines the structured query produced by the natural-language
// translator and executed by the insight service.  The JSON shape is the
// contract persisted in the query-mapping cache; SchemaVersion changes
// whenever that shape does, logically invalidating older cached entries.
package query

import (
	"encoding/json"

	"github.com/geoinsight/geoinsight/pkg/errors"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// SchemaVersion identifies the structured-query JSON shape below.  Bump it on
// any breaking change so stale cache entries stop matching.
const SchemaVersion = 1

// Operation names the insight operation a structured query targets.
type Operation string

const (
	OpCompareDomains Operation = "compare_domains"
	OpRankings       Operation = "rankings"
	OpAnomaly        Operation = "anomaly"
	OpAdvanced       Operation = "advanced"
)

// Query is one executable structured query.  Zero-valued optional fields take
// operation defaults at execution time.  Domain names the single subject of a
// ranking or anomaly query; Domains selects which subjects a comparison or
// advanced query covers.  PeriodFrom/PeriodTo express an explicit range for
// comparisons, as an alternative to the single Period.
type Query struct {
	Operation  Operation `json:"operation"`
	Domain     string    `json:"domain,omitempty"`
	Domains    []string  `json:"domains,omitempty"`
	Level      string    `json:"level,omitempty"`
	Period     string    `json:"period,omitempty"`
	PeriodFrom string    `json:"period_from,omitempty"`
	PeriodTo   string    `json:"period_to,omitempty"`
	Region     string    `json:"region,omitempty"`
	TopK       int       `json:"top_k,omitempty"`
	ZThreshold float64   `json:"z_threshold,omitempty"`
}

// Fallback is the query executed when translation fails: the default-level
// ranking over every region and period.  Degrading to it keeps the assistant
// endpoint answering instead of surfacing translator outages to callers.
func Fallback() Query {
	return Query{
		Operation: OpRankings,
		Level:     string(common.DefaultLevel),
	}
}

// Validate checks that q names a known operation and, when set, a known
// domain and level.
func (q Query) Validate() error {
	switch q.Operation {
	case OpCompareDomains, OpRankings, OpAnomaly, OpAdvanced:
	default:
		return errors.New(errors.ErrCodeQuerySchemaInvalid, "unknown operation").
			WithDetail(string(q.Operation))
	}
	if q.Domain != "" {
		if _, err := common.ParseDomain(q.Domain); err != nil {
			return errors.New(errors.ErrCodeQuerySchemaInvalid, "unknown domain").WithDetail(q.Domain)
		}
	}
	for _, d := range q.Domains {
		if _, err := common.ParseDomain(d); err != nil {
			return errors.New(errors.ErrCodeQuerySchemaInvalid, "unknown domain").WithDetail(d)
		}
	}
	if q.Level != "" {
		if _, err := common.ParseLevel(q.Level); err != nil {
			return errors.New(errors.ErrCodeQuerySchemaInvalid, "unknown level").WithDetail(q.Level)
		}
	}
	return nil
}

// Parse decodes and validates a structured query from its persisted JSON.
func Parse(data []byte) (Query, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return Query{}, errors.Wrap(err, errors.ErrCodeQuerySchemaInvalid, "malformed structured query")
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// MarshalBinary lets a Query be stored directly where bytes are expected.
func (q Query) MarshalBinary() ([]byte, error) {
	return json.Marshal(q)
}
