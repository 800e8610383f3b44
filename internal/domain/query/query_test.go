package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidQuery(t *testing.T) {
	q, err := Parse([]byte(`{"operation":"anomaly","domain":"population","level":"emd","z_threshold":2.5}`))
	require.NoError(t, err)
	assert.Equal(t, OpAnomaly, q.Operation)
	assert.Equal(t, "population", q.Domain)
	assert.Equal(t, 2.5, q.ZThreshold)
}

func TestParseCompareRangeAndDomains(t *testing.T) {
	q, err := Parse([]byte(`{"operation":"compare_domains","region":"Gangnam-gu","period_from":"2024-03","period_to":"2024-08","domains":["sales"]}`))
	require.NoError(t, err)
	assert.Equal(t, "2024-03", q.PeriodFrom)
	assert.Equal(t, "2024-08", q.PeriodTo)
	assert.Equal(t, []string{"sales"}, q.Domains)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"malformed json":       `{"operation":`,
		"unknown operation":    `{"operation":"explode"}`,
		"unknown domain":       `{"operation":"rankings","domain":"weather"}`,
		"unknown domains item": `{"operation":"compare_domains","domains":["sales","weather"]}`,
		"unknown level":        `{"operation":"rankings","level":"galaxy"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestFallbackIsValid(t *testing.T) {
	fb := Fallback()
	assert.NoError(t, fb.Validate())
	assert.Equal(t, OpRankings, fb.Operation)
	assert.Equal(t, "sig", fb.Level)
}
