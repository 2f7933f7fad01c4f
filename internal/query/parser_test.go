package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntents(t *testing.T) {
	p := NewParser()

	cases := []struct {
		text string
		want IntentType
	}{
		{"show me pump and dump coins", IntentPumpAndDump},
		{"which coins got pumped today", IntentPumpAndDump},
		{"which coins bottomed out this week", IntentBottomedOut},
		{"coins that hit the bottom and are rebounding", IntentBottomedOut},
		{"what coins are in an uptrend", IntentUptrend},
		{"show me bullish coins", IntentUptrend},
		{"which coins are falling", IntentDowntrend},
		{"bearish coins going down", IntentDowntrend},
		{"most volatile coins this week", IntentHighVolatility},
		{"big price swings today", IntentHighVolatility},
		{"coins with volume spikes", IntentVolumeSpike},
		{"unusual volume in the last 24 hours", IntentVolumeSpike},
		{"what's trending right now", IntentTrending},
		{"most active coins", IntentTrending},
		{"best performing coins this week", IntentPerformance},
		{"top gainers today", IntentPerformance},
	}
	for _, tc := range cases {
		got := p.Parse(tc.text)
		assert.Equal(t, tc.want, got.Type, "query: %s", tc.text)
		assert.Greater(t, got.Confidence, 0.0, "query: %s", tc.text)
		assert.LessOrEqual(t, got.Confidence, 1.0, "query: %s", tc.text)
	}
}

func TestParseNoMatch(t *testing.T) {
	p := NewParser()
	assert.Equal(t, Intent{}, p.Parse("what is the meaning of life"))
	assert.Equal(t, Intent{}, p.Parse(""))
	assert.Equal(t, Intent{}, p.Parse("   "))
}

func TestParsePatternOutscoresKeyword(t *testing.T) {
	p := NewParser()

	// Keyword plus pattern beats a single keyword hit.
	strong := p.Parse("show me pump and dump coins")
	weak := p.Parse("the dump truck arrived")
	assert.Greater(t, strong.Confidence, weak.Confidence)
}

func TestParseSymbolExtraction(t *testing.T) {
	p := NewParser()

	got := p.Parse("is bitcoin in an uptrend")
	assert.Equal(t, []string{"BTC"}, got.Symbols)

	got = p.Parse("pump and dump on $sol and ethereum")
	assert.ElementsMatch(t, []string{"SOL", "ETH"}, got.Symbols)

	// Duplicates collapse.
	got = p.Parse("bitcoin btc uptrend")
	assert.Equal(t, []string{"BTC"}, got.Symbols)
}

func TestParseTimeframeExtraction(t *testing.T) {
	p := NewParser()

	assert.Equal(t, "1h", p.Parse("volume spikes in the last hour").Timeframe)
	assert.Equal(t, "24h", p.Parse("uptrend coins today").Timeframe)
	assert.Equal(t, "7d", p.Parse("volatile coins this past week").Timeframe)
	assert.Equal(t, "30d", p.Parse("best performers in the last month").Timeframe)
	assert.Equal(t, "", p.Parse("bullish coins").Timeframe)
}

func TestInterpretation(t *testing.T) {
	in := Intent{Type: IntentUptrend, Symbols: []string{"BTC"}, Timeframe: "7d"}
	s := in.Interpretation()
	assert.Contains(t, s, "uptrend")
	assert.Contains(t, s, "BTC")
	assert.Contains(t, s, "7 days")

	in = Intent{Type: IntentPumpAndDump}
	assert.Contains(t, in.Interpretation(), "24 hours")
}

func TestSupportedQueriesCoverAllIntents(t *testing.T) {
	qs := SupportedQueries()
	require.Len(t, qs, 8)

	p := NewParser()
	for _, q := range qs {
		require.NotEmpty(t, q.Examples)
		for _, ex := range q.Examples {
			got := p.Parse(ex)
			assert.Equal(t, q.Intent, got.Type, "example: %s", ex)
		}
	}
}
