// Package query turns natural-language questions into market-data lookups.
// The parser classifies the intent with keyword and pattern scoring; the
// interpreter executes the matching read-model query.
package query

import (
	"regexp"
	"strings"
)

// IntentType is the fixed set of recognized question categories.
type IntentType string

const (
	IntentPumpAndDump    IntentType = "pump_and_dump"
	IntentBottomedOut    IntentType = "bottomed_out"
	IntentUptrend        IntentType = "uptrend"
	IntentDowntrend      IntentType = "downtrend"
	IntentHighVolatility IntentType = "high_volatility"
	IntentVolumeSpike    IntentType = "volume_spike"
	IntentTrending       IntentType = "trending"
	IntentPerformance    IntentType = "performance"
)

// Intent is the parsed form of a query.
type Intent struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
	Symbols    []string   `json:"cryptocurrencies,omitempty"`
	Timeframe  string     `json:"timeframe,omitempty"`
}

// Scoring increments: each keyword hit is worth less than a pattern hit.
const (
	keywordWeight = 0.2
	patternWeight = 0.3
)

type intentRule struct {
	intent   IntentType
	keywords []string
	patterns []*regexp.Regexp
}

// Rules are checked in order; on score ties the earlier intent wins.
var intentRules = []intentRule{
	{
		intent:   IntentPumpAndDump,
		keywords: []string{"pump", "dump", "pumped", "manipulation", "manipulated"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`pump\s*(and|&|n)?\s*dump`),
			regexp.MustCompile(`(got|being|was)\s+pumped`),
		},
	},
	{
		intent:   IntentBottomedOut,
		keywords: []string{"bottom", "bottomed", "rebound", "rebounding", "recovery", "recovering"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(hit|found|reached)\s+(the\s+)?bottom`),
			regexp.MustCompile(`bottomed\s+out`),
		},
	},
	{
		intent:   IntentUptrend,
		keywords: []string{"uptrend", "rising", "bullish", "gaining", "climbing", "upward"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`going\s+up`),
			regexp.MustCompile(`(in|on)\s+an?\s+uptrend`),
		},
	},
	{
		intent:   IntentDowntrend,
		keywords: []string{"downtrend", "falling", "bearish", "declining", "dropping", "downward"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`going\s+down`),
			regexp.MustCompile(`(in|on)\s+a\s+downtrend`),
		},
	},
	{
		intent:   IntentHighVolatility,
		keywords: []string{"volatile", "volatility", "unstable", "swinging", "erratic"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(high|most|big)\s+volatility`),
			regexp.MustCompile(`price\s+swings?`),
		},
	},
	{
		intent:   IntentVolumeSpike,
		keywords: []string{"volume"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`volume\s+(spike|surge|anomal)`),
			regexp.MustCompile(`(unusual|abnormal|high)\s+volume`),
		},
	},
	{
		intent:   IntentTrending,
		keywords: []string{"trending", "popular", "hot", "active", "buzzing"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`what'?s\s+(trending|hot|moving)`),
			regexp.MustCompile(`most\s+active`),
		},
	},
	{
		intent:   IntentPerformance,
		keywords: []string{"performance", "performing", "performers", "gainers", "losers"},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(best|worst|top)\s+perform`),
			regexp.MustCompile(`(biggest|top)\s+(gainers?|losers?)`),
		},
	},
}

// knownSymbols maps common names and tickers to canonical symbols. The
// parser also picks up $TICKER mentions for anything not listed here.
var knownSymbols = map[string]string{
	"bitcoin":   "BTC",
	"btc":       "BTC",
	"ethereum":  "ETH",
	"eth":       "ETH",
	"solana":    "SOL",
	"sol":       "SOL",
	"cardano":   "ADA",
	"ada":       "ADA",
	"ripple":    "XRP",
	"xrp":       "XRP",
	"dogecoin":  "DOGE",
	"doge":      "DOGE",
	"polkadot":  "DOT",
	"dot":       "DOT",
	"litecoin":  "LTC",
	"ltc":       "LTC",
	"chainlink": "LINK",
	"link":      "LINK",
	"avalanche": "AVAX",
	"avax":      "AVAX",
}

var (
	dollarSymbolRe = regexp.MustCompile(`\$([a-zA-Z]{2,6})\b`)
	wordRe         = regexp.MustCompile(`[a-z0-9]+`)
)

// timeframePatterns map phrases to the supported cutoff timeframes.
var timeframePatterns = []struct {
	re        *regexp.Regexp
	timeframe string
}{
	{regexp.MustCompile(`(last|past)\s+hour|1\s*h(our)?\b`), "1h"},
	{regexp.MustCompile(`(last|past)\s+(24\s*hours?|day)|24\s*h\b|today`), "24h"},
	{regexp.MustCompile(`(last|past)\s+(week|7\s*days?)|7\s*d\b|weekly`), "7d"},
	{regexp.MustCompile(`(last|past)\s+(month|30\s*days?)|30\s*d\b|monthly`), "30d"},
}

// Parser classifies free-text queries. It is stateless and safe for
// concurrent use.
type Parser struct{}

// NewParser returns a query parser.
func NewParser() *Parser { return &Parser{} }

// Parse classifies the query. A zero-confidence result with empty Type means
// no intent matched.
func (p *Parser) Parse(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Intent{}
	}

	var best Intent
	for _, rule := range intentRules {
		score := 0.0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				score += keywordWeight
			}
		}
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				score += patternWeight
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		if score > best.Confidence {
			best.Type = rule.intent
			best.Confidence = score
		}
	}
	if best.Type == "" {
		return Intent{}
	}

	best.Symbols = extractSymbols(lower)
	best.Timeframe = extractTimeframe(lower)
	return best
}

func extractSymbols(lower string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(sym string) {
		if sym != "" && !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}

	for _, m := range dollarSymbolRe.FindAllStringSubmatch(lower, -1) {
		add(strings.ToUpper(m[1]))
	}
	for _, word := range wordRe.FindAllString(lower, -1) {
		add(knownSymbols[word])
	}
	return out
}

func extractTimeframe(lower string) string {
	for _, tp := range timeframePatterns {
		if tp.re.MatchString(lower) {
			return tp.timeframe
		}
	}
	return ""
}

// Interpretation renders a human-readable restatement of the parsed intent.
func (in Intent) Interpretation() string {
	var subject string
	switch in.Type {
	case IntentPumpAndDump:
		subject = "pump and dump patterns"
	case IntentBottomedOut:
		subject = "coins that bottomed out and are recovering"
	case IntentUptrend:
		subject = "coins in an uptrend"
	case IntentDowntrend:
		subject = "coins in a downtrend"
	case IntentHighVolatility:
		subject = "coins with high price volatility"
	case IntentVolumeSpike:
		subject = "unusual volume activity"
	case IntentTrending:
		subject = "the most active coins"
	case IntentPerformance:
		subject = "the best performing coins"
	default:
		return "Unrecognized query"
	}

	b := strings.Builder{}
	b.WriteString("Looking for ")
	b.WriteString(subject)
	if len(in.Symbols) > 0 {
		b.WriteString(" among ")
		b.WriteString(strings.Join(in.Symbols, ", "))
	}
	switch in.Timeframe {
	case "1h":
		b.WriteString(" in the last hour")
	case "7d":
		b.WriteString(" in the last 7 days")
	case "30d":
		b.WriteString(" in the last 30 days")
	default:
		b.WriteString(" in the last 24 hours")
	}
	return b.String()
}

// SupportedQuery documents one intent for the examples endpoint.
type SupportedQuery struct {
	Intent      IntentType `json:"intent"`
	Description string     `json:"description"`
	Examples    []string   `json:"examples"`
}

// SupportedQueries lists every recognized intent with example phrasings.
func SupportedQueries() []SupportedQuery {
	return []SupportedQuery{
		{IntentPumpAndDump, "Detected pump and dump patterns", []string{
			"show me pump and dump coins",
			"which coins got pumped today",
		}},
		{IntentBottomedOut, "Coins that bottomed out and started recovering", []string{
			"which coins bottomed out this week",
			"coins that hit the bottom and are rebounding",
		}},
		{IntentUptrend, "Coins classified as trending up", []string{
			"what coins are in an uptrend",
			"show me bullish coins in the last 7 days",
		}},
		{IntentDowntrend, "Coins classified as trending down", []string{
			"which coins are falling",
			"bearish coins today",
		}},
		{IntentHighVolatility, "Coins with the biggest price swings", []string{
			"most volatile coins this week",
			"show me coins with high volatility",
		}},
		{IntentVolumeSpike, "Signals with unusual trading volume", []string{
			"coins with volume spikes",
			"unusual volume in the last 24 hours",
		}},
		{IntentTrending, "Coins with the most analysis activity", []string{
			"what's trending right now",
			"most active coins today",
		}},
		{IntentPerformance, "Assets ranked by recent percent change", []string{
			"best performing coins in the last 24 hours",
			"top gainers this week",
		}},
	}
}
