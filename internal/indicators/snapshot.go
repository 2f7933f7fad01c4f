package indicators

// Set bundles every indicator the analysis engine consumes, computed once per
// asset and shared by the threshold, confidence, trend and signal layers.
type Set struct {
	Close  Series
	Volume Series

	SMA20  Series
	SMA50  Series
	SMA200 Series
	EMA20  Series

	MACDLine   Series
	MACDSignal Series
	MACDHist   Series

	BBLower   Series
	BBMiddle  Series
	BBUpper   Series
	Bandwidth Series

	RSI Series
	ATR Series
	ADX Series

	Synthetic bool
}

// Compute evaluates the full indicator set over the input bars. Indicators
// whose warm-up exceeds the series length come back entirely missing rather
// than erroring, so a short history degrades instead of failing.
func Compute(o *OHLCV) *Set {
	s := &Set{
		Close:     Series(o.Close),
		Volume:    Series(o.Volume),
		Synthetic: o.Synthetic,
	}

	s.SMA20 = SMA(o.Close, BollingerPeriod)
	s.SMA50 = SMA(o.Close, FastSMAPeriod)
	s.SMA200 = SMA(o.Close, SlowSMAPeriod)
	s.EMA20 = EMA(o.Close, AlignEMAPeriod)

	s.MACDLine, s.MACDSignal, s.MACDHist = MACD(o.Close, MACDFast, MACDSlow, MACDSignal)
	s.BBLower, s.BBMiddle, s.BBUpper, s.Bandwidth = Bollinger(o.Close, BollingerPeriod, BollingerK)
	s.RSI = RSI(o.Close, RSIPeriod)
	s.ATR = ATR(o.High, o.Low, o.Close, ATRPeriod)
	s.ADX = ADX(o.High, o.Low, o.Close, ADXPeriod)

	return s
}
