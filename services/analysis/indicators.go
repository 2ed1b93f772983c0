package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInsufficientData is returned when a series is shorter than an
// indicator's period. Callers match it with errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// All functions in this package are pure: same input series, same output,
// no shared state. Index 0 is the oldest bar.

// SMA calculates the Simple Moving Average over the last period closes
func SMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 || len(closes) < period {
		return decimal.Zero, fmt.Errorf("SMA%d: %w", period, ErrInsufficientData)
	}

	sum := decimal.Zero
	for _, price := range closes[len(closes)-period:] {
		sum = sum.Add(price)
	}

	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// EMA calculates the Exponential Moving Average. The recurrence is seeded
// with the oldest close and applied across the entire series rather than a
// trailing window; that full-history behavior is deliberate and kept as is.
func EMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 || len(closes) < period {
		return decimal.Zero, fmt.Errorf("EMA%d: %w", period, ErrInsufficientData)
	}

	multiplier := decimal.NewFromFloat(2.0 / float64(period+1))
	ema := closes[0]

	for i := 1; i < len(closes); i++ {
		ema = closes[i].Sub(ema).Mul(multiplier).Add(ema)
	}

	return ema, nil
}

// RSI calculates the Relative Strength Index from the first period deltas.
// Gains and losses are averaged once over that window; there is no Wilder
// smoothing continuation. Output is always within [0, 100].
func RSI(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 || len(closes) < period+1 {
		return decimal.Zero, fmt.Errorf("RSI%d: %w", period, ErrInsufficientData)
	}

	gains := decimal.Zero
	losses := decimal.Zero

	for i := 1; i <= period; i++ {
		change := closes[i].Sub(closes[i-1])
		if change.GreaterThan(decimal.Zero) {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}

	avgGain := gains.Div(decimal.NewFromInt(int64(period)))
	avgLoss := losses.Div(decimal.NewFromInt(int64(period)))

	if avgLoss.IsZero() {
		return decimal.NewFromInt(100), nil
	}

	rs := avgGain.Div(avgLoss)
	rsi := decimal.NewFromInt(100).Sub(
		decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)),
	)

	return rsi, nil
}

// MACDResult holds MACD calculation results
type MACDResult struct {
	MACD      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD calculates the MACD line as EMA12 - EMA26. The signal line is a fixed
// 0.9 multiple of the MACD line, not a true 9-period EMA of MACD; callers
// must not treat signal or histogram as rigorous.
func MACD(closes []decimal.Decimal) (*MACDResult, error) {
	ema12, err := EMA(closes, 12)
	if err != nil {
		return nil, fmt.Errorf("MACD: %w", ErrInsufficientData)
	}

	ema26, err := EMA(closes, 26)
	if err != nil {
		return nil, fmt.Errorf("MACD: %w", ErrInsufficientData)
	}

	macd := ema12.Sub(ema26)
	signal := macd.Mul(decimal.NewFromFloat(0.9)) // simplified signal line
	histogram := macd.Sub(signal)

	return &MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: histogram,
	}, nil
}

// BollingerBands holds the three band values
type BollingerBands struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// Bollinger calculates Bollinger Bands: middle = SMA(period), band width =
// stddev of the trailing window times stdDevMult
func Bollinger(closes []decimal.Decimal, period int, stdDevMult float64) (*BollingerBands, error) {
	sma, err := SMA(closes, period)
	if err != nil {
		return nil, err
	}

	// Standard deviation over the same trailing window, in float64
	var variance float64
	smaFloat, _ := sma.Float64()

	for _, price := range closes[len(closes)-period:] {
		closeFloat, _ := price.Float64()
		diff := closeFloat - smaFloat
		variance += diff * diff
	}

	stdDev := math.Sqrt(variance / float64(period))
	band := decimal.NewFromFloat(stdDev * stdDevMult)

	return &BollingerBands{
		Upper:  sma.Add(band),
		Middle: sma,
		Lower:  sma.Sub(band),
	}, nil
}

// StochasticK calculates the Stochastic %K over the trailing window.
// Returns the neutral value 50 when the window's high equals its low.
func StochasticK(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) < period || len(lows) < period {
		return decimal.Zero, fmt.Errorf("STOCH%d: %w", period, ErrInsufficientData)
	}

	highestHigh := highs[len(highs)-period]
	lowestLow := lows[len(lows)-period]

	for _, h := range highs[len(highs)-period:] {
		if h.GreaterThan(highestHigh) {
			highestHigh = h
		}
	}
	for _, l := range lows[len(lows)-period:] {
		if l.LessThan(lowestLow) {
			lowestLow = l
		}
	}

	spread := highestHigh.Sub(lowestLow)
	if spread.IsZero() {
		// Flat window: no range to position the close within
		return decimal.NewFromInt(50), nil
	}

	currentClose := closes[n-1]
	return currentClose.Sub(lowestLow).Div(spread).Mul(decimal.NewFromInt(100)), nil
}

// WilliamsR calculates Williams %R over the trailing window, in [-100, 0].
// Returns -50 when the window is flat.
func WilliamsR(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	k, err := StochasticK(highs, lows, closes, period)
	if err != nil {
		return decimal.Zero, fmt.Errorf("WILLR%d: %w", period, ErrInsufficientData)
	}

	// %R is %K reflected: (close - highestHigh) / range * 100
	return k.Sub(decimal.NewFromInt(100)), nil
}

// Momentum calculates the price change over the last period bars
func Momentum(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 || len(closes) < period+1 {
		return decimal.Zero, fmt.Errorf("MOM%d: %w", period, ErrInsufficientData)
	}

	return closes[len(closes)-1].Sub(closes[len(closes)-1-period]), nil
}

// CCI calculates the Commodity Channel Index over the trailing window using
// typical prices. Returns 0 when the window has no mean deviation.
func CCI(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) < period || len(lows) < period {
		return decimal.Zero, fmt.Errorf("CCI%d: %w", period, ErrInsufficientData)
	}

	three := decimal.NewFromInt(3)
	typical := make([]decimal.Decimal, period)
	sum := decimal.Zero
	for i := 0; i < period; i++ {
		idx := n - period + i
		tp := highs[idx].Add(lows[idx]).Add(closes[idx]).Div(three)
		typical[i] = tp
		sum = sum.Add(tp)
	}

	mean := sum.Div(decimal.NewFromInt(int64(period)))

	deviation := decimal.Zero
	for _, tp := range typical {
		deviation = deviation.Add(tp.Sub(mean).Abs())
	}
	meanDeviation := deviation.Div(decimal.NewFromInt(int64(period)))

	if meanDeviation.IsZero() {
		return decimal.Zero, nil
	}

	current := typical[period-1]
	return current.Sub(mean).Div(meanDeviation.Mul(decimal.NewFromFloat(0.015))), nil
}

// ADX calculates a single-window approximation of the Average Directional
// Index: directional movement and true range are summed once over the
// trailing period without Wilder smoothing, and the resulting DX is returned.
func ADX(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) < period+1 || len(lows) < period+1 {
		return decimal.Zero, fmt.Errorf("ADX%d: %w", period, ErrInsufficientData)
	}

	plusDM := decimal.Zero
	minusDM := decimal.Zero
	trueRange := decimal.Zero

	for i := n - period; i < n; i++ {
		upMove := highs[i].Sub(highs[i-1])
		downMove := lows[i-1].Sub(lows[i])

		if upMove.GreaterThan(decimal.Zero) && upMove.GreaterThan(downMove) {
			plusDM = plusDM.Add(upMove)
		}
		if downMove.GreaterThan(decimal.Zero) && downMove.GreaterThan(upMove) {
			minusDM = minusDM.Add(downMove)
		}

		highLow := highs[i].Sub(lows[i])
		highClose := highs[i].Sub(closes[i-1]).Abs()
		lowClose := lows[i].Sub(closes[i-1]).Abs()

		tr := highLow
		if highClose.GreaterThan(tr) {
			tr = highClose
		}
		if lowClose.GreaterThan(tr) {
			tr = lowClose
		}
		trueRange = trueRange.Add(tr)
	}

	if trueRange.IsZero() {
		return decimal.Zero, nil
	}

	hundred := decimal.NewFromInt(100)
	plusDI := plusDM.Div(trueRange).Mul(hundred)
	minusDI := minusDM.Div(trueRange).Mul(hundred)

	diSum := plusDI.Add(minusDI)
	if diSum.IsZero() {
		return decimal.Zero, nil
	}

	return plusDI.Sub(minusDI).Abs().Div(diSum).Mul(hundred), nil
}
