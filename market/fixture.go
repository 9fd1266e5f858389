package market

import (
	"encoding/json"
	"fmt"
	"os"
)

// Fixture is the on-disk shape for a replay session: balances, quotes and
// candle windows per symbol and timeframe. Candle rows use the
// [ts, open, high, low, close, volume] wire shape.
type Fixture struct {
	Balance Balance                           `json:"balance"`
	Tickers []Ticker                          `json:"tickers"`
	Candles map[string]map[string][][]float64 `json:"candles"`
}

// LoadFixture builds a Replay feed from a JSON fixture file.
func LoadFixture(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	r := NewReplay()
	if f.Balance != nil {
		r.SetBalance(f.Balance)
	}
	for _, t := range f.Tickers {
		r.SetTicker(t)
	}
	for symbol, frames := range f.Candles {
		for timeframe, rows := range frames {
			cs := make([]Candle, 0, len(rows))
			for i, row := range rows {
				if len(row) != 6 {
					return nil, fmt.Errorf("fixture %s: %s %s row %d: want 6 fields, got %d",
						path, symbol, timeframe, i, len(row))
				}
				cs = append(cs, Candle{
					TS:     int64(row[0]),
					Open:   row[1],
					High:   row[2],
					Low:    row[3],
					Close:  row[4],
					Volume: row[5],
				})
			}
			r.SetCandles(symbol, timeframe, cs)
		}
	}
	return r, nil
}
