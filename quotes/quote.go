package quotes

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
)

// Quote is one price observation for a symbol.
type Quote struct {
	Symbol   string  `json:"symbol"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Currency string  `json:"currency"`
	Venue    string  `json:"venue"`
	AsOf     string  `json:"asOf"`
}

func (q *Quote) String() string {
	return fmt.Sprintf("Symbol: %s, Bid: %.4f, Ask: %.4f, Currency: %s, Venue: %s, AsOf: %s",
		q.Symbol, q.Bid, q.Ask, q.Currency, q.Venue, q.AsOf)
}

type QuoteRequestPayload struct {
	Symbols []string `json:"symbols"`
}

type QuoteResponsePayload struct {
	Quotes []Quote `json:"quotes"`
}

var symbolUniverse = []string{
	"AAPL", "MSFT", "GOOG", "AMZN", "NVDA", "TSLA", "META", "AMD", "INTC", "ORCL",
}

var venues = []string{"XNAS", "XNYS", "ARCX", "BATS"}

// PickSymbols returns N distinct symbols from the universe.
func PickSymbols(n int) []string {
	if n > len(symbolUniverse) {
		n = len(symbolUniverse)
	}
	perm := rand.Perm(len(symbolUniverse))
	symbols := make([]string, n)
	for i := 0; i < n; i++ {
		symbols[i] = symbolUniverse[perm[i]]
	}
	return symbols
}

// SimulateQuote generates a plausible quote for symbol, used when no live
// endpoint is reachable.
func SimulateQuote(symbol string) Quote {
	bid := 50 + rand.Float64()*450
	spread := 0.01 + rand.Float64()*0.1

	return Quote{
		Symbol:   symbol,
		Bid:      bid,
		Ask:      bid + spread,
		Currency: "USD",
		Venue:    venues[rand.Intn(len(venues))],
		AsOf:     time.Now().UTC().Format(time.RFC3339),
	}
}
