package main

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/zhongshixi/waitmap/quotes"
	"github.com/zhongshixi/waitmap/waitmap"
)

const numSymbols = 8
const consumersPerSymbol = 4
const consumerTimeout = 2 * time.Second

type Stats struct {
	Resolved  atomic.Int64
	Cancelled atomic.Int64
	TimedOut  atomic.Int64

	FetchSuccess atomic.Int64
	FetchFailed  atomic.Int64
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "waitmap-demo",
		Level: hclog.Info,
	})

	conf := waitmap.DefaultConfig()
	conf.NumShards = 32

	m, err := waitmap.New[string, quotes.Quote](conf)
	if err != nil {
		logger.Error("failed to create map", "error", err)
		os.Exit(1)
	}

	api := quotes.NewQuoteAPI(os.Getenv("QUOTES_API_ENDPOINT"), os.Getenv("QUOTES_API_TOKEN"))

	stats := &Stats{}
	symbols := quotes.PickSymbols(numSymbols)

	// The last symbol never gets a quote; its waiters are cancelled instead.
	fetched := symbols[:numSymbols-1]
	dropped := symbols[numSymbols-1]

	// Consumers subscribe before any quote exists. Each one either receives
	// the quote published for its symbol, is told the symbol was dropped, or
	// gives up on its own timeout.
	var consumers sync.WaitGroup
	consumers.Add(len(symbols) * consumersPerSymbol)

	for _, symbol := range symbols {
		for i := 0; i < consumersPerSymbol; i++ {
			go func() {
				defer consumers.Done()

				ctx, cancel := context.WithTimeout(context.Background(), consumerTimeout)
				defer cancel()

				quote, ok, err := m.WaitContext(ctx, symbol)
				switch {
				case err != nil:
					stats.TimedOut.Add(1)
					logger.Warn("wait timed out", "symbol", symbol)
				case !ok:
					stats.Cancelled.Add(1)
					logger.Info("symbol dropped", "symbol", symbol)
				default:
					stats.Resolved.Add(1)
					logger.Info("quote received", "symbol", symbol, "bid", quote.Bid, "ask", quote.Ask)
				}
			}()
		}
	}

	// One producer per symbol publishes exactly one quote; every consumer of
	// that symbol is woken by the same insert.
	var producers sync.WaitGroup
	producers.Add(len(fetched))

	for _, symbol := range fetched {
		go func() {
			defer producers.Done()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			quote := quotes.SimulateQuote(symbol)

			response, err := api.GetQuotes(ctx, quotes.QuoteRequestPayload{Symbols: []string{symbol}})
			if err != nil || len(response.Quotes) == 0 {
				stats.FetchFailed.Add(1)
				logger.Debug("falling back to simulated quote", "symbol", symbol, "error", err)
			} else {
				stats.FetchSuccess.Add(1)
				quote = response.Quotes[0]
			}

			m.Insert(symbol, quote)
		}()
	}

	producers.Wait()
	m.Cancel(dropped)
	consumers.Wait()

	logger.Info("done",
		"resolved", stats.Resolved.Load(),
		"cancelled", stats.Cancelled.Load(),
		"timed_out", stats.TimedOut.Load(),
		"fetch_success", stats.FetchSuccess.Load(),
		"fetch_failed", stats.FetchFailed.Load(),
		"entries", m.Len(),
	)

	for _, item := range m.Items() {
		logger.Info("entry", "symbol", item.Key, "quote", item.Value.String())
	}
}
