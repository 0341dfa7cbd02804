package quoteengine

import (
	"fmt"

	"go.uber.org/zap"
)

// failedLogGroupSize caps how many failed-quote debug log lines are
// grouped into a single structured log entry (§4.6 "aggregated into a
// debug log in chunks of 80 to avoid log spam").
const failedLogGroupSize = 80

// AssembleResults reconstructs per-(route, amount) QuoteRecords from the
// flat, positionally-ordered RawQuoteResult vector (§4.6). flat must be
// concatenated from successful batches' results in chunk order and have
// exactly len(routes)*len(amounts) entries.
func AssembleResults(routes []RouteSpec, amounts []Amount, flat []RawQuoteResult, logger *zap.Logger) ([]RouteQuotes, error) {
	if len(routes) == 0 || len(amounts) == 0 {
		return nil, nil
	}

	expected := len(routes) * len(amounts)
	if len(flat) != expected {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrInvalidInputLayout, expected, len(flat))
	}

	out := make([]RouteQuotes, len(routes))
	var failedEntries []string

	for ri, route := range routes {
		slice := flat[ri*len(amounts) : (ri+1)*len(amounts)]
		records := make([]QuoteRecord, len(amounts))

		for ai, amount := range amounts {
			raw := slice[ai]
			if raw.Success {
				records[ai] = QuoteRecord{
					Amount:       amount,
					OutputAmount: raw.OutputAmount,
					PoolStates:   raw.PoolStates,
					GasEstimate:  raw.GasEstimate,
				}
				continue
			}

			records[ai] = QuoteRecord{Amount: amount, Absent: true}
			percent := percentLabel(ai, len(amounts))
			failedEntries = append(failedEntries, fmt.Sprintf("route=%d amount=%s (%.2f%%)", ri, amount.String(), percent))
		}

		out[ri] = RouteQuotes{Route: route, Records: records}
	}

	logFailedEntriesGrouped(logger, failedEntries)

	return out, nil
}

// percentLabel follows §4.6: percent = (100 / |amounts|) * (index + 1),
// reflecting that callers typically issue quotes at evenly-spaced
// fractions of a trade.
func percentLabel(index, numAmounts int) float64 {
	return (100.0 / float64(numAmounts)) * float64(index+1)
}

func logFailedEntriesGrouped(logger *zap.Logger, entries []string) {
	for start := 0; start < len(entries); start += failedLogGroupSize {
		end := start + failedLogGroupSize
		if end > len(entries) {
			end = len(entries)
		}
		logger.Debug("quotes absent for inputs", zap.Strings("entries", entries[start:end]))
	}
}
