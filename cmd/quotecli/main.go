// Command quotecli drives the quote engine against a live chain for
// manual testing: it reads a routes/amounts JSON file, fetches quotes,
// and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/routelayer/quote-engine/internal/quoteengine"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quotecli:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		rpcURL         = flag.String("rpc-url", os.Getenv("QUOTE_RPC_URL"), "JSON-RPC endpoint of the chain to quote against")
		chainID        = flag.Uint64("chain-id", 1, "chain id, used to resolve the quoter contract address")
		inputPath      = flag.String("routes", "", "path to a JSON file describing routes and amounts")
		direction      = flag.String("direction", "exact-in", "exact-in or exact-out")
		quoterOverride = flag.String("quoter-address", "", "override the chain registry's quoter contract address")
		blockNumber    = flag.Uint64("block-number", 0, "pin quotes to this block (0 = latest)")
		timeout        = flag.Duration("timeout", 30*time.Second, "overall call timeout")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	if *rpcURL == "" {
		return fmt.Errorf("missing -rpc-url (or QUOTE_RPC_URL)")
	}
	if *inputPath == "" {
		return fmt.Errorf("missing -routes")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, *rpcURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *rpcURL, err)
	}
	defer client.Close()

	aggregator := quoteengine.NewEthAggregator(client)
	engine := quoteengine.NewEngine(aggregator, *chainID, logger)

	req, err := loadRequest(*inputPath)
	if err != nil {
		return fmt.Errorf("load routes file: %w", err)
	}

	cfg := quoteengine.DefaultConfig()
	if *quoterOverride != "" {
		addr := common.HexToAddress(*quoterOverride)
		cfg.QuoterAddressOverride = &addr
	}
	if *blockNumber != 0 {
		cfg.BlockNumber = new(big.Int).SetUint64(*blockNumber)
	}

	var (
		quotes      []quoteengine.RouteQuotes
		resolvedBlk uint64
	)
	switch *direction {
	case "exact-in":
		quotes, resolvedBlk, err = engine.GetQuotesManyExactIn(ctx, req.Amounts, req.Routes, cfg)
	case "exact-out":
		quotes, resolvedBlk, err = engine.GetQuotesManyExactOut(ctx, req.Amounts, req.Routes, cfg)
	default:
		return fmt.Errorf("unknown -direction %q (want exact-in or exact-out)", *direction)
	}
	if err != nil {
		return fmt.Errorf("get quotes: %w", err)
	}

	return printQuotes(os.Stdout, resolvedBlk, quotes)
}

// requestFile is the on-disk shape of the -routes JSON file.
type requestFile struct {
	Routes []struct {
		Pools []struct {
			AssetIn  string `json:"asset_in"`
			AssetOut string `json:"asset_out"`
			Tier     uint32 `json:"tier"`
		} `json:"pools"`
	} `json:"routes"`
	Amounts []struct {
		Raw      string `json:"raw"`
		Asset    string `json:"asset"`
		Decimals uint8  `json:"decimals"`
	} `json:"amounts"`
}

type parsedRequest struct {
	Routes  []quoteengine.RouteSpec
	Amounts []quoteengine.Amount
}

func loadRequest(path string) (parsedRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsedRequest{}, err
	}

	var raw requestFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return parsedRequest{}, fmt.Errorf("parse json: %w", err)
	}

	routes := make([]quoteengine.RouteSpec, len(raw.Routes))
	for i, r := range raw.Routes {
		pools := make([]quoteengine.PoolRef, len(r.Pools))
		for j, p := range r.Pools {
			pools[j] = quoteengine.PoolRef{
				AssetIn:  common.HexToAddress(p.AssetIn),
				AssetOut: common.HexToAddress(p.AssetOut),
				Tier:     p.Tier,
			}
		}
		route, err := quoteengine.NewRouteSpec(pools)
		if err != nil {
			return parsedRequest{}, fmt.Errorf("route %d: %w", i, err)
		}
		routes[i] = route
	}

	amounts := make([]quoteengine.Amount, len(raw.Amounts))
	for i, a := range raw.Amounts {
		rawAmount, ok := new(big.Int).SetString(a.Raw, 10)
		if !ok {
			return parsedRequest{}, fmt.Errorf("amount %d: invalid raw integer %q", i, a.Raw)
		}
		amount, err := quoteengine.NewAmount(rawAmount, a.Asset, a.Decimals)
		if err != nil {
			return parsedRequest{}, fmt.Errorf("amount %d: %w", i, err)
		}
		amounts[i] = amount
	}

	return parsedRequest{Routes: routes, Amounts: amounts}, nil
}

func printQuotes(w *os.File, blockNumber uint64, quotes []quoteengine.RouteQuotes) error {
	type record struct {
		Absent       bool   `json:"absent"`
		Amount       string `json:"amount"`
		OutputAmount string `json:"output_amount,omitempty"`
		GasEstimate  string `json:"gas_estimate,omitempty"`
	}
	type routeOut struct {
		NumPools int      `json:"num_pools"`
		Records  []record `json:"records"`
	}
	out := struct {
		BlockNumber uint64     `json:"block_number"`
		Routes      []routeOut `json:"routes"`
	}{BlockNumber: blockNumber}

	for _, rq := range quotes {
		ro := routeOut{NumPools: rq.Route.NumPools()}
		for _, rec := range rq.Records {
			r := record{Absent: rec.Absent, Amount: rec.Amount.String()}
			if !rec.Absent {
				r.OutputAmount = rec.OutputAmount.String()
				r.GasEstimate = rec.GasEstimate.String()
			}
			ro.Records = append(ro.Records, r)
		}
		out.Routes = append(out.Routes, ro)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
