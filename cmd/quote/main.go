package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/hustler-market/internal/config"
	"github.com/aman-zulfiqar/hustler-market/internal/indexer"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "slippage", "slippage | max | preview")
	poolQty := flag.Float64("pool-qty", 0, "commodity reserve of the pool")
	poolCash := flag.Float64("pool-cash", 0, "cash reserve of the pool")
	delta := flag.Int64("delta", 0, "signed trade size: positive buys, negative sells")
	cash := flag.Float64("cash", 0, "cash available for -mode max")
	game := flag.String("game", "", "game id for -mode preview")
	player := flag.String("player", "", "player id for -mode preview")
	location := flag.String("location", "", "location slug for -mode preview")
	drug := flag.String("drug", "", "drug slug for -mode preview")
	dir := flag.String("dir", "buy", "buy | sell")
	qty := flag.Uint64("qty", 0, "quantity for -mode preview")
	flag.Parse()

	pool := market.MarketPool{Quantity: *poolQty, Cash: *poolCash}

	switch *mode {
	case "slippage":
		res, err := market.CalculateSignedSlippage(pool, *delta)
		if err != nil {
			fmt.Println("slippage failed:", err)
			os.Exit(1)
		}
		fmt.Printf("direction=%s quantity=%d spot=%.4f avg_price=%.4f impact=%.4f total=%.2f exhausted=%v\n",
			res.Direction, res.Quantity, res.SpotPrice, res.NewPrice, res.PriceImpact, res.Total, res.Exhausted)
	case "max":
		q, err := market.CalculateMaxQuantity(pool, *cash)
		if err != nil {
			fmt.Println("max quantity failed:", err)
			os.Exit(1)
		}
		fmt.Printf("max_quantity=%d\n", q)
	case "preview":
		d, err := market.ParseTradeDirection(*dir)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		if err := runPreview(trade.Request{
			GameID:    *game,
			PlayerID:  *player,
			Location:  *location,
			Drug:      *drug,
			Direction: d,
			Quantity:  *qty,
		}); err != nil {
			fmt.Println("preview failed:", err)
			os.Exit(1)
		}
	default:
		fmt.Println("invalid -mode (use slippage|max|preview)")
		os.Exit(2)
	}
}

// runPreview prices a request against live indexer state
func runPreview(req trade.Request) error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	planner, err := trade.NewPlanner(trade.PlannerConfig{
		Provider: indexer.NewClient(indexer.ClientConfig{
			BaseURL:      cfg.IndexerURL,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			CashScale:    cfg.CashScale,
			Logger:       logger,
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	pv, err := planner.Preview(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("quantity=%d requested=%d clamped=%v max_buy=%d max_sell=%d avg_price=%.4f total=%s impact=%s\n",
		pv.Request.Quantity, pv.Requested, pv.Clamped, pv.Limits.MaxBuy, pv.Limits.MaxSell,
		pv.Slippage.NewPrice, pv.Total.StringFixed(2), pv.Impact)
	return nil
}
