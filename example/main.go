// Example usage of the GMX Go SDK
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	gmxsdk "github.com/Dynameik/gmx-go-sdk"
)

func main() {
	// Private key comes from the environment; load a local .env if present.
	_ = godotenv.Load()

	cfg := gmxsdk.MustLoadConfig("config.yaml")

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	client, err := gmxsdk.NewClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	isLong := true

	// Example: open a long BTC position with 2x leverage, collateralized
	// with 0.005 WBTC. Sizes and collateral values are human-readable;
	// the resolver scales them to on-chain units.
	fmt.Println("Opening a position...")
	increase := gmxsdk.OrderRequest{
		Chain:                  cfg.Chain,
		Kind:                   gmxsdk.OrderKindIncrease,
		IndexTokenSymbol:       "BTC",
		CollateralAddr:         "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f", // WBTC
		StartTokenAddr:         "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f",
		IsLong:                 &isLong,
		Leverage:               decimal.NewFromInt(2),
		InitialCollateralDelta: decimal.NewFromFloat(0.005),
		SlippagePercent:        decimal.NewFromFloat(0.003),
	}

	// SubmitModeSimulate builds and signs the transaction without
	// broadcasting it. Switch to SubmitModeLive to send it on-chain.
	outcome, err := client.CreateOrder(ctx, increase, gmxsdk.SubmitModeSimulate)
	if err != nil {
		log.Printf("Failed to create order: %v", err)
	} else {
		fmt.Printf("Order state: %s\n", outcome.State)
		fmt.Printf("Acceptable price (USD): %s\n", outcome.Price.AcceptableUSD)
		fmt.Printf("Execution fee (wei): %s\n", outcome.Envelope.Value)
	}

	// Example: swap 100 USDC for ETH.
	fmt.Println("\nSwapping tokens...")
	swap := gmxsdk.OrderRequest{
		Chain:                  cfg.Chain,
		Kind:                   gmxsdk.OrderKindSwap,
		StartTokenAddr:         "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", // USDC
		OutTokenSymbol:         "ETH",
		InitialCollateralDelta: decimal.NewFromInt(100),
		SlippagePercent:        decimal.NewFromFloat(0.005),
	}

	swapOutcome, err := client.CreateOrder(ctx, swap, gmxsdk.SubmitModeSimulate)
	if err != nil {
		log.Printf("Failed to create swap order: %v", err)
	} else {
		fmt.Printf("Swap state: %s\n", swapOutcome.State)
		fmt.Printf("Gas ceiling: %d\n", swapOutcome.Plan.Ceiling)
	}

	// Example: stream live oracle prices over websocket instead of
	// polling the REST snapshot endpoint.
	fmt.Println("\nStreaming prices...")
	stream := gmxsdk.NewPriceStream(gmxsdk.PriceStreamConfig{
		Endpoint: "wss://arbitrum-api.gmxinfra.io/ws",
		OnQuote: func(q gmxsdk.PriceQuote) {
			fmt.Printf("Quote %s: %s / %s\n", q.TokenAddr, q.Min, q.Max)
		},
		OnError: func(err error) {
			log.Printf("Stream error: %v", err)
		},
	})
	if err := stream.Connect(ctx); err != nil {
		log.Printf("Failed to connect price stream: %v", err)
		return
	}
	defer stream.Disconnect()

	if err := stream.Subscribe("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"); err != nil {
		log.Printf("Failed to subscribe: %v", err)
	}
}
