// Package market provides the stock trading tools: a price lookup and a
// purchase that requires human approval before it completes.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/interrupt"
	"github.com/tailored-agentic-units/tradedesk/tools"
)

// Tool names.
const (
	GetStockPrice = "get_stock_price"
	BuyStocks     = "buy_stocks"
)

// Outcome text returned to the model when a purchase is rejected.
const Declined = "buying declined"

// Config holds the fixed price table. Symbols are matched exactly.
type Config struct {
	Prices map[string]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
}

// DefaultConfig returns the built-in price table.
func DefaultConfig() Config {
	return Config{
		Prices: map[string]float64{
			"MSFT": 200.34,
			"AAPL": 190.2,
			"AMZN": 89.9,
		},
	}
}

// Merge applies non-zero values from source into c. Source prices are added
// to, or override, the existing table.
func (c *Config) Merge(source *Config) {
	if len(source.Prices) == 0 {
		return
	}
	if c.Prices == nil {
		c.Prices = make(map[string]float64, len(source.Prices))
	}
	maps.Copy(c.Prices, source.Prices)
}

// Desk serves the market tools over a price table.
type Desk struct {
	prices map[string]float64
}

// New creates a Desk from configuration.
func New(cfg *Config) *Desk {
	return &Desk{prices: maps.Clone(cfg.Prices)}
}

// Price returns the price of symbol, or 0 for unknown symbols.
func (d *Desk) Price(symbol string) float64 {
	return d.prices[symbol]
}

// Register adds get_stock_price and buy_stocks to reg.
func (d *Desk) Register(reg *tools.Registry) error {
	if err := reg.Register(PriceTool(), d.getStockPrice); err != nil {
		return err
	}
	return reg.Register(BuyTool(), d.buyStocks)
}

// Register adds the market tools backed by cfg to reg.
func Register(reg *tools.Registry, cfg *Config) error {
	return New(cfg).Register(reg)
}

// PriceTool returns the get_stock_price definition.
func PriceTool() protocol.Tool {
	return protocol.Tool{
		Name:        GetStockPrice,
		Description: "Return the current price of a stock given the stock symbol",
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol": {Type: "string", Description: "stock symbol"},
			},
			Required: []string{"symbol"},
		},
	}
}

// BuyTool returns the buy_stocks definition.
func BuyTool() protocol.Tool {
	return protocol.Tool{
		Name:        BuyStocks,
		Description: "buy stocks given the stock symbol and quantity",
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol":      {Type: "string", Description: "stock symbol"},
				"quantity":    {Type: "integer", Description: "number of shares"},
				"total_price": {Type: "number", Description: "total price of the purchase"},
			},
			Required: []string{"symbol", "quantity", "total_price"},
		},
	}
}

type priceArgs struct {
	Symbol string `json:"symbol"`
}

type buyArgs struct {
	Symbol     string  `json:"symbol"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
}

func (d *Desk) getStockPrice(_ context.Context, args json.RawMessage) (tools.Result, error) {
	var a priceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tools.Result{}, fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
	}
	return tools.Result{Content: FormatFloat(d.Price(a.Symbol))}, nil
}

// buyStocks always suspends for approval; only the literal decision "yes"
// completes the purchase.
func (d *Desk) buyStocks(ctx context.Context, args json.RawMessage) (tools.Result, error) {
	var a buyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tools.Result{}, fmt.Errorf("%w: %v", tools.ErrInvalidArguments, err)
	}

	decision, err := interrupt.Suspend(ctx, ApprovalPrompt(a.Symbol, a.Quantity, a.TotalPrice))
	if err != nil {
		return tools.Result{}, err
	}

	if !decision.Approved() {
		return tools.Result{Content: Declined}, nil
	}
	return tools.Result{
		Content: fmt.Sprintf("you bought %d shares of %s for a total price of %s",
			a.Quantity, a.Symbol, FormatFloat(a.TotalPrice)),
	}, nil
}

// ApprovalPrompt renders the question put to the approver for a purchase.
func ApprovalPrompt(symbol string, quantity int, totalPrice float64) string {
	return fmt.Sprintf("Approve buying %d %s stocks for $%.2f?", quantity, symbol, totalPrice)
}

// FormatFloat renders f in its shortest exact form, keeping a trailing ".0"
// on integral values: 190.2, 3804.0, 0.0.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
