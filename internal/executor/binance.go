package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"crypto-backtester/internal/model"
	"crypto-backtester/internal/service"
)

// BinanceSink submits spot market orders to Binance.
type BinanceSink struct {
	client *binance.Client
	logger *zap.Logger
}

func NewBinanceSink(cfg service.ExchangeConfig, logger *zap.Logger) (*BinanceSink, error) {
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		client.SetApiEndpoint("https://testnet.binance.vision")
	}
	return &BinanceSink{
		client: client,
		logger: logger.With(zap.String("sink", "binance")),
	}, nil
}

func (s *BinanceSink) Submit(ctx context.Context, symbol string, side model.Action, quantity float64) (float64, error) {
	orderSide := binance.SideTypeBuy
	if side == model.ActionSell {
		orderSide = binance.SideTypeSell
	}

	order, err := s.client.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSide).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64)).
		Do(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s %s", ErrOrderTimeout, side, symbol)
		}
		return 0, fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}

	fillPrice, err := averageFillPrice(order)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Order filled",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("qty", quantity),
		zap.Float64("price", fillPrice),
		zap.Int64("order_id", order.OrderID))
	return fillPrice, nil
}

// averageFillPrice computes the quantity-weighted price over the order's
// fills.
func averageFillPrice(order *binance.CreateOrderResponse) (float64, error) {
	var totalQty, totalQuote float64
	for _, fill := range order.Fills {
		price, err := service.StringToFloat(fill.Price)
		if err != nil {
			return 0, fmt.Errorf("parsing fill price %q: %w", fill.Price, err)
		}
		qty, err := service.StringToFloat(fill.Quantity)
		if err != nil {
			return 0, fmt.Errorf("parsing fill qty %q: %w", fill.Quantity, err)
		}
		totalQty += qty
		totalQuote += qty * price
	}
	if totalQty == 0 {
		return 0, fmt.Errorf("%w: order %d reported no fills", ErrOrderRejected, order.OrderID)
	}
	return totalQuote / totalQty, nil
}
