package service

import (
	"fmt"

	"github.com/spf13/viper"
)

// EngineConfig holds the simulation parameters shared by backtests and the
// live loop.
type EngineConfig struct {
	StartingBalance float64 `mapstructure:"starting_balance"`
	FeeBps          float64 `mapstructure:"fee_bps"`
	TradeSize       float64 `mapstructure:"trade_size"`
}

// TradingWindow restricts new discretionary trades to [StartHour, EndHour)
// UTC. Both zero disables the window check.
type TradingWindow struct {
	StartHour int `mapstructure:"start_hour"`
	EndHour   int `mapstructure:"end_hour"`
}

// RiskSettings configures the risk gate.
type RiskSettings struct {
	MaxTradesPerDay int           `mapstructure:"max_trades_per_day"` // 0 = unlimited
	MaxPositionPct  float64       `mapstructure:"max_position_pct"`
	TradingWindow   TradingWindow `mapstructure:"trading_window"`
	StopLossPct     float64       `mapstructure:"stop_loss_pct"`     // 0 disables
	TakeProfitPct   float64       `mapstructure:"take_profit_pct"`   // 0 disables
	TrailingStopPct float64       `mapstructure:"trailing_stop_pct"` // 0 disables
	// CountForcedExits makes SL/TP-forced closes count toward the daily cap.
	// Default false: risk-forced exits are exempt.
	CountForcedExits bool              `mapstructure:"count_forced_exits"`
	Guardrails       GuardrailSettings `mapstructure:"guardrails"`
}

// GuardrailSettings are portfolio-level protections applied to new entries.
type GuardrailSettings struct {
	// MaxDrawdownPct halts new entries when month-to-date equity drawdown
	// exceeds this fraction. 0 disables the halt.
	MaxDrawdownPct float64 `mapstructure:"max_drawdown_pct"`
	// LossLimit is the number of consecutive losing trades that triggers a
	// cooldown.
	LossLimit int `mapstructure:"loss_limit"`
	// CooldownMinutes is how long new entries stay blocked after the loss
	// limit is hit. 0 disables the cooldown.
	CooldownMinutes int `mapstructure:"cooldown_minutes"`
}

// StrategyConfig selects a signal generator by registry key.
type StrategyConfig struct {
	Name   string             `mapstructure:"name"`
	Params map[string]float64 `mapstructure:"params"`
}

// ExchangeConfig holds market-data and order endpoints.
type ExchangeConfig struct {
	Symbol    string `mapstructure:"symbol"`
	Interval  string `mapstructure:"interval"`
	APIKey    string `mapstructure:"api_key"`
	SecretKey string `mapstructure:"secret_key"`
	WSURL     string `mapstructure:"ws_url"`
	Testnet   bool   `mapstructure:"testnet"`
}

// LiveConfig drives the live monitoring loop.
type LiveConfig struct {
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	CandleLimit         int    `mapstructure:"candle_limit"`
	Feed                string `mapstructure:"feed"` // "rest" or "stream"
	DryRun              bool   `mapstructure:"dry_run"`
	MaxRetries          int    `mapstructure:"max_retries"`
}

// TunerConfig names the parameter grid searched in tune mode. Each key maps
// to the list of values to try; the search covers the cartesian product.
type TunerConfig struct {
	Grid map[string][]float64 `mapstructure:"grid"`
}

// StorageConfig points at the InfluxDB signal/trade sink.
type StorageConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	Token        string `mapstructure:"token"`
	Organization string `mapstructure:"organization"`
	Bucket       string `mapstructure:"bucket"`
}

// MetricsConfig exposes the health/metrics HTTP surface.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Risk     RiskSettings   `mapstructure:"risk"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Live     LiveConfig     `mapstructure:"live"`
	Tuner    TunerConfig    `mapstructure:"tuner"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoadConfig reads config.yaml from configPath and validates it.
// Configuration errors are fatal: no partial run begins.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetDefault("engine.starting_balance", 10000.0)
	v.SetDefault("engine.trade_size", 1.0)
	v.SetDefault("exchange.interval", "1m")
	v.SetDefault("live.poll_interval_seconds", 60)
	v.SetDefault("live.candle_limit", 100)
	v.SetDefault("live.feed", "rest")
	v.SetDefault("live.dry_run", true)
	v.SetDefault("live.max_retries", 3)
	v.SetDefault("strategy.name", "sma")
	v.SetDefault("risk.guardrails.loss_limit", 3)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run safely under.
func (c *Config) Validate() error {
	if c.Engine.StartingBalance <= 0 {
		return fmt.Errorf("engine.starting_balance must be positive, got %v", c.Engine.StartingBalance)
	}
	if c.Engine.FeeBps < 0 {
		return fmt.Errorf("engine.fee_bps must be non-negative, got %v", c.Engine.FeeBps)
	}
	if c.Engine.TradeSize <= 0 {
		return fmt.Errorf("engine.trade_size must be positive, got %v", c.Engine.TradeSize)
	}
	if c.Live.Feed != "rest" && c.Live.Feed != "stream" {
		return fmt.Errorf("live.feed must be \"rest\" or \"stream\", got %q", c.Live.Feed)
	}
	return c.Risk.Validate()
}

// Validate checks the risk gate settings.
func (r *RiskSettings) Validate() error {
	if r.MaxTradesPerDay < 0 {
		return fmt.Errorf("risk.max_trades_per_day must be >= 0, got %d", r.MaxTradesPerDay)
	}
	if r.MaxPositionPct < 0 || r.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1] or 0 to disable, got %v", r.MaxPositionPct)
	}
	w := r.TradingWindow
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("risk.trading_window hours must be in 0-23, got [%d, %d)", w.StartHour, w.EndHour)
	}
	if r.StopLossPct < 0 || r.StopLossPct >= 1 {
		return fmt.Errorf("risk.stop_loss_pct must be in [0, 1), got %v", r.StopLossPct)
	}
	if r.TakeProfitPct < 0 {
		return fmt.Errorf("risk.take_profit_pct must be non-negative, got %v", r.TakeProfitPct)
	}
	if r.TrailingStopPct < 0 || r.TrailingStopPct >= 1 {
		return fmt.Errorf("risk.trailing_stop_pct must be in [0, 1), got %v", r.TrailingStopPct)
	}
	return r.Guardrails.Validate()
}

// Validate checks the guardrail settings.
func (g *GuardrailSettings) Validate() error {
	if g.MaxDrawdownPct < 0 || g.MaxDrawdownPct >= 1 {
		return fmt.Errorf("risk.guardrails.max_drawdown_pct must be in [0, 1), got %v", g.MaxDrawdownPct)
	}
	if g.LossLimit < 0 {
		return fmt.Errorf("risk.guardrails.loss_limit must be >= 0, got %d", g.LossLimit)
	}
	if g.CooldownMinutes < 0 {
		return fmt.Errorf("risk.guardrails.cooldown_minutes must be >= 0, got %d", g.CooldownMinutes)
	}
	return nil
}

// Enabled reports whether the window check is active.
func (w TradingWindow) Enabled() bool {
	return w.StartHour != 0 || w.EndHour != 0
}

// Contains reports whether hour falls within [StartHour, EndHour).
// Windows wrapping midnight (e.g. 22 to 4) are supported.
func (w TradingWindow) Contains(hour int) bool {
	if !w.Enabled() {
		return true
	}
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}
