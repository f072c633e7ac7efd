package metrics

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// StartServer serves /health and /metrics over HTTP for external probing.
// The returned server can be shut down by the caller.
func StartServer(addr string, counters *Counters, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if counters.Alive() {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "not running")
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "signals_generated_total %d\n", counters.SignalsGenerated())
		fmt.Fprintf(w, "trades_executed_total %d\n", counters.TradesExecuted())
		fmt.Fprintf(w, "errors_total %d\n", counters.ErrorsTotal())
		fmt.Fprintf(w, "realized_pnl %g\n", counters.RealizedPnL())
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("Metrics server listening", zap.String("addr", addr))
	return server
}
