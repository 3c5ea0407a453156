package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/repository"
)

const (
	quotesTimeout = 3 * time.Second
	maxQuoteIDs   = 100
)

// NewHandler routes the relay endpoints. /raw is the path publishers and
// trackers use by default; /ws is kept as an alias.
func NewHandler(h *hub.Hub, store repository.SnapshotStore, logger *zap.Logger, opts ClientOptions) http.Handler {
	logger = logger.Named("gateway")

	upgrade := func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("Upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		NewClient(conn, h, logger, opts).Start()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/raw", upgrade)
	mux.HandleFunc("/ws", upgrade)
	mux.HandleFunc("/quotes", quotesHandler(store, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), quotesTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	return mux
}

// quotesHandler serves GET /quotes?symbols=AAPL,MSFT as a JSON array of the
// processor's latest quotes.
func quotesHandler(store repository.SnapshotStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		symbols := parseSymbols(r.URL.Query().Get("symbols"))
		if len(symbols) == 0 {
			http.Error(w, "symbols is required", http.StatusBadRequest)
			return
		}
		if len(symbols) > maxQuoteIDs {
			http.Error(w, "too many symbols", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), quotesTimeout)
		defer cancel()

		quotes, err := store.GetQuotes(ctx, symbols)
		if err != nil {
			logger.Error("Failed to load quotes", zap.Strings("symbols", symbols), zap.Error(err))
			http.Error(w, "quotes unavailable", http.StatusServiceUnavailable)
			return
		}

		out := make([]json.RawMessage, 0, len(quotes))
		for _, q := range quotes {
			out = append(out, json.RawMessage(q))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			logger.Warn("Failed to write quotes", zap.Error(err))
		}
	}
}

func parseSymbols(q string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range strings.Split(q, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
