package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/config"
	"github.com/shubham-shewale/price-tracker/pkg/feed"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/tracker"
	"github.com/shubham-shewale/price-tracker/pkg/transport"
)

var feedCmd = cli.Command{
	Name:   "feed",
	Usage:  "start the feed and print the sorted stock list on every update",
	Action: feedAction,
}

var detailsCmd = cli.Command{
	Name:      "details",
	Usage:     "start the feed and follow a single symbol",
	ArgsUsage: "SYMBOL",
	Action:    detailsAction,
}

type app struct {
	logger *zap.Logger
	repo   *feed.Repository
}

func setup(c *cli.Context) (*app, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}

	opts := transport.OptionsFromConfig(cfg.Feed.RawURL(), cfg.Transport)
	if path := c.String("ca-file"); path != "" {
		tlsCfg, err := tlsWithCA(path)
		if err != nil {
			return nil, nil, err
		}
		opts.TLSConfig = tlsCfg
	}

	session := transport.NewSession(opts, logger)
	repo := feed.NewRepository(feed.SessionUpstream{Session: session}, logger)

	cleanup := func() {
		if err := repo.Stop(); err != nil {
			logger.Warn("Failed to stop feed", zap.Error(err))
		}
		repo.Close()
		logger.Sync()
	}
	return &app{logger: logger, repo: repo}, cleanup, nil
}

func tlsWithCA(path string) (*tls.Config, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca file %s: no certificates found", path)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func feedAction(c *cli.Context) error {
	a, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl := tracker.NewFeedController(a.repo, tracker.NewMemoryState(true), a.logger)
	defer ctrl.Close()

	states, cancel := ctrl.State().Subscribe(1)
	defer cancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	top := c.Int("top")
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			printFeed(os.Stdout, st, top)
		}
	}
}

func detailsAction(c *cli.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Args().First()))
	if symbol == "" {
		return errors.New("details: SYMBOL is required")
	}

	a, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	// The feed controller owns the connection; details only reads.
	feedCtrl := tracker.NewFeedController(a.repo, tracker.NewMemoryState(true), a.logger)
	defer feedCtrl.Close()

	ctrl, err := tracker.NewDetailsController(a.repo, symbol, a.logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	states, cancel := ctrl.State().Subscribe(1)
	defer cancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			printDetails(os.Stdout, symbol, st)
		}
	}
}

func arrow(d models.PriceChangeDirection) string {
	switch d {
	case models.DirectionIncreased:
		return "▲"
	case models.DirectionDecreased:
		return "▼"
	case models.DirectionNoChange:
		return "="
	default:
		return " "
	}
}

func printFeed(w io.Writer, st tracker.FeedState, top int) {
	fmt.Fprintf(w, "[%s] running=%t stocks=%d", st.ConnectionStatus, st.IsFeedRunning, len(st.Stocks))
	if st.Error != "" {
		fmt.Fprintf(w, " error=%q", st.Error)
	}
	fmt.Fprintln(w)

	stocks := st.Stocks
	if top > 0 && len(stocks) > top {
		stocks = stocks[:top]
	}
	for _, s := range stocks {
		fmt.Fprintf(w, "  %-6s %10s %s\n", s.ID, s.Price.StringFixed(models.PriceScale), arrow(s.Direction()))
	}
}

func printDetails(w io.Writer, symbol string, st tracker.DetailsState) {
	switch {
	case st.Error != "":
		fmt.Fprintf(w, "%s: %s\n", symbol, st.Error)
	case st.IsLoading:
		fmt.Fprintf(w, "%s: loading...\n", symbol)
	default:
		s := st.Symbol
		fmt.Fprintf(w, "%s (%s) %s %s\n", s.ID, s.Name, s.Price.StringFixed(models.PriceScale), arrow(s.Direction()))
		if s.Description != "" {
			fmt.Fprintf(w, "  %s\n", s.Description)
		}
	}
}
