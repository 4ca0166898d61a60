// Command carpark loads the static car park dataset and the live availability
// feed once, merges them, and answers a single query on stdout.
//
// Usage:
//
//	STATIC_SOURCE=data/HDBCarparkInformation.csv go run ./cmd/carpark query ACB
//	STATIC_SOURCE=s3://carparks/static.csv go run ./cmd/carpark search "ang mo kio"
//	STATIC_SOURCE=data/HDBCarparkInformation.csv go run ./cmd/carpark view ACB
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/carpark-etl/internal/adapter/datagov"
	"github.com/couchcryptid/carpark-etl/internal/adapter/source"
	"github.com/couchcryptid/carpark-etl/internal/cli"
	"github.com/couchcryptid/carpark-etl/internal/config"
	"github.com/couchcryptid/carpark-etl/internal/observability"
	"github.com/couchcryptid/carpark-etl/internal/pipeline"
)

func main() {
	flag.Usage = func() { cli.Usage(flag.CommandLine.Output()) }
	flag.Parse()

	cmd, err := cli.Parse(flag.Args())
	if errors.Is(err, cli.ErrUsage) {
		cli.Usage(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cli.Usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	opener, err := source.New(ctx, cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(
		pipeline.NewStaticLoader(opener),
		datagov.NewClient(cfg.FeedURL, cfg.FeedTimeout, metrics),
		logger,
		metrics,
	)

	snap, err := p.Run(ctx)
	if err != nil {
		return err
	}
	return cli.Execute(os.Stdout, snap.Query, cmd)
}
