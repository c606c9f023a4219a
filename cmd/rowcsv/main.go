package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kndndrj/rowcsv/adapters"
	"github.com/kndndrj/rowcsv/core"
	"github.com/kndndrj/rowcsv/logs"
	"github.com/kndndrj/rowcsv/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := cfg.logLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logs.New(os.Stderr, level)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf("export failed: %s", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, logger logs.Logger) error {
	opts, err := cfg.writerOptions(logger)
	if err != nil {
		return err
	}

	conn, err := adapters.NewConnection(cfg.connectionParams())
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Debugf("connection %s: %s %s", conn.GetID(), conn.GetType(), conn.GetParams().URL)

	var stream core.RowStream
	if cfg.Entity != "" {
		stream, err = conn.QueryEntities(ctx, cfg.Entity, cfg.Query)
	} else {
		stream, err = conn.Query(ctx, cfg.Query)
	}
	if err != nil {
		return err
	}

	var w *output.CSVWriter
	if cfg.Out == "" || cfg.Out == "-" {
		w, err = output.NewCSV(os.Stdout, opts...)
	} else {
		w, err = output.CreateCSV(cfg.Out, opts...)
	}
	if err != nil {
		stream.Close()
		return err
	}
	defer w.Close()

	if err := w.WriteStream(ctx, stream); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Infof("wrote %d rows to %s", w.Rows(), cfg.Out)
	return nil
}
