// Command hhspend-import loads the expenditure dataset from a workbook or a
// Google spreadsheet into the SQL store, or queues the request for
// hhspend-worker with -enqueue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hhspend/internal/amqp"
	"hhspend/internal/backend"
	"hhspend/internal/cli"
	"hhspend/internal/log"
	"hhspend/internal/services"
	"hhspend/internal/source"
)

func main() {
	var (
		sourceName = flag.String("source", "xlsx", "source to import from: xlsx, sheets or memory")
		location   = flag.String("location", "", "workbook path, s3://bucket/key, spreadsheet ID or data directory (defaults to the configured one)")
		sheet      = flag.String("sheet", "", "worksheet holding the expenditure table (defaults to the configured one)")
		enqueue    = flag.Bool("enqueue", false, "publish the request to AMQP instead of importing inline")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-source xlsx|sheets|memory] [-location L] [-sheet S] [-enqueue]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)
	bc := cli.BackendConfig(logger, cfg)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	req := amqp.NewImportRequestMessage(*sourceName, *location, *sheet)
	if err := req.Validate(); err != nil {
		logger.Error("Invalid import request", log.FieldError, err)
		os.Exit(2)
	}

	var publisher services.Publisher
	if *enqueue {
		if cfg.AMQPURL == "" {
			logger.Error("-enqueue needs AMQP_URL")
			os.Exit(2)
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = client
	}

	factory := backend.NewFactory(logger)
	opener := func(ctx context.Context, r *amqp.ImportRequestMessage) (source.Dataset, error) {
		return factory.OpenSource(ctx, bc, r)
	}

	var store services.DatasetStore
	if !*enqueue {
		store = cli.InitStore(ctx, logger, bc)
	}
	svc := services.NewImportService(store, publisher, opener)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Shutdown error", log.FieldError, err)
		}
	}()

	queued, err := svc.RequestImport(ctx, req)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldSource, req.Source, log.FieldLocation, req.Location)
		stop()
		os.Exit(1)
	}
	if queued {
		logger.Info("Import request queued for hhspend-worker", log.FieldSource, req.Source)
		return
	}
	logger.Info("Import finished", log.FieldSource, req.Source)
}
