// Command dayetl runs the batch ETL driver over a closed date range.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuong/dayetl/internal/cleaner"
	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/etlerrors"
	"github.com/cuong/dayetl/internal/extract"
	"github.com/cuong/dayetl/internal/loader"
	"github.com/cuong/dayetl/internal/lock"
	"github.com/cuong/dayetl/internal/observability"
	"github.com/cuong/dayetl/internal/orchestrator"
	"github.com/cuong/dayetl/internal/pipeline"
	"github.com/cuong/dayetl/internal/registry"
	"github.com/cuong/dayetl/internal/transform"
	"github.com/cuong/dayetl/internal/validator"
)

const dateLayout = "20060102"

func main() {
	os.Exit(run())
}

func run() int {
	var fromArg, toArg, configPath string

	root := &cobra.Command{
		Use:           "dayetl",
		Short:         "Run the day-range batch ETL pipeline",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(cmd.Context(), fromArg, toArg, configPath)
		},
	}

	root.Flags().StringVar(&fromArg, "from", "", "first business date to process, inclusive (YYYYMMDD)")
	root.Flags().StringVar(&toArg, "to", "", "last business date to process, inclusive (YYYYMMDD)")
	root.Flags().StringVar(&configPath, "config", "", "path to the INI configuration file")
	_ = root.MarkFlagRequired("from")
	_ = root.MarkFlagRequired("to")
	_ = root.MarkFlagRequired("config")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodeFor(err)
	}
	return 0
}

func runRange(ctx context.Context, fromArg, toArg, configPath string) error {
	from, err := time.Parse(dateLayout, fromArg)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindInput, etlerrors.StageNone, "parse --from", err)
	}
	to, err := time.Parse(dateLayout, toArg)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindInput, etlerrors.StageNone, "parse --to", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindConfig, etlerrors.StageNone, "load config", err)
	}

	extractorRegistry := registry.NewExtractorRegistry()
	extractorRegistry.Register("cos", extract.NewObjectStorageExtractor)
	extractorRegistry.Register("db", extract.NewDatabaseExtractor)
	extractorRegistry.Register("mongo", extract.NewMongoExtractor)

	if err := cfg.ValidateRegistrations(extractorRegistry.KnownTypes()); err != nil {
		return etlerrors.Wrap(etlerrors.KindConfig, etlerrors.StageNone, "validate source registrations", err)
	}

	transformerRegistry := registry.NewTransformerRegistry()
	transformerRegistry.Register(transform.ClickTransformer{})
	transformerRegistry.Register(transform.OrderTransformer{})
	transformerRegistry.Register(transform.UserTransformer{})

	routingTable := loader.DefaultRoutingTable()
	store := loader.ClickHouseStore{}

	if err := validateRouting(transformerRegistry, routingTable); err != nil {
		return etlerrors.Wrap(etlerrors.KindConfig, etlerrors.StageNone, "validate routing registrations", err)
	}

	pl, held, err := lock.Acquire(cfg.LockPath)
	if err != nil {
		return etlerrors.Wrap(etlerrors.KindConcurrency, etlerrors.StageNone, "acquire process lock", err)
	}
	if !held {
		return etlerrors.New(etlerrors.KindConcurrency, etlerrors.StageNone, fmt.Sprintf("process lock %q is already held by another run", cfg.LockPath))
	}
	defer func() { _ = pl.Release() }()

	log := observability.New()

	extractEngine := extract.New(extractorRegistry, log)
	transformEngine := transform.New(transformerRegistry)
	loadEngine := loader.New(store, routingTable)
	validateEngine := validator.New(store, routingTable, cfg.Target.BusinessDateColumn)
	clean := cleaner.New(log)

	daily := pipeline.New(extractEngine, transformEngine, loadEngine, validateEngine, clean, log)
	rangeOrchestrator := orchestrator.New(daily, cfg)

	summary, err := rangeOrchestrator.Run(ctx, from, to)

	log.Info(observability.Event{
		Category:     "range",
		Event:        "range_completed",
		SuccessCount: summary.SuccessDays,
		TotalRecords: summary.TotalRecords,
		Duration:     summary.EndTime.Sub(summary.StartTime),
	})

	if err != nil {
		if summary.FirstFailure != nil {
			fmt.Fprintf(os.Stderr, "day %s failed in stage %s: %s\n",
				summary.FirstFailure.Date.Format(dateLayout), summary.FirstFailure.Stage, summary.FirstFailure.Message)
		}
		return err
	}

	return nil
}

// validateRouting fails fast if any registered transformer's target
// dataType has no routing entry, the other half of the "every configured
// source has a registered extractor type and every target dataType
// referenced by a transformer chain has a routing entry" pre-flight check.
func validateRouting(tr *registry.TransformerRegistry, rt *loader.RoutingTable) error {
	for _, dataType := range tr.TargetTypes() {
		if _, ok := rt.Lookup(dataType); !ok {
			return fmt.Errorf("config: transformer target dataType %q has no routing entry", dataType)
		}
	}
	return nil
}

// exitCodeFor maps an etlerrors.Kind to the exit-code table §6 pins down.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch etlerrors.KindOf(err) {
	case etlerrors.KindInput:
		return 1
	case etlerrors.KindConcurrency:
		return 2
	case etlerrors.KindConfig:
		return 4
	case etlerrors.KindSource, etlerrors.KindTransform, etlerrors.KindLoad, etlerrors.KindValidation, etlerrors.KindTimeout, etlerrors.KindCancelled:
		return 3
	default:
		return 5
	}
}

