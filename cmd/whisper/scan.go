package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/whisper/internal/app/scanning"
	"github.com/ahrav/whisper/internal/config"
	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/internal/infra/classifier"
	"github.com/ahrav/whisper/internal/infra/classifier/ollama"
	progressreporter "github.com/ahrav/whisper/internal/infra/progress_reporter"
	"github.com/ahrav/whisper/internal/infra/sink/kafka"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func newScanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a file or directory for secrets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			excludes, err := cmd.Flags().GetStringArray(flagExclude)
			if err != nil {
				return err
			}
			return runScan(cmd, v, root, excludes)
		},
	}

	f := cmd.Flags()
	f.Int(flagWorkers, 0, "number of files scanned in parallel (defaults to available CPUs)")
	f.String(flagFormat, formatTable, "output format: table or json")
	f.Bool(flagFailOnFinding, false, "exit with status 1 when any secret is found")
	f.Bool(flagDryRun, false, "list how many files would be scanned without running detectors")
	f.Float64P(flagThreshold, "c", 0, "minimum detector confidence sent for classification (overrides ai.confidence_threshold)")
	f.StringArrayP(flagExclude, "e", nil, "additional exclusion glob; may be repeated")
	_ = v.BindPFlags(f)

	return cmd
}

func runScan(cmd *cobra.Command, v *viper.Viper, root string, excludes []string) error {
	ctx := cmd.Context()

	format := v.GetString(flagFormat)
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("%w: unknown output format %q", config.ErrInvalidConfig, format)
	}

	sess, err := newSession(ctx, v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close(context.WithoutCancel(ctx))

	cfg := sess.cfg
	cfg.Rules.ExcludedPaths = append(cfg.Rules.ExcludedPaths, excludes...)
	log := sess.log
	tracer := sess.providers.Tracer.Tracer(serviceName)

	metrics, err := scanning.NewScanMetrics(sess.providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create scan metrics: %w", err)
	}

	var clf detection.Classifier = ollama.NewClient(ollama.Config{
		Host:      cfg.AI.Host,
		Model:     cfg.AI.Model,
		Timeout:   cfg.AI.Timeout,
		RateLimit: cfg.AI.RateLimit,
	}, nil, log, tracer)
	if cfg.AI.CacheResults {
		clf = classifier.NewCachingClassifier(clf)
	}

	scanner, err := scanning.NewScanner(cfg.ScanConfig(), clf, log, tracer,
		scanning.WithWorkers(v.GetInt(flagWorkers)),
		scanning.WithProgressReporter(progressreporter.New(log, 10)),
		scanning.WithMetrics(metrics),
		scanning.WithDebug(v.GetBool(flagDebug)),
	)
	if err != nil {
		return err
	}

	if v.GetBool(flagDryRun) {
		files, err := scanner.Plan(ctx, root)
		if err != nil {
			return err
		}
		return writeDryRun(cmd.OutOrStdout(), format, root, scanner.Detectors(), files)
	}

	report, err := scanner.Run(ctx, root)
	if report == nil {
		return err
	}
	scanErr := err

	if cfg.Output.Kafka.Enabled() {
		if err := publish(ctx, sess, report); err != nil {
			log.Error(ctx, "Failed to publish findings", "error", err)
			if scanErr == nil {
				scanErr = err
			}
		}
	}

	if err := writeReport(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}
	if scanErr != nil {
		return scanErr
	}
	if v.GetBool(flagFailOnFinding) && len(report.Findings) > 0 {
		return errFindingsPresent
	}
	return nil
}

func publish(ctx context.Context, sess *session, report *scanning.Report) error {
	// Partial results of an interrupted scan are still published.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	kcfg := sess.cfg.Output.Kafka
	pub, err := kafka.Connect(ctx, kafka.Config{
		Brokers:  kcfg.Brokers,
		Topic:    kcfg.Topic,
		ClientID: kcfg.ClientID,
	}, sess.log, sess.providers.Tracer.Tracer(serviceName))
	if err != nil {
		return err
	}
	defer pub.Close()

	return pub.PublishFindings(ctx, report.ScanID, report.Findings)
}
