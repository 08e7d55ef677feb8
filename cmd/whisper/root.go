package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/whisper/internal/config"
	"github.com/ahrav/whisper/internal/config/fileloader"
	"github.com/ahrav/whisper/pkg/common/logger"
	"github.com/ahrav/whisper/pkg/common/otel"
)

// Flag keys. Each can also be set through the environment as WHISPER_<KEY>
// with dashes replaced by underscores.
const (
	flagConfig        = "config"
	flagDebug         = "debug"
	flagOTLPEndpoint  = "otlp-endpoint"
	flagWorkers       = "workers"
	flagFormat        = "format"
	flagFailOnFinding = "fail-on-finding"
	flagDryRun        = "dry-run"
	flagThreshold     = "confidence-threshold"
	flagExclude       = "exclude"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WHISPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:           "whisper",
		Short:         "Scan source trees for hard-coded secrets",
		Long:          `whisper finds candidate secrets with heuristic detectors and asks a local language model to confirm each one before reporting it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String(flagConfig, "", "path to "+fileloader.FileName+" (searched upward from the working directory when empty)")
	pf.Bool(flagDebug, false, "enable debug logging")
	pf.String(flagOTLPEndpoint, "", "OTLP gRPC collector address; telemetry is disabled when empty")
	_ = v.BindPFlags(pf)

	root.AddCommand(
		newScanCmd(v),
		newCheckCmd(v),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the whisper version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whisper %s\n", version)
		},
	}
}

// session holds what every command needs once flags are parsed.
type session struct {
	cfg       *config.Config
	log       *logger.Logger
	providers otel.Providers
	shutdown  func(context.Context)
}

func (s *session) close(ctx context.Context) { s.shutdown(ctx) }

func newSession(ctx context.Context, v *viper.Viper, errOut io.Writer) (*session, error) {
	level := logger.LevelInfo
	if v.GetBool(flagDebug) {
		level = logger.LevelDebug
	}

	hostname, _ := os.Hostname()
	log := logger.NewWithMetadata(errOut, level, serviceName, otel.GetTraceID, logger.Events{}, map[string]string{
		"hostname": hostname,
		"version":  version,
	})

	cfg, err := loadConfig(ctx, v, log)
	if err != nil {
		return nil, err
	}

	providers, shutdown, err := otel.InitTelemetry(ctx, log, otel.Config{
		ServiceName:      serviceName,
		ExporterEndpoint: v.GetString(flagOTLPEndpoint),
		Probability:      1,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"host.name":        hostname,
		},
		Insecure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return &session{cfg: cfg, log: log, providers: providers, shutdown: shutdown}, nil
}

// loadConfig resolves the configuration file, merges it over the defaults and
// applies flag and environment overrides.
func loadConfig(ctx context.Context, v *viper.Viper, log *logger.Logger) (*config.Config, error) {
	path := v.GetString(flagConfig)
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, ok := fileloader.Find(wd); ok {
				path = found
			}
		}
	}

	cfg, err := fileloader.NewFileLoader(path).Load(ctx)
	if err != nil {
		return nil, err
	}
	if path != "" {
		log.Debug(ctx, "Loaded configuration", "path", path)
	}

	if v.IsSet(flagThreshold) {
		cfg.AI.ConfidenceThreshold = v.GetFloat64(flagThreshold)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
