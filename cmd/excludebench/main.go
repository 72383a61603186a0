// Command excludebench measures what exclude lists cost a regex structural
// tag: compile time against the plain regex, and per-character token mask
// time against a real tokenizer vocabulary.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/KromDaniel/excludebench/internal/bench"
	"github.com/KromDaniel/excludebench/internal/cases"
	"github.com/KromDaniel/excludebench/internal/harness"
	"github.com/KromDaniel/excludebench/internal/hub"
	"github.com/KromDaniel/excludebench/internal/logging"
	"github.com/KromDaniel/excludebench/internal/metrics"
)

const envPrefix = "EXCLUDEBENCH"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	iterations int
	model      string
	endpoint   string
	token      string
	casesFile  string
	format     harness.Format
	metrics    bool
	timeout    time.Duration
	verbose    bool
	skipMatch  bool
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "excludebench",
		Short:        "Benchmark regex structural tags with exclude lists",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("iterations", bench.DefaultIterations, "compilations per compile-time case")
	flags.String("model", hub.DefaultModel, "hub model whose tokenizer is used for match-time cases")
	flags.String("hf-endpoint", hub.DefaultEndpoint, "model hub base URL")
	flags.String("hf-token", "", "bearer token for gated models (also read from HF_TOKEN)")
	flags.String("cases", "", "YAML case file replacing the built-in registry")
	flags.String("format", string(harness.FormatTable), "report format: table or csv")
	flags.Bool("metrics", false, "write prometheus metrics after the report")
	flags.Duration("timeout", harness.DefaultTimeout, "time limit for fetching the tokenizer")
	flags.BoolP("verbose", "v", false, "log progress to stderr")
	flags.Bool("skip-match", false, "skip the match-time phase")

	bindEnv(v, flags)
	return cmd
}

// bindEnv makes every flag settable as EXCLUDEBENCH_<FLAG_NAME>. The hub
// token additionally falls back to HF_TOKEN.
func bindEnv(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)
	_ = v.BindEnv("hf-token", envPrefix+"_HF_TOKEN", "HF_TOKEN")
}

func loadOptions(v *viper.Viper) (options, error) {
	format, err := harness.ParseFormat(v.GetString("format"))
	if err != nil {
		return options{}, err
	}
	opts := options{
		iterations: v.GetInt("iterations"),
		model:      v.GetString("model"),
		endpoint:   v.GetString("hf-endpoint"),
		token:      v.GetString("hf-token"),
		casesFile:  v.GetString("cases"),
		format:     format,
		metrics:    v.GetBool("metrics"),
		timeout:    v.GetDuration("timeout"),
		verbose:    v.GetBool("verbose"),
		skipMatch:  v.GetBool("skip-match"),
	}
	if opts.iterations < 1 {
		return options{}, fmt.Errorf("%w, got %d", bench.ErrInvalidIterations, opts.iterations)
	}
	return opts, nil
}

func run(cmd *cobra.Command, opts options) error {
	logger := logging.NewLogger(opts.verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	registry := cases.Default()
	if opts.casesFile != "" {
		var err error
		if registry, err = cases.Load(opts.casesFile); err != nil {
			return err
		}
		logger.Log("Loaded %d compile and %d match cases from %s",
			len(registry.Compile), len(registry.Match), opts.casesFile)
	}

	client := hub.NewClient(
		hub.WithEndpoint(opts.endpoint),
		hub.WithToken(opts.token),
		hub.WithLogger(logger),
	)
	loader := func(ctx context.Context) (bench.MatchEngine, error) {
		info, err := client.FetchTokenizer(ctx, opts.model)
		if err != nil {
			return nil, err
		}
		return bench.NewEngineBackend(info), nil
	}

	runnerOpts := []harness.Option{
		harness.WithOutput(cmd.OutOrStdout()),
		harness.WithTokenizerLoader(loader),
		harness.WithLogger(logger),
	}
	var rec *metrics.Recorder
	if opts.metrics {
		rec = metrics.NewRecorder()
		runnerOpts = append(runnerOpts, harness.WithRecorder(rec))
	}

	runner, err := harness.NewRunner(harness.Config{
		Registry:   registry,
		Iterations: opts.iterations,
		Format:     opts.format,
		SkipMatch:  opts.skipMatch,
		Timeout:    opts.timeout,
	}, runnerOpts...)
	if err != nil {
		return err
	}
	logger.Log("Starting run %s", runner.RunID())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := runner.Run(ctx); err != nil {
		return err
	}

	if rec != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		return rec.WriteText(cmd.OutOrStdout())
	}
	return nil
}
