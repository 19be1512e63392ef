package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kafbench/kafbench/internal/config"
	"github.com/kafbench/kafbench/internal/kafka"
	"github.com/kafbench/kafbench/internal/metrics"
	"github.com/kafbench/kafbench/internal/output"
	"github.com/kafbench/kafbench/internal/producer"
	"github.com/kafbench/kafbench/internal/rate"
	"github.com/kafbench/kafbench/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a produce benchmark",
	Long: `Run drives one or more producer executors against a topic and prints a
throughput and latency report.

Config file mode:
  kafbench run --config bench.yaml

Quick CLI mode:
  kafbench run --brokers localhost:9092 --topic bench \
    --producers 4 --records 100000 --value-size 1024

Transactional mode (10 records plus one control marker per commit):
  kafbench run --topic bench --records 100000 --batch-size 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd)
	},
}

func init() {
	runCmd.Flags().String("config", "", "YAML config file; flags override nothing when set")
	runCmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "seed brokers")
	runCmd.Flags().String("topic", "", "destination topic")
	runCmd.Flags().Int32("partitions", 1, "partition count used with --create-topic")
	runCmd.Flags().Bool("create-topic", false, "create the topic before the run")
	runCmd.Flags().Int("producers", 1, "number of concurrent executors")
	runCmd.Flags().Int64("records", 0, "records per producer (0 = unlimited, bound by --duration)")
	runCmd.Flags().Int("batch-size", 1, "records per transaction group (1 = non-transactional)")
	runCmd.Flags().Int32("partition", -1, "pin all sends to one partition (-1 = client chooses)")
	runCmd.Flags().Int("key-size", 0, "record key size in bytes (0 = keyless)")
	runCmd.Flags().Int("value-size", 1024, "record value size in bytes")
	runCmd.Flags().Bool("uuid-keys", false, "key records with fresh UUIDs")
	runCmd.Flags().Float64("rate", 0, "records per second per producer (0 = unthrottled)")
	runCmd.Flags().String("duration", "", "run duration, e.g. 30s (empty = until records exhausted)")
	runCmd.Flags().Bool("no-color", false, "disable colored output")
	runCmd.Flags().BoolP("quiet", "q", false, "suppress the final report")
	runCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
}

func runBenchmark(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if bound, _ := cfg.DurationValue(); bound > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bound)
		defer cancel()
	}

	if cfg.CreateTopic {
		admin, err := kafka.NewAdmin(cfg.Brokers...)
		if err != nil {
			return err
		}
		err = admin.EnsureTopic(ctx, cfg.Topic, cfg.Partitions)
		admin.Close()
		if err != nil {
			return err
		}
	}

	eng := metrics.NewEngine()
	executors, err := buildExecutors(cfg, eng, log)
	if err != nil {
		return err
	}

	log.Info().Str("topic", cfg.Topic).Int("producers", cfg.Producers).
		Bool("transactional", cfg.Transactional()).Msg("starting benchmark")

	runErr := runner.New(log, executors...).Run(ctx)
	if runErr != nil {
		eng.RecordFailure()
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		printer := output.NewPrinter(os.Stdout, noColor)
		printer.Summary(cfg.Topic, cfg.Transactional(), eng.GetSnapshot())
	}
	return runErr
}

// buildExecutors wires one client, one data supplier, and one partition
// supplier per executor. Clients are never shared between executors.
func buildExecutors(cfg *config.Config, eng *metrics.Engine, log zerolog.Logger) ([]*producer.Executor, error) {
	executors := make([]*producer.Executor, 0, cfg.Producers)
	for i := 0; i < cfg.Producers; i++ {
		clientCfg := kafka.ClientConfig{
			Brokers: cfg.Brokers,
			Logger:  log,
		}
		if cfg.Transactional() {
			clientCfg.TransactionalID = fmt.Sprintf("kafbench-%s-%d", cfg.Topic, i)
		}
		client, err := kafka.NewClient(clientCfg)
		if err != nil {
			closeAll(executors)
			return nil, err
		}

		var data producer.DataSupplier
		if cfg.UUIDKeys {
			data = producer.UUIDKeyData(cfg.ValueSize, cfg.Records)
		} else {
			data = producer.RandomData(cfg.KeySize, cfg.ValueSize, cfg.Records)
		}
		if cfg.Rate > 0 {
			data = producer.ThrottledData(data, rate.NewLeakyBucket(cfg.Rate))
		}
		data = countBytes(data, eng)

		partitions := producer.UnspecifiedPartition()
		if p := cfg.PinnedPartition(); p >= 0 {
			partitions = producer.FixedPartition(p)
		}

		ex, err := producer.NewExecutor(cfg.Topic, cfg.BatchSize, client, eng.Observer(), partitions, data)
		if err != nil {
			client.Close()
			closeAll(executors)
			return nil, err
		}
		executors = append(executors, ex)
	}
	return executors, nil
}

// countBytes accounts each drawn record's payload size with the engine.
func countBytes(inner producer.DataSupplier, eng *metrics.Engine) producer.DataSupplier {
	return producer.DataSupplierFunc(func() (producer.Record, bool) {
		rec, ok := inner.Next()
		if ok {
			eng.RecordBytes(int64(len(rec.Key) + len(rec.Value)))
		}
		return rec, ok
	})
}

func closeAll(executors []*producer.Executor) {
	for _, ex := range executors {
		ex.Close()
	}
}

// resolveConfig loads the config file when --config is set, otherwise
// builds a config from the command's flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadConfig(path)
	}
	return configFromFlags(cmd)
}

func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := &config.Config{}
	cfg.Brokers, _ = flags.GetStringSlice("brokers")
	cfg.Topic, _ = flags.GetString("topic")
	cfg.Partitions, _ = flags.GetInt32("partitions")
	cfg.CreateTopic, _ = flags.GetBool("create-topic")
	cfg.Producers, _ = flags.GetInt("producers")
	cfg.Records, _ = flags.GetInt64("records")
	cfg.BatchSize, _ = flags.GetInt("batch-size")
	partition, _ := flags.GetInt32("partition")
	cfg.Partition = &partition
	cfg.KeySize, _ = flags.GetInt("key-size")
	cfg.ValueSize, _ = flags.GetInt("value-size")
	cfg.UUIDKeys, _ = flags.GetBool("uuid-keys")
	cfg.Rate, _ = flags.GetFloat64("rate")
	cfg.Duration, _ = flags.GetString("duration")
	config.ApplyDefaults(cfg)
	return cfg, nil
}
