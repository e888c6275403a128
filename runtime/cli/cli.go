package cli

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kbukum/dagflow/config"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
	"github.com/kbukum/dagflow/runtime/local"
	"github.com/kbukum/dagflow/serializer"
	"github.com/kbukum/dagflow/storage"
	fsstore "github.com/kbukum/dagflow/storage/local"
	_ "github.com/kbukum/dagflow/storage/memory"
	_ "github.com/kbukum/dagflow/storage/s3"
	"github.com/kbukum/dagflow/util"
	"github.com/kbukum/dagflow/version"
)

// NewCommand returns the root command of the program called name, which
// runs node.
func NewCommand(name string, node dag.Node) *cobra.Command {
	root := &cobra.Command{
		Use:           name,
		Short:         fmt.Sprintf("Run the %s DAG", name),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(name, node), newVersionCommand())
	return root
}

type runOptions struct {
	inputs        []string
	outputs       []string
	nodeName      string
	configFile    string
	envFile       string
	maxParallel   int
	keepArtifacts bool
}

func newRunCommand(name string, node dag.Node) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Invoke the DAG or one of its nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaderOpts := []config.LoaderOption{}
			if opts.configFile != "" {
				loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
			}
			if opts.envFile != "" {
				loaderOpts = append(loaderOpts, config.WithEnvFile(opts.envFile))
			}
			cfg, err := config.Load(name, loaderOpts...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-parallel") {
				cfg.Execution.MaxParallel = opts.maxParallel
			}
			if cmd.Flags().Changed("keep-artifacts") {
				cfg.Execution.KeepArtifacts = opts.keepArtifacts
			}
			return run(cmd, node, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.inputs, "input", "i", nil, "input file or directory as name=path (repeatable)")
	f.StringArrayVarP(&opts.outputs, "output", "o", nil, "output file or directory as name=path (repeatable)")
	f.StringVarP(&opts.nodeName, "node-name", "n", "", "dotted path of the node to run, e.g. outer.inner.task")
	f.StringVarP(&opts.configFile, "config", "c", "", "config file (default: searched next to the program)")
	f.StringVar(&opts.envFile, "env-file", "", ".env file to load")
	f.IntVar(&opts.maxParallel, "max-parallel", 0, "nodes and partitions to run at once")
	f.BoolVar(&opts.keepArtifacts, "keep-artifacts", false, "keep intermediate values in storage after the run")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}

func run(cmd *cobra.Command, root dag.Node, cfg *config.Config, opts runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr())
	logger.SetGlobalLogger(log)

	node, err := dag.Select(root, opts.nodeName)
	if err != nil {
		return err
	}
	inputs, err := parseTargets("input", opts.inputs)
	if err != nil {
		return err
	}
	outputs, err := parseTargets("output", opts.outputs)
	if err != nil {
		return err
	}
	declared := node.Outputs()
	for _, name := range util.SortedKeys(outputs) {
		if _, ok := declared[name]; !ok {
			return errors.InvalidReference("output", name, util.SortedKeys(declared))
		}
	}

	files, err := fsstore.NewStorage("/")
	if err != nil {
		return err
	}
	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	engineOpts := []local.Option{
		local.WithStorage(store),
		local.WithPrefix(cfg.Execution.Prefix),
		local.WithRunID(runID),
		local.WithLogger(log),
		local.WithMaxParallel(cfg.Execution.MaxParallel),
	}
	if cfg.Tracing.Enabled {
		telemetryOpts, shutdown, err := initTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		engineOpts = append(engineOpts, telemetryOpts...)
	}
	engine := local.NewEngine(engineOpts...)
	runPath := engine.RunPath(runID)

	if !cfg.Execution.KeepArtifacts {
		defer func() {
			if cerr := storage.DeletePrefix(context.WithoutCancel(ctx), store, runPath+"/"); cerr != nil {
				log.Warn("failed to remove run artifacts", logger.Fields(logger.FieldPath, runPath, logger.FieldError, cerr.Error()))
			}
		}()
	}

	params := make(map[string]local.Value, len(inputs))
	nodeInputs := node.Inputs()
	for _, name := range util.SortedKeys(inputs) {
		var codec serializer.Serializer = serializer.Default
		if in, ok := nodeInputs[name]; ok {
			codec = in.Serializer()
		}
		v, err := stage(ctx, files, filePath(inputs[name]), store, path.Join(runPath, "_inputs", name), codec)
		if err != nil {
			return err
		}
		params[name] = v
	}

	results, err := engine.Run(ctx, node, params)
	if err != nil {
		return err
	}

	printed := make(map[string]any)
	for _, name := range util.SortedKeys(results) {
		target, ok := outputs[name]
		if !ok {
			v, err := local.Load(ctx, store, results[name])
			if err != nil {
				return err
			}
			printed[name] = v
			continue
		}
		if err := local.Export(ctx, store, results[name], files, filePath(target)); err != nil {
			return err
		}
		log.Info("output written", logger.Fields(logger.FieldOutput, name, logger.FieldPath, target))
	}
	if len(printed) == 0 {
		return nil
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(printed)
}

// stage copies the value at src into the engine store below dst and returns
// its handle there.
func stage(ctx context.Context, files storage.Storage, src string, store storage.Storage, dst string, codec serializer.Serializer) (local.Value, error) {
	v, err := local.Import(ctx, files, src, codec)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(local.File); ok {
		dst += "." + codec.Extension()
	}
	if err := local.Export(ctx, files, v, store, dst); err != nil {
		return nil, err
	}
	return local.Import(ctx, store, dst, codec)
}

// parseTargets splits name=path flags.
func parseTargets(kind string, flags []string) (map[string]string, error) {
	targets := make(map[string]string, len(flags))
	for _, flag := range flags {
		name, p, ok := strings.Cut(flag, "=")
		if !ok || name == "" || p == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "%s %q must have the form name=path", kind, flag)
		}
		if _, dup := targets[name]; dup {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "%s %q given more than once", kind, name)
		}
		targets[name] = p
	}
	return targets, nil
}

// filePath maps a command-line path to an object path of the store rooted
// at the filesystem root.
func filePath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return strings.TrimPrefix(filepath.ToSlash(p), "/")
}

// initTelemetry starts the OTLP trace and metric exporters.
func initTelemetry(ctx context.Context, cfg *config.Config) ([]local.Option, func(), error) {
	info := version.Get()
	tracerCfg := observability.DefaultTracerConfig(cfg.Name)
	tracerCfg.ServiceVersion = info.Version
	tracerCfg.Environment = cfg.Environment
	tracerCfg.Endpoint = cfg.Tracing.Endpoint
	tracerCfg.Insecure = cfg.Tracing.Insecure
	tracerCfg.SampleRate = cfg.Tracing.SampleRate
	tp, err := observability.InitTracer(ctx, tracerCfg)
	if err != nil {
		return nil, nil, err
	}

	meterCfg := observability.DefaultMeterConfig(cfg.Name)
	meterCfg.ServiceVersion = info.Version
	meterCfg.Environment = cfg.Environment
	meterCfg.Endpoint = cfg.Tracing.Endpoint
	meterCfg.Insecure = cfg.Tracing.Insecure
	mp, err := observability.InitMeter(ctx, &meterCfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	metrics, err := observability.NewMetrics(mp.Meter(cfg.Name))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func() {
		sctx := context.WithoutCancel(ctx)
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("tracer shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
		if err := mp.Shutdown(sctx); err != nil {
			logger.Warn("meter shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	return []local.Option{local.WithTracing(), local.WithMetrics(metrics)}, shutdown, nil
}
