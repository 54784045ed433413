// Command gmxwrap exposes the discovered GROMACS tools from the command
// line: list and search the registry, report the release, and run a tool
// locally or inside an ephemeral remote job.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/golovatskygroup/gmxwrap/internal/config"
	"github.com/golovatskygroup/gmxwrap/internal/history"
	"github.com/golovatskygroup/gmxwrap/internal/registry"
	dockerrunner "github.com/golovatskygroup/gmxwrap/internal/runner/docker"
	"github.com/golovatskygroup/gmxwrap/internal/runner/k8s"
	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "gmxwrap",
		Short:         "Uniform interface to the installed GROMACS tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ~/.gmxwrap.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(toolsCommand(), releaseCommand(), runCommand(), historyCommand())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gmxwrap: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// setup loads the config and builds the registry on the given runner.
func setup(ctx context.Context, runner shell.Runner, log *zap.Logger) (*registry.Registry, *config.Config, error) {
	cfg, err := config.Load(flagConfig, log)
	if err != nil {
		return nil, nil, err
	}

	var opts []registry.Option
	if cfg.History != "" {
		store, err := history.Open(cfg.History)
		if err != nil {
			log.Warn("invocation history disabled", zap.Error(err))
		} else {
			opts = append(opts, registry.WithHistory(store))
		}
	}

	reg, err := registry.Build(ctx, cfg, runner, log, opts...)
	if err != nil {
		return nil, nil, err
	}
	return reg, cfg, nil
}

func toolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all addressable tool names",
		RunE: func(c *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			reg, _, err := setup(c.Context(), shell.NewLocal(log), log)
			if err != nil {
				return err
			}
			defer reg.Close()
			for _, name := range reg.Names() {
				tool, _ := reg.Get(name)
				fmt.Printf("%-24s %s\n", name, strings.Join(tool.Argv(), " "))
			}
			return nil
		},
	}

	var limit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search addressable tool names",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			reg, _, err := setup(c.Context(), shell.NewLocal(log), log)
			if err != nil {
				return err
			}
			defer reg.Close()
			for _, name := range reg.Search(args[0], limit) {
				fmt.Println(name)
			}
			return nil
		},
	}
	search.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of matches")

	cmd.AddCommand(list, search)
	return cmd
}

func releaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Report the GROMACS release backing the registry",
		RunE: func(c *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			reg, _, err := setup(c.Context(), shell.NewLocal(log), log)
			if err != nil {
				return err
			}
			defer reg.Close()
			fmt.Println(registry.NewRelease(c.Context(), reg, log))
			return nil
		},
	}
}

func runCommand() *cobra.Command {
	var (
		useK8s    bool
		useDocker bool
		pvc       string
		workdir   string
		image     string
		cores     int
		memGiB    int
		gpus      int
		gpuType   string
		input     []string
	)

	cmd := &cobra.Command{
		Use:   "run <Tool> [-- tool args...]",
		Short: "Run a tool locally or inside an ephemeral remote job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			ctx := c.Context()
			local := shell.NewLocal(log)

			var runner shell.Runner = local
			switch {
			case useK8s:
				job, err := k8s.NewRunner(ctx, local, log, k8s.Options{PVC: pvc, Workdir: workdir, Image: image})
				if err != nil {
					return err
				}
				res := k8s.Resources{CPUCores: cores, MemoryGiB: memGiB, GPUs: gpus, GPUType: gpuType}
				if err := job.Provision(ctx, res); err != nil {
					return err
				}
				defer func() {
					if err := job.Teardown(context.Background()); err != nil {
						log.Error("job teardown failed, delete it manually",
							zap.String("job", job.JobName()), zap.Error(err))
					}
				}()
				runner = job
			case useDocker:
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				opts := dockerrunner.DefaultOptions(cwd)
				if image != "" {
					opts.Image = image
				}
				opts.CPUCores = cores
				opts.MemoryGiB = int64(memGiB)
				ctr, err := dockerrunner.NewRunner(log, opts)
				if err != nil {
					return err
				}
				if err := ctr.Provision(ctx); err != nil {
					return err
				}
				defer func() {
					if err := ctr.Teardown(context.Background()); err != nil {
						log.Error("container teardown failed", zap.Error(err))
					}
					ctr.Close()
				}()
				runner = ctr
			}

			reg, _, err := setup(ctx, runner, log)
			if err != nil {
				return err
			}
			defer reg.Close()

			tool, ok := reg.Get(args[0])
			if !ok {
				suggestions := reg.Search(args[0], 3)
				if len(suggestions) > 0 {
					return fmt.Errorf("unknown tool %q (did you mean %s?)", args[0], strings.Join(suggestions, ", "))
				}
				return fmt.Errorf("unknown tool %q", args[0])
			}

			var runOpts []shell.RunOption
			if len(input) > 0 {
				runOpts = append(runOpts, shell.WithInput(input...))
			}

			res, err := tool.Run(ctx, args[1:], runOpts...)
			if err != nil {
				return err
			}
			fmt.Print(res.Stdout)
			fmt.Fprint(os.Stderr, res.Stderr)
			if !res.Ok() {
				return fmt.Errorf("%s exited with status %d", tool.CommandName, res.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useK8s, "k8s", false, "run inside an ephemeral Kubernetes job")
	cmd.Flags().BoolVar(&useDocker, "docker", false, "run inside a local container")
	cmd.Flags().StringVar(&pvc, "pvc", "", "persistent volume claim (default: detect from mount table)")
	cmd.Flags().StringVar(&workdir, "workdir", "", "working subdirectory inside the volume")
	cmd.Flags().StringVar(&image, "image", "", "container image")
	cmd.Flags().IntVar(&cores, "cores", 1, "cpu cores")
	cmd.Flags().IntVar(&memGiB, "mem", 4, "memory in GiB")
	cmd.Flags().IntVar(&gpus, "gpus", 0, "accelerator count")
	cmd.Flags().StringVar(&gpuType, "gpu-type", "mig-1g.10gb", "accelerator resource type")
	cmd.Flags().StringArrayVar(&input, "input", nil, "canned responses for interactive prompts")
	cmd.MarkFlagsMutuallyExclusive("k8s", "docker")
	return cmd
}

func historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool invocations",
		RunE: func(c *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			cfg, err := config.Load(flagConfig, log)
			if err != nil {
				return err
			}
			if cfg.History == "" {
				return fmt.Errorf("no history path configured (set `history` in the config file)")
			}
			store, err := history.Open(cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			invocations, err := store.Recent(c.Context(), limit)
			if err != nil {
				return err
			}
			for _, inv := range invocations {
				status := fmt.Sprintf("exit %d", inv.ExitCode)
				if inv.Error != "" {
					status = inv.Error
				}
				fmt.Printf("%s  %-16s %-8s %s\n",
					inv.StartedAt.Format("2006-01-02 15:04:05"), inv.Tool, status, strings.Join(inv.Argv, " "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of invocations to show")
	return cmd
}
