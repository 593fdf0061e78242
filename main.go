/*
Pherosim runs the substance fields of a small grid world: pheromones, light and
temperature spread from their emitters by flood fill, while fluids and gases flow,
change phase, decay and turn turbines. The main loop owns the entities and forwards every
change to a worker routine that owns the fields, and the worker's diffs are folded back
into a mirror that the web views and the console dump read.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pherosim/catalog"
	"pherosim/config"
	"pherosim/models"
	"pherosim/server"
	"pherosim/sim"
	"pherosim/worker"

	"golang.org/x/sync/errgroup"
)

type options struct {
	debug      bool
	addr       string
	configPath string
}

func parseFlags(args []string) (opts options, err error) {
	fs := flag.NewFlagSet("pherosim", flag.ContinueOnError)
	dbg := fs.Bool("debug", false, "run the debug level and dump fields to the console")
	host := fs.String("host", "", "The host ip")
	port := fs.String("port", "8080", "The host port")
	configPath := fs.String("config", "./config.yaml", "The simulation config file")
	if err = fs.Parse(args); err != nil {
		return
	}
	return options{
		debug:      *dbg,
		addr:       *host + ":" + *port,
		configPath: *configPath,
	}, nil
}

func selectLevel(cfg *config.Config, debug bool) *models.Level {
	if debug || cfg.Level == "debug" {
		return models.Convert(models.DebugLevel)
	}
	return models.Convert(models.FullLevel)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runApp(ctx context.Context, opts options, logger *slog.Logger) (err error) {
	var cfg *config.Config
	if cfg, err = config.FromYaml(opts.configPath); err != nil {
		return
	}

	runCtx, cancel, err := cfg.WithRunDeadline(ctx)
	if err != nil {
		return
	}
	defer cancel()

	cat := catalog.Default(catalog.WithLogger(logger)).WithOverrides(cfg.Catalog)
	level := selectLevel(cfg, opts.debug)

	commands := make(chan worker.Command, cfg.CommandBuffer)
	messages := worker.New(cat,
		worker.WithConfig(cfg.Engine()),
		worker.WithLogger(logger.With(slog.String("component", "worker"))),
		worker.WithBuffer(cfg.CommandBuffer),
	).Start(runCtx, commands)

	simOpts := []sim.Option{sim.WithLogger(logger.With(slog.String("component", "sim")))}
	if opts.debug {
		simOpts = append(simOpts, sim.WithConsole(sim.NewConsole(os.Stdout), cfg.DispersionInterval*20))
	}
	simulation := sim.New(cfg, cat, level, commands, messages, simOpts...)

	err = config.Watch(opts.configPath,
		func(display config.Display) {
			logger.Info("display changed",
				slog.String("substance", string(display.Substance)),
				slog.Int("owner", display.Owner))
			simulation.SetDisplay(display)
		},
		func(watchErr error) {
			logger.Warn("ignoring config change", slog.String("error", watchErr.Error()))
		})
	if err != nil {
		return
	}

	var srv *server.Server
	if srv, err = server.NewServer(
		runCtx,
		opts.addr,
		simulation.Current(),
		simulation.Snapshots(),
		simulation.Field(),
		server.WithLogger(logger.With(slog.String("component", "server"))),
	); err != nil {
		return
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return simulation.Run(groupCtx)
	})
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	return group.Wait()
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	logger := newLogger(opts.debug)
	slog.SetDefault(logger)

	if err = runApp(context.Background(), opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
