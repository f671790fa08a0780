package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/agent"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/lookup"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/status"
)

var Version = "dev"

const usage = `usage: yk-ddns [flags] [run|check|purge]

  run    poll for address changes and keep records in sync (default)
  check  resolve the managed names and compare them with the current addresses
  purge  delete every record owned by this device

flags:
`

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to the configuration file")
	nameserver := flag.String("nameserver", "", "nameserver used by check (host:port, default from /etc/resolv.conf)")
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := zap.New(zap.UseFlagOptions(&opts))

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if err := run(log, command, *configPath, *nameserver); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("DDNS_CONFIG_PATH"); p != "" {
		return p
	}
	return config.DefaultPath
}

func run(log logr.Logger, command, configPath, nameserver string) error {
	ctx := signals.SetupSignalHandler()

	a := &agent.Agent{
		ConfigPath:  configPath,
		Log:         log.WithName("agent"),
		Discoverer:  address.NewDiscoverer(log.WithName("discovery")),
		NewProvider: agent.CloudflareProvider,
	}

	switch command {
	case "run":
		return serve(ctx, log, a)
	case "check":
		return check(ctx, a, nameserver)
	case "purge":
		return purge(ctx, log, a)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, log logr.Logger, a *agent.Agent) error {
	setup := log.WithName("setup")
	setup.Info("starting yk-ddns", "version", Version)

	cfg, err := a.Config()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	setup.Info("loaded config", "path", a.ConfigPath, "device", cfg.Device, "zones", cfg.ZoneNames(), "interval", cfg.PollInterval())

	if cfg.StatusAddr == "" {
		return a.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	tracker := status.NewTracker(status.NewMetrics(), cfg.PollInterval())
	a.Recorder = tracker
	srv := &status.Server{Addr: cfg.StatusAddr, Tracker: tracker, Log: log.WithName("status")}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return a.Run(ctx) })
	return g.Wait()
}

func check(ctx context.Context, a *agent.Agent, nameserver string) error {
	cfg, err := a.Config()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	current := a.Discoverer.Discover()
	fmt.Printf("Device %s, public addresses: %v\n", cfg.Device, address.Strings(current))

	findings := lookup.Check(ctx, lookup.NewResolver(nameserver), cfg, current)
	fmt.Print(lookup.FormatFindings(findings))

	for _, f := range findings {
		if !f.OK() {
			return fmt.Errorf("some managed names do not resolve to the current addresses")
		}
	}
	return nil
}

func purge(ctx context.Context, log logr.Logger, a *agent.Agent) error {
	res, err := a.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	log.Info("purge complete", "deleted", res.Deleted(), "failed", res.Failed())
	return res.Err()
}
