package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openthread-go/tncctl/internal/config"
	"github.com/openthread-go/tncctl/internal/credentials"
	"github.com/openthread-go/tncctl/internal/interpreter"
	"github.com/openthread-go/tncctl/internal/jobmanager"
	"github.com/openthread-go/tncctl/internal/logging"
	"github.com/openthread-go/tncctl/internal/metrics"
	"github.com/openthread-go/tncctl/internal/registry"
	"github.com/openthread-go/tncctl/internal/session"
	"github.com/openthread-go/tncctl/internal/tncerr"
	"github.com/openthread-go/tncctl/internal/tracing"
)

var version = "v0.0.0-dev"

func main() {
	var configPath, metricsAddr string
	var enableTracing bool

	rootCmd := &cobra.Command{
		Use:   "tncctl",
		Short: "Thread Network Commissioner control shell",
		Long: `tncctl is the Thread Network Commissioner's interactive command shell.
It manages known networks and domains, discovers Border Agents over mDNS,
and drives commissioning sessions against one or more networks at once.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tncctl %s\n", version)
		},
	}

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive commissioner shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(configPath, metricsAddr, enableTracing)
		},
	}
	shellCmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	shellCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9464", "Prometheus /metrics listen address")
	shellCmd.Flags().BoolVar(&enableTracing, "tracing", false, "Enable OpenTelemetry tracing spans")

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write an example config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "tncctl.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			return config.WriteExample(path)
		},
	}

	rootCmd.AddCommand(versionCmd, shellCmd, initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runShell wires together the Registry, credential Loader, Session pool,
// Job Manager and Interpreter, then feeds stdin lines into the Interpreter
// until "exit"/"quit" or EOF.
func runShell(configPath, metricsAddr string, enableTracing bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	log.Info().Str("version", version).Msg("Starting tncctl")

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.Enable = enableTracing
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if tp != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = tp.Shutdown(shutdownCtx)
			shutdownCancel()
		}()
	}

	reg, err := registry.Open(cfg.Registry.StorePath)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}

	credLoader := credentials.NewLoader(credentials.Config{Root: cfg.Credentials.Root})

	m := metrics.Default()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", metricsAddr).Msg("Metrics server listening")

	pool := session.NewPool(dtlsSessionFactory)
	jm := jobmanager.New(reg, credLoader, pool, m)

	var iface *net.Interface
	if cfg.Discovery.Interface != "" {
		iface, err = net.InterfaceByName(cfg.Discovery.Interface)
		if err != nil {
			return fmt.Errorf("resolve discovery interface %q: %w", cfg.Discovery.Interface, err)
		}
	}

	it := interpreter.New(reg, pool, jm, os.Stdout, iface, cfg.Discovery.ScanTimeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})
	go runREPL(ctx, it, doneCh)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-doneCh:
		log.Info().Msg("Shell exited")
	}

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	for _, err := range jm.StopAllSessions(stopCtx) {
		log.Warn().Err(err).Msg("error stopping session during shutdown")
	}
	_ = metricsSrv.Close()
	return nil
}

// dtlsSessionFactory is the integration point for the real DTLS/CoAP
// Commissioner client library, which is an external collaborator this
// module does not implement. It returns a Security error, which the Session
// pool wraps as an IOError, so starting a network fails with an error naming
// the missing client rather than panicking on a nil Session.
func dtlsSessionFactory(cfg session.Config) (session.Session, error) {
	return nil, tncerr.New(tncerr.Security, "session: no DTLS/CoAP client configured for this build")
}

// runREPL reads lines from stdin and feeds them to the Interpreter until
// EOF, a fatal read error, or a line whose first word is "exit" or "quit".
func runREPL(ctx context.Context, it *interpreter.Interpreter, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if fields := strings.Fields(line); len(fields) > 0 && (strings.EqualFold(fields[0], "exit") || strings.EqualFold(fields[0], "quit")) {
			return
		}
		if _, err := it.Eval(ctx, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
