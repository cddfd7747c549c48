package servecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/devproxy/pkg/logger"
	"github.com/papercomputeco/devproxy/pkg/rules"
	"github.com/papercomputeco/devproxy/proxy"
)

const serveLongDesc string = `Run the development server.

Requests whose path matches a proxy rule get their Host, Referer and
Origin headers pointed at the rule's target and are forwarded there.
Everything else is served from --static, if given.

Without --config the built-in rule forwards /api/* to
http://127.0.0.1:7220 without certificate checks.

Examples:
  devproxy serve
  devproxy serve --static dist/app --listen :4200
  devproxy serve --config proxy.conf.json`

const serveShortDesc string = "Run the development proxy server"

const shutdownTimeout = 5 * time.Second

type serveCommander struct {
	configPath string
	listenAddr string
	staticDir  string
	timeout    time.Duration
	debug      bool

	// watch follows the rule file while serving; rules.Watch unless a test swaps it.
	watch func(ctx context.Context, path string, logger *zap.Logger) error
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{watch: rules.Watch}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a rule file (.toml, .json or .js)")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", proxy.DefaultListenAddr, "Address to listen on")
	cmd.Flags().StringVar(&cmder.staticDir, "static", "", "Directory served for paths no rule matches")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", proxy.DefaultTimeout, "Upstream request timeout")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) loadRules() (*rules.Set, error) {
	if c.configPath == "" {
		return rules.Default(), nil
	}

	set, err := rules.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load rules: %w", err)
	}
	return set, nil
}

func (c *serveCommander) run(ctx context.Context) error {
	// the watcher must not outlive the server, however it stops
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	set, err := c.loadRules()
	if err != nil {
		return err
	}

	level := set.MinLevel().ZapLevel()
	if c.debug {
		level = zapcore.DebugLevel
	}
	log := logger.NewLogger(level)
	defer log.Sync()

	log.Info("devproxy starting",
		zap.String("listen", c.listenAddr),
		zap.String("config", c.configPath),
		zap.String("static", c.staticDir),
		zap.Bool("debug", c.debug),
	)

	p, err := proxy.New(proxy.Config{
		ListenAddr: c.listenAddr,
		StaticDir:  c.staticDir,
		Rules:      set,
		Timeout:    c.timeout,
		Debug:      c.debug,
	}, log)
	if err != nil {
		return fmt.Errorf("could not create proxy: %w", err)
	}

	if c.configPath != "" && c.watch != nil {
		go func() {
			if err := c.watch(ctx, c.configPath, log); err != nil {
				log.Warn("not watching rule file", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return p.Shutdown(shutdownCtx)
	}
}
