package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabshell"
	"pkt.systems/tabshell/httpapi"
	"pkt.systems/tabshell/internal/appconfig"
	"pkt.systems/tabshell/internal/chromesurface"
	"pkt.systems/tabshell/internal/shellrpc"
)

const stopTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var headless bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Launch the browser and serve the command interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			if headless {
				cfg.Browser.Headless = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("browser launch start", "exec", cfg.Browser.ExecPath, "remote", cfg.Browser.RemoteURL, "headless", cfg.Browser.Headless)
			browser, err := chromesurface.Launch(ctx, toBrowserConfig(cfg))
			if err != nil {
				return err
			}
			defer func() {
				if err := browser.Close(); err != nil {
					logger.Warn("browser close failed", "err", err)
				}
			}()
			logger.Info("browser launch ok")

			server, err := tabshell.New(toServerConfig(cfg), tabshell.ServerDeps{
				Surfaces: browser,
				Logger:   logger,
			}, serverOptions(cfg)...)
			if err != nil {
				return err
			}
			return runServer(ctx, stop, server, logger)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without visible windows")
	return cmd
}

// runServer serves until ctx is cancelled or the server fails. It returns
// only after Stop has finished, so callers may release the browser afterwards.
func runServer(ctx context.Context, cancel context.CancelFunc, server tabshell.Server, logger pslog.Logger) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if err := server.Stop(stopCtx); err != nil {
			logger.Warn("server stop failed", "err", err)
		}
	}()
	err := server.Start(ctx)
	if err == nil {
		err = server.Wait()
	}
	cancel()
	<-stopped
	return err
}

func toBrowserConfig(cfg appconfig.Config) chromesurface.Config {
	return chromesurface.Config{
		ExecPath:     cfg.Browser.ExecPath,
		RemoteURL:    cfg.Browser.RemoteURL,
		Headless:     cfg.Browser.Headless,
		NoSandbox:    cfg.Browser.NoSandbox,
		UserDataDir:  cfg.Browser.UserDataDir,
		Flags:        cfg.Browser.Flags,
		WindowLeft:   cfg.Window.Left,
		WindowTop:    cfg.Window.Top,
		WindowWidth:  cfg.Window.Width,
		WindowHeight: cfg.Window.Height,
	}
}

func toServerConfig(cfg appconfig.Config) tabshell.ServerConfig {
	return tabshell.ServerConfig{
		Shell: cfg.ShellConfig(),
		HTTP: httpapi.Config{
			Addr:  cfg.HTTP.Addr,
			Token: cfg.HTTP.Token,
		},
		RPC:                 shellrpc.Config{SocketPath: cfg.RPC.SocketPath},
		DisableAuditLogging: cfg.Logging.DisableAuditTrails,
	}
}

func serverOptions(cfg appconfig.Config) []tabshell.ServerOption {
	var opts []tabshell.ServerOption
	if cfg.HTTP.Addr != "" {
		opts = append(opts, tabshell.WithHTTP())
	}
	if cfg.RPC.Enabled && cfg.RPC.SocketPath != "" {
		opts = append(opts, tabshell.WithRPC())
	}
	return opts
}
