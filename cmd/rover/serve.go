package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/metrics"
	"github.com/teslashibe/go-rover/pkg/mqttbridge"
	"github.com/teslashibe/go-rover/pkg/web"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control page and health check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "control page listen address (default :8080)")
	return cmd
}

func serve(cfg config.Config) error {
	ctx, cancel := signalContext()
	defer cancel()

	m := metrics.Default()

	var webOpts []web.Option
	if log.ParseLevel(cfg.Log.Level) <= slog.LevelDebug {
		webOpts = append(webOpts, web.WithRequestLog())
	}
	srv := web.NewServer(cfg.Listen, webOpts...)

	logAlerts := alert.NotifierFunc(func(title, message string) {
		log.Warn("alert", "title", title, "message", message)
	})
	notifier := alert.Multi{srv, logAlerts}

	panel, closePanel := newPanel(cfg, notifier, m)
	defer closePanel()

	ctrl, err := controller.New(newDevice(cfg), cfg,
		controller.WithNotifier(notifier),
		controller.WithMetrics(m),
		controller.WithPanel(panel),
	)
	if err != nil {
		return err
	}
	srv.Attach(ctrl)
	ctrl.Start(ctx)
	defer ctrl.Stop()

	if cfg.MQTT.Broker != "" {
		bridge := mqttbridge.New(cfg.MQTT, ctrl)
		if err := bridge.Start(); err != nil {
			// The page still works without the broker
			log.Error("mqtt bridge disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer bridge.Stop()
		}
	}

	log.Info("rover ready",
		"version", version,
		"device", cfg.Address,
		"listen", cfg.Listen,
		"mode", cfg.Mode,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	return srv.Shutdown()
}
