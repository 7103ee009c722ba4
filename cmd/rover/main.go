// rover drives an ESP8266 Wi-Fi rover from the terminal or a browser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/metrics"
	"github.com/teslashibe/go-rover/pkg/rover"
	"github.com/teslashibe/go-rover/pkg/wifi"
)

var version = "0.1.0"

// globalFlags override values from the config file and environment.
type globalFlags struct {
	configPath string
	address    string
	logLevel   string
	logFormat  string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "rover",
		Short:         "Remote control for an ESP8266 Wi-Fi rover",
		Long:          "rover sends directional commands to an ESP8266 receiver over HTTP,\nand serves a joystick page for phones on the same network.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file (default $ROVER_CONFIG)")
	pf.StringVarP(&flags.address, "address", "a", "", "device base address, e.g. http://192.168.4.1")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json")

	root.AddCommand(
		newServeCmd(flags),
		newSendCmd(flags),
		newDriveCmd(flags),
		newStatusCmd(flags),
		newScanCmd(flags),
		newRemoteCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig layers defaults, file, environment and flags, then
// initializes logging.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.address != "" {
		cfg.Address = config.NormalizeAddress(flags.address)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newDevice builds the HTTP client for the receiver.
func newDevice(cfg config.Config) rover.Device {
	return rover.NewHTTPClient(httpc.NewClient(cfg.RequestTimeout))
}

// newPanel wires Wi-Fi discovery over D-Bus. It returns nil when the
// system bus is unavailable.
func newPanel(cfg config.Config, notifier alert.Notifier, m *metrics.Metrics) (*wifi.Panel, func()) {
	scanner, err := wifi.NewNMScanner()
	if err != nil {
		log.Warn("wifi discovery disabled", "error", err)
		return nil, func() {}
	}

	var perms wifi.Permissions
	switch cfg.WiFi.Permission {
	case "granted":
		perms = wifi.StaticPermission(wifi.PermissionGranted)
	case "denied":
		perms = wifi.StaticPermission(wifi.PermissionDenied)
	default:
		pk, err := wifi.NewPolkitPermission()
		if err != nil {
			log.Warn("polkit unavailable, treating scan permission as unknown", "error", err)
			perms = wifi.StaticPermission(wifi.PermissionUnknown)
		} else {
			perms = pk
		}
	}

	panel := wifi.NewPanel(perms, scanner,
		wifi.WithNotifier(notifier),
		wifi.WithMetrics(m),
	)
	return panel, func() { scanner.Close() }
}

// newCLIController builds a controller whose alerts print to stderr.
func newCLIController(cfg config.Config, opts ...controller.Option) (*controller.Controller, error) {
	opts = append([]controller.Option{controller.WithNotifier(&alert.Writer{W: os.Stderr})}, opts...)
	return controller.New(newDevice(cfg), cfg, opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rover %s\n", version)
		},
	}
}
