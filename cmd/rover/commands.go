package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-rover/pkg/alert"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/controller"
	"github.com/teslashibe/go-rover/pkg/health"
)

const scanTimeout = 15 * time.Second

func newSendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "send <direction>",
		Short:     "Send one labelled command (forward, backward, left, right, stop)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: directionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := command.ParseDirection(args[0])
			if err != nil {
				return err
			}
			return sendOnce(cmd, flags, command.Label(dir))
		},
	}
}

func newDriveCmd(flags *globalFlags) *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Send one joystick offset command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOnce(cmd, flags, command.Move(x, y))
		},
	}
	cmd.Flags().Float64VarP(&x, "x", "x", 0, "horizontal offset, right is positive")
	cmd.Flags().Float64VarP(&y, "y", "y", 0, "vertical offset, down is positive")
	return cmd
}

func sendOnce(cmd *cobra.Command, flags *globalFlags, c command.Command) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	ctrl, err := newCLIController(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	resp, err := ctrl.SendWait(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %d (%d ms) %s\n",
		resp.URL, resp.StatusCode, resp.Latency.Milliseconds(), resp.Body)
	return nil
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctrl, err := newCLIController(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			snap := ctrl.Check(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Address:           %s\n", snap.Address)
			fmt.Fprintf(out, "Connection Status: %s\n", snap.Status.Label())
			fmt.Fprintf(out, "Connection Speed:  %d ms\n", snap.LatencyMs)
			if snap.Status != health.StatusConnected {
				return fmt.Errorf("device unreachable: %s", snap.Error)
			}
			return nil
		},
	}
}

func newScanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List visible Wi-Fi networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			panel, closePanel := newPanel(cfg, &alert.Writer{W: cmd.ErrOrStderr()}, nil)
			defer closePanel()

			ctrl, err := newCLIController(cfg, controller.WithPanel(panel))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
			defer cancel()

			networks, err := ctrl.Networks(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Networks:")
			for _, n := range networks {
				fmt.Fprintf(out, "  %s\n", n)
			}
			return nil
		},
	}
}

func directionNames() []string {
	names := make([]string, len(command.Directions))
	for i, d := range command.Directions {
		names[i] = string(d)
	}
	return names
}
