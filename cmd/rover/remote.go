package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/teslashibe/go-rover/pkg/command"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

var errRemoteUsage = errors.New("usage: <direction> | move <dx> <dy> | release | mode <joystick|direction> | ping")

func newRemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote <ws-url>",
		Short: "Stream gestures from stdin to a running daemon",
		Long: `remote connects to a daemon's /ws/control endpoint and sends one
message per input line:

  forward | backward | left | right | stop   press a direction button
  move <dx> <dy>                             drag the joystick
  release                                    let go of the joystick
  mode <joystick|direction>                  switch input mode
  ping                                       measure round-trip time`,
		Example: "  rover remote ws://192.168.4.10:8080/ws/control",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runRemote(url string, in io.Reader, out io.Writer) error {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer ws.Close()

	// Print replies until the connection closes
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			fmt.Fprintln(out, describeReply(data, time.Now()))
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		msg, err := parseRemoteLine(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return scanner.Err()
}

// parseRemoteLine turns one input line into a control message.
func parseRemoteLine(line string) (*protocol.Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errRemoteUsage
	}

	switch strings.ToLower(fields[0]) {
	case "move":
		if len(fields) != 3 {
			return nil, errRemoteUsage
		}
		dx, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("move: bad dx: %w", err)
		}
		dy, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("move: bad dy: %w", err)
		}
		return protocol.NewMoveMessage(dx, dy)
	case "release":
		return protocol.NewMessage(protocol.TypeRelease, nil)
	case "ping":
		return protocol.NewMessage(protocol.TypePing, nil)
	case "mode":
		if len(fields) != 2 {
			return nil, errRemoteUsage
		}
		return protocol.NewMessage(protocol.TypeMode, protocol.ModeData{Mode: fields[1]})
	}

	if len(fields) != 1 {
		return nil, errRemoteUsage
	}
	dir, err := command.ParseDirection(fields[0])
	if err != nil {
		return nil, err
	}
	return protocol.NewPressMessage(string(dir))
}

// describeReply renders a daemon reply received at now.
func describeReply(data []byte, now time.Time) string {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return string(data)
	}
	switch msg.Type {
	case protocol.TypePong:
		var pong protocol.PongData
		if err := msg.ParseData(&pong); err == nil {
			return fmt.Sprintf("pong (%d ms)", now.UnixMilli()-pong.PingTS)
		}
	case protocol.TypeError:
		var e protocol.ErrorData
		if err := msg.ParseData(&e); err == nil {
			return "error: " + e.Message
		}
	}
	return string(data)
}
