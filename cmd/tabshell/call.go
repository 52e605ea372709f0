package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/tabshell/internal/appconfig"
	"pkt.systems/tabshell/internal/command"
	"pkt.systems/tabshell/internal/shellrpc"
)

const callTimeout = 30 * time.Second

func newCallCmd() *cobra.Command {
	var cfgPath string
	var socketPath string
	var list bool
	cmd := &cobra.Command{
		Use:   "call <command> [payload|-]",
		Short: "Run a command on a running shell",
		Long:  "Run a command on a running shell over its gRPC socket. The payload is JSON; \"-\" reads it from stdin.",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, name := range command.Names() {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			}
			if len(args) == 0 {
				return errors.New("command name is required")
			}
			payload, err := readPayload(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}
			path, err := resolveSocket(cfgPath, socketPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			client, err := shellrpc.Dial(ctx, path)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			result, err := client.Invoke(ctx, args[0], payload)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&socketPath, "socket", "", "gRPC socket path (overrides config)")
	cmd.Flags().BoolVar(&list, "list", false, "list command names")
	return cmd
}

// readPayload returns the JSON payload argument, nil when absent.
func readPayload(args []string, stdin io.Reader) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := args[0]
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("payload is not valid json: %s", raw)
	}
	return json.RawMessage(raw), nil
}

func resolveSocket(cfgPath, socketPath string) (string, error) {
	if strings.TrimSpace(socketPath) != "" {
		return socketPath, nil
	}
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return "", err
	}
	if !cfg.RPC.Enabled || cfg.RPC.SocketPath == "" {
		return "", errors.New("rpc is disabled in config; pass --socket")
	}
	return cfg.RPC.SocketPath, nil
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
