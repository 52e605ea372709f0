package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabshell/internal/shellrpc"
)

func newEventsCmd() *cobra.Command {
	var cfgPath string
	var socketPath string
	var after uint64
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream UI events from a running shell as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveSocket(cfgPath, socketPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := shellrpc.Dial(ctx, path)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			stream, err := client.Events(ctx, after)
			if err != nil {
				return err
			}
			pslog.Ctx(ctx).Debug("events stream open", "socket", path, "after", after)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				event, err := stream.Recv()
				if err != nil {
					if errors.Is(err, io.EOF) || ctx.Err() != nil {
						return nil
					}
					return err
				}
				if err := enc.Encode(event); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&socketPath, "socket", "", "gRPC socket path (overrides config)")
	cmd.Flags().Uint64Var(&after, "after", 0, "replay buffered events with a higher sequence first")
	return cmd
}
