package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/heartrelay/heartrelay/pkg/relayrpc"
)

var submitCmd = &cobra.Command{
	Use:   "submit <bpm>",
	Short: "Send one heart-rate reading to a running relay",
	Long: `Send one heart-rate reading to a running relay over the gRPC ingress.

The value is sent as-is; the relay accepts any integer.

Example:
  heartrelay submit 72
  heartrelay submit --addr 10.0.0.5:25874 --api-key-env HEARTRELAY_KEY 88`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("addr", "127.0.0.1:25874", "gRPC ingress address")
	submitCmd.Flags().String("api-key-env", "", "environment variable holding the API key")
	submitCmd.Flags().String("header", "x-api-key", "metadata key carrying the API key")
	submitCmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	bpm, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid bpm %q: %w", args[0], err)
	}
	addr, _ := cmd.Flags().GetString("addr")
	keyEnv, _ := cmd.Flags().GetString("api-key-env")
	header, _ := cmd.Flags().GetString("header")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	msg, err := submit(ctx, addr, header, os.Getenv(keyEnv), int32(bpm))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

// submit sends one reading and returns the relay's message.
func submit(ctx context.Context, addr, header, key string, bpm int32) (string, error) {
	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, header, key)
	}
	resp, err := relayrpc.NewIngressClient(conn).Submit(ctx, &relayrpc.SubmitRequest{HeartRate: bpm})
	if err != nil {
		return "", fmt.Errorf("submit rejected: %s", status.Convert(err).Message())
	}
	return resp.Message, nil
}
