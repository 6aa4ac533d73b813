// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/internal/dal"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <command-id> [hex-input]",
	Short: "Send a single command to the applet",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, input, err := parseCommand(args)
		if err != nil {
			return err
		}
		return invokeOnce(cmd.OutOrStdout(), id, input)
	},
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the applet self-test",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return invokeOnce(cmd.OutOrStdout(), bist.CmdSelfTest, nil)
	},
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(selftestCmd)
}

// parseCommand parses a command identifier and an optional hex encoded
// input buffer.
func parseCommand(args []string) (int32, []byte, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("missing command id")
	}

	id, err := strconv.ParseInt(args[0], 0, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid command id %q: %w", args[0], err)
	}

	if len(args) < 2 {
		return int32(id), nil, nil
	}

	input, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid hex input: %w", err)
	}

	return int32(id), input, nil
}

func printResult(w io.Writer, status bist.Status, rsp []byte) {
	fmt.Fprintf(w, "status:   %s (%d)\n", status, uint32(status))
	fmt.Fprintf(w, "response: %x %q\n", rsp, rsp)
}

func invoke(ctx context.Context, r *dal.Runtime, handle uint64, w io.Writer, id int32, input []byte) error {
	status, rsp, err := r.SendAndReceive(ctx, handle, id, input, cfg.OutputBuffer)
	if err != nil {
		return err
	}

	printResult(w, status, rsp)

	if status != bist.Success {
		return fmt.Errorf("applet returned %s", status)
	}
	return nil
}

func invokeOnce(w io.Writer, id int32, input []byte) error {
	ctx, cancel := commandContext()
	defer cancel()

	r := dal.NewRuntime()
	defer r.Close()

	handle, err := openSession(r, cfg)
	if err != nil {
		return err
	}

	return invoke(ctx, r, handle, w, id, input)
}
