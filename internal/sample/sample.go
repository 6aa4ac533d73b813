// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sample implements the BIST applet acceptance flow run by the
// Non-secure side: a self-test followed by an echo round trip.
package sample

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/GoTEE-bist/bist"
)

// DefaultPayload is the echo test message.
const DefaultPayload = "0123456"

var ErrUnexpectedResponse = errors.New("did not get the expected message from the applet")

// Invoker issues a single applet command and returns its status and
// response buffer.
type Invoker interface {
	Invoke(ctx context.Context, commandID int32, input []byte) (bist.Status, []byte, error)
}

// SelfTest runs the applet self-test command.
func SelfTest(ctx context.Context, inv Invoker) error {
	status, rsp, err := inv.Invoke(ctx, bist.CmdSelfTest, nil)
	if err != nil {
		return fmt.Errorf("self-test: %w", err)
	}

	if status != bist.Success || string(rsp) != "SUCCESS" {
		return fmt.Errorf("self-test: %w: status:%s response:%q", ErrUnexpectedResponse, status, rsp)
	}

	log.Printf("self-test succeeded")
	return nil
}

// Echo sends payload with the echo command and checks that the applet
// returns it unchanged.
func Echo(ctx context.Context, inv Invoker, payload []byte) error {
	status, rsp, err := inv.Invoke(ctx, bist.CmdEcho, payload)
	if err != nil {
		return fmt.Errorf("echo: %w", err)
	}

	if status != bist.Success {
		return fmt.Errorf("echo: %w: status:%s", ErrUnexpectedResponse, status)
	}

	if len(rsp) != len(payload) || !bytes.Equal(rsp, payload) {
		return fmt.Errorf("echo: %w: sent %d bytes, got %d", ErrUnexpectedResponse, len(payload), len(rsp))
	}

	log.Printf("echo of %d bytes succeeded", len(payload))
	return nil
}

// Run executes the full acceptance flow.
func Run(ctx context.Context, inv Invoker, payload []byte) error {
	if err := SelfTest(ctx, inv); err != nil {
		return err
	}

	return Echo(ctx, inv, payload)
}
