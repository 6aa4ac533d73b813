// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"

	"github.com/usbarmory/GoTEE-bist/internal/config"
	"github.com/usbarmory/GoTEE-bist/internal/dal"
	"github.com/usbarmory/GoTEE-bist/internal/sample"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Run the applet acceptance flow: install, self-test, echo, close",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		r := dal.NewRuntime()
		defer r.Close()

		if err := runSample(ctx, r, cfg); err != nil {
			return err
		}

		log.Printf("BIST sample succeeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

func runSample(ctx context.Context, r *dal.Runtime, c *config.Config) (err error) {
	// uninstall whatever the outcome, as openSession may have installed
	defer func() {
		if !c.UninstallAfter {
			return
		}

		log.Printf("Uninstalling...")
		uerr := r.Uninstall(c.AppID)
		if err != nil && errors.Is(uerr, dal.ErrTADoesNotExist) {
			return
		}
		err = errors.Join(err, uerr)
	}()

	handle, err := openSession(r, c)
	if err != nil {
		return err
	}

	inv := &dal.Invoker{Runtime: r, Handle: handle, OutLen: c.OutputBuffer}

	log.Printf("Communicating with the applet...")
	runErr := sample.Run(ctx, inv, []byte(c.EchoPayload))

	log.Printf("Closing the session...")
	if err := r.CloseSession(ctx, handle); err != nil && runErr == nil {
		runErr = err
	}

	return runErr
}
