// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/usbarmory/GoTEE-bist/internal/dal"
	"github.com/usbarmory/GoTEE-bist/util"
)

const consoleHelp = "<command-id> [hex-input] | help | quit\n"

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive applet session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fd := int(os.Stdin.Fd())

		if term.IsTerminal(fd) {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer term.Restore(fd, oldState)
		}

		rw := struct {
			io.Reader
			io.Writer
		}{os.Stdin, os.Stdout}

		r := dal.NewRuntime()
		defer r.Close()

		return runConsole(util.NewConsole(rw, "bist> "), r)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(console *util.Console, r *dal.Runtime) error {
	prev := log.Writer()
	log.SetOutput(console.Term)
	defer log.SetOutput(prev)

	handle, err := openSession(r, cfg)
	if err != nil {
		return err
	}

	for {
		line, err := console.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit":
			return nil
		case "help":
			console.Printf(consoleHelp)
			continue
		}

		id, input, err := parseCommand(args)
		if err != nil {
			console.Printf("%v\n", err)
			continue
		}

		// an expired command aborts its session
		if !r.HasSession(handle) {
			if handle, err = openSession(r, cfg); err != nil {
				return err
			}
		}

		ctx, cancel := commandContext()
		err = invoke(ctx, r, handle, console.Term, id, input)
		cancel()

		if err != nil {
			console.Printf("%v\n", err)
		}
	}
}
