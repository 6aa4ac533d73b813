// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/usbarmory/GoTEE-bist/internal/config"
	"github.com/usbarmory/GoTEE-bist/internal/dal"
)

var (
	configFile  string
	packageFile string
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bist",
	Short: "Exercise the BIST trusted applet on an emulated host runtime",
	Long: "bist installs the BIST applet on an in-process applet runtime, opens a session\n" +
		"and sends self-test and echo commands to it.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}

		if packageFile != "" {
			cfg.Package = packageFile
		}

		setupLogging(cfg.Log, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (default $BIST_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&packageFile, "package", "", "applet package file (overrides config)")
}

func setupLogging(lc config.LogConfig, stderr io.Writer) {
	log.SetFlags(log.Ltime)

	if lc.File == "" {
		log.SetOutput(stderr)
		return
	}

	log.SetOutput(io.MultiWriter(stderr, &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}))
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSec)*time.Second)
}

// openSession opens a session to the configured applet, installing its
// package first when the runtime does not have it.
func openSession(r *dal.Runtime, c *config.Config) (uint64, error) {
	pkg, err := os.ReadFile(c.Package)
	if err != nil {
		return 0, fmt.Errorf("failed to read applet package: %w", err)
	}

	log.Printf("Opening session to applet %s...", c.AppID)

	handle, err := r.CreateSession(c.AppID, pkg)
	if err == nil {
		return handle, nil
	}

	if !errors.Is(err, dal.ErrAppletNotInstalled) {
		return 0, err
	}

	log.Printf("Installing the BIST applet from %s...", c.Package)

	if err = r.Install(c.AppID, pkg); err != nil {
		return 0, err
	}

	return r.CreateSession(c.AppID, pkg)
}
