// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"log"
	"os"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/GoTEE/applet"
	"github.com/usbarmory/GoTEE/syscall"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/mem"
	"github.com/usbarmory/GoTEE-bist/util"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.AppletStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.AppletSize

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	// yield to monitor (w/ err != nil) on runtime panic
	runtime.Exit = applet.Crash
}

// rpcChannel reaches the secure monitor command broker over RPC syscalls.
type rpcChannel struct{}

func (rpcChannel) Wait() (*util.TLV, error) {
	var ready bool

	for !ready {
		if err := syscall.Call("RPC.CheckChannel", nil, &ready); err != nil {
			return nil, err
		}
	}

	var cmd util.TLV
	if err := syscall.Call("RPC.PopChannel", nil, &cmd); err != nil {
		return nil, err
	}

	return &cmd, nil
}

func (rpcChannel) Respond(rsp *util.TLV) error {
	return syscall.Call("RPC.SendResponse", rsp, nil)
}

func main() {
	log.Printf("[APPLET] %s/%s (%s) • BIST applet booting", runtime.GOOS, runtime.GOARCH, runtime.Version())

	if err := bist.Serve(rpcChannel{}); err != nil {
		log.Printf("[APPLET] command loop error: %v", err)
	}

	log.Printf("[APPLET] Exiting!")
	applet.Exit()
}
