// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package gotee

import (
	"log"
	"sync"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/GoTEE-bist/internal/channel"
	"github.com/usbarmory/GoTEE-bist/util"
)

var Console *util.Console

// Attach wires a loaded BIST applet and the Non-secure kernel to the same
// command broker.
func Attach(ta *monitor.ExecCtx, ns *monitor.ExecCtx) *channel.Broker {
	b := channel.NewBroker(channel.DefaultDepth)
	handler := newHandler(b, Console)

	ta.Server.Register(&RPC{Broker: b})
	ta.Handler = handler
	ns.Handler = handler

	return b
}

// GoTEE loads the BIST applet and the Non-secure kernel and runs them
// concurrently until both exit.
func GoTEE() (err error) {
	var wg sync.WaitGroup
	var ta *monitor.ExecCtx
	var os *monitor.ExecCtx

	if ta, err = loadApplet(); err != nil {
		return
	}

	if os, err = loadNormalWorld(); err != nil {
		return
	}

	b := Attach(ta, os)
	defer b.Close()

	wg.Add(2)
	go run(ta, &wg)
	go run(os, &wg)

	log.Printf("SM waiting for applet and kernel")
	wg.Wait()
	log.Printf("SM applet and kernel finished")

	return
}

func run(ctx *monitor.ExecCtx, wg *sync.WaitGroup) {
	log.Printf("SM starting sp:%#.8x pc:%#.8x ns:%v", ctx.R13, ctx.R15, ctx.NonSecure())

	err := ctx.Run()

	if wg != nil {
		wg.Done()
	}

	log.Printf("SM stopped sp:%#.8x lr:%#.8x pc:%#.8x ns:%v err:%v", ctx.R13, ctx.R14, ctx.R15, ctx.NonSecure(), err)
}
