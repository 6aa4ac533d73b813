// Copyright (c) The GoTEE authors. All Rights Reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package main

import (
	"context"
	"log"
	"os"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE-bist/bist"
	"github.com/usbarmory/GoTEE-bist/internal/sample"
	"github.com/usbarmory/GoTEE-bist/mem"
	"github.com/usbarmory/GoTEE-bist/util"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.NonSecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.NonSecureSize

//go:linkname hwinit runtime.hwinit1
func hwinit() {
	imx6ul.Init()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	printSecure(c)
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	if !imx6ul.Native {
		return
	}

	switch imx6ul.Family {
	case imx6ul.IMX6UL:
		imx6ul.SetARMFreq(imx6ul.Freq528)
	case imx6ul.IMX6ULL:
		imx6ul.SetARMFreq(imx6ul.FreqMax)
	}
}

// smcInvoker reaches the BIST applet through the secure monitor.
type smcInvoker struct{}

func (smcInvoker) Invoke(ctx context.Context, commandID int32, input []byte) (bist.Status, []byte, error) {
	cmdTLV, err := util.PackInvoke(commandID, input)
	if err != nil {
		return 0, nil, err
	}

	commandApplet(cmdTLV)

	rspLen := uint16(0)
	for rspLen == 0 {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		checkAppletResponse(&rspLen)
	}

	var rspTLV util.TLV
	rspTLV.Length = rspLen
	rspTLV.Value = make([]byte, rspLen)
	getAppletResponse(&rspTLV)

	res, err := util.UnpackResult(&rspTLV)
	if err != nil {
		return 0, nil, err
	}

	return bist.Status(res.Status), res.Response, nil
}

func main() {
	log.Printf("%s/%s (%s) • system/supervisor (Non-secure:%v)", runtime.GOOS, runtime.GOARCH, runtime.Version(), imx6ul.ARM.NonSecure())

	if err := sample.Run(context.Background(), smcInvoker{}, []byte(sample.DefaultPayload)); err != nil {
		log.Printf("BIST applet check failed: %v", err)
	} else {
		log.Printf("BIST applet check succeeded")
	}

	commandApplet(util.PackQuit())

	log.Printf("Supervisor exits.")
	exit()
}
