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

	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE-bist/mem"
	gotee "github.com/usbarmory/GoTEE-bist/trusted_os_usbarmory/internal"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.SecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.SecureSize

//go:linkname hwinit runtime.hwinit1
func hwinit() {
	imx6ul.Init()
	imx6ul.UART2.Init()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	imx6ul.UART2.Tx(c)
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}

func main() {
	log.Printf("%s/%s (%s) • secure monitor (Secure:%v)", runtime.GOOS, runtime.GOARCH, runtime.Version(), !imx6ul.ARM.NonSecure())

	if err := mem.Init(); err != nil {
		log.Fatalf("SM could not reserve memory, %v", err)
	}

	if err := gotee.GoTEE(); err != nil {
		log.Fatalf("SM %v", err)
	}

	log.Printf("SM applet and kernel done, halting")
}
