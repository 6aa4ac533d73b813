// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package gotee

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/usbarmory/armory-boot/exec"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/GoTEE-bist/mem"
)

// Built by the Makefile before the secure monitor.
var (
	//go:embed assets/trusted_applet.elf
	taELF []byte

	//go:embed assets/nonsecure_os_go.elf
	osELF []byte
)

func loadApplet() (ta *monitor.ExecCtx, err error) {
	image := &exec.ELFImage{
		Region: mem.AppletRegion,
		ELF:    taELF,
	}

	if err = image.Load(); err != nil {
		return nil, fmt.Errorf("SM could not load applet, %v", err)
	}

	if ta, err = monitor.Load(image.Entry(), image.Region, true); err != nil {
		return nil, fmt.Errorf("SM could not load applet, %v", err)
	}

	log.Printf("SM loaded applet addr:%#x entry:%#x size:%d", ta.Memory.Start(), ta.R15, len(taELF))

	// set stack pointer to the end of applet memory
	ta.R13 = mem.AppletStart + mem.AppletSize

	return
}

func loadNormalWorld() (os *monitor.ExecCtx, err error) {
	image := &exec.ELFImage{
		Region: mem.NonSecureRegion,
		ELF:    osELF,
	}

	if err = image.Load(); err != nil {
		return nil, fmt.Errorf("SM could not load kernel, %v", err)
	}

	if os, err = monitor.Load(image.Entry(), image.Region, false); err != nil {
		return nil, fmt.Errorf("SM could not load kernel, %v", err)
	}

	log.Printf("SM loaded kernel addr:%#x entry:%#x size:%d", os.Memory.Start(), os.R15, len(osELF))

	return
}
