// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"github.com/usbarmory/GoTEE-bist/util"
	"github.com/usbarmory/GoTEE/syscall"
)

const (
	SYS_WRITE = syscall.SYS_WRITE
	SYS_EXIT  = syscall.SYS_EXIT

	SYS_APPLET_COMMAND   = 50
	SYS_APPLET_RSP_CHECK = 51
	SYS_APPLET_RSP_GET   = 52
)

// defined in api_arm.s
func printSecure(byte)
func commandApplet(*util.TLV)
func checkAppletResponse(*uint16)
func getAppletResponse(*util.TLV)
func exit()
