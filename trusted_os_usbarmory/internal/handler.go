// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package gotee

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unsafe"

	"github.com/usbarmory/tamago/arm"

	"github.com/usbarmory/GoTEE/monitor"
	"github.com/usbarmory/GoTEE/syscall"

	"github.com/usbarmory/GoTEE-bist/internal/channel"
	"github.com/usbarmory/GoTEE-bist/util"
)

// Non-secure world applet syscalls.
const (
	SYS_APPLET_COMMAND   = 50
	SYS_APPLET_RSP_CHECK = 51
	SYS_APPLET_RSP_GET   = 52
)

func newHandler(b *channel.Broker, console *util.Console) func(ctx *monitor.ExecCtx) error {
	return func(ctx *monitor.ExecCtx) (err error) {
		if ctx.ExceptionVector == arm.DATA_ABORT && ctx.NonSecure() {
			log.Printf("SM trapped Non-secure data abort pc:%#.8x", ctx.R15-8)

			log.Print(ctx)
			ctx.Stop()

			return
		}

		if ctx.ExceptionVector != arm.SUPERVISOR {
			return fmt.Errorf("exception %x", ctx.ExceptionVector)
		}

		switch ctx.A0() {
		case SYS_APPLET_COMMAND:
			tlv := (*util.TLV)(unsafe.Pointer(uintptr(ctx.A1())))

			if err := submit(b, tlv); err != nil {
				log.Printf("SM applet command rejected: %v", err)
			}

		case SYS_APPLET_RSP_CHECK:
			check := (*uint16)(unsafe.Pointer(uintptr(ctx.A1())))
			*check = b.ResponseLen()

		case SYS_APPLET_RSP_GET:
			ns_tlv := (*util.TLV)(unsafe.Pointer(uintptr(ctx.A1())))

			s_tlv, err := b.PopResponse(context.Background())
			if err != nil {
				return err
			}

			ns_tlv.Tag = s_tlv.Tag
			ns_tlv.Length = s_tlv.Length
			copy(ns_tlv.Value, s_tlv.Value)

		case syscall.SYS_WRITE:
			// Override write syscall to avoid interleaved logs from both
			// security states.
			if console != nil {
				util.BufferedTermLog(byte(ctx.A1()), !ctx.NonSecure(), console.Term)
			} else {
				util.BufferedStdoutLog(byte(ctx.A1()), !ctx.NonSecure())
			}

		case syscall.SYS_EXIT:
			// support exit syscall on both security states
			ctx.Stop()

		default:
			if ctx.NonSecure() {
				log.Print(ctx)
				return errors.New("unexpected monitor call")
			}

			return monitor.SecureHandler(ctx)
		}

		return
	}
}
