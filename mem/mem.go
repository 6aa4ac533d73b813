// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem describes the USB armory Mk II memory layout shared by the
// secure monitor, the BIST applet and the Non-secure kernel.
package mem

const (
	// Non-secure kernel
	NonSecureStart = 0x80000000
	NonSecureSize  = 0x10000000

	// Secure monitor
	SecureStart = 0x90000000
	SecureSize  = 0x04000000

	// Trusted applet
	AppletStart = 0x94000000
	AppletSize  = 0x02000000
)

// Overlaps reports whether the two regions share any address.
func Overlaps(startA, sizeA, startB, sizeB uint64) bool {
	return startA < startB+sizeB && startB < startA+sizeA
}
