// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package mem

import (
	"github.com/usbarmory/tamago/dma"
)

var (
	AppletRegion    *dma.Region
	NonSecureRegion *dma.Region
)

// Init reserves the applet and Non-secure kernel regions for the secure
// monitor ELF loader.
func Init() (err error) {
	if AppletRegion, err = dma.NewRegion(AppletStart, AppletSize, false); err != nil {
		return
	}

	NonSecureRegion, err = dma.NewRegion(NonSecureStart, NonSecureSize, false)
	return
}
