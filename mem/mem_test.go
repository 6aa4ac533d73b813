// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import "testing"

func TestLayoutDoesNotOverlap(t *testing.T) {
	regions := []struct {
		name        string
		start, size uint64
	}{
		{"non-secure", NonSecureStart, NonSecureSize},
		{"secure", SecureStart, SecureSize},
		{"applet", AppletStart, AppletSize},
	}

	for i, a := range regions {
		for _, b := range regions[i+1:] {
			if Overlaps(a.start, a.size, b.start, b.size) {
				t.Errorf("%s overlaps %s", a.name, b.name)
			}
		}
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps(0, 0x10, 0x8, 0x10) {
		t.Error("expected overlap")
	}
	if Overlaps(0, 0x10, 0x10, 0x10) {
		t.Error("adjacent regions reported as overlapping")
	}
}
