// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bist

import "log"

const (
	testBufferSize = 32
	testPattern    = 8
)

type result int

const (
	fail result = iota
	pass
)

// fill, copy and compare hooks, replaced in tests
var (
	fillFn    = fillPattern
	copyFn    = copyBuffer
	compareFn = equalBuffers
)

func fillPattern(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func copyBuffer(dst, src []byte) {
	for i := range src {
		dst[i] = src[i]
	}
}

func equalBuffers(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// selfTest exercises allocation, fill, copy and compare over two fixed
// buffers. A panic at any step yields fail.
func selfTest() (r result) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("[APPLET] self-test fault: %v", err)
			r = fail
		}
	}()

	src := make([]byte, testBufferSize)
	dst := make([]byte, testBufferSize)

	fillFn(src, testPattern)
	copyFn(dst, src)

	if !compareFn(src, dst) {
		return fail
	}
	return pass
}
