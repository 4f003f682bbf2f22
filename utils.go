package vkgui

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// toBytes will take an unsafe.Pointer and length in bytes and convert it
// to a byte slice
func toBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	const m = 0x7fffffff
	return (*[m]byte)(ptr)[:lenInBytes]
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}
