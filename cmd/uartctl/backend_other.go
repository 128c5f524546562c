//go:build !linux

package main

import (
	"errors"
	"fmt"
)

var errNoMap = errors.New("register mapping is only supported on linux; use --sim")

func mapRegisters(path string, base, size uintptr) (mappedPort, error) {
	return nil, fmt.Errorf("uartctl: map %s at 0x%x: %w", path, base, errNoMap)
}
