//go:build linux

package main

import (
	"fmt"

	"github.com/jangala-dev/uartcore/mmio"
)

func mapRegisters(path string, base, size uintptr) (mappedPort, error) {
	m, err := mmio.Map(path, base, size)
	if err != nil {
		return nil, fmt.Errorf("uartctl: %w", err)
	}
	return m, nil
}
