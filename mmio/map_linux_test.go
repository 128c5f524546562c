//go:build linux && !tinygo

package mmio

import (
	"errors"
	"os"
	"testing"
)

func TestMapErrors(t *testing.T) {
	t.Run("zero-size", func(t *testing.T) {
		_, err := Map("", 0x9000000, 0)
		if err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("no-such-file", func(t *testing.T) {
		_, err := Map("/nonexistent/uio0", 0x9000000, 0x1000)
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("invalid error: %+v", err)
		}
	})
	t.Run("nil-mapping", func(t *testing.T) {
		var m *Mapping
		if err := m.Close(); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
}
