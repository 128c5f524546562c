package uartx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/jangala-dev/uartcore/internal/sim"
)

func TestLog_ComponentAttributes(t *testing.T) {
	old := GetLogLevel()
	defer SetLogLevel(old)
	SetLogLevel(slog.LevelDebug)

	var buf bytes.Buffer
	hw := sim.NewNS16550(testNS16550Base, 2)
	d := NewNS16550(hw, testClock, WithLogger(NewLogger(&buf, LogFormatJSON)))
	d.Open()
	if err := d.Configure(Config{BaudRate: 0, Parity: 42}); err == nil {
		t.Fatal("bad parity accepted")
	}
	if err := d.Configure(Config{BaudRate: 9600}); err != nil {
		t.Fatal(err)
	}

	var sawOpen, sawConfig bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad JSON log line %q: %v", line, err)
		}
		if rec["chip"] != "ns16550" {
			t.Fatalf("record without chip: %v", rec)
		}
		switch rec["component"] {
		case string(ComponentDevice):
			sawOpen = sawOpen || rec["msg"] == "opened"
		case string(ComponentConfig):
			sawConfig = sawConfig || rec["msg"] == "configuration applied"
		}
	}
	if !sawOpen || !sawConfig {
		t.Fatalf("missing records (open=%v config=%v):\n%s", sawOpen, sawConfig, buf.String())
	}
}

func TestLog_DefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	old := DefaultLogger
	defer SetLogger(old)
	SetLogger(NewLogger(&buf, LogFormatText))

	d := NewPL011(sim.NewPL011(testPL011Base, 16), testClock)
	d.Open()
	if GetLogLevel() == slog.LevelWarn && buf.Len() != 0 {
		t.Fatalf("info record logged at warn level: %s", buf.String())
	}
	d.Configure(Config{BaudRate: 1})
	if !strings.Contains(buf.String(), "rejected baud rate") {
		t.Fatalf("warning not logged: %q", buf.String())
	}
}
