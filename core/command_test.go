package core

import (
	"errors"
	"testing"

	"linebot/protocol"
)

func TestCommandRegistryIDs(t *testing.T) {
	registry := NewCommandRegistry()

	noop := func(data *[]byte) error { return nil }
	ids := []uint16{
		registry.Register("identify", "offset=%u count=%c", noop),
		registry.Register("query_status", "", noop),
		registry.Register("status", "clock=%u", nil),
	}
	for i, id := range ids {
		if id != uint16(i) {
			t.Errorf("Message %d registered as %d", i, id)
		}
	}

	if again := registry.Register("query_status", "", noop); again != 1 {
		t.Errorf("Re-registering returned %d, want 1", again)
	}

	want := "identify offset=%u count=%c\nquery_status\nstatus clock=%u\n"
	if got := registry.GetDictionary(); got != want {
		t.Errorf("Dictionary = %q, want %q", got, want)
	}
}

func TestCommandRegistryDispatch(t *testing.T) {
	registry := NewCommandRegistry()

	var received uint32
	id := registry.Register("set_debug", "enable=%c", func(data *[]byte) error {
		v, err := protocol.DecodeVLQUint(data)
		received = v
		return err
	})
	respID := registry.Register("fault", "kind=%c clock=%u", nil)

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 1)
	data := output.Result()
	if err := registry.Dispatch(id, &data); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if received != 1 {
		t.Errorf("Expected argument 1, got %d", received)
	}

	tests := []struct {
		name string
		id   uint16
		err  error
	}{
		{"response", respID, ErrNotCommand},
		{"unknown", 99, ErrUnknownCommand},
	}
	for _, tt := range tests {
		var data []byte
		if err := registry.Dispatch(tt.id, &data); !errors.Is(err, tt.err) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.err, err)
		}
	}

	cmd, ok := registry.GetCommandByName("fault")
	if !ok || cmd.ID != respID || cmd.Handler != nil {
		t.Errorf("GetCommandByName(fault) = %+v, %v", cmd, ok)
	}
}
