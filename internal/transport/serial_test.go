package transport

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptionsDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if opts.BaudRate != 921600 {
		t.Errorf("default baud rate %d, want 921600", opts.BaudRate)
	}
	if opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("default framing %d%s%d, want 8N1", opts.DataBits, opts.Parity, opts.StopBits)
	}
}

func TestPortOptionsParityAliases(t *testing.T) {
	for in, want := range map[string]string{
		"":     "N",
		"none": "N",
		"Even": "E",
		"odd":  "O",
	} {
		opts, err := PortOptions{Parity: in}.Normalize()
		if err != nil {
			t.Fatalf("parity %q: %v", in, err)
		}
		if opts.Parity != want {
			t.Errorf("parity %q normalized to %q, want %q", in, opts.Parity, want)
		}
	}
}

func TestPortOptionsInvalid(t *testing.T) {
	if _, err := (PortOptions{DataBits: 9}).Normalize(); err == nil {
		t.Error("data bits 9 accepted")
	}
	if _, err := (PortOptions{StopBits: 3}).Normalize(); err == nil {
		t.Error("stop bits 3 accepted")
	}
	if _, err := (PortOptions{Parity: "mark"}).Normalize(); err == nil {
		t.Error("parity mark accepted")
	}
}

func TestSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, Parity: "even"}.SerialMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode.BaudRate != 57600 {
		t.Errorf("baud rate %d, want 57600", mode.BaudRate)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("parity %v, want even", mode.Parity)
	}
	if mode.DataBits != 8 {
		t.Errorf("data bits %d, want 8", mode.DataBits)
	}
}
