package tau2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCatalogNamesUnique(t *testing.T) {
	seen := make(map[string]Command, len(Catalog))
	for _, c := range Catalog {
		if prev, ok := seen[c.Name]; ok {
			t.Errorf("duplicate descriptor name %s (opcodes 0x%02X and 0x%02X)", c.Name, prev.Opcode, c.Opcode)
		}
		seen[c.Name] = c
	}
}

func TestCatalogDescriptors(t *testing.T) {
	// Spot-check the descriptors the acquisition path depends on against
	// the Tau 2 Software IDD.
	for _, tc := range []struct {
		got  Command
		want Command
	}{
		{NoOp, Command{Name: "NO_OP", Opcode: 0x00, CmdBytes: 0, ReplyBytes: 0}},
		{GetSerialNumber, Command{Name: "GET_SERIAL_NUMBER", Opcode: 0x04, CmdBytes: 0, ReplyBytes: 8}},
		{GetGainMode, Command{Name: "GET_GAIN_MODE", Opcode: 0x0A, CmdBytes: 0, ReplyBytes: 2}},
		{GetFPATemperature, Command{Name: "GET_FPA_TEMPERATURE", Opcode: 0x20, CmdBytes: 2, ReplyBytes: 2}},
		{DoFFCLong, Command{Name: "DO_FFC_LONG", Opcode: 0x0C, CmdBytes: 2, ReplyBytes: 2}},
		{GetShutterTemp, Command{Name: "GET_SHUTTER_TEMP", Opcode: 0x4D, CmdBytes: 0, ReplyBytes: 2}},
		{GetPlanckCoefficients, Command{Name: "GET_PLANCK_COEFFICIENTS", Opcode: 0xB9, CmdBytes: 2, ReplyBytes: 16}},
		{SetTLinearMode, Command{Name: "SET_TLINEAR_MODE", Opcode: 0x8E, CmdBytes: 4, ReplyBytes: 0}},
	} {
		if diff := cmp.Diff(tc.want, tc.got); diff != "" {
			t.Errorf("%s descriptor mismatch (-want +got):\n%s", tc.want.Name, diff)
		}
	}
}

func TestCatalogSaneSizes(t *testing.T) {
	for _, c := range Catalog {
		if c.CmdBytes < 0 || c.ReplyBytes < 0 {
			t.Errorf("%s: negative byte count", c.Name)
		}
		if c.ReplyBytes > 256 {
			t.Errorf("%s: reply %d bytes exceeds the largest reply the camera sends", c.Name, c.ReplyBytes)
		}
	}
}
