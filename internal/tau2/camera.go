package tau2

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/lupm-obs/tau2grab/internal/monitoring"
	"github.com/lupm-obs/tau2grab/internal/transport"
)

// DefaultSettleDelay is the pause after each command exchange. The firmware
// needs roughly this long to commit a setting before the next packet.
const DefaultSettleDelay = 100 * time.Millisecond

// ftdiPreambleBytes is the number of junk bytes the FTDI read path delivers
// ahead of every response packet. Pure serial links deliver the packet
// directly.
const ftdiPreambleBytes = 2

// Options configures a camera session.
type Options struct {
	// Guard selects strict or permissive mode-guard behaviour.
	Guard GuardPolicy

	// SettleDelay overrides DefaultSettleDelay; negative disables pacing.
	SettleDelay time.Duration

	// UARTWrapped marks the FTDI variant of the command channel: outgoing
	// packets get the UART tag wrapper and incoming replies are unstuffed
	// and carry a 2-byte preamble to discard.
	UARTWrapped bool

	// SyncTimeout bounds marker searches on the FTDI command channel.
	SyncTimeout time.Duration
}

// Camera is one session against a Tau 2 core. It owns the link state
// machine, the dispatch pipeline and the command pacing; callers open it at
// connect time and close it at disconnect. There is deliberately no
// package-level device handle.
type Camera struct {
	link     *Link
	framer   *transport.UARTFramer // nil on pure serial links
	preamble int
	exchange Handler
}

// New opens a session over t. The device always powers up in command mode.
func New(t transport.Transport, opts Options) *Camera {
	delay := opts.SettleDelay
	if delay == 0 {
		delay = DefaultSettleDelay
	}

	c := &Camera{link: NewLink(t, opts.Guard)}
	if opts.UARTWrapped {
		c.framer = transport.NewUARTFramer(t, opts.SyncTimeout)
		c.preamble = ftdiPreambleBytes
	}

	c.exchange = Chain(c.roundTrip,
		ModeGuard(ModeCommand),
		FlushAround(),
		SettleDelay(delay),
	)
	return c
}

// Link exposes the mode state machine, mainly for the frame-sync layer.
func (c *Camera) Link() *Link { return c.link }

// Close shuts the session down.
func (c *Camera) Close() error {
	monitoring.Logf("camera: disconnecting")
	return c.link.Close()
}

// EnterStreaming switches the link to streaming mode for frame capture.
func (c *Camera) EnterStreaming() error { return c.link.Transition(ModeStreaming) }

// EnterCommand switches the link back to the packetized command channel.
func (c *Camera) EnterCommand() error { return c.link.Transition(ModeCommand) }

// roundTrip is the innermost pipeline stage: encode, write, read the exact
// reply size, strip any transport preamble, decode.
func (c *Camera) roundTrip(l *Link, req Request) (*Response, error) {
	packet, err := Encode(req.Cmd, req.Arg)
	if err != nil {
		return nil, err
	}

	if c.framer != nil {
		if err := c.framer.WritePacket(packet); err != nil {
			return nil, fmt.Errorf("%s: %w", req.Cmd.Name, err)
		}
	} else {
		if _, err := l.Transport().Write(packet); err != nil {
			return nil, fmt.Errorf("%s: write: %w", req.Cmd.Name, err)
		}
	}

	want := PacketSize(req.Cmd.ReplyBytes) + c.preamble
	var raw []byte
	if c.framer != nil {
		raw, err = c.framer.ReadPayload(want)
	} else {
		raw = make([]byte, want)
		_, err = io.ReadFull(l.Transport(), raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", req.Cmd.Name, err)
	}

	resp, err := Decode(raw[c.preamble:], req.Cmd.ReplyBytes)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", req.Cmd.Name, err)
	}
	return resp, nil
}

// send runs one exchange through the full pipeline.
func (c *Camera) send(cmd Command, arg []byte) (*Response, error) {
	return c.exchange(c.link, Request{Cmd: cmd, Arg: arg})
}

func u16be(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// Ping issues NO_OP to confirm the camera is alive on the command channel.
func (c *Camera) Ping() error {
	_, err := c.send(NoOp, nil)
	return err
}

// SerialNumbers returns the camera and sensor serial numbers.
func (c *Camera) SerialNumbers() (camera, sensor uint32, err error) {
	resp, err := c.send(GetSerialNumber, nil)
	if err != nil {
		return 0, 0, err
	}
	camera = binary.BigEndian.Uint32(resp.Arg[:4])
	sensor = binary.BigEndian.Uint32(resp.Arg[4:])
	monitoring.Logf("camera serial %d, sensor serial %d", camera, sensor)
	return camera, sensor, nil
}

// BaudRate returns the camera's baud-rate selector (0 = auto, 7 = 921600).
func (c *Camera) BaudRate() (int, error) {
	resp, err := c.send(GetBaudRate, nil)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(resp.Arg)), nil
}

// FPATemperature reads the focal plane array temperature in °C. The camera
// reports tenths of a degree as a signed 16-bit value.
func (c *Camera) FPATemperature() (float64, error) {
	resp, err := c.send(GetFPATemperature, u16be(0x0000))
	if err != nil {
		return 0, err
	}
	return float64(int16(binary.BigEndian.Uint16(resp.Arg))) / 10.0, nil
}

// HousingTemperature reads the camera housing temperature in °C, reported in
// hundredths of a degree.
func (c *Camera) HousingTemperature() (float64, error) {
	resp, err := c.send(GetHousingTemperature, u16be(0x000A))
	if err != nil {
		return 0, err
	}
	return float64(int16(binary.BigEndian.Uint16(resp.Arg))) / 100.0, nil
}

// ShutterTemperature reads the radiometry shutter temperature in °C,
// reported in hundredths of a degree.
func (c *Camera) ShutterTemperature() (float64, error) {
	resp, err := c.send(GetShutterTemp, nil)
	if err != nil {
		return 0, err
	}
	return float64(int16(binary.BigEndian.Uint16(resp.Arg))) / 100.0, nil
}

// SetShutterTemperature sets the shutter temperature used for radiometry.
func (c *Camera) SetShutterTemperature(celsius float64) error {
	_, err := c.send(SetShutterTemp, u16be(uint16(int16(celsius*100))))
	return err
}

// GainModeBytes returns the raw 2-byte gain-mode encoding
// (0x0000 automatic, 0x0001 low, 0x0002 high, 0x0003 manual).
func (c *Camera) GainModeBytes() ([]byte, error) {
	resp, err := c.send(GetGainMode, nil)
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetGainModeBytes writes the raw 2-byte gain-mode encoding.
func (c *Camera) SetGainModeBytes(mode []byte) error {
	_, err := c.send(SetGainMode, mode)
	return err
}

// FFCModeBytes returns the raw FFC mode (0x0000 manual, 0x0001 automatic,
// 0x0002 external).
func (c *Camera) FFCModeBytes() ([]byte, error) {
	resp, err := c.send(GetFFCMode, nil)
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetFFCModeBytes writes the raw FFC mode.
func (c *Camera) SetFFCModeBytes(mode []byte) error {
	_, err := c.send(SetFFCMode, mode)
	return err
}

// FFCFramesBytes returns the FFC averaging frame count selector
// (0x0000 = 4, 0x0001 = 8, 0x0002 = 16 frames).
func (c *Camera) FFCFramesBytes() ([]byte, error) {
	resp, err := c.send(GetFFCFrames, append(u16be(0x0003), u16be(0x0000)...))
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetFFCFramesBytes writes the FFC averaging frame count selector.
func (c *Camera) SetFFCFramesBytes(frames []byte) error {
	_, err := c.send(SetFFCFrames, append(u16be(0x0002), frames...))
	return err
}

// ShutterTempModeBytes returns the shutter temperature mode (0x0000 user,
// 0x0001 automatic, 0x0002 static).
func (c *Camera) ShutterTempModeBytes() ([]byte, error) {
	resp, err := c.send(GetShutterTempMode, append(u16be(0x0001), u16be(0x0000)...))
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetShutterTempModeBytes writes the shutter temperature mode.
func (c *Camera) SetShutterTempModeBytes(mode []byte) error {
	_, err := c.send(SetShutterTempMode, append(u16be(0x0000), mode...))
	return err
}

// XPModeBytes returns the XP (parallel digital output) mode.
func (c *Camera) XPModeBytes() ([]byte, error) {
	resp, err := c.send(GetXPMode, u16be(0x0200))
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetXPModeBytes writes the XP mode selector byte (0x02 = CMOS 14-bit).
func (c *Camera) SetXPModeBytes(mode []byte) error {
	_, err := c.send(SetXPMode, append([]byte{0x03}, mode...))
	return err
}

// CMOSBitDepthBytes returns the CMOS channel bit depth (0x0000 = 14-bit).
func (c *Camera) CMOSBitDepthBytes() ([]byte, error) {
	resp, err := c.send(GetCMOSBitDepth, u16be(0x0800))
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetCMOSBitDepthBytes writes the CMOS bit depth selector byte.
func (c *Camera) SetCMOSBitDepthBytes(depth []byte) error {
	_, err := c.send(SetCMOSBitDepth, append([]byte{0x06}, depth...))
	return err
}

// TLinearModeBytes returns the TLinear enable state (0x0000 disabled,
// 0x0001 enabled).
func (c *Camera) TLinearModeBytes() ([]byte, error) {
	resp, err := c.send(GetTLinearMode, u16be(0x0040))
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetTLinearModeBytes writes the TLinear enable state.
func (c *Camera) SetTLinearModeBytes(mode []byte) error {
	_, err := c.send(SetTLinearMode, append(u16be(0x0040), mode...))
	return err
}

// LensNumberBytes returns the active lens configuration index.
func (c *Camera) LensNumberBytes() ([]byte, error) {
	resp, err := c.send(GetLensNumber, nil)
	if err != nil {
		return nil, err
	}
	return resp.Arg, nil
}

// SetLensNumberBytes writes the active lens configuration index.
func (c *Camera) SetLensNumberBytes(lens []byte) error {
	_, err := c.send(SetLensNumber, lens)
	return err
}

// RunFFCShort triggers the short flat field correction cycle.
func (c *Camera) RunFFCShort() error {
	monitoring.Logf("camera: running short FFC")
	_, err := c.send(DoFFCShort, nil)
	return err
}

// RunFFCLong triggers the long FFC cycle and reports whether the camera
// acknowledged completion (reply 0xFFFF).
func (c *Camera) RunFFCLong() (bool, error) {
	resp, err := c.send(DoFFCLong, u16be(0x0001))
	if err != nil {
		return false, err
	}
	return int16(binary.BigEndian.Uint16(resp.Arg)) == -1, nil
}

// PlanckCoefficients holds the raw RBFO radiometric constants. No
// calibration math is applied here; callers convert flux to temperature.
type PlanckCoefficients struct {
	R uint32
	B uint32
	F uint32
	O int32
}

// GetPlanck reads the RBFO coefficients.
func (c *Camera) GetPlanck() (PlanckCoefficients, error) {
	resp, err := c.send(GetPlanckCoefficients, u16be(0x0200))
	if err != nil {
		return PlanckCoefficients{}, err
	}
	return PlanckCoefficients{
		R: binary.BigEndian.Uint32(resp.Arg[0:4]),
		B: binary.BigEndian.Uint32(resp.Arg[4:8]),
		F: binary.BigEndian.Uint32(resp.Arg[8:12]),
		O: int32(binary.BigEndian.Uint32(resp.Arg[12:16])),
	}, nil
}

// VideoStandard returns the video timing selector (0 NTSC 30 Hz, 1 PAL
// 25 Hz, 4 NTSC 60 Hz, 5 PAL 50 Hz).
func (c *Camera) VideoStandard() (int, error) {
	resp, err := c.send(GetVideoStandard, nil)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(resp.Arg)), nil
}

// sceneParamIDs are the radiometric scene parameter sub-function selectors.
var sceneParamIDs = []struct {
	name string
	id   uint16
}{
	{"RAD_EMISSIVITY", 0x0100},
	{"RAD_TBKG_X100", 0x0101},
	{"RAD_TRANSMISSION_WIN", 0x0102},
	{"RAD_TWIN_X100", 0x0103},
	{"RAD_TAU_ATM", 0x0104},
	{"RAD_TATM_X100", 0x0105},
	{"RAD_REFL_WIN", 0x0106},
	{"RAD_TREFL_X100", 0x0107},
}

// SceneParameters reads every radiometric scene parameter and returns them
// keyed by parameter name.
func (c *Camera) SceneParameters() (map[string]int16, error) {
	params := make(map[string]int16, len(sceneParamIDs))
	for _, p := range sceneParamIDs {
		resp, err := c.send(GetSceneParams, u16be(p.id))
		if err != nil {
			return params, fmt.Errorf("scene parameter %s: %w", p.name, err)
		}
		params[p.name] = int16(binary.BigEndian.Uint16(resp.Arg))
	}
	return params, nil
}
