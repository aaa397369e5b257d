package tau2

// Command describes one entry of the Tau 2 function catalog: the opcode sent
// in the packet header, the exact byte count of the command argument, and the
// byte count of the reply argument the camera sends back.
//
// Descriptors are fixed at compile time; Encode rejects any argument whose
// length differs from CmdBytes, and the read path sizes its receive buffer
// from ReplyBytes.
type Command struct {
	Name       string
	Opcode     byte
	CmdBytes   int
	ReplyBytes int
}

func cmd(name string, opcode byte, cmdBytes, replyBytes int) Command {
	return Command{Name: name, Opcode: opcode, CmdBytes: cmdBytes, ReplyBytes: replyBytes}
}

// Function catalog from the Tau 2 Software IDD. Several opcodes are shared
// between logical commands (0x12 multiplexes the digital output settings,
// 0x20 the onboard temperature sensors); the first argument word selects the
// sub-function in those cases.
var (
	// General
	NoOp                   = cmd("NO_OP", 0x00, 0, 0)
	SetDefaults            = cmd("SET_DEFAULTS", 0x01, 0, 0)
	CameraReset            = cmd("CAMERA_RESET", 0x02, 0, 0)
	RestoreFactoryDefaults = cmd("RESTORE_FACTORY_DEFAULTS", 0x03, 0, 0)
	GetSerialNumber        = cmd("GET_SERIAL_NUMBER", 0x04, 0, 8)
	GetRevision            = cmd("GET_REVISION", 0x05, 0, 8)
	GetBaudRate            = cmd("GET_BAUD_RATE", 0x07, 0, 2)
	SetBaudRate            = cmd("SET_BAUD_RATE", 0x07, 2, 2)

	// Gain
	GetGainMode = cmd("GET_GAIN_MODE", 0x0A, 0, 2)
	SetGainMode = cmd("SET_GAIN_MODE", 0x0A, 2, 2)

	// Flat field correction
	GetFFCMode     = cmd("GET_FFC_MODE", 0x0B, 0, 2)
	SetFFCMode     = cmd("SET_FFC_MODE", 0x0B, 2, 2)
	GetFFCFrames   = cmd("GET_FFC_NFRAMES", 0x0B, 4, 2)
	SetFFCFrames   = cmd("SET_FFC_NFRAMES", 0x0B, 4, 0)
	DoFFCShort     = cmd("DO_FFC_SHORT", 0x0C, 0, 0)
	DoFFCLong      = cmd("DO_FFC_LONG", 0x0C, 2, 2)
	GetFFCPeriod   = cmd("GET_FFC_PERIOD", 0x0D, 0, 4)
	SetFFCPeriod   = cmd("SET_FFC_PERIOD", 0x0D, 4, 4)
	GetFFCDelta    = cmd("GET_FFC_TEMP_DELTA", 0x0E, 0, 4)
	SetFFCDelta    = cmd("SET_FFC_TEMP_DELTA", 0x0E, 4, 4)
	GetFFCWarnTime = cmd("GET_FFC_WARN_TIME", 0x3C, 0, 2)
	SetFFCWarnTime = cmd("SET_FFC_WARN_TIME", 0x3C, 2, 2)
	WriteNVFFC     = cmd("WRITE_NVFFC_TABLE", 0xC6, 0, 0)

	// Image processing / digital output (opcode 0x12 sub-functions)
	GetDigitalOutputMode = cmd("GET_DIGITAL_OUTPUT_MODE", 0x12, 0, 2)
	SetDigitalOutputMode = cmd("SET_DIGITAL_OUTPUT_MODE", 0x12, 2, 2)
	GetXPMode            = cmd("GET_XP_MODE", 0x12, 2, 2)
	SetXPMode            = cmd("SET_XP_MODE", 0x12, 2, 2)
	GetCMOSBitDepth      = cmd("GET_CMOS_BIT_DEPTH", 0x12, 2, 2)
	SetCMOSBitDepth      = cmd("SET_CMOS_BIT_DEPTH", 0x12, 2, 2)
	GetACECorrect        = cmd("GET_AGC_ACE_CORRECT", 0x1C, 0, 2)
	SetACECorrect        = cmd("SET_AGC_ACE_CORRECT", 0x1C, 2, 0)

	// Lens
	GetLensNumber = cmd("GET_LENS_NUMBER", 0x1E, 0, 2)
	SetLensNumber = cmd("SET_LENS_NUMBER", 0x1E, 2, 2)

	// Onboard temperature sensors (opcode 0x20, argument selects the probe)
	GetFPATemperature     = cmd("GET_FPA_TEMPERATURE", 0x20, 2, 2)
	GetHousingTemperature = cmd("GET_HOUSING_TEMPERATURE", 0x20, 2, 2)

	// External sync
	GetExternalSync = cmd("GET_EXTERNAL_SYNC", 0x21, 0, 2)
	SetExternalSync = cmd("SET_EXTERNAL_SYNC", 0x21, 2, 2)

	// Shutter
	GetShutterTemp     = cmd("GET_SHUTTER_TEMP", 0x4D, 0, 2)
	SetShutterTemp     = cmd("SET_SHUTTER_TEMP", 0x4D, 2, 0)
	GetShutterTempMode = cmd("GET_SHUTTER_TEMP_MODE", 0x4D, 4, 2)
	SetShutterTempMode = cmd("SET_SHUTTER_TEMP_MODE", 0x4D, 4, 0)
	GetShutterPosition = cmd("GET_SHUTTER_POSITION", 0x79, 0, 2)
	SetShutterPosition = cmd("SET_SHUTTER_POSITION", 0x79, 2, 2)

	// TLinear
	GetTLinearMode = cmd("GET_TLINEAR_MODE", 0x8E, 2, 2)
	SetTLinearMode = cmd("SET_TLINEAR_MODE", 0x8E, 4, 0)

	// Memory / frame transfer
	TransferFrame    = cmd("TRANSFER_FRAME", 0x82, 4, 4)
	GetMemoryAddress = cmd("GET_MEMORY_ADDRESS", 0xD6, 4, 8)
	GetNVMemorySize  = cmd("GET_NV_MEMORY_SIZE", 0xD5, 2, 8)
	ReadMemory256    = cmd("READ_MEMORY_256", 0xD2, 6, 256)
	EraseBlock       = cmd("ERASE_BLOCK", 0xD4, 2, 2)
	MemoryStatus     = cmd("MEMORY_STATUS", 0xC4, 0, 2)
	ReadArrayAverage = cmd("READ_ARRAY_AVERAGE", 0x68, 0, 4)

	// Lens response / scene parameters (opcode 0xE5 sub-functions)
	GetLensResponseParams = cmd("GET_LENS_RESPONSE_PARAMS", 0xE5, 2, 4)
	SetLensResponseParams = cmd("SET_LENS_RESPONSE_PARAMS", 0xE5, 6, 0)
	GetSceneParams        = cmd("GET_SCENE_PARAMS", 0xE5, 2, 2)
	SetSceneParams        = cmd("SET_SCENE_PARAMS", 0xE5, 4, 0)

	// Radiometry. The GET reply carries the four 32-bit RBFO words; the SET
	// argument prefixes them with the 2-byte sub-function selector.
	GetPlanckCoefficients = cmd("GET_PLANCK_COEFFICIENTS", 0xB9, 2, 16)
	SetPlanckCoefficients = cmd("SET_PLANCK_COEFFICIENTS", 0xB9, 18, 18)

	// Video standard
	GetVideoStandard = cmd("GET_VIDEO_STANDARD", 0x72, 0, 2)
	SetVideoStandard = cmd("SET_VIDEO_STANDARD", 0x72, 2, 2)
)

// Catalog lists every supported command descriptor. It exists so the codec
// tests can sweep the full table; command wrappers reference the descriptors
// directly.
var Catalog = []Command{
	NoOp, SetDefaults, CameraReset, RestoreFactoryDefaults,
	GetSerialNumber, GetRevision, GetBaudRate, SetBaudRate,
	GetGainMode, SetGainMode,
	GetFFCMode, SetFFCMode, GetFFCFrames, SetFFCFrames,
	DoFFCShort, DoFFCLong, GetFFCPeriod, SetFFCPeriod,
	GetFFCDelta, SetFFCDelta, GetFFCWarnTime, SetFFCWarnTime, WriteNVFFC,
	GetDigitalOutputMode, SetDigitalOutputMode,
	GetXPMode, SetXPMode, GetCMOSBitDepth, SetCMOSBitDepth,
	GetACECorrect, SetACECorrect,
	GetLensNumber, SetLensNumber,
	GetFPATemperature, GetHousingTemperature,
	GetExternalSync, SetExternalSync,
	GetShutterTemp, SetShutterTemp, GetShutterTempMode, SetShutterTempMode,
	GetShutterPosition, SetShutterPosition,
	GetTLinearMode, SetTLinearMode,
	TransferFrame, GetMemoryAddress, GetNVMemorySize,
	ReadMemory256, EraseBlock, MemoryStatus, ReadArrayAverage,
	GetLensResponseParams, SetLensResponseParams,
	GetSceneParams, SetSceneParams,
	GetPlanckCoefficients, SetPlanckCoefficients,
	GetVideoStandard, SetVideoStandard,
}
