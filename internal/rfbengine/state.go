package rfbengine

// state is the engine's current position in the protocol state machine
// (spec.md §9: "expect-handler chain → explicit state enum"). Each
// variant's associated size and required context fields are documented
// on the handler that dispatch() routes it to; pendingCtx is the single
// struct carrying every field any state might need, left zero where
// unused.
type state uint8

const (
	stateInitial state = iota

	// handshake & auth (component D)
	stateAuthLegacy
	stateAuthNumTypes
	stateAuthTypes
	stateConnFailedLen
	stateConnFailedMsg
	stateVNCAuthChallenge
	stateARDAuthParams
	stateARDAuthModulus
	stateARDAuthServerKey
	stateAuthResult
	stateAuthFailedLen
	stateAuthFailedMsg
	stateServerInit
	stateServerName

	// message dispatch (component E)
	stateDispatch
	stateColorMapHeader
	stateColorMapValues
	stateCutTextHeader
	stateCutTextValue
	stateQEMUSubtype
	stateQEMUAudioOp
	stateQEMUAudioSize
	stateQEMUAudioData

	// framebuffer update substate
	stateUpdateHeader
	stateRectHeader

	// rectangle decoders (component F)
	stateRectRaw
	stateRectCopyRect
	stateRectRREHeader
	stateRectRRESubrects
	stateRectCoRREHeader
	stateRectCoRRESubrects
	stateRectHextileTile
	stateRectHextileSubrectHeader
	stateRectHextileRaw
	stateRectHextileSubrectsColoured
	stateRectHextileSubrectsFG
	stateRectZRLELength
	stateRectZRLEData
	stateRectCursor

	stateClosed
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "Initial"
	case stateAuthLegacy:
		return "AuthLegacy"
	case stateAuthNumTypes:
		return "AuthNumTypes"
	case stateAuthTypes:
		return "AuthTypes"
	case stateConnFailedLen:
		return "ConnFailedLen"
	case stateConnFailedMsg:
		return "ConnFailedMsg"
	case stateVNCAuthChallenge:
		return "VNCAuthChallenge"
	case stateARDAuthParams:
		return "ARDAuthParams"
	case stateARDAuthModulus:
		return "ARDAuthModulus"
	case stateARDAuthServerKey:
		return "ARDAuthServerKey"
	case stateAuthResult:
		return "AuthResult"
	case stateAuthFailedLen:
		return "AuthFailedLen"
	case stateAuthFailedMsg:
		return "AuthFailedMsg"
	case stateServerInit:
		return "ServerInit"
	case stateServerName:
		return "ServerName"
	case stateDispatch:
		return "Dispatch"
	case stateColorMapHeader:
		return "ColorMapHeader"
	case stateColorMapValues:
		return "ColorMapValues"
	case stateCutTextHeader:
		return "CutTextHeader"
	case stateCutTextValue:
		return "CutTextValue"
	case stateQEMUSubtype:
		return "QEMUSubtype"
	case stateQEMUAudioOp:
		return "QEMUAudioOp"
	case stateQEMUAudioSize:
		return "QEMUAudioSize"
	case stateQEMUAudioData:
		return "QEMUAudioData"
	case stateUpdateHeader:
		return "UpdateHeader"
	case stateRectHeader:
		return "RectHeader"
	case stateRectRaw:
		return "RectRaw"
	case stateRectCopyRect:
		return "RectCopyRect"
	case stateRectRREHeader:
		return "RectRREHeader"
	case stateRectRRESubrects:
		return "RectRRESubrects"
	case stateRectCoRREHeader:
		return "RectCoRREHeader"
	case stateRectCoRRESubrects:
		return "RectCoRRESubrects"
	case stateRectHextileTile:
		return "RectHextileTile"
	case stateRectHextileSubrectHeader:
		return "RectHextileSubrectHeader"
	case stateRectHextileRaw:
		return "RectHextileRaw"
	case stateRectHextileSubrectsColoured:
		return "RectHextileSubrectsColoured"
	case stateRectHextileSubrectsFG:
		return "RectHextileSubrectsFG"
	case stateRectZRLELength:
		return "RectZRLELength"
	case stateRectZRLEData:
		return "RectZRLEData"
	case stateRectCursor:
		return "RectCursor"
	case stateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// pendingCtx carries the context fields needed by whichever state is
// currently pending. Only the fields relevant to the active state are
// meaningful; the rest are left at their zero value.
type pendingCtx struct {
	// ARD auth
	generator uint16
	keyLen    uint16
	modulus   []byte
	serverKey []byte

	// ConnFailed / AuthFailed
	waitFor uint32

	// current rectangle (set by stateRectHeader, read by every decoder)
	rectX, rectY, rectW, rectH uint16
	rectEncoding               Encoding

	// RRE/CoRRE
	subrectsRemaining uint32

	// Hextile: bg/fg persist across all tiles of one rectangle.
	hextileBG, hextileFG [3]byte
	hextileTX, hextileTY uint16
	hextileSubencoding   byte

	// ColourMapEntries
	colorMapFirst uint16
	colorMapCount uint16

	// QEMU audio
	qemuAudioSize uint32

	// ZRLE
	zrleLength uint32
}
