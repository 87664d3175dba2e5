package rfbengine

import (
	"fmt"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

// negotiateVersion picks the version this client claims in its response
// banner (spec.md §4.2 step 1). Apple Remote Desktop's non-standard
// "003.889" is echoed back verbatim so ARD authentication stays on the
// table; otherwise the client claims the highest version it and the
// server both support, never exceeding maxClientVersion (and
// maxClientVersion when the server's is below every supported version).
func negotiateVersion(server Ver) Ver {
	if server.Major == 3 && server.Minor == 889 {
		return server
	}
	le := func(a, b Ver) bool {
		return a.Major < b.Major || (a.Major == b.Major && a.Minor <= b.Minor)
	}
	best, found := Ver{}, false
	for _, v := range supportedServerVersions {
		if le(v, server) && (!found || le(best, v)) {
			best, found = v, true
		}
	}
	if !found || le(maxClientVersion, best) {
		return maxClientVersion
	}
	return best
}

func versionBanner(v Ver) []byte {
	return []byte(fmt.Sprintf("RFB %03d.%03d\n", v.Major, v.Minor))
}

// sendClientInit writes the 1-byte ClientInit message (spec.md §4.2
// step 6): shared_flag, non-zero when the connection should not evict
// other clients already attached to the server. Sent once, right
// before the client starts waiting for ServerInit, on every path that
// reaches that wait (legacy no-SecurityResult, 3.7+ no-SecurityResult,
// and the normal post-SecurityResult path).
func (e *Engine) sendClientInit() error {
	shared := byte(0)
	if e.shared {
		shared = 1
	}
	return e.write([]byte{shared})
}

// resultExpected reports whether the SecurityResult message follows the
// chosen authentication scheme. Protocol 3.8 and later always send it;
// earlier versions only send it when a real scheme (not None) ran
// (spec.md §4.2 step 5).
func (e *Engine) resultExpected() bool {
	if e.versionServer.Major > 3 || (e.versionServer.Major == 3 && e.versionServer.Minor >= 8) {
		return true
	}
	return e.securityType != secTypeNone
}

// handleInitial parses the 12-byte "RFB xxx.yyy\n" banner and responds
// with the negotiated version (spec.md §4.2 step 1).
func (e *Engine) handleInitial(block []byte) error {
	var major, minor int
	if _, err := fmt.Sscanf(string(block), "RFB %d.%d\n", &major, &minor); err != nil {
		return e.closeWith(fmt.Errorf("version banner %q: %w", block, ErrProtocolMismatch))
	}
	e.versionServer = Ver{major, minor}
	e.version = negotiateVersion(e.versionServer)

	if err := e.write(versionBanner(e.version)); err != nil {
		return e.closeWith(err)
	}

	if e.version.Major == 3 && e.version.Minor < 7 {
		e.expect(stateAuthLegacy, 4)
	} else {
		e.expect(stateAuthNumTypes, 1)
	}
	return nil
}

// handleAuthLegacy handles the pre-3.7 4-byte security type chosen
// unilaterally by the server (spec.md §4.2 step 2, legacy path).
func (e *Engine) handleAuthLegacy(block []byte) error {
	switch beUint32(block) {
	case 0:
		e.expect(stateConnFailedLen, 4)
	case secTypeNone:
		e.securityType = secTypeNone
		if e.resultExpected() {
			e.expect(stateAuthResult, 4)
		} else {
			if err := e.sendClientInit(); err != nil {
				return e.closeWith(err)
			}
			e.expect(stateServerInit, 24)
		}
	case secTypeVNC:
		e.securityType = secTypeVNC
		e.expect(stateVNCAuthChallenge, 16)
	default:
		return e.closeWith(fmt.Errorf("legacy security type %d: %w", beUint32(block), ErrProtocolMismatch))
	}
	return nil
}

// handleConnFailedLen reads the reason-string length for a pre-3.7
// connection failure.
func (e *Engine) handleConnFailedLen(block []byte) error {
	e.ctx.waitFor = beUint32(block)
	e.expect(stateConnFailedMsg, int(e.ctx.waitFor))
	return nil
}

func (e *Engine) handleConnFailedMsg(block []byte) error {
	e.observer.AuthFailed(string(block))
	return e.closeWith(ErrHandshakeFailed)
}

// handleAuthNumTypes reads the 3.7+ security-type count
// (spec.md §4.2 step 2).
func (e *Engine) handleAuthNumTypes(block []byte) error {
	n := int(block[0])
	if n == 0 {
		e.expect(stateConnFailedLen, 4)
		return nil
	}
	e.expect(stateAuthTypes, n)
	return nil
}

// handleAuthTypes picks the strongest mutually-supported security type
// from the server's offered list and echoes the choice back
// (spec.md §4.2 step 2: "client selects the max-valued type it supports").
func (e *Engine) handleAuthTypes(block []byte) error {
	chosen := -1
	for _, b := range block {
		t := int(b)
		if supportedSecurityTypes[t] && t > chosen {
			chosen = t
		}
	}
	if chosen < 0 {
		return e.closeWith(fmt.Errorf("offered types %v: %w", block, ErrAuthRequired))
	}
	e.securityType = chosen

	if err := e.write([]byte{byte(chosen)}); err != nil {
		return e.closeWith(err)
	}

	switch chosen {
	case secTypeNone:
		if e.resultExpected() {
			e.expect(stateAuthResult, 4)
		} else {
			if err := e.sendClientInit(); err != nil {
				return e.closeWith(err)
			}
			e.expect(stateServerInit, 24)
		}
	case secTypeVNC:
		e.expect(stateVNCAuthChallenge, 16)
	case secTypeARD:
		e.expect(stateARDAuthParams, 4)
	}
	return nil
}

// handleVNCAuthChallenge responds to the 16-byte VNC-DES challenge
// (spec.md §4.2 step 4, component D "VNC-DES authentication").
func (e *Engine) handleVNCAuthChallenge(block []byte) error {
	password := e.password
	if password == "" {
		p, err := e.observer.RequestPassword()
		if err != nil {
			return e.closeWith(fmt.Errorf("%w: %w", ErrAuthRequired, err))
		}
		password = p
	}

	response := vncDESResponse(password, block)
	if err := e.write(response); err != nil {
		return e.closeWith(err)
	}

	e.expect(stateAuthResult, 4)
	return nil
}

// ardMaxKeyLen caps the DH key length the client will allocate buffers
// for. Far above any real RSA/DH modulus an ARD server uses; guards
// against a malformed keyLen driving unbounded allocation
// (DESIGN.md, "ARD keyLen upper bound").
const ardMaxKeyLen = 4096

// handleARDAuthParams reads the Diffie-Hellman generator and key length
// (spec.md §4.2 step 4, "Apple Remote Desktop authentication").
func (e *Engine) handleARDAuthParams(block []byte) error {
	e.ctx.generator = beUint16(block[0:2])
	e.ctx.keyLen = beUint16(block[2:4])
	if e.ctx.keyLen > ardMaxKeyLen {
		return e.closeWith(fmt.Errorf("ard key length %d: %w", e.ctx.keyLen, ErrMalformedMessage))
	}
	e.expect(stateARDAuthModulus, int(e.ctx.keyLen))
	return nil
}

func (e *Engine) handleARDAuthModulus(block []byte) error {
	e.ctx.modulus = append([]byte(nil), block...)
	e.expect(stateARDAuthServerKey, int(e.ctx.keyLen))
	return nil
}

// handleARDAuthServerKey completes the DH exchange and sends the
// AES-encrypted credential block (spec.md §4.2 step 4).
func (e *Engine) handleARDAuthServerKey(block []byte) error {
	username := e.username
	password := e.password
	if username == "" && password == "" {
		u, p, err := e.observer.RequestCredentials()
		if err != nil {
			return e.closeWith(fmt.Errorf("%w: %w", ErrAuthRequired, err))
		}
		username, password = u, p
	}

	resp, err := ardAuthResponse(e.ctx.generator, e.ctx.keyLen, e.ctx.modulus, block, username, password)
	if err != nil {
		return e.closeWith(fmt.Errorf("ard auth: %w", err))
	}
	if err := e.write(resp); err != nil {
		return e.closeWith(err)
	}

	e.expect(stateAuthResult, 4)
	return nil
}

// handleAuthResult interprets the SecurityResult code
// (spec.md §4.2 step 5).
func (e *Engine) handleAuthResult(block []byte) error {
	switch beUint32(block) {
	case authResultOK:
		if err := e.sendClientInit(); err != nil {
			return e.closeWith(err)
		}
		e.expect(stateServerInit, 24)
	case authResultFailed, authResultTooMany:
		if e.version.Major > 3 || (e.version.Major == 3 && e.version.Minor >= 8) {
			e.expect(stateAuthFailedLen, 4)
		} else {
			e.observer.AuthFailed("")
			return e.closeWith(ErrHandshakeFailed)
		}
	default:
		return e.closeWith(fmt.Errorf("security result %d: %w", beUint32(block), ErrProtocolMismatch))
	}
	return nil
}

func (e *Engine) handleAuthFailedLen(block []byte) error {
	e.ctx.waitFor = beUint32(block)
	e.expect(stateAuthFailedMsg, int(e.ctx.waitFor))
	return nil
}

func (e *Engine) handleAuthFailedMsg(block []byte) error {
	e.observer.AuthFailed(string(block))
	return e.closeWith(ErrHandshakeFailed)
}

// handleServerInit parses the 24-byte ServerInit message: width, height,
// pixel format, and the desktop-name length (spec.md §4.2 step 6).
func (e *Engine) handleServerInit(block []byte) error {
	width := int(beUint16(block[0:2]))
	height := int(beUint16(block[2:4]))
	pf, err := rfbwire.UnmarshalPixelFormat(block[4:20])
	if err != nil {
		return e.closeWith(fmt.Errorf("server pixel format: %w", err))
	}
	nameLen := beUint32(block[20:24])

	fb, err := rfbwire.NewFrameBuffer(width, height)
	if err != nil {
		return e.closeWith(fmt.Errorf("server init dimensions: %w", err))
	}

	e.width, e.height = width, height
	e.pixelFormat = pf
	e.fb = fb

	e.expect(stateServerName, int(nameLen))
	return nil
}

// handleServerName reads the desktop name, completes ClientInit by
// requesting the client's preferred pixel format and encodings, and
// enters the steady-state dispatch loop (spec.md §4.2 step 6, §4.6).
func (e *Engine) handleServerName(block []byte) error {
	e.name = string(block)
	e.observer.ConnectionMade()

	if err := e.enc.SetPixelFormat(rfbwire.RGB24); err != nil {
		return e.closeWith(err)
	}
	e.pixelFormat = rfbwire.RGB24

	encodings := make([]int32, len(DefaultEncodings))
	e.negotiatedEncodings = make(map[Encoding]bool, len(DefaultEncodings))
	for i, enc := range DefaultEncodings {
		encodings[i] = int32(enc)
		e.negotiatedEncodings[enc] = true
	}
	if err := e.enc.SetEncodings(encodings); err != nil {
		return e.closeWith(err)
	}

	if err := e.enc.FramebufferUpdateRequest(false, 0, 0, uint16(e.width), uint16(e.height)); err != nil { //nolint:gosec // dimensions bounded by rfbwire.MaxDimension
		return e.closeWith(err)
	}

	e.expect(stateDispatch, 1)
	return nil
}
