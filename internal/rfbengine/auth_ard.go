package rfbengine

import (
	"crypto/aes"
	"crypto/md5" //nolint:gosec // required by the Apple Remote Desktop protocol, not a security choice of ours
	"crypto/rand"
	"fmt"
	"math/big"
)

// ardSecretBytes is the size of the client's Diffie-Hellman secret
// exponent (spec.md §4.2 step 4, "Apple Remote Desktop authentication":
// "512 random bytes as the DH secret").
const ardSecretBytes = 512

// ardCredentialFieldLen is the fixed width of each NUL-padded username
// and password field inside the 128-byte credential block.
const ardCredentialFieldLen = 64

// ardAuthResponse completes the ARD Diffie-Hellman exchange and returns
// the wire response: the AES-ECB-encrypted credential block followed by
// the client's DH public key, left-padded to keyLen bytes
// (spec.md §9: "ARD DH values must be left-padded to keyLen, not
// left as variable-width big-endian").
func ardAuthResponse(generator, keyLen uint16, modulus, serverPub []byte, username, password string) ([]byte, error) {
	m := new(big.Int).SetBytes(modulus)
	g := big.NewInt(int64(generator))
	serverPubInt := new(big.Int).SetBytes(serverPub)

	secret := make([]byte, ardSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate dh secret: %w", err)
	}
	s := new(big.Int).SetBytes(secret)

	clientPub := new(big.Int).Exp(g, s, m)
	shared := new(big.Int).Exp(serverPubInt, s, m)

	aesKey := md5.Sum(leftPad(shared.Bytes(), int(keyLen))) //nolint:gosec // ARD's fixed key-derivation, not a new use of MD5

	credentials, err := ardCredentialBlock(username, password)
	if err != nil {
		return nil, err
	}

	ciphertext, err := aesECBEncrypt(aesKey[:], credentials)
	if err != nil {
		return nil, err
	}

	resp := make([]byte, 0, len(ciphertext)+int(keyLen))
	resp = append(resp, ciphertext...)
	resp = append(resp, leftPad(clientPub.Bytes(), int(keyLen))...)
	return resp, nil
}

// ardCredentialBlock builds the 128-byte "username || password"
// plaintext, each field NUL-padded to 64 bytes. A value of 64 bytes or
// more is truncated to 63, so every field ends in at least one NUL.
func ardCredentialBlock(username, password string) ([]byte, error) {
	block := make([]byte, 2*ardCredentialFieldLen)
	if err := putPaddedField(block[:ardCredentialFieldLen], username); err != nil {
		return nil, fmt.Errorf("username: %w", err)
	}
	if err := putPaddedField(block[ardCredentialFieldLen:], password); err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}
	return block, nil
}

func putPaddedField(dst []byte, s string) error {
	b := []byte(s)
	if len(b) >= len(dst) {
		copy(dst, b[:len(dst)-1])
		return nil
	}
	copy(dst, b)
	return nil
}

// leftPad returns b left-padded with zero bytes to exactly n bytes,
// truncating from the left if b is already longer.
func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// aesECBEncrypt encrypts plaintext with AES-128 in ECB mode, one 16-byte
// block at a time. plaintext's length must be a multiple of the AES
// block size; the 128-byte credential block always satisfies this.
func aesECBEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("plaintext length %d not a multiple of block size: %w", len(plaintext), ErrMalformedMessage)
	}

	ciphertext := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		block.Encrypt(ciphertext[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}
	return ciphertext, nil
}
