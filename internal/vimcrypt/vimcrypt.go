// Package vimcrypt decrypts files written by Vim's built-in encryption
// (the "VimCrypt~" on-disk format). Only the zip method (cryptmethod=zip,
// header VimCrypt~01!) is supported; the blowfish variants are recognized
// but rejected explicitly.
package vimcrypt

import (
	"bytes"
	"errors"
	"fmt"
)

// HeaderLen is the length of the VimCrypt magic header in bytes.
const HeaderLen = 12

// MagicPrefix is the common prefix of all VimCrypt headers. Files starting
// with it are treated as encrypted regardless of the method byte.
var MagicPrefix = []byte("VimCrypt~")

// Sentinel errors for header classification.
var (
	// ErrUnrecognizedFormat means the first 12 bytes are not a VimCrypt header.
	ErrUnrecognizedFormat = errors.New("vimcrypt: unrecognized file format")

	// ErrUnsupportedMethod means the header names a crypt method other than zip.
	ErrUnsupportedMethod = errors.New("vimcrypt: unsupported crypt method")
)

// Method identifies the crypt method named in a VimCrypt header.
type Method int

const (
	MethodZip Method = iota
	MethodBlowfish
	MethodBlowfish2
)

// String returns the Vim option value for the method.
func (m Method) String() string {
	switch m {
	case MethodZip:
		return "zip"
	case MethodBlowfish:
		return "blowfish"
	case MethodBlowfish2:
		return "blowfish2"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// methodFromHeader classifies the first 12 bytes of an encrypted file.
func methodFromHeader(data []byte) (Method, error) {
	if len(data) < HeaderLen {
		return 0, ErrUnrecognizedFormat
	}
	switch string(data[:HeaderLen]) {
	case "VimCrypt~01!":
		return MethodZip, nil
	case "VimCrypt~02!":
		return MethodBlowfish, nil
	case "VimCrypt~03!":
		return MethodBlowfish2, nil
	default:
		return 0, ErrUnrecognizedFormat
	}
}

// IsEncrypted reports whether data begins with a VimCrypt magic prefix.
// It looks only at the prefix, not the method byte, so files with a future
// method still classify as encrypted (and later fail with a clear error).
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, MagicPrefix)
}

// Decrypt decodes a whole VimCrypt file (header included) into plaintext.
// It fails with ErrUnrecognizedFormat when the header is not VimCrypt and
// with ErrUnsupportedMethod for the blowfish methods.
func Decrypt(data []byte, password string) ([]byte, error) {
	method, err := methodFromHeader(data)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodZip:
		return zipDecrypt(data[HeaderLen:], password), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}

// zipKeys is the running key state of the PKZIP stream cipher that backs
// Vim's cryptmethod=zip.
type zipKeys struct {
	k0, k1, k2 uint32
}

func newZipKeys(password string) zipKeys {
	k := zipKeys{k0: 0x12345678, k1: 0x23456789, k2: 0x34567890}
	for i := 0; i < len(password); i++ {
		k.update(password[i])
	}
	return k
}

// update advances the key state by one plaintext byte. All arithmetic is
// uint32 with wraparound.
func (k *zipKeys) update(b byte) {
	k.k0 = crc32update(k.k0, b)
	k.k1 = (k.k1+(k.k0&0xFF))*134775813 + 1
	k.k2 = crc32update(k.k2, byte(k.k1>>24))
}

// keyByte derives the XOR byte for the next ciphertext position.
func (k *zipKeys) keyByte() byte {
	x := (k.k2 | 2) & 0xFFFF
	return byte((x * (x ^ 1)) >> 8)
}

// zipDecrypt decrypts the body of a zip-method file (header stripped).
// The key stream advances on the decrypted byte, not the ciphertext byte.
func zipDecrypt(data []byte, password string) []byte {
	keys := newZipKeys(password)
	plain := make([]byte, len(data))
	for i, c := range data {
		p := c ^ keys.keyByte()
		plain[i] = p
		keys.update(p)
	}
	return plain
}

// crcTable is the CRC-32 lookup table for the 0xEDB88320 polynomial.
var crcTable = makeCRCTable(0xEDB88320)

func makeCRCTable(seed uint32) [256]uint32 {
	var table [256]uint32
	for b := uint32(0); b < 256; b++ {
		v := b
		for i := 0; i < 8; i++ {
			if v&1 != 0 {
				v = (v >> 1) ^ seed
			} else {
				v >>= 1
			}
		}
		table[b] = v
	}
	return table
}

func crc32update(crc uint32, b byte) uint32 {
	return crcTable[(crc^uint32(b))&0xFF] ^ (crc >> 8)
}
