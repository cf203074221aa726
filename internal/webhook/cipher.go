package webhook

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// eventCipher decrypts pushed event bodies. The platform encrypts with
// AES-256-CBC using the SHA-256 of the configured encrypt key; the IV is the
// first block of the ciphertext.
type eventCipher struct {
	block cipher.Block
}

func newEventCipher(encryptKey string) (*eventCipher, error) {
	key := sha256.Sum256([]byte(encryptKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("webhook: init cipher: %w", err)
	}
	return &eventCipher{block: block}, nil
}

func (c *eventCipher) decrypt(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("webhook: decode payload: %w", err)
	}
	// at least one data block must follow the IV
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("webhook: bad ciphertext length %d", len(raw))
	}

	iv, data := raw[:aes.BlockSize], raw[aes.BlockSize:]
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	// strip PKCS#7 padding
	pad := int(out[len(out)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(out) {
		return nil, fmt.Errorf("webhook: bad padding")
	}
	return out[:len(out)-pad], nil
}
