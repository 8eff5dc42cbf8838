package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/copperspur/rodeo-backend/pkg/config"
)

const pngSize = 256

// Generator produces scan codes whose payload is AES-CFB encrypted so a
// wristband photo cannot be replayed into a forged code.
type Generator struct {
	key []byte
}

// New validates the key length for AES-128/192/256.
func New(cfg config.QRConfig) (*Generator, error) {
	key := []byte(cfg.EncryptionKey)
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("qr encryption key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &Generator{key: key}, nil
}

// Encrypt seals the plaintext payload into a URL-safe token.
func (g *Generator) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(g.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a token produced by Encrypt.
func (g *Generator) Decrypt(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if len(raw) < aes.BlockSize {
		return "", errors.New("token too short")
	}

	block, err := aes.NewCipher(g.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	iv := raw[:aes.BlockSize]
	payload := raw[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(payload, payload)

	return string(payload), nil
}

// TicketPNG encrypts the payload and renders it as a QR PNG.
func (g *Generator) TicketPNG(plaintext string) ([]byte, error) {
	token, err := g.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(token, qrcode.Medium, pngSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
