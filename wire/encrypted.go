package wire

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	raft "github.com/coral-raft/raft"
)

const pbkdf2Iterations = 100_000

// EncryptedSerializer wraps another raft.Serializer with authenticated
// encryption: a PBKDF2-HMAC-SHA256 derived key (from a secret_key and salt)
// used with a ChaCha20-Poly1305 AEAD cipher.
type EncryptedSerializer struct {
	inner raft.Serializer
	aead  cipher.AEAD
}

// NewEncryptedSerializer derives a key from secretKey and salt and wraps
// inner with it.
func NewEncryptedSerializer(inner raft.Serializer, secretKey, salt []byte) (*EncryptedSerializer, error) {
	key := pbkdf2.Key(secretKey, salt, pbkdf2Iterations, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("wire: initializing AEAD cipher: %w", err)
	}
	return &EncryptedSerializer{inner: inner, aead: aead}, nil
}

func (e *EncryptedSerializer) Pack(frame raft.Frame) ([]byte, error) {
	plaintext, err := e.inner.Pack(frame)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("wire: generating nonce: %w", err)
	}
	ciphertext := e.aead.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

func (e *EncryptedSerializer) Unpack(data []byte) (raft.Frame, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return raft.Frame{}, fmt.Errorf("wire: ciphertext shorter than nonce")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return raft.Frame{}, fmt.Errorf("wire: decrypting frame: %w", err)
	}
	return e.inner.Unpack(plaintext)
}
