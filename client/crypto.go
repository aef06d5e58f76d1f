package client

// Cipher transforms message text before send and after receive. The only
// implementation ships messages in the clear; it exists so transcripts and
// tests never mistake passthrough for confidentiality.
type Cipher interface {
	// Enabled reports whether the cipher actually protects content.
	Enabled() bool
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NoopCipher passes text through unchanged.
type NoopCipher struct{}

var _ Cipher = NoopCipher{}

// Enabled always reports false.
func (NoopCipher) Enabled() bool { return false }

// Encrypt returns the input unchanged.
func (NoopCipher) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt returns the input unchanged.
func (NoopCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
