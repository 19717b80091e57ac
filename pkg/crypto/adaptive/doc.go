// Package adaptive seals small secrets at rest with an AEAD cipher chosen
// for the host CPU.
//
// Supported Algorithms:
//
//   - AES-256-GCM: preferred on amd64 and arm64, where Go uses hardware AES
//   - ChaCha20-Poly1305: everywhere else
//
// Ciphertext layout is nonce || sealed payload, so a blob carries everything
// Open needs except the key and the associated data.
//
// Keys are normally derived from an operator-supplied secret:
//
//	c, err := adaptive.FromSecret(secret, "jobdesk/session")
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
