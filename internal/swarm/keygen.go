package swarm

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateKey produces a fresh swarm.key payload in the libp2p pre-shared key
// format: a codec header followed by 32 random bytes in base16.
func GenerateKey() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate swarm key entropy: %w", err)
	}
	payload := fmt.Sprintf("/key/swarm/psk/1.0.0/\n/base16/\n%s\n", hex.EncodeToString(secret))
	return []byte(payload), nil
}

// GenerateKeyBase64 returns a fresh swarm key encoded for the swarm config
// file.
func GenerateKeyBase64() (string, error) {
	payload, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}
