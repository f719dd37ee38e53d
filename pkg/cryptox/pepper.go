package cryptox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Configuration for Argon2id output.
const (
	keyLength  = 32 // Length of the generated hash
	saltLength = 16 // Length of the salt
)

// LoadOrGeneratePepper loads the pepper from path, creating the file with a
// fresh random pepper when it does not exist yet. The pepper must survive
// restarts or every stored password stops verifying.
func LoadOrGeneratePepper(path string) (string, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	pepper, err := GenerateToken(TokenSize256)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(pepper), 0600); err != nil {
		return "", err
	}
	return pepper, nil
}
