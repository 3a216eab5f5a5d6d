package cluster

import (
	"fmt"
	"os"
	"path/filepath"
)

// DetectIdentityFile maps the head node's assigned keypair name to a private
// key under ~/.ssh. Operators who keep their keys elsewhere pass the path
// explicitly instead.
func DetectIdentityFile(keyName string) (string, error) {
	if keyName == "" {
		return "", fmt.Errorf("%w: head node has no keypair assigned", ErrKeypairNotFound)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	path := filepath.Join(home, ".ssh", keyName+".pem")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: no private key at %s; pass one with -i", ErrKeypairNotFound, path)
	}

	return path, nil
}
