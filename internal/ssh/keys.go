package ssh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"k8s.io/client-go/util/homedir"
)

// LoadPrivateKey reads and validates a PEM private key. A leading "~/" is expanded to
// the user home.
func LoadPrivateKey(path string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		path = filepath.Join(homedir.HomeDir(), rest)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read private key: %w", err)
	}

	if _, err := ssh.ParsePrivateKey(data); err != nil {
		return nil, fmt.Errorf("invalid private key %s: %w", path, err)
	}

	return data, nil
}
