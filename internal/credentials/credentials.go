package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultRelPath is the credential file location below the user's home directory.
const defaultRelPath = ".config/pricecollector/credentials.yaml"

// fileCredentials is the YAML layout of a credential file.
type fileCredentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Resolve returns the pricing API token.
//
// A non-empty token is returned as is. Otherwise the credential file is
// read: tokenFile when set, else the default location under $HOME.
//
// Parameters:
//   - token: Token from configuration, may be empty
//   - tokenFile: Credential file override, may be empty
//
// Returns:
//   - string: The bearer token
//   - error: ErrNoCredential wrapping the underlying cause
func Resolve(token, tokenFile string) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		return t, nil
	}

	path := tokenFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoCredential, err)
		}
		path = p
	}

	return readFile(path)
}

// DefaultPath returns the default credential file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, defaultRelPath), nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied credential path
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrNoCredential, path, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoCredential, path)
	}

	var creds fileCredentials
	if err := yaml.Unmarshal(data, &creds); err == nil {
		if p := strings.TrimSpace(creds.Password); p != "" {
			return p, nil
		}
	}

	// A bare token on a single line.
	if !strings.ContainsAny(content, "\n: \t") {
		return content, nil
	}

	return "", fmt.Errorf("%w: %s has no password entry", ErrNoCredential, path)
}
