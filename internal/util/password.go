package util

import (
	"fmt"
	"path/filepath"
	"syscall"

	"golang.org/x/term"
)

// PromptPassword reads a password from the controlling terminal without
// echoing it, prefixing the prompt with the vault file's base name.
func PromptPassword(filePath string) (string, error) {
	fmt.Printf("Enter password for vault (%s): ", filepath.Base(filePath))
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(passwordBytes), nil
}
