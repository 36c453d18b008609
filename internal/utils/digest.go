package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileDigest returns the lowercase hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyDigest compares digest against an "algorithm:hash" expectation.
// Only sha256 is accepted.
func VerifyDigest(digest, expected string) error {
	parts := strings.SplitN(expected, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid checksum format, expected sha256:hash")
	}
	if strings.ToLower(parts[0]) != "sha256" {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha256)", parts[0])
	}
	if want := strings.ToLower(strings.TrimSpace(parts[1])); want != digest {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", want, digest)
	}
	return nil
}
