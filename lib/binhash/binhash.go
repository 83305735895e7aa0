// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// HashFile computes the BLAKE3-256 digest of the file at path,
// streaming it so memory use does not grow with file size.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the hex encoding of digest.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}

// Tool is a resolved executable.
type Tool struct {
	// Path is the absolute path after PATH lookup and symlink
	// resolution.
	Path string

	// Digest is the hex BLAKE3 digest of the file at Path.
	Digest string
}

// Identify resolves name the way exec would and hashes the result.
func Identify(name string) (Tool, error) {
	found, err := exec.LookPath(name)
	if err != nil {
		return Tool{}, err
	}
	resolved, err := filepath.EvalSymlinks(found)
	if err != nil {
		return Tool{}, fmt.Errorf("resolving %s: %w", found, err)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return Tool{}, err
	}
	digest, err := HashFile(resolved)
	if err != nil {
		return Tool{}, err
	}
	return Tool{Path: resolved, Digest: FormatDigest(digest)}, nil
}
