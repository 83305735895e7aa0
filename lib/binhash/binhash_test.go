// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"
)

func TestHashFile(t *testing.T) {
	content := []byte("#!/bin/sh\necho 1\n")
	path := filepath.Join(t.TempDir(), "nvidia-smi")
	if err := os.WriteFile(path, content, 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := blake3.Sum256(content); got != want {
		t.Errorf("HashFile = %x, want %x", got, want)
	}
}

func TestHashFileLarge(t *testing.T) {
	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "large")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := blake3.Sum256(content); got != want {
		t.Errorf("HashFile(256KiB) = %x, want %x", got, want)
	}
}

func TestHashFileNonexistent(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("HashFile should fail for a nonexistent file")
	}
}

func TestIdentifyResolvesSymlink(t *testing.T) {
	directory := t.TempDir()
	target := filepath.Join(directory, "nvidia-smi-550")
	if err := os.WriteFile(target, []byte("binary"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	link := filepath.Join(directory, "nvidia-smi")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	tool, err := Identify(link)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	wantPath, _ := filepath.EvalSymlinks(target)
	if tool.Path != wantPath {
		t.Errorf("Path = %q, want %q", tool.Path, wantPath)
	}
	if want := blake3.Sum256([]byte("binary")); tool.Digest != FormatDigest(want) {
		t.Errorf("Digest = %q, want %q", tool.Digest, FormatDigest(want))
	}
}

func TestIdentifyMissing(t *testing.T) {
	if _, err := Identify(filepath.Join(t.TempDir(), "nvidia-smi")); err == nil {
		t.Fatal("Identify should fail for a missing tool")
	}
}
