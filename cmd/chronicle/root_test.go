package main

import (
	"testing"

	"heirloom-hq/chronicle/pkg/config"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "chronicle" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "chronicle")
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag should be registered")
	}
	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("--verbose flag should be registered")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"run":       false,
		"export":    false,
		"retention": false,
		"version":   false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestOpenRepository_Backends(t *testing.T) {
	cfg := config.NewDefaultConfig()

	cfg.Storage.Backend = "memory"
	repo, err := openRepository(cfg)
	if err != nil || repo == nil {
		t.Errorf("memory backend: repo=%v err=%v", repo, err)
	}

	cfg.Storage.Backend = "cassandra"
	if _, err := openRepository(cfg); err == nil {
		t.Error("unknown storage backend should fail")
	}
}

func TestOpenBlobStore_Backends(t *testing.T) {
	cfg := config.NewDefaultConfig()

	cfg.Blob.Backend = "memory"
	blobs, err := openBlobStore(cfg)
	if err != nil || blobs == nil {
		t.Errorf("memory backend: store=%v err=%v", blobs, err)
	}

	cfg.Blob.Backend = "filesystem"
	cfg.Blob.Filesystem.Directory = t.TempDir()
	if _, err := openBlobStore(cfg); err != nil {
		t.Errorf("filesystem backend: %v", err)
	}

	cfg.Blob.Backend = "gcs"
	if _, err := openBlobStore(cfg); err == nil {
		t.Error("unknown blob backend should fail")
	}
}
