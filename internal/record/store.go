// Package record persists deployment records: what a deploy run
// provisioned, keyed by deploy name, so a later clean run knows what
// to remove. Records live either on local disk or in the deploy
// bucket, optionally encrypted at rest.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/picklr-io/relish/internal/meta"
)

// Store persists deployment records by deploy name.
type Store interface {
	// Read loads the record for name. A missing record reads as empty.
	Read(ctx context.Context, name string) (meta.DeploymentRecord, error)

	// Write saves the record for name.
	Write(ctx context.Context, name string, record meta.DeploymentRecord) error

	// Delete removes the record for name.
	Delete(ctx context.Context, name string) error

	// Lock acquires an exclusive lock on the record.
	Lock(name string) error

	// Unlock releases the lock on the record.
	Unlock(name string) error
}

// LocalStore keeps records as JSON files under one directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Read loads the record for name. If no record exists yet, an empty
// record is returned. Encrypted records are transparently decrypted.
func (s *LocalStore) Read(ctx context.Context, name string) (meta.DeploymentRecord, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return meta.DeploymentRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read record file %s: %w", s.path(name), err)
	}

	content, err := DecryptRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt record %s: %w", name, err)
	}

	var record meta.DeploymentRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", name, err)
	}
	return record, nil
}

// Write saves the record for name. If RELISH_RECORD_ENCRYPTION_KEY is
// set, the file is transparently encrypted.
func (s *LocalStore) Write(ctx context.Context, name string, record meta.DeploymentRecord) error {
	// Bundle-scoped names nest a directory level under the record dir.
	if err := os.MkdirAll(filepath.Dir(s.path(name)), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", name, err)
	}
	encrypted, err := EncryptRecord(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt record %s: %w", name, err)
	}

	if err := os.WriteFile(s.path(name), encrypted, 0644); err != nil {
		return fmt.Errorf("failed to write record file %s: %w", s.path(name), err)
	}
	return nil
}

// Delete removes the record for name. A record already gone is fine.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record file %s: %w", s.path(name), err)
	}
	return nil
}

// Lock acquires a file lock on the record to prevent concurrent runs
// against the same deploy.
func (s *LocalStore) Lock(name string) error {
	lockPath := s.path(name) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	// Check if lock already exists
	if info, err := os.Stat(lockPath); err == nil {
		// If lock is older than 10 minutes, consider it stale
		if time.Since(info.ModTime()) > 10*time.Minute {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("deploy %s is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", name, lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the record lock.
func (s *LocalStore) Unlock(name string) error {
	lockPath := s.path(name) + ".lock"
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
