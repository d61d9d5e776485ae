package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"savingsCircle/internal/model"
	"savingsCircle/internal/storage/postgres"
)

// Store persists the logged-in account between runs.
type Store interface {
	Load(ctx context.Context) (model.Session, bool, error)
	Save(ctx context.Context, account string) error
	Clear(ctx context.Context) error
}

// FileStore keeps the session in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) (model.Session, bool, error) {
	if s == nil || s.Path == "" {
		return model.Session{}, false, nil
	}
	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Session{}, false, nil
		}
		return model.Session{}, false, fmt.Errorf("stat session: %w", err)
	}
	if stat.IsDir() {
		return model.Session{}, false, fmt.Errorf("session path is a directory")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var rec model.Session
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Session{}, false, fmt.Errorf("parse session: %w", err)
	}
	if rec.Account == "" {
		return model.Session{}, false, nil
	}
	return rec, true, nil
}

func (s *FileStore) Save(ctx context.Context, account string) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	rec := model.Session{
		Account:   account,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// DBStore keeps the session in the circle_sessions table.
type DBStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (model.Session, bool, error) {
	if s == nil || s.Store == nil {
		return model.Session{}, false, nil
	}
	return s.Store.LoadSession(ctx, s.Name)
}

func (s *DBStore) Save(ctx context.Context, account string) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveSession(ctx, s.Name, account)
}

func (s *DBStore) Clear(ctx context.Context) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.ClearSession(ctx, s.Name)
}
