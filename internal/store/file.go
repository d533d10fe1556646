package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/lib/fsext"
)

// fileStore keeps the whole record as one pretty-printed JSON document, so
// users can inspect and hand-edit their settings file. All contexts within
// the daemon share the same instance; other processes go through the REST
// API. The file is rewritten on every effective Set; the record is a handful
// of short keys, not a dataset.
type fileStore struct {
	mu       sync.Mutex
	fs       fsext.Fs
	path     string
	values   map[string]string
	watchers *watchers
	logger   logrus.FieldLogger
}

func newFileStore(fs fsext.Fs, path string, logger logrus.FieldLogger) (*fileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store needs a path")
	}
	logger = logger.WithField("store", "file")

	s := &fileStore{
		fs:       fs,
		path:     path,
		values:   make(map[string]string),
		watchers: newWatchers(logger),
		logger:   logger,
	}

	exists, err := fsext.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("could not stat settings file %q: %w", path, err)
	}
	if exists {
		data, err := fsext.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("could not read settings file %q: %w", path, err)
		}
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("settings file %q is not a JSON object: %w", path, err)
		}
	}

	logger.WithField("path", path).Debug("opened settings store")
	return s, nil
}

func (s *fileStore) Name() string { return "file" }

func (s *fileStore) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		for k, v := range s.values {
			result[k] = v
		}
		return result, nil
	}
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

func (s *fileStore) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make([]Change, 0, len(values))
	updated := make(map[string]string, len(s.values)+len(values))
	for k, v := range s.values {
		updated[k] = v
	}
	for k, v := range values {
		if old, ok := updated[k]; ok && old == v {
			continue
		}
		changes = append(changes, Change{Key: k, Old: updated[k], New: v})
		updated[k] = v
	}
	if len(changes) == 0 {
		return nil
	}

	if err := s.persist(updated); err != nil {
		return err
	}
	s.values = updated

	for _, change := range changes {
		s.logger.WithField("key", change.Key).Debug("store key changed")
		s.watchers.notify(change)
	}
	return nil
}

func (s *fileStore) persist(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create settings directory %q: %w", dir, err)
		}
	}
	if err := fsext.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("could not write settings file %q: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Watch() (uint64, <-chan Change) {
	return s.watchers.subscribe()
}

func (s *fileStore) Unsubscribe(subID uint64) {
	s.watchers.unsubscribe(subID)
}

func (s *fileStore) Close() error {
	s.watchers.closeAll()
	return nil
}
