package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Store is where feed definitions are kept
type Store interface {
	// Load returns validation results of all defined feeds, including invalid ones
	Load(ctx context.Context) ([]ValidationResult, error)
}

type fsStore struct {
	dir string
}

func (s *fsStore) Load(ctx context.Context) ([]ValidationResult, error) {
	logger.Debug(ctx, "Reading feeds from: %v", s.dir)
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.dir); err != nil {
		return nil, errors.Wrap(err, "Failed to read feeds dir")
	}
	sort.Strings(paths)

	results := make([]ValidationResult, 0, len(paths))
	for _, path := range paths {
		fileName := strings.TrimSuffix(filepath.Base(path), ".json")
		buffer, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read feed %v", fileName)
		}
		var def Definition
		if err := json.Unmarshal(buffer, &def); err != nil {
			results = append(results, invalid(fileName, "malformed json: "+err.Error()))
			continue
		}
		if def.Name == "" {
			def.Name = fileName
		}
		results = append(results, Validate(def))
	}
	rejectDuplicateNames(results)
	return results, nil
}

// rejectDuplicateNames invalidates feeds that share a name.
// The name is a source of events, such feeds would share a watermark
func rejectDuplicateNames(results []ValidationResult) {
	counts := make(map[string]int, len(results))
	for _, result := range results {
		counts[result.Name]++
	}
	for i := range results {
		if counts[results[i].Name] < 2 {
			continue
		}
		results[i].Reasons = append(results[i].Reasons, fmt.Sprintf("name %v is not unique", results[i].Name))
		results[i].Feed = nil
	}
}

// NewFSStore creates a store that reads feeds from a local dir,
// one json file per feed. Name of the file is a default name of the feed
func NewFSStore(dir string) Store {
	logger.Info(nil, "Initializing feeds store: %v", dir)
	return &fsStore{dir: dir}
}

// Active returns feeds that are valid and not disabled.
// Invalid ones are logged and skipped
func Active(ctx context.Context, results []ValidationResult) []Feed {
	active := make([]Feed, 0, len(results))
	for _, result := range results {
		if err := result.Err(); err != nil {
			logger.WithError(err).Error(ctx, "Skipping invalid feed: %v", result.Name)
			continue
		}
		if result.Disabled {
			logger.Info(ctx, "Skipping disabled feed: %v", result.Name)
			continue
		}
		active = append(active, *result.Feed)
	}
	return active
}
