package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"
)

// Store persists the latest ranking report as a single JSON file. The write
// goes to a temp file in the same directory and is renamed into place, so a
// concurrent reader never observes a torn report.
type Store struct {
	path string
}

func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Save(report *model.RankingReport) error {
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// Load returns the persisted report, or (nil, nil) when the file does not
// exist yet.
func (s *Store) Load() (*model.RankingReport, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report model.RankingReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}

var _ port.ReportStore = (*Store)(nil)
