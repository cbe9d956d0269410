package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const StateSchemaVersion = 1

type stateFile struct {
	SchemaVersion int         `json:"schema_version"`
	State         RunnerState `json:"state"`
}

// WriteState atomically writes state as JSON to path.
func WriteState(path string, state RunnerState) error {
	if path == "" {
		return fmt.Errorf("state path is required")
	}
	data, err := json.MarshalIndent(stateFile{SchemaVersion: StateSchemaVersion, State: state}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// LoadState reads a state file written by WriteState.
func LoadState(path string) (RunnerState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunnerState{}, fmt.Errorf("read state: %w", err)
	}
	var f stateFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return RunnerState{}, fmt.Errorf("decode state: %w", err)
	}
	if f.SchemaVersion != StateSchemaVersion {
		return RunnerState{}, fmt.Errorf("unsupported state schema_version %d", f.SchemaVersion)
	}
	return f.State, nil
}

// StatePathForDate names the state file for an as-of date inside dir.
func StatePathForDate(dir string, asOf time.Time) string {
	return filepath.Join(dir, asOf.UTC().Format("2006-01-02")+".json")
}

// LatestStatePath returns the newest state file in dir.
func LatestStatePath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read state dir: %w", err)
	}
	var candidates []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		// YYYY-MM-DD.json sorts chronologically.
		candidates = append(candidates, filepath.Join(dir, ent.Name()))
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no state files found in %s", dir)
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}
