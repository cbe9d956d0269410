package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PlanFileName is the file written for a plan inside its dated directory.
const PlanFileName = "plan.json"

// MarshalPlan encodes a plan the way it is stored on disk.
func MarshalPlan(plan GeneratedPlan) ([]byte, error) {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	return append(data, '\n'), nil
}

// WritePlan atomically writes plan to path.
func WritePlan(path string, plan GeneratedPlan) error {
	if path == "" {
		return fmt.Errorf("plan path is required")
	}
	if err := ValidatePlan(plan); err != nil {
		return err
	}
	data, err := MarshalPlan(plan)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure plan dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp plan: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename plan: %w", err)
	}
	return nil
}

func LoadPlan(path string) (GeneratedPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GeneratedPlan{}, fmt.Errorf("read plan: %w", err)
	}
	var plan GeneratedPlan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		return GeneratedPlan{}, fmt.Errorf("parse plan json: %w", err)
	}
	if err := ValidatePlan(plan); err != nil {
		return GeneratedPlan{}, err
	}
	return plan, nil
}

// PlanPath is where a plan is stored under baseDir: one directory per
// state date, so regenerating for the same state replaces the plan.
func PlanPath(baseDir string, plan GeneratedPlan) string {
	dated := plan.StateAsOf
	if dated == "" {
		dated = "undated"
	}
	return filepath.Join(baseDir, dated, PlanFileName)
}

func ResolvePlanPath(inputPath string) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("plan path is required")
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("stat plan path: %w", err)
	}
	if info.IsDir() {
		return filepath.Join(inputPath, PlanFileName), nil
	}
	return inputPath, nil
}
