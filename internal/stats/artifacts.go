package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lethe/internal/model"
)

const trialIndexFile = "trial_index.json"

// TrialIndexEntry is one row in the flat trial listing kept alongside the
// per-trial JSON artifacts.
type TrialIndexEntry struct {
	Domain       string `json:"domain"`
	Condition    string `json:"condition"`
	Seed         int64  `json:"seed"`
	Success      bool   `json:"success"`
	Outcome      string `json:"outcome"`
	Generations  int    `json:"generations"`
	Digest       string `json:"digest"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// trialPath lays trials out as trials/<domain>/<condition>/seed_<seed>.json.
func trialPath(baseDir string, domain, condition string, seed int64) string {
	return filepath.Join(baseDir, domain, condition, fmt.Sprintf("seed_%d.json", seed))
}

// WriteTrialRecord stores one trial record and updates the index.
func WriteTrialRecord(baseDir string, record model.TrialRecord) (string, error) {
	if record.Domain == "" || record.Condition == "" {
		return "", fmt.Errorf("trial record requires domain and condition")
	}

	path := trialPath(baseDir, record.Domain, record.Condition, record.Seed)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(path, record); err != nil {
		return "", err
	}
	if err := appendTrialIndex(baseDir, TrialIndexEntry{
		Domain:       record.Domain,
		Condition:    record.Condition,
		Seed:         record.Seed,
		Success:      record.Success,
		Outcome:      record.Outcome,
		Generations:  record.Generations,
		Digest:       record.Digest,
		CreatedAtUTC: record.CreatedAtUTC,
	}); err != nil {
		return "", err
	}
	return path, nil
}

// ReadTrialRecord loads one trial record. The boolean reports whether the
// artifact exists.
func ReadTrialRecord(baseDir string, domain, condition string, seed int64) (model.TrialRecord, bool, error) {
	path := trialPath(baseDir, domain, condition, seed)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.TrialRecord{}, false, nil
		}
		return model.TrialRecord{}, false, err
	}

	var record model.TrialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.TrialRecord{}, false, err
	}
	return record, true, nil
}

// ListTrialRecords loads every stored record for a domain and condition,
// ordered by seed.
func ListTrialRecords(baseDir string, domain, condition string) ([]model.TrialRecord, error) {
	dir := filepath.Join(baseDir, domain, condition)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.TrialRecord{}, nil
		}
		return nil, err
	}

	records := make([]model.TrialRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var record model.TrialRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seed < records[j].Seed })
	return records, nil
}

func appendTrialIndex(baseDir string, entry TrialIndexEntry) error {
	index, err := ListTrialIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].Domain == entry.Domain && index[i].Condition == entry.Condition && index[i].Seed == entry.Seed {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, trialIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, trialIndexFile), index)
}

// ListTrialIndex returns the index sorted by domain, condition, then seed.
func ListTrialIndex(baseDir string) ([]TrialIndexEntry, error) {
	path := filepath.Join(baseDir, trialIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []TrialIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []TrialIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Domain != entries[j].Domain {
			return entries[i].Domain < entries[j].Domain
		}
		if entries[i].Condition != entries[j].Condition {
			return entries[i].Condition < entries[j].Condition
		}
		return entries[i].Seed < entries[j].Seed
	})
	return entries, nil
}

// WriteComparison stores a statistical comparison report.
func WriteComparison(baseDir string, cmp Comparison) (string, error) {
	if cmp.Domain == "" {
		return "", fmt.Errorf("comparison requires a domain")
	}
	dir := filepath.Join(baseDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_vs_%s.json", cmp.Domain, cmp.Baseline.Condition, cmp.Treatment.Condition))
	if err := writeJSON(path, cmp); err != nil {
		return "", err
	}
	return path, nil
}

// ReadComparison loads a stored comparison report.
func ReadComparison(baseDir, domain, baseline, treatment string) (Comparison, bool, error) {
	path := filepath.Join(baseDir, "reports", fmt.Sprintf("%s_%s_vs_%s.json", domain, baseline, treatment))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Comparison{}, false, nil
		}
		return Comparison{}, false, err
	}
	var cmp Comparison
	if err := json.Unmarshal(data, &cmp); err != nil {
		return Comparison{}, false, err
	}
	return cmp, true, nil
}

// WriteCrossDomainReport stores a cross-domain report.
func WriteCrossDomainReport(baseDir string, report CrossDomainReport) (string, error) {
	if len(report.Domains) == 0 {
		return "", fmt.Errorf("cross-domain report requires at least one domain")
	}
	dir := filepath.Join(baseDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("cross_domain_%s_vs_%s.json", report.Baseline, report.Treatment))
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// ReadCrossDomainReport loads a stored cross-domain report.
func ReadCrossDomainReport(baseDir, baseline, treatment string) (CrossDomainReport, bool, error) {
	path := filepath.Join(baseDir, "reports", fmt.Sprintf("cross_domain_%s_vs_%s.json", baseline, treatment))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CrossDomainReport{}, false, nil
		}
		return CrossDomainReport{}, false, err
	}
	var report CrossDomainReport
	if err := json.Unmarshal(data, &report); err != nil {
		return CrossDomainReport{}, false, err
	}
	return report, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
