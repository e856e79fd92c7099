package storage

import (
	"encoding/json"
	"errors"

	"lethe/internal/manifest"
	"lethe/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeTrialRecord(r model.TrialRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeTrialRecord(data []byte) (model.TrialRecord, error) {
	var record model.TrialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.TrialRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.TrialRecord{}, err
	}
	return record, nil
}

func EncodeManifest(m manifest.Manifest) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeManifest(data []byte) (manifest.Manifest, error) {
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return manifest.Manifest{}, err
	}
	return m, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
