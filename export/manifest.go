package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"readout/calib"
)

// HashAlgorithm identifies the digest recorded for each artifact.
const HashAlgorithm = "SHA-256"

// Artifact describes one persisted file.
type Artifact struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Lines  int    `json:"lines"`
	SHA256 string `json:"sha256"`
}

// RunParameters are the inputs that determine the artifact contents.
type RunParameters struct {
	Bits         int     `json:"bits"`
	TimeSamples  int     `json:"time_samples"`
	Sigma        float64 `json:"sigma"`
	Scale        int     `json:"scale"`
	Clip         int     `json:"clip"`
	Seed         uint64  `json:"seed"`
	Calibration  string  `json:"calibration"`
	ZeroVariance string  `json:"zero_variance"`
	Codeword     string  `json:"codeword"`
	Model        string  `json:"model"`
	Flips        []int   `json:"flips,omitempty"`
}

// Manifest is the reproducibility record of one run. RunID and CreatedAt
// vary between runs; everything else is a function of the parameters.
type Manifest struct {
	RunID       string        `json:"run_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Algorithm   string        `json:"hash_algorithm"`
	Parameters  RunParameters `json:"parameters"`
	Calibration calib.Params  `json:"calibration"`
	Artifacts   []Artifact    `json:"artifacts"`
}

// NewManifest starts a manifest with a fresh run id.
func NewManifest(params RunParameters, p calib.Params) *Manifest {
	return &Manifest{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Algorithm:   HashAlgorithm,
		Parameters:  params,
		Calibration: p,
	}
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Record hashes the file at path and appends it to the manifest.
func (m *Manifest) Record(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	m.Artifacts = append(m.Artifacts, Artifact{Name: name, Path: path, Lines: lines, SHA256: Digest(data)})
	return nil
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}
