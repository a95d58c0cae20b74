// Package storage persists result bundles as run directories: metadata,
// complex CSV matrices and a binary tensor.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/pipeline"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

const tensorMagic = "RIST"

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Params    config.Params `json:"params"`
	Steps     int           `json:"steps"`
}

// Save writes the bundle under <base>/<runID>/ and returns the run ID.
func (s *Store) Save(b *pipeline.Bundle) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: time.Now(),
		Params:    b.Params,
		Steps:     b.Tensor.T,
	}
	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		metaFile.Close()
		return "", err
	}
	if err := metaFile.Close(); err != nil {
		return "", err
	}

	matrices := map[string]*mat.CDense{
		"ideal.csv":    b.Ideal,
		"impaired.csv": b.Impaired,
		"theta.csv":    b.Theta,
	}
	for name, m := range matrices {
		if err := s.writeMatrix(filepath.Join(runDir, name), m); err != nil {
			return "", err
		}
	}

	if err := s.writeTensor(filepath.Join(runDir, "tensor.bin"), b.Tensor); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeMatrix(path string, m *mat.CDense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ris.WriteCMatrixCSV(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Tensor layout: 4-byte magic, three int64 dims, then T*M*N complex values
// as little-endian float64 re/im pairs, slice-major.
func (s *Store) writeTensor(path string, t *ris.Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte(tensorMagic)); err != nil {
		return err
	}
	dims := []int64{int64(t.M), int64(t.N), int64(t.T)}
	if err := binary.Write(f, binary.LittleEndian, dims); err != nil {
		return err
	}
	raw := t.Raw()
	buf := make([]float64, 2*len(raw))
	for i, v := range raw {
		buf[2*i] = real(v)
		buf[2*i+1] = imag(v)
	}
	return binary.Write(f, binary.LittleEndian, buf)
}

// List returns metadata for all saved runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var runs []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Metadata(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Metadata(runID string) (RunMetadata, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

// LoadMatrix reads one of the saved CSV matrices ("ideal", "impaired",
// "theta").
func (s *Store) LoadMatrix(runID, name string) (*mat.CDense, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ris.ReadCMatrixCSV(f)
}

// LoadTensor reads the full dynamic tensor back.
func (s *Store) LoadTensor(runID string) (*ris.Tensor, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "tensor.bin"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	magic := make([]byte, len(tensorMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, err
	}
	if string(magic) != tensorMagic {
		return nil, fmt.Errorf("storage: %s is not a tensor file", runID)
	}
	dims := make([]int64, 3)
	if err := binary.Read(f, binary.LittleEndian, dims); err != nil {
		return nil, err
	}
	// The header is untrusted: reject dims that are non-positive or that
	// disagree with the payload size before allocating anything.
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("storage: %s has corrupt tensor dims %dx%dx%d",
				runID, dims[0], dims[1], dims[2])
		}
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	payload := info.Size() - int64(len(tensorMagic)) - 3*8
	elems := payload / 16
	// Stepwise division avoids overflowing dims[0]*dims[1]*dims[2].
	if payload%16 != 0 || elems <= 0 ||
		elems%dims[0] != 0 || (elems/dims[0])%dims[1] != 0 ||
		elems/dims[0]/dims[1] != dims[2] {
		return nil, fmt.Errorf("storage: %s tensor payload does not match %dx%dx%d header",
			runID, dims[0], dims[1], dims[2])
	}
	t := ris.NewTensor(int(dims[0]), int(dims[1]), int(dims[2]))
	buf := make([]float64, 2*len(t.Raw()))
	if err := binary.Read(f, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	raw := t.Raw()
	for i := range raw {
		raw[i] = complex(buf[2*i], buf[2*i+1])
	}
	return t, nil
}
