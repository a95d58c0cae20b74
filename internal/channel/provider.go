// Package channel acquires the ideal BS-to-RIS channel matrix.
//
// Providers are tried in priority order; the first matrix wins. A provider
// that cannot serve reports [ErrProviderUnavailable], which the chain logs
// and skips. Only exhaustion of the whole chain is fatal.
package channel

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/config"
	"github.com/SharonWxy/STAR-RIS-SimEnv-Advanced/internal/ris"
)

// ErrProviderUnavailable marks a recoverable acquisition failure. It never
// escapes the Source; the chain moves on to the next provider.
var ErrProviderUnavailable = errors.New("channel provider unavailable")

// Provider supplies an ideal M×N channel matrix for the given parameters.
type Provider interface {
	Name() string
	Acquire(p config.Params) (*mat.CDense, error)
}

// AcquisitionError is returned when every provider in the chain failed.
type AcquisitionError struct {
	Tried []string
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("channel: all providers exhausted (tried %s)", strings.Join(e.Tried, ", "))
}

// Source runs the fallback chain over its providers.
type Source struct {
	providers []Provider
}

func NewSource(providers ...Provider) *Source {
	return &Source{providers: providers}
}

// Acquire returns the first successfully acquired M×N matrix. Unavailable
// providers are logged at info level and skipped. A ShapeError from a
// provider is fatal: a provider that produced data of the wrong size must
// not be papered over by the next one.
func (s *Source) Acquire(p config.Params) (*mat.CDense, error) {
	tried := make([]string, 0, len(s.providers))
	for _, prov := range s.providers {
		h, err := prov.Acquire(p)
		if err == nil {
			rows, cols := h.Dims()
			if rows != p.BSAntennas || cols != p.RISElements {
				return nil, &ris.ShapeError{
					Op: "channel: " + prov.Name(), Rows: rows, Cols: cols,
					WantRows: p.BSAntennas, WantCols: p.RISElements,
				}
			}
			log.WithFields(log.Fields{"provider": prov.Name(), "m": rows, "n": cols}).
				Debug("channel acquired")
			return h, nil
		}
		var shapeErr *ris.ShapeError
		if errors.As(err, &shapeErr) {
			return nil, err
		}
		tried = append(tried, prov.Name())
		log.WithFields(log.Fields{"provider": prov.Name(), "reason": err}).
			Info("channel provider unavailable, trying next")
	}
	return nil, &AcquisitionError{Tried: tried}
}
