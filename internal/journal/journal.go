// Package journal persists emitted whale alerts as JSON lines for
// later analysis. This is an operator convenience, not the dedup
// store; dedup state lives in the detector only.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Parow01/Parowbot/internal/trade"
)

// Entry is one journaled alert.
type Entry struct {
	DetectedAt time.Time   `json:"detected_at"`
	USDValue   float64     `json:"usd_value"`
	Trade      trade.Trade `json:"trade"`
}

// Recorder appends alerts to a JSONL file.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewRecorder creates/opens the target file and returns a recorder.
func NewRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single alert to the underlying JSONL file.
func (r *Recorder) Record(t trade.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(Entry{
		DetectedAt: time.Now().UTC(),
		USDValue:   t.USDValue(),
		Trade:      t,
	})
}

// Close flushes and closes the file handle.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
