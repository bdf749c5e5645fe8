package core

// Checkpoint source abstraction and the sequential HTTP backend. The
// sequential backend issues one GET per checkpoint against the archive's
// {base}/{seq}.chk layout; a blob-based backend lives in walrus_source.go.

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// CheckpointSource fetches sealed checkpoints from an archival store. The
// source store is final: a checkpoint, once served, never changes.
type CheckpointSource interface {
	// Get fetches a single checkpoint by sequence number.
	Get(ctx context.Context, seq uint64) (*Checkpoint, error)
	// GetRange fetches checkpoints in [lo, hi), ordered by sequence number.
	GetRange(ctx context.Context, lo, hi uint64) ([]*Checkpoint, error)
	// Has reports whether the checkpoint is available.
	Has(ctx context.Context, seq uint64) (bool, error)
	// Latest returns the highest available sequence number, or ok=false when
	// the archive is empty.
	Latest(ctx context.Context) (uint64, bool, error)
}

const sequentialFetchTimeout = 60 * time.Second

// latestSearchCeiling bounds the binary search for the newest checkpoint.
const latestSearchCeiling = 500_000_000

// SuiCheckpointSource downloads checkpoints one by one from the official
// checkpoint bucket.
type SuiCheckpointSource struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// NewSuiCheckpointSource builds a sequential source for the given bucket.
func NewSuiCheckpointSource(baseURL string, log *logrus.Logger) *SuiCheckpointSource {
	return &SuiCheckpointSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: sequentialFetchTimeout},
		log:     log,
	}
}

func (s *SuiCheckpointSource) checkpointURL(seq uint64) string {
	return fmt.Sprintf("%s/%d.chk", s.baseURL, seq)
}

// Get downloads and decodes one checkpoint.
func (s *SuiCheckpointSource) Get(ctx context.Context, seq uint64) (*Checkpoint, error) {
	url := s.checkpointURL(seq)
	s.log.WithFields(logrus.Fields{"checkpoint": seq, "url": url}).Debug("downloading checkpoint")

	body, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	cp, err := DecodeCheckpoint(body)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
	}
	return cp, nil
}

func (s *SuiCheckpointSource) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(Transient, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewError(Transient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, Errorf(NotYetAvailable, "checkpoint not yet available at %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(Transient, "archive returned status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(Transient, err)
	}
	return body, nil
}

// GetRange downloads [lo, hi) sequentially; order is preserved by
// construction.
func (s *SuiCheckpointSource) GetRange(ctx context.Context, lo, hi uint64) ([]*Checkpoint, error) {
	if hi <= lo {
		return nil, nil
	}
	out := make([]*Checkpoint, 0, hi-lo)
	s.log.WithFields(logrus.Fields{"lo": lo, "hi": hi - 1}).Info("downloading checkpoint range")
	for seq := lo; seq < hi; seq++ {
		cp, err := s.Get(ctx, seq)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Has probes the archive with a HEAD request.
func (s *SuiCheckpointSource) Has(ctx context.Context, seq uint64) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.checkpointURL(seq), nil)
	if err != nil {
		return false, NewError(Transient, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, NewError(Transient, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Latest binary-searches for the highest available checkpoint. The search
// runs over [0, latestSearchCeiling]; when it converges at or below zero the
// archive is reported empty.
func (s *SuiCheckpointSource) Latest(ctx context.Context) (uint64, bool, error) {
	low := int64(0)
	high := int64(latestSearchCeiling)

	s.log.Debug("finding latest checkpoint by binary search")
	for low <= high {
		mid := (low + high) / 2
		ok, err := s.Has(ctx, uint64(mid))
		if err != nil {
			return 0, false, err
		}
		if ok {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	if high <= 0 {
		return 0, false, nil
	}
	return uint64(high), true, nil
}
