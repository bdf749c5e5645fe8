package core

// Blob-based checkpoint source backed by a Walrus archival service. The
// archival service maps checkpoints to (blob, offset, length) triples; blob
// payloads come from an aggregator and large whole-blob downloads are cached
// on disk. The manifest is fetched once at initialization and treated as an
// immutable snapshot: checkpoints archived after that are reported absent
// until the process restarts.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const walrusFetchTimeout = 5 * time.Minute

// BlobMetadata is one manifest entry from the archival service.
type BlobMetadata struct {
	BlobID          string `json:"blob_id"`
	StartCheckpoint uint64 `json:"start_checkpoint"`
	EndCheckpoint   uint64 `json:"end_checkpoint"`
	EntriesCount    uint64 `json:"entries_count"`
	TotalSize       uint64 `json:"total_size"`
	EndOfEpoch      bool   `json:"end_of_epoch"`
	ExpiryEpoch     uint64 `json:"expiry_epoch"`
}

type blobsResponse struct {
	Blobs []BlobMetadata `json:"blobs"`
}

// walrusCheckpointLocation is the indexer's answer for one checkpoint.
type walrusCheckpointLocation struct {
	CheckpointNumber uint64 `json:"checkpoint_number"`
	BlobID           string `json:"blob_id"`
	ObjectID         string `json:"object_id"`
	Index            uint64 `json:"index"`
	Offset           uint64 `json:"offset"`
	Length           uint64 `json:"length"`
}

// WalrusCheckpointSource reads checkpoints out of archived blobs.
type WalrusCheckpointSource struct {
	archivalURL   string
	aggregatorURL string
	client        *http.Client
	cache         *BlobCache
	manifest      []BlobMetadata
	log           *logrus.Logger
}

// NewWalrusCheckpointSource builds the source; call Initialize before use.
// cache may be nil when caching is disabled.
func NewWalrusCheckpointSource(archivalURL, aggregatorURL string, cache *BlobCache, log *logrus.Logger) *WalrusCheckpointSource {
	return &WalrusCheckpointSource{
		archivalURL:   archivalURL,
		aggregatorURL: aggregatorURL,
		client:        &http.Client{Timeout: walrusFetchTimeout},
		cache:         cache,
		log:           log,
	}
}

// Initialize fetches the blob manifest and retains it in memory.
func (s *WalrusCheckpointSource) Initialize(ctx context.Context) error {
	url := s.archivalURL + "/v1/app_blobs"
	s.log.WithField("url", url).Info("fetching blob manifest")

	body, err := s.getJSON(ctx, url)
	if err != nil {
		return err
	}
	var resp blobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Errorf(FormatMismatch, "parse blob manifest: %v", err)
	}
	s.manifest = resp.Blobs

	if len(s.manifest) > 0 {
		s.log.WithFields(logrus.Fields{
			"blobs": len(s.manifest),
			"start": s.manifest[0].StartCheckpoint,
			"end":   s.manifest[len(s.manifest)-1].EndCheckpoint,
		}).Info("fetched blob manifest")
	}
	return nil
}

func (s *WalrusCheckpointSource) getJSON(ctx context.Context, url string) ([]byte, error) {
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
		return nil, Errorf(NotYetAvailable, "resource not found: %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(Transient, "archival service returned status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// findBlob locates the manifest entry covering seq.
func (s *WalrusCheckpointSource) findBlob(seq uint64) (*BlobMetadata, bool) {
	for i := range s.manifest {
		b := &s.manifest[i]
		if seq >= b.StartCheckpoint && seq <= b.EndCheckpoint {
			return b, true
		}
	}
	return nil, false
}

// Get resolves the checkpoint's (blob, offset, length) via the indexer
// endpoint, then performs a ranged GET against the aggregator. These
// per-checkpoint reads are small and bypass the blob cache.
func (s *WalrusCheckpointSource) Get(ctx context.Context, seq uint64) (*Checkpoint, error) {
	url := fmt.Sprintf("%s/v1/app_checkpoint?checkpoint=%d", s.archivalURL, seq)
	s.log.WithFields(logrus.Fields{"checkpoint": seq, "url": url}).Debug("resolving checkpoint location")

	body, err := s.getJSON(ctx, url)
	if err != nil {
		if IsKind(err, NotYetAvailable) {
			return nil, Errorf(NotYetAvailable, "checkpoint %d not yet archived", seq)
		}
		return nil, err
	}
	var loc walrusCheckpointLocation
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, Errorf(FormatMismatch, "parse checkpoint %d location: %v", seq, err)
	}

	raw, err := s.fetchByteRange(ctx, loc.BlobID, loc.Offset, loc.Length)
	if err != nil {
		return nil, err
	}
	cp, err := DecodeCheckpoint(raw)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %d: %w", seq, err)
	}
	return cp, nil
}

func (s *WalrusCheckpointSource) fetchByteRange(ctx context.Context, blobID string, offset, length uint64) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/blobs/%s/byte-range?start=%d&length=%d",
		s.aggregatorURL, blobID, offset, length)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(Transient, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewError(Transient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(Transient, "aggregator returned status %d for blob %s", resp.StatusCode, blobID)
	}
	return io.ReadAll(resp.Body)
}

// FetchBlob downloads a whole blob through the cache. Backfills that read
// every checkpoint of a blob use this to avoid re-downloading gigabytes.
func (s *WalrusCheckpointSource) FetchBlob(ctx context.Context, meta *BlobMetadata) ([]byte, error) {
	download := func() ([]byte, error) {
		start := time.Now()
		data, err := s.fetchByteRange(ctx, meta.BlobID, 0, meta.TotalSize)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		s.log.WithFields(logrus.Fields{
			"blob":    meta.BlobID,
			"bytes":   len(data),
			"elapsed": elapsed.Round(time.Millisecond),
		}).Info("downloaded blob")
		return data, nil
	}
	if s.cache == nil {
		return download()
	}
	return s.cache.Fetch(meta.BlobID, int64(meta.TotalSize), download)
}

// GetRange fetches [lo, hi) one checkpoint at a time, then sorts by
// sequence number; the sort is redundant under sequential iteration but kept
// as a safety net for future parallel fetches.
func (s *WalrusCheckpointSource) GetRange(ctx context.Context, lo, hi uint64) ([]*Checkpoint, error) {
	if hi <= lo {
		return nil, nil
	}
	count := hi - lo
	if count > 1000 {
		s.log.WithField("count", count).Warn("large range fetched checkpoint by checkpoint")
	}
	out := make([]*Checkpoint, 0, count)
	for seq := lo; seq < hi; seq++ {
		cp, err := s.Get(ctx, seq)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Summary.SequenceNumber < out[j].Summary.SequenceNumber
	})
	return out, nil
}

// Has consults the manifest only; checkpoints archived after Initialize are
// reported absent.
func (s *WalrusCheckpointSource) Has(ctx context.Context, seq uint64) (bool, error) {
	_, ok := s.findBlob(seq)
	return ok, nil
}

// Latest is the maximum end checkpoint across manifest entries.
func (s *WalrusCheckpointSource) Latest(ctx context.Context) (uint64, bool, error) {
	var max uint64
	var found bool
	for i := range s.manifest {
		if s.manifest[i].EndCheckpoint >= max {
			max = s.manifest[i].EndCheckpoint
			found = true
		}
	}
	return max, found, nil
}
