package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// archiveServer serves {seq}.chk for every checkpoint at or below latest.
func archiveServer(t *testing.T, latest uint64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		seqStr := strings.TrimSuffix(name, ".chk")
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil || seq > latest {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(EncodeCheckpoint(fixtureCheckpoint(seq)))
	}))
}

func TestSuiSourceGet(t *testing.T) {
	srv := archiveServer(t, 1000)
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	cp, err := src.Get(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Summary.SequenceNumber != 42 {
		t.Fatalf("got checkpoint %d", cp.Summary.SequenceNumber)
	}
}

func TestSuiSourceGetNotYetAvailable(t *testing.T) {
	srv := archiveServer(t, 10)
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	_, err := src.Get(context.Background(), 11)
	if !IsKind(err, NotYetAvailable) {
		t.Fatalf("expected NotYetAvailable, got %v", err)
	}
}

func TestSuiSourceServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	_, err := src.Get(context.Background(), 1)
	if !IsKind(err, Transient) {
		t.Fatalf("expected Transient, got %v", err)
	}
}

func TestSuiSourceBadPayloadIsFormatMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a checkpoint"))
	}))
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	_, err := src.Get(context.Background(), 1)
	if !IsKind(err, FormatMismatch) {
		t.Fatalf("expected FormatMismatch, got %v", err)
	}
}

func TestSuiSourceGetRangeOrdered(t *testing.T) {
	srv := archiveServer(t, 1000)
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	cps, err := src.GetRange(context.Background(), 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 5 {
		t.Fatalf("got %d checkpoints", len(cps))
	}
	for i, cp := range cps {
		if cp.Summary.SequenceNumber != uint64(5+i) {
			t.Fatalf("position %d holds checkpoint %d", i, cp.Summary.SequenceNumber)
		}
	}

	if cps, err := src.GetRange(context.Background(), 10, 10); err != nil || len(cps) != 0 {
		t.Fatalf("empty range: %v %v", cps, err)
	}
}

func TestSuiSourceHas(t *testing.T) {
	srv := archiveServer(t, 10)
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	if ok, err := src.Has(context.Background(), 10); err != nil || !ok {
		t.Fatalf("Has(10) = %v, %v", ok, err)
	}
	if ok, err := src.Has(context.Background(), 11); err != nil || ok {
		t.Fatalf("Has(11) = %v, %v", ok, err)
	}
}

func TestSuiSourceLatestBinarySearch(t *testing.T) {
	const latest = 123_456
	srv := archiveServer(t, latest)
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	got, ok, err := src.Latest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != latest {
		t.Fatalf("Latest = %d, %v", got, ok)
	}
}

// An archive with nothing in it (or only checkpoint zero) reports no latest
// checkpoint: the search converges with high at or below zero.
func TestSuiSourceLatestEmptyArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	src := NewSuiCheckpointSource(srv.URL, testLogger())

	_, ok, err := src.Latest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty archive must report no latest checkpoint")
	}
}

func TestSuiSourceCheckpointURL(t *testing.T) {
	src := NewSuiCheckpointSource("https://checkpoints.mainnet.sui.io", testLogger())
	want := "https://checkpoints.mainnet.sui.io/42.chk"
	if got := src.checkpointURL(42); got != want {
		t.Fatalf("url = %s", got)
	}
}
