package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func u64Return(v uint64) []any {
	var e Encoder
	e.WriteU64(v)
	return []any{e.Bytes(), "u64"}
}

// rpcFixture answers dev-inspect calls with six fixed u64 readings and
// captures the submitted transaction bytes.
func rpcFixture(t *testing.T, readings [6]uint64) (*httptest.Server, *[]byte) {
	t.Helper()
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Method != "sui_devInspectTransactionBlock" {
			http.Error(w, "unknown method", http.StatusBadRequest)
			return
		}
		txB64, _ := req.Params[1].(string)
		captured, _ = base64.StdEncoding.DecodeString(txB64)

		results := make([]map[string]any, len(readings))
		for i, v := range readings {
			results[i] = map[string]any{"returnValues": []any{u64Return(v)}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      "1",
			"result":  map[string]any{"results": results},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestGetPoolState(t *testing.T) {
	srv, captured := rpcFixture(t, [6]uint64{1000, 500, 600, 2000, 50_000_000, 400})
	client := NewSimulationClient(srv.URL, MustAddress("0x9999"), testLogger())

	state, err := client.GetPoolState(context.Background(), "0xaaa1", "abc::coin::USDC")
	if err != nil {
		t.Fatal(err)
	}
	if state.TotalSupply != 1000 || state.TotalBorrow != 500 || state.VaultBalance != 600 {
		t.Fatalf("state = %+v", state)
	}
	if state.SupplyCap != 2000 || state.InterestRate != 50_000_000 || state.AvailableWithdrawal != 400 {
		t.Fatalf("state = %+v", state)
	}
	if state.AssetType != "0xabc::coin::USDC" {
		t.Fatalf("asset type = %s", state.AssetType)
	}

	// The submitted transaction batches all six view calls over two shared
	// inputs (pool and clock).
	d := NewDecoder(*captured)
	if kind := d.ReadUleb128(); kind != 0 {
		t.Fatalf("transaction kind = %d", kind)
	}
	if inputs := d.ReadUleb128(); inputs != 2 {
		t.Fatalf("inputs = %d", inputs)
	}
	// First input is the pool shared object.
	if callArg := d.ReadUleb128(); callArg != 1 {
		t.Fatalf("call arg variant = %d", callArg)
	}
	if objArg := d.ReadUleb128(); objArg != 1 {
		t.Fatalf("object arg variant = %d", objArg)
	}
	if pool := d.ReadAddress(); pool != MustAddress("0xaaa1") {
		t.Fatalf("pool input = %s", pool)
	}
	_ = d.ReadU64()  // initial shared version
	_ = d.ReadBool() // mutability
	// Second input is the clock.
	_ = d.ReadUleb128()
	_ = d.ReadUleb128()
	if clock := d.ReadAddress(); clock != ClockObjectID {
		t.Fatalf("clock input = %s", clock)
	}
	_ = d.ReadU64()
	_ = d.ReadBool()
	if commands := d.ReadUleb128(); commands != 6 {
		t.Fatalf("commands = %d", commands)
	}
	// First command calls total_supply on the margin package.
	if cmd := d.ReadUleb128(); cmd != 0 {
		t.Fatalf("command variant = %d", cmd)
	}
	if pkg := d.ReadAddress(); pkg != MustAddress("0x9999") {
		t.Fatalf("package = %s", pkg)
	}
	if mod := d.ReadString(); mod != "margin_pool" {
		t.Fatalf("module = %s", mod)
	}
	if fn := d.ReadString(); fn != "total_supply" {
		t.Fatalf("function = %s", fn)
	}
}

func TestGetPoolStateRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": "1",
			"error": map[string]any{"code": -32000, "message": "node overloaded"},
		})
	}))
	defer srv.Close()
	client := NewSimulationClient(srv.URL, MustAddress("0x9999"), testLogger())

	_, err := client.GetPoolState(context.Background(), "0xaaa1", "abc::coin::USDC")
	if !IsKind(err, PollFailure) {
		t.Fatalf("expected PollFailure, got %v", err)
	}
}

func TestGetPoolStateSimulationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": "1",
			"result": map[string]any{"error": "MoveAbort in margin_pool"},
		})
	}))
	defer srv.Close()
	client := NewSimulationClient(srv.URL, MustAddress("0x9999"), testLogger())

	_, err := client.GetPoolState(context.Background(), "0xaaa1", "abc::coin::USDC")
	if !IsKind(err, PollFailure) {
		t.Fatalf("expected PollFailure, got %v", err)
	}
}

func TestNormalizeAssetType(t *testing.T) {
	cases := map[string]string{
		"abc::coin::USDC":   "0xabc::coin::USDC",
		"0xabc::coin::USDC": "0xabc::coin::USDC",
		"0Xabc::coin::USDC": "0Xabc::coin::USDC",
	}
	for in, want := range cases {
		if got := NormalizeAssetType(in); got != want {
			t.Fatalf("NormalizeAssetType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAssetTypeTag(t *testing.T) {
	tag, err := parseAssetTypeTag("0x2::sui::SUI")
	if err != nil {
		t.Fatal(err)
	}
	if tag.Kind != TagStruct || tag.Struct.Module != "sui" || tag.Struct.Name != "SUI" {
		t.Fatalf("tag = %+v", tag)
	}
	if tag.Struct.Address != MustAddress("0x2") {
		t.Fatalf("address = %s", tag.Struct.Address)
	}
	if _, err := parseAssetTypeTag("garbage"); err == nil {
		t.Fatal("malformed type must fail")
	}
}
