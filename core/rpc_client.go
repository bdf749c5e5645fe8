package core

// Read-only on-chain simulation client. Pool state is read by batching six
// view-function calls into one programmable transaction and submitting it to
// the node's dev-inspect endpoint, which executes without committing and
// returns each command's return values as (bytes, type) pairs.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	simulationTimeout = 10 * time.Second
	marginPoolModule  = "margin_pool"
)

// PoolState is one margin pool's live reading.
type PoolState struct {
	PoolID              string
	AssetType           string
	TotalSupply         uint64
	TotalBorrow         uint64
	VaultBalance        uint64
	SupplyCap           uint64
	InterestRate        uint64
	AvailableWithdrawal uint64
}

// Utilization is borrow over supply, zero when nothing is supplied.
func (s PoolState) Utilization() float64 {
	if s.TotalSupply == 0 {
		return 0
	}
	return float64(s.TotalBorrow) / float64(s.TotalSupply)
}

// Solvency is vault over borrow; ok is false when nothing is borrowed (the
// ratio would be infinite).
func (s PoolState) Solvency() (float64, bool) {
	if s.TotalBorrow == 0 {
		return 0, false
	}
	return float64(s.VaultBalance) / float64(s.TotalBorrow), true
}

// AvailableLiquidityPct is vault over supply as a percentage, 100 when
// nothing is supplied.
func (s PoolState) AvailableLiquidityPct() float64 {
	if s.TotalSupply == 0 {
		return 100
	}
	return float64(s.VaultBalance) / float64(s.TotalSupply) * 100
}

// SimulationClient talks JSON-RPC to a fullnode.
type SimulationClient struct {
	rpcURL        string
	marginPackage Address
	client        *http.Client
	log           *logrus.Logger
}

// NewSimulationClient builds a client bound to one margin package.
func NewSimulationClient(rpcURL string, marginPackage Address, log *logrus.Logger) *SimulationClient {
	return &SimulationClient{
		rpcURL:        rpcURL,
		marginPackage: marginPackage,
		client:        &http.Client{Timeout: simulationTimeout},
		log:           log,
	}
}

var poolViewFunctions = []string{
	"total_supply",
	"total_borrow",
	"vault_balance",
	"supply_cap",
	"interest_rate",
	"get_available_withdrawal",
}

// GetPoolState reads all six view functions in one round trip.
func (c *SimulationClient) GetPoolState(ctx context.Context, poolID, assetType string) (PoolState, error) {
	pool, err := ParseAddress(poolID)
	if err != nil {
		return PoolState{}, Errorf(PollFailure, "invalid pool id %q: %v", poolID, err)
	}
	normalized := NormalizeAssetType(assetType)
	assetTag, err := parseAssetTypeTag(normalized)
	if err != nil {
		return PoolState{}, Errorf(PollFailure, "invalid asset type %q: %v", assetType, err)
	}

	txBytes := c.buildPoolStateTransaction(pool, assetTag)
	values, err := c.devInspect(ctx, txBytes)
	if err != nil {
		return PoolState{}, err
	}
	if len(values) != len(poolViewFunctions) {
		return PoolState{}, Errorf(PollFailure,
			"expected %d return values, got %d", len(poolViewFunctions), len(values))
	}

	readings := make([]uint64, len(values))
	for i, v := range values {
		u, err := decodeU64Return(v)
		if err != nil {
			return PoolState{}, Errorf(PollFailure, "decode %s: %v", poolViewFunctions[i], err)
		}
		readings[i] = u
	}

	return PoolState{
		PoolID:              pool.String(),
		AssetType:           normalized,
		TotalSupply:         readings[0],
		TotalBorrow:         readings[1],
		VaultBalance:        readings[2],
		SupplyCap:           readings[3],
		InterestRate:        readings[4],
		AvailableWithdrawal: readings[5],
	}, nil
}

// buildPoolStateTransaction serializes a programmable transaction with the
// pool and the clock as read-only shared inputs and one move call per view
// function; get_available_withdrawal additionally takes the clock.
func (c *SimulationClient) buildPoolStateTransaction(pool Address, assetTag TypeTag) []byte {
	var e Encoder
	// TransactionKind::ProgrammableTransaction
	e.WriteUleb128(0)

	// Inputs: pool shared object, clock shared object, both immutable.
	e.WriteUleb128(2)
	writeSharedObjectInput(&e, pool)
	writeSharedObjectInput(&e, ClockObjectID)

	// Commands.
	e.WriteUleb128(uint32(len(poolViewFunctions)))
	for i, fn := range poolViewFunctions {
		// Command::MoveCall
		e.WriteUleb128(0)
		e.WriteAddress(c.marginPackage)
		e.WriteString(marginPoolModule)
		e.WriteString(fn)
		e.WriteUleb128(1)
		e.WriteTypeTag(assetTag)
		if i == len(poolViewFunctions)-1 {
			// (pool, clock)
			e.WriteUleb128(2)
			writeInputArgument(&e, 0)
			writeInputArgument(&e, 1)
		} else {
			e.WriteUleb128(1)
			writeInputArgument(&e, 0)
		}
	}
	return e.Bytes()
}

func writeSharedObjectInput(e *Encoder, id Address) {
	// CallArg::Object(ObjectArg::SharedObject{id, initial_shared_version, mutable: false})
	e.WriteUleb128(1)
	e.WriteUleb128(1)
	e.WriteAddress(id)
	e.WriteU64(1)
	e.WriteBool(false)
}

func writeInputArgument(e *Encoder, index uint16) {
	// Argument::Input(u16)
	e.WriteUleb128(1)
	e.WriteU16(index)
}

// returnValue is one (bytes, type) pair from the simulation response.
type returnValue struct {
	Bytes []byte
	Type  string
}

func (v *returnValue) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("return value must be a [bytes, type] pair, got %d elements", len(raw))
	}
	var nums []byte
	if err := json.Unmarshal(raw[0], &nums); err != nil {
		// Some nodes serialize the bytes as a JSON array of numbers rather
		// than base64; accept both.
		var ints []int
		if err2 := json.Unmarshal(raw[0], &ints); err2 != nil {
			return err
		}
		nums = make([]byte, len(ints))
		for i, n := range ints {
			nums[i] = byte(n)
		}
	}
	v.Bytes = nums
	return json.Unmarshal(raw[1], &v.Type)
}

func decodeU64Return(v returnValue) (uint64, error) {
	if v.Type != "u64" {
		return 0, fmt.Errorf("expected u64 return, got %q", v.Type)
	}
	d := NewDecoder(v.Bytes)
	u := d.ReadU64()
	if err := d.Finish(); err != nil {
		return 0, err
	}
	return u, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type devInspectResponse struct {
	Result *struct {
		Results []struct {
			ReturnValues []returnValue `json:"returnValues"`
		} `json:"results"`
		Error string `json:"error"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// devInspect submits the serialized transaction and flattens the per-command
// return values in order.
func (c *SimulationClient) devInspect(ctx context.Context, txBytes []byte) ([]returnValue, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "sui_devInspectTransactionBlock",
		Params: []any{
			Address{}.String(), // sender is irrelevant for read-only calls
			base64.StdEncoding.EncodeToString(txBytes),
			nil, nil, nil,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, NewError(PollFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(PollFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf(PollFailure, "rpc returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(PollFailure, err)
	}

	var parsed devInspectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, Errorf(PollFailure, "parse rpc response: %v", err)
	}
	if parsed.Error != nil {
		return nil, Errorf(PollFailure, "rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Result == nil {
		return nil, Errorf(PollFailure, "rpc response missing result")
	}
	if parsed.Result.Error != "" {
		return nil, Errorf(PollFailure, "simulation failed: %s", parsed.Result.Error)
	}

	var out []returnValue
	for _, r := range parsed.Result.Results {
		if len(r.ReturnValues) == 0 {
			return nil, Errorf(PollFailure, "command returned no values")
		}
		out = append(out, r.ReturnValues[0])
	}
	return out, nil
}

// NormalizeAssetType ensures the type string carries a 0x address prefix;
// event payloads store "abc::module::Type" while type parsing needs
// "0xabc::module::Type".
func NormalizeAssetType(assetType string) string {
	if len(assetType) >= 2 && (assetType[:2] == "0x" || assetType[:2] == "0X") {
		return assetType
	}
	return "0x" + assetType
}

// parseAssetTypeTag parses "0xaddr::module::Name" into a struct TypeTag.
func parseAssetTypeTag(s string) (TypeTag, error) {
	var addrPart, modPart, namePart string
	parts := splitTypeParts(s)
	if len(parts) != 3 {
		return TypeTag{}, fmt.Errorf("malformed type %q", s)
	}
	addrPart, modPart, namePart = parts[0], parts[1], parts[2]
	addr, err := ParseAddress(addrPart)
	if err != nil {
		return TypeTag{}, err
	}
	return TypeTag{Kind: TagStruct, Struct: &StructTag{
		Address: addr,
		Module:  modPart,
		Name:    namePart,
	}}, nil
}

func splitTypeParts(s string) []string {
	var parts []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ':' && s[i+1] == ':' {
			parts = append(parts, s[start:i])
			start = i + 2
			i++
		}
	}
	parts = append(parts, s[start:])
	return parts
}
