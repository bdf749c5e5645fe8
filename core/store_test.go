package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDBTX records executed statements and answers with an INSERT tag whose
// count is the number of '(' in the statement.
type fakeDBTX struct {
	sqls []string
	args [][]any
	err  error
}

func (f *fakeDBTX) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	inserted := strings.Count(sql, "(")
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", inserted)), nil
}

func (f *fakeDBTX) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDBTX) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestBulkInsertIgnoreStatement(t *testing.T) {
	rows := []Row{
		&RebateRow{RowMeta: RowMeta{EventDigest: "d0"}, PoolID: "0xp", Epoch: 1, ClaimAmount: 5},
		&RebateRow{RowMeta: RowMeta{EventDigest: "d1"}, PoolID: "0xp", Epoch: 1, ClaimAmount: 7},
	}
	db := &fakeDBTX{}
	if _, err := bulkInsertIgnore(context.Background(), db, "rebates", rebateColumns, rows); err != nil {
		t.Fatal(err)
	}
	if len(db.sqls) != 1 {
		t.Fatalf("expected one statement, got %d", len(db.sqls))
	}
	sql := db.sqls[0]
	if !strings.HasPrefix(sql, "INSERT INTO rebates (event_digest, digest, sender, checkpoint, checkpoint_timestamp_ms, package, pool_id, balance_manager_id, epoch, claim_amount) VALUES ") {
		t.Fatalf("statement = %s", sql)
	}
	if !strings.HasSuffix(sql, " ON CONFLICT DO NOTHING") {
		t.Fatalf("statement must ignore conflicts: %s", sql)
	}
	wantParams := 2 * len(rebateColumns)
	if len(db.args[0]) != wantParams {
		t.Fatalf("args = %d, want %d", len(db.args[0]), wantParams)
	}
	if !strings.Contains(sql, fmt.Sprintf("$%d", wantParams)) {
		t.Fatalf("placeholders not numbered through $%d: %s", wantParams, sql)
	}
	// First value of each tuple is the primary key.
	if db.args[0][0] != "d0" || db.args[0][len(rebateColumns)] != "d1" {
		t.Fatal("row values are not laid out row-major")
	}
}

func TestBulkInsertIgnoreChunksLargeBatches(t *testing.T) {
	// Enough rows to exceed the bind-parameter budget for this column set.
	perRow := len(rebateColumns)
	count := maxInsertParams/perRow + 10
	rows := make([]Row, count)
	for i := range rows {
		rows[i] = &RebateRow{RowMeta: RowMeta{EventDigest: fmt.Sprintf("d%d", i)}}
	}
	db := &fakeDBTX{}
	if _, err := bulkInsertIgnore(context.Background(), db, "rebates", rebateColumns, rows); err != nil {
		t.Fatal(err)
	}
	if len(db.sqls) != 2 {
		t.Fatalf("expected 2 chunked statements, got %d", len(db.sqls))
	}
	for _, args := range db.args {
		if len(args) > maxInsertParams {
			t.Fatalf("chunk carries %d params", len(args))
		}
	}
}

func TestBulkInsertIgnoreEmpty(t *testing.T) {
	db := &fakeDBTX{}
	n, err := bulkInsertIgnore(context.Background(), db, "rebates", rebateColumns, nil)
	if err != nil || n != 0 || len(db.sqls) != 0 {
		t.Fatalf("empty insert: %d %v %d", n, err, len(db.sqls))
	}
}

func TestClassifyPgError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !IsKind(classifyPgError(unique), Conflict) {
		t.Fatal("23505 must classify as Conflict")
	}
	if !IsUniqueViolation(unique) {
		t.Fatal("IsUniqueViolation(23505)")
	}

	syntax := &pgconn.PgError{Code: "42601"}
	if !IsKind(classifyPgError(syntax), Integrity) {
		t.Fatal("server rejection must classify as Integrity")
	}

	if !IsKind(classifyPgError(errors.New("connection refused")), StoreUnavailable) {
		t.Fatal("plain network error must classify as StoreUnavailable")
	}
	if classifyPgError(nil) != nil {
		t.Fatal("nil stays nil")
	}
}

func TestCommitterInsertsThroughTableCommitter(t *testing.T) {
	c := tableCommitter{table: "stakes", columns: stakeColumns}
	db := &fakeDBTX{}
	rows := []Row{&StakeRow{RowMeta: RowMeta{EventDigest: "x"}, PoolID: "0xp"}}
	if _, err := c.Commit(context.Background(), db, rows); err != nil {
		t.Fatal(err)
	}
	if len(db.sqls) != 1 || !strings.Contains(db.sqls[0], "INSERT INTO stakes ") {
		t.Fatalf("statements = %v", db.sqls)
	}
}

// Every row type's column list and value list stay in lockstep; a drifting
// pair would corrupt inserts silently.
func TestRowColumnsMatchValues(t *testing.T) {
	str := "s"
	i64 := int64(1)
	b := true
	f := 1.0
	rows := []Row{
		&OrderFillRow{},
		&OrderUpdateRow{},
		&BalanceRow{},
		&FlashloanRow{},
		&PoolPriceRow{},
		&ProposalRow{},
		&RebateRow{},
		&StakeRow{},
		&TradeParamsUpdateRow{},
		&VoteRow{FromProposalID: &str},
		&DeepBurnedRow{},
		&PoolCreatedRow{},
		&MarginPoolOperationRow{},
		&MarginManagerOperationRow{BalanceManagerID: &str, LoanAmount: &i64},
		&MarginPoolAdminRow{Enabled: &b, ConfigJSON: []byte(`{}`)},
		&MarginRegistryEventRow{Allowed: &b},
		&MarginFeesRow{Fees: &i64},
		&PoolRow{},
		&AssetRow{},
		&MarginPoolSnapshotRow{SolvencyRatio: &f},
	}
	for _, r := range rows {
		if len(r.Columns()) != len(r.Values()) {
			t.Fatalf("%s: %d columns but %d values", r.Table(), len(r.Columns()), len(r.Values()))
		}
	}
}
