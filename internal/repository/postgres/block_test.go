package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/group-guardian/internal/domain"
	"github.com/ignite/group-guardian/internal/service/blocklist"
)

func TestBlockRepo_Get_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT identity_id, reason, operator_id, source_id, disabled, updated_at`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"identity_id"}))

	_, err := NewBlockRepo(db).Get(context.Background(), "u1")
	if !errors.Is(err, blocklist.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBlockRepo_UpsertBatch_Transactional(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO guardian_block_entries`)
	mock.ExpectExec(`INSERT INTO guardian_block_entries`).
		WithArgs("u1", "spam", "", "", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO guardian_block_entries`).
		WithArgs("u2", "raid", "op-1", "src-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewBlockRepo(db).UpsertBatch(context.Background(), []domain.BlockEntry{
		{IdentityID: "u1", Reason: "spam"},
		{IdentityID: "u2", Reason: "raid", OperatorID: "op-1", SourceID: "src-1", Disabled: true},
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestBlockRepo_ActiveEntries_ExcludesDisabled(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`FROM guardian_block_entries WHERE disabled = false`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"identity_id", "reason", "operator_id", "source_id", "disabled", "updated_at"},
		).AddRow("u1", "spam", "", "", false, now))

	entries, err := NewBlockRepo(db).ActiveEntries(context.Background())
	if err != nil {
		t.Fatalf("ActiveEntries: %v", err)
	}
	if _, ok := entries["u1"]; !ok || len(entries) != 1 {
		t.Errorf("entries = %v", entries)
	}
}
