package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"metalex/internal/models"
)

// ============================================================
// HoldingRepository Tests
// ============================================================

func TestHoldingRepositoryGet(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		check     func(t *testing.T, h *models.Holding)
	}{
		{
			name: "существующий баланс",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"user_id", "instrument_id", "balance", "updated_at"}).
					AddRow("bob", "XAU-T", "15.5", now)
				mock.ExpectQuery(`SELECT .+ FROM holdings WHERE user_id = \$1 AND instrument_id = \$2`).
					WithArgs("bob", "XAU-T").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, h *models.Holding) {
				if !h.Balance.Equal(decimal.RequireFromString("15.5")) {
					t.Errorf("expected balance=15.5, got %s", h.Balance)
				}
			},
		},
		{
			// Отсутствие строки - нулевой баланс, не ошибка
			name: "отсутствующая строка",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM holdings WHERE user_id = \$1 AND instrument_id = \$2`).
					WithArgs("bob", "XAU-T").
					WillReturnError(sql.ErrNoRows)
			},
			check: func(t *testing.T, h *models.Holding) {
				if !h.Balance.IsZero() {
					t.Errorf("expected zero balance, got %s", h.Balance)
				}
				if h.UserID != "bob" || h.InstrumentID != "XAU-T" {
					t.Errorf("expected identity preserved, got %s/%s", h.UserID, h.InstrumentID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewHoldingRepository(db)
			holding, err := repo.Get(context.Background(), "bob", "XAU-T")

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			tt.check(t, holding)

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestHoldingRepositoryGetByUser(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "instrument_id", "balance", "updated_at"}).
		AddRow("bob", "XAG-T", "100", now).
		AddRow("bob", "XAU-T", "15.5", now)
	mock.ExpectQuery(`SELECT .+ FROM holdings WHERE user_id = \$1 ORDER BY instrument_id ASC`).
		WithArgs("bob").
		WillReturnRows(rows)

	repo := NewHoldingRepository(db)
	result, err := repo.GetByUser(context.Background(), "bob")

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 holdings, got %d", len(result))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestHoldingRepositoryDebit(t *testing.T) {
	amount := decimal.RequireFromString("5")

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "успешное списание",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE holdings SET balance = balance - \$1, updated_at = NOW\(\) WHERE user_id = \$2 AND instrument_id = \$3 AND balance >= \$1`).
					WithArgs(amount, "bob", "XAU-T").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectError: nil,
		},
		{
			// balance >= amount не выполнилось: 0 строк затронуто
			name: "недостаточно токенов",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE holdings SET balance = balance - \$1, updated_at = NOW\(\) WHERE user_id = \$2 AND instrument_id = \$3 AND balance >= \$1`).
					WithArgs(amount, "bob", "XAU-T").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: ErrInsufficientHolding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewHoldingRepository(db)
			err = repo.Debit(context.Background(), db, "bob", "XAU-T", amount)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestHoldingRepositoryCredit(t *testing.T) {
	amount := decimal.RequireFromString("5")

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO holdings .+ ON CONFLICT \(user_id, instrument_id\) DO UPDATE SET balance = holdings.balance \+ EXCLUDED.balance`).
		WithArgs("alice", "XAU-T", amount).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewHoldingRepository(db)
	err = repo.Credit(context.Background(), db, "alice", "XAU-T", amount)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestHoldingRepositorySumByInstrument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"sum"}).AddRow("1000")
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(balance\), 0\) FROM holdings WHERE instrument_id = \$1`).
		WithArgs("XAU-T").
		WillReturnRows(rows)

	repo := NewHoldingRepository(db)
	sum, err := repo.SumByInstrument(context.Background(), "XAU-T")

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("expected sum=1000, got %s", sum)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
