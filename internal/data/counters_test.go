package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCounterIncrement_ReturnsPrevious(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM counters`).
		WithArgs("sources").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(41))
	mock.ExpectExec(`UPDATE counters SET value`).
		WithArgs(42, "sources", 41).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := CounterModel{DB: db}.Increment(context.Background(), "sources")
	if err != nil {
		t.Fatal(err)
	}
	if got != 41 {
		t.Errorf("previous = %d, want 41", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCounterIncrement_SeedsFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM counters`).
		WithArgs("sources").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO counters`).
		WithArgs("sources").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := CounterModel{DB: db}.Increment(context.Background(), "sources")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("previous = %d, want 0 on first use", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCounterIncrement_RetriesLostUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// First CAS loses to a concurrent writer, second round wins.
	mock.ExpectQuery(`SELECT value FROM counters`).
		WithArgs("sources").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))
	mock.ExpectExec(`UPDATE counters SET value`).
		WithArgs(8, "sources", 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT value FROM counters`).
		WithArgs("sources").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(8))
	mock.ExpectExec(`UPDATE counters SET value`).
		WithArgs(9, "sources", 8).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := CounterModel{DB: db}.Increment(context.Background(), "sources")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("previous = %d, want 8 after retry", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
