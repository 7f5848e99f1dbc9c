package recovery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/models"
)

func newOutbox(t *testing.T) (*Outbox, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o := NewOutbox(db)
	o.newID = func() string { return "11111111-1111-1111-1111-111111111111" }
	return o, mock
}

func testProfile() models.WorkerProfile {
	return models.WorkerProfile{
		UserID:            "u1",
		Name:              "Ram",
		PhoneNumber:       "9876543210",
		JobType:           models.JobMason,
		ExpectedDailyWage: 600,
		Skills:            []string{},
		Language:          "hi",
	}
}

func TestOutbox_Enqueue(t *testing.T) {
	o, mock := newOutbox(t)
	payload, _ := json.Marshal(testProfile())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_profiles")).
		WithArgs("11111111-1111-1111-1111-111111111111", "u1", "tok", payload, "503 unavailable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := o.Enqueue(context.Background(), "tok", testProfile(), "503 unavailable")
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutbox_EnqueueError(t *testing.T) {
	o, mock := newOutbox(t)
	mock.ExpectExec("INSERT INTO pending_profiles").WillReturnError(fmt.Errorf("connection reset"))

	_, err := o.Enqueue(context.Background(), "tok", testProfile(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue")
}

func TestOutbox_Pending(t *testing.T) {
	o, mock := newOutbox(t)
	payload, _ := json.Marshal(testProfile())
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "payload", "attempts", "created_at"}).
		AddRow("p1", "u1", "tok", payload, 2, created).
		AddRow("p2", "u2", "tok2", payload, 0, created)
	mock.ExpectQuery("SELECT id, user_id, token, payload, attempts, created_at").
		WithArgs(10).
		WillReturnRows(rows)

	pending, err := o.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p1", pending[0].ID)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, models.JobMason, pending[0].Profile.JobType)
	assert.Equal(t, created, pending[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutbox_Get(t *testing.T) {
	o, mock := newOutbox(t)

	mock.ExpectQuery("SELECT id, user_id").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err := o.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	payload, _ := json.Marshal(testProfile())
	mock.ExpectQuery("SELECT id, user_id").WithArgs("p1").WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "token", "payload", "attempts", "created_at"}).
			AddRow("p1", "u1", "tok", payload, 1, time.Now()))
	p, err := o.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "tok", p.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutbox_MarkDoneAndFailed(t *testing.T) {
	o, mock := newOutbox(t)

	mock.ExpectExec("UPDATE pending_profiles SET completed_at").WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, o.MarkDone(context.Background(), "p1"))

	mock.ExpectExec("UPDATE pending_profiles SET completed_at").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, o.MarkDone(context.Background(), "gone"), ErrNotFound)

	mock.ExpectExec("UPDATE pending_profiles").WithArgs("p1", "timeout").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, o.MarkFailed(context.Background(), "p1", "timeout"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
