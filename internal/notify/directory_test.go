package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLAdminDirectory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := NewSQLAdminDirectory(sqlx.NewDb(db, "postgres"))
	mock.ExpectQuery("SELECT DISTINCT user_id::text FROM user_roles").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("a1").AddRow("a2").AddRow("a3"))

	ids, err := dir.AdminIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAdminDirectoryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := NewSQLAdminDirectory(sqlx.NewDb(db, "postgres"), "admin", "owner")
	mock.ExpectQuery("SELECT DISTINCT user_id::text FROM user_roles").WillReturnError(errors.New("boom"))

	_, err = dir.AdminIDs(context.Background())
	assert.Error(t, err)
}

func TestStaticAdminDirectoryCopies(t *testing.T) {
	dir := StaticAdminDirectory{"a1"}
	ids, _ := dir.AdminIDs(context.Background())
	ids[0] = "changed"
	assert.Equal(t, "a1", dir[0])
}
