package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

func newPostRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestPostRepositoryListHidesScheduledByDefault(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows([]string{"id", "type", "title", "audience", "status", "author_id"}).
		AddRow("p1", "NOTICE", "Uniform day", "GLOBAL", "PUBLISHED", "admin-1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM posts WHERE 1=1 AND status <> 'SCHEDULED' AND (audience = 'GLOBAL' OR class_ids && $1) AND (title ILIKE $2 ESCAPE '\\' OR COALESCE(body, '') ILIKE $2 ESCAPE '\\')")).
		WithArgs(sqlmock.AnyArg(), "%uniform%").
		WillReturnRows(rows)

	posts, total, err := repo.List(context.Background(), models.PostFilter{ClassIDs: []string{"7a"}, Search: " uniform "})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.PostTypeNotice, posts[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListEscapesSearchWildcards(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ILIKE $1 ESCAPE")).
		WithArgs(`%100\%\_off\\%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	posts, total, err := repo.List(context.Background(), models.PostFilter{Search: `100%_off\`})
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)
	role := models.RoleTeacher

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND type = ANY($1) AND status = ANY($2) AND author_role = $3\nORDER BY created_at DESC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "TEACHER").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("p11", "Eleventh"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts WHERE 1=1 AND type = ANY($1) AND status = ANY($2) AND author_role = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "TEACHER").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	posts, total, err := repo.List(context.Background(), models.PostFilter{
		Types:      []models.PostType{models.PostTypeExam},
		Statuses:   []models.PostStatus{models.PostStatusScheduled},
		AuthorRole: &role,
		Page:       2,
		PageSize:   10,
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryGetByIDMissing(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPostRepositoryCreateAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	post := &models.Post{Type: models.PostTypeNotice, Title: "Hello", Audience: models.PostAudienceGlobal, Status: models.PostStatusPublished}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.NotEmpty(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.Equal(t, post.CreatedAt, post.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET type = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Post{ID: "gone", Title: "x"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPostRepositoryArchiveReportsChange(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta("UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2")
	mock.ExpectExec(query).WithArgs("p1", "ARCHIVED", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("p1", "ARCHIVED", at).WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Archive(context.Background(), "p1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Archive(context.Background(), "p1", at)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE id = $1")).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "p1"), sql.ErrNoRows))
}

func TestPostRepositoryScheduledPromotion(t *testing.T) {
	db, mock, cleanup := newPostRepoMock(t)
	defer cleanup()
	repo := NewPostRepository(db)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM posts WHERE status = $1 AND publish_at IS NOT NULL AND publish_at <= $2\nORDER BY publish_at ASC LIMIT 500")).
		WithArgs("SCHEDULED", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("p1", "SCHEDULED").AddRow("p2", "SCHEDULED"))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE posts SET status = $1, updated_at = $2\nWHERE id = ANY($3) AND status = $4\nRETURNING id")).
		WithArgs("PUBLISHED", now, sqlmock.AnyArg(), "SCHEDULED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p2"))

	due, err := repo.ListDueScheduled(context.Background(), now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)

	promoted, err := repo.PromoteScheduled(context.Background(), []string{due[0].ID, due[1].ID}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, promoted)

	none, err := repo.PromoteScheduled(context.Background(), nil, now)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}
