package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
)

const postColumns = `id, type, title, body, attachments, audience, class_ids, due_at, event_start_at, event_end_at, event_location,
status, publish_at, author_id, author_name, author_role, activity_meta, created_at, updated_at`

// PostRepository persists posts in Postgres.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns posts matching the filter along with the total match count.
// A non-positive PageSize returns every match.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	where, args := buildPostWhere(filter)
	whereClause := strings.Join(where, " AND ")

	query := fmt.Sprintf("SELECT %s\nFROM posts WHERE %s\nORDER BY created_at DESC, id ASC", postColumns, whereClause)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	if filter.PageSize <= 0 {
		return posts, len(posts), nil
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM posts WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

func buildPostWhere(filter models.PostFilter) ([]string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(types))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	} else {
		where = append(where, fmt.Sprintf("status <> '%s'", models.PostStatusScheduled))
	}
	if len(filter.ClassIDs) > 0 {
		where = append(where, fmt.Sprintf("(audience = '%s' OR class_ids && $%d)", models.PostAudienceGlobal, len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}
	if filter.AuthorRole != nil {
		where = append(where, fmt.Sprintf("author_role = $%d", len(args)+1))
		args = append(args, string(*filter.AuthorRole))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR COALESCE(body, '') ILIKE $%d ESCAPE '\')`, len(args)+1, len(args)+1))
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// GetByID returns a post by identifier. Missing rows surface as sql.ErrNoRows.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := fmt.Sprintf("SELECT %s\nFROM posts WHERE id = $1", postColumns)
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts a new post, assigning id and timestamps when absent.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	query := `INSERT INTO posts (id, type, title, body, attachments, audience, class_ids, due_at, event_start_at, event_end_at, event_location,
status, publish_at, author_id, author_name, author_role, activity_meta, created_at, updated_at)
VALUES (:id, :type, :title, :body, :attachments, :audience, :class_ids, :due_at, :event_start_at, :event_end_at, :event_location,
:status, :publish_at, :author_id, :author_name, :author_role, :activity_meta, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a post. Author and creation time are immutable.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = time.Now().UTC()
	}
	query := `UPDATE posts SET type = :type, title = :title, body = :body, attachments = :attachments, audience = :audience,
class_ids = :class_ids, due_at = :due_at, event_start_at = :event_start_at, event_end_at = :event_end_at, event_location = :event_location,
status = :status, publish_at = :publish_at, activity_meta = :activity_meta, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireAffected(res)
}

// Archive moves a post to ARCHIVED. It reports false when the post was already archived.
func (r *PostRepository) Archive(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2`,
		id, string(models.PostStatusArchived), at)
	if err != nil {
		return false, fmt.Errorf("archive post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive post: %w", err)
	}
	return affected > 0, nil
}

// Delete hard-removes a post.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireAffected(res)
}

// ListDueScheduled returns scheduled posts whose publish time has passed.
func (r *PostRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s
FROM posts WHERE status = $1 AND publish_at IS NOT NULL AND publish_at <= $2
ORDER BY publish_at ASC LIMIT %d`, postColumns, limit)
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, string(models.PostStatusScheduled), now); err != nil {
		return nil, fmt.Errorf("list due scheduled posts: %w", err)
	}
	return posts, nil
}

// PromoteScheduled publishes the given posts in one statement, touching only
// rows that are still SCHEDULED. It returns the ids that actually changed.
func (r *PostRepository) PromoteScheduled(ctx context.Context, ids []string, now time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `UPDATE posts SET status = $1, updated_at = $2
WHERE id = ANY($3) AND status = $4
RETURNING id`
	var promoted []string
	if err := r.db.SelectContext(ctx, &promoted, query,
		string(models.PostStatusPublished), now, pq.Array(ids), string(models.PostStatusScheduled)); err != nil {
		return nil, fmt.Errorf("promote scheduled posts: %w", err)
	}
	return promoted, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
