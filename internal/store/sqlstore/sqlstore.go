// Package sqlstore implements the store on top of SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	_ "github.com/lib/pq"
	"github.com/samber/mo"
	"github.com/samber/oops"
	_ "modernc.org/sqlite"

	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

type dialect struct {
	name       string
	driver     string
	primaryKey string
	numbered   bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite", primaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{name: "postgres", driver: "postgres", primaryKey: "BIGSERIAL PRIMARY KEY", numbered: true}
)

// Store is a store.Backend backed by a SQL database. Cursors are the ID of the last returned row.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ store.Backend = &Store{}

func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	// SQLite doesn't support concurrent writers.
	return open(ctx, sqliteDialect, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", 1)
}

func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	return open(ctx, postgresDialect, dsn, 0)
}

func open(ctx context.Context, dialect dialect, dsn string, maxConns int) (*Store, error) {
	errBuilder := oops.In("sqlstore").With("dialect", dialect.name)

	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, errBuilder.Wrapf(err, "failed to open the database")
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, errBuilder.Wrapf(err, "failed to initialize the database")
	}

	logging.L(ctx).Debugf("Opened %s database.", dialect.name)
	return s, nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	for _, statement := range []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id ` + s.dialect.primaryKey + `,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			category TEXT,
			added_at TIMESTAMP NOT NULL,
			selected BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS articles_selected ON articles (selected)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			id ` + s.dialect.primaryKey + `,
			email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			unsubscribe_token TEXT NOT NULL DEFAULT ''
		)`,
	} {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListArticles(
	ctx context.Context, filter store.ArticleFilter, cursor string, pageSize int,
) (store.Page[model.Article], error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return store.Page[model.Article]{}, err
	}

	query := `SELECT id, title, url, category, added_at, selected FROM articles WHERE id > ?`
	args := []any{after}
	if selected, ok := filter.Selected.Get(); ok {
		query += ` AND selected = ?`
		args = append(args, selected)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return store.Page[model.Article]{}, oops.In("sqlstore").Wrapf(err, "failed to list articles")
	}

	return scanPage(rows, pageSize, func(rows *sql.Rows) (model.Article, int64, error) {
		var (
			id       int64
			article  model.Article
			category sql.NullString
		)
		if err := rows.Scan(&id, &article.Title, &article.URL, &category, &article.AddedAt, &article.Selected); err != nil {
			return article, 0, err
		}
		article.ID = strconv.FormatInt(id, 10)
		article.Category = mo.TupleToOption(category.String, category.Valid && category.String != "")
		return article, id, nil
	})
}

func (s *Store) CreateArticle(ctx context.Context, article model.Article) (string, error) {
	category, ok := article.Category.Get()

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO articles (title, url, category, added_at, selected) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING RETURNING id`),
		article.Title, article.URL, sql.NullString{String: category, Valid: ok}, article.AddedAt.UTC(), article.Selected,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrAlreadyExists
	} else if err != nil {
		return "", oops.In("sqlstore").With("url", article.URL).Wrapf(err, "failed to create the article")
	}

	return strconv.FormatInt(id, 10), nil
}

func (s *Store) SetSelected(ctx context.Context, id string, selected bool) error {
	errBuilder := oops.In("sqlstore").With("id", id)

	articleID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errBuilder.Errorf("invalid article ID")
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`UPDATE articles SET selected = ? WHERE id = ?`), selected, articleID)
	if err != nil {
		return errBuilder.Wrapf(err, "failed to update the article")
	}

	if count, err := result.RowsAffected(); err != nil {
		return errBuilder.Wrap(err)
	} else if count == 0 {
		return errBuilder.Errorf("the article doesn't exist")
	}

	return nil
}

func (s *Store) ListSubscribers(
	ctx context.Context, status model.SubscriberStatus, cursor string, pageSize int,
) (store.Page[model.Subscriber], error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return store.Page[model.Subscriber]{}, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, email, status, unsubscribe_token FROM subscribers `+
			`WHERE id > ? AND LOWER(TRIM(status)) = ? ORDER BY id LIMIT ?`),
		after, status.String(), pageSize+1)
	if err != nil {
		return store.Page[model.Subscriber]{}, oops.In("sqlstore").Wrapf(err, "failed to list subscribers")
	}

	return scanPage(rows, pageSize, func(rows *sql.Rows) (model.Subscriber, int64, error) {
		var (
			id         int64
			rawStatus  string
			subscriber model.Subscriber
		)
		if err := rows.Scan(&id, &subscriber.Email, &rawStatus, &subscriber.UnsubscribeToken); err != nil {
			return subscriber, 0, err
		}

		subscriberStatus, err := model.ParseSubscriberStatus(rawStatus)
		if err != nil {
			return subscriber, 0, err
		}

		subscriber.ID = strconv.FormatInt(id, 10)
		subscriber.Status = subscriberStatus
		return subscriber, id, nil
	})
}

// AddSubscriber is used by tests and tooling: subscribers are managed outside of digestd.
func (s *Store) AddSubscriber(ctx context.Context, subscriber model.Subscriber) (string, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO subscribers (email, status, unsubscribe_token) VALUES (?, ?, ?) RETURNING id`),
		subscriber.Email, subscriber.Status.String(), subscriber.UnsubscribeToken,
	).Scan(&id); err != nil {
		return "", oops.In("sqlstore").With("email", subscriber.Email).Wrapf(err, "failed to add the subscriber")
	}
	return strconv.FormatInt(id, 10), nil
}

// Rows are fetched with LIMIT pageSize+1: the extra row only tells whether there is a next page.
func scanPage[T any](rows *sql.Rows, pageSize int, scan func(rows *sql.Rows) (T, int64, error)) (_ store.Page[T], retErr error) {
	defer func() {
		if err := rows.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()

	var (
		page   store.Page[T]
		lastID int64
	)

	for rows.Next() {
		if len(page.Items) == pageSize {
			page.HasMore = true
			page.NextCursor = strconv.FormatInt(lastID, 10)
			break
		}

		item, id, err := scan(rows)
		if err != nil {
			return store.Page[T]{}, oops.In("sqlstore").Wrapf(err, "failed to read a row")
		}
		page.Items = append(page.Items, item)
		lastID = id
	}

	if err := rows.Err(); err != nil {
		return store.Page[T]{}, oops.In("sqlstore").Wrap(err)
	}

	return page, nil
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || id < 0 {
		return 0, oops.In("sqlstore").With("cursor", cursor).Errorf("invalid cursor")
	}
	return id, nil
}

func (s *Store) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}

	var (
		builder strings.Builder
		index   int
	)
	for _, char := range query {
		if char == '?' {
			index++
			builder.WriteString(fmt.Sprintf("$%d", index))
			continue
		}
		builder.WriteRune(char)
	}
	return builder.String()
}
