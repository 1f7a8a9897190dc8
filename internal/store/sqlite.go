package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Hino9LLC/newsearch/internal/errors"
)

// recencyBoostFactor is the numerator of the freshness multiplier applied to
// lexical scores of items inside the boost window:
// score * (1 + factor / (1 + age_days)).
const recencyBoostFactor = 0.05

// SQLiteConfig configures the SQLite content store.
type SQLiteConfig struct {
	// Path is the database file. Empty or ":memory:" opens an in-memory
	// store for testing.
	Path string

	// CacheMB is the page cache size in MB (default: 64).
	CacheMB int

	// NewsWeight scales lexical match scores on digest text.
	NewsWeight float64

	// ArticleWeight scales lexical match scores on full article text.
	ArticleWeight float64

	// RecencyBoostDays is the age window, in days, within which lexical
	// scores get the freshness multiplier. Zero disables the boost.
	RecencyBoostDays int
}

// SQLiteStore implements ContentStore on SQLite with FTS5 shadow tables.
// Triggers keep the FTS tables consistent with the text columns, so lexical
// indexing needs no application-side bookkeeping. WAL mode allows readers
// to proceed during writes.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	config SQLiteConfig
	closed bool
}

// Verify interface implementation at compile time
var _ ContentStore = (*SQLiteStore)(nil)

// newsDocExpr builds the searchable text of a news row for the FTS insert
// triggers.
func newsDocExpr(prefix string) string {
	cols := []string{"llm_headline", "title", "llm_summary", "summary", "llm_tags", "content_text"}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("coalesce(%s.%s, '')", prefix, c)
	}
	return strings.Join(parts, " || ' ' || ")
}

// articleDocExpr builds the searchable text of an article row.
func articleDocExpr(prefix string) string {
	cols := []string{"title", "summary", "content_text"}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("coalesce(%s.%s, '')", prefix, c)
	}
	return strings.Join(parts, " || ' ' || ")
}

// NewSQLiteStore opens or creates the content store at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.CacheMB <= 0 {
		cfg.CacheMB = 64
	}
	if cfg.NewsWeight == 0 {
		cfg.NewsWeight = 0.8
	}
	if cfg.ArticleWeight == 0 {
		cfg.ArticleWeight = 1.0
	}

	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	} else if dsn != ":memory:" {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock contention and keeps in-memory
	// databases from evaporating between pool connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.CacheMB*1024),
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, config: cfg}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the content tables, FTS5 shadow tables, and the
// triggers that keep them consistent. Timestamps are stored as Unix epoch
// seconds so recency arithmetic stays in SQL.
func (s *SQLiteStore) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_date INTEGER,
		title TEXT,
		summary TEXT,
		domain TEXT,
		site_name TEXT,
		url TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		content_text TEXT,
		embedding BLOB,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS news (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article_date INTEGER,
		title TEXT,
		summary TEXT,
		llm_headline TEXT,
		llm_summary TEXT,
		llm_tags TEXT,
		domain TEXT,
		site_name TEXT,
		image_url TEXT,
		url TEXT,
		article_id INTEGER REFERENCES articles(id),
		status TEXT NOT NULL DEFAULT 'pending',
		content_text TEXT,
		embedding BLOB,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,
		deleted_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_news_status ON news(status, deleted_at);
	CREATE INDEX IF NOT EXISTS idx_news_article_id ON news(article_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS news_fts USING fts5(
		content,
		tokenize='unicode61'
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
		content,
		tokenize='unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS news_fts_ai AFTER INSERT ON news BEGIN
		INSERT INTO news_fts(rowid, content) VALUES (new.id, %[1]s);
	END;
	CREATE TRIGGER IF NOT EXISTS news_fts_ad AFTER DELETE ON news BEGIN
		DELETE FROM news_fts WHERE rowid = old.id;
	END;
	CREATE TRIGGER IF NOT EXISTS news_fts_au AFTER UPDATE ON news BEGIN
		DELETE FROM news_fts WHERE rowid = old.id;
		INSERT INTO news_fts(rowid, content) VALUES (new.id, %[1]s);
	END;

	CREATE TRIGGER IF NOT EXISTS articles_fts_ai AFTER INSERT ON articles BEGIN
		INSERT INTO articles_fts(rowid, content) VALUES (new.id, %[2]s);
	END;
	CREATE TRIGGER IF NOT EXISTS articles_fts_ad AFTER DELETE ON articles BEGIN
		DELETE FROM articles_fts WHERE rowid = old.id;
	END;
	CREATE TRIGGER IF NOT EXISTS articles_fts_au AFTER UPDATE ON articles BEGIN
		DELETE FROM articles_fts WHERE rowid = old.id;
		INSERT INTO articles_fts(rowid, content) VALUES (new.id, %[2]s);
	END;

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`,
		newsDocExpr("new"), articleDocExpr("new"))

	_, err := s.db.Exec(schema)
	return err
}

// SaveNews inserts or updates a news item.
func (s *SQLiteStore) SaveNews(ctx context.Context, item *NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tags, err := marshalTags(item.LLMTags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.Status == "" {
		item.Status = StatusPending
	}

	if item.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO news (article_date, title, summary, llm_headline, llm_summary, llm_tags,
			                  domain, site_name, image_url, url, article_id, status, content_text,
			                  created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			epochPtr(item.ArticleDate), item.Title, item.Summary, item.LLMHeadline, item.LLMSummary, tags,
			item.Domain, item.SiteName, item.ImageURL, item.URL, item.ArticleID, string(item.Status), item.ContentText,
			item.CreatedAt.Unix(), epochPtr(item.UpdatedAt), epochPtr(item.DeletedAt))
		if err != nil {
			return errors.StorageUnavailable(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.StorageUnavailable(err)
		}
		item.ID = id
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE news SET article_date = ?, title = ?, summary = ?, llm_headline = ?, llm_summary = ?,
		                llm_tags = ?, domain = ?, site_name = ?, image_url = ?, url = ?, article_id = ?,
		                status = ?, content_text = ?, updated_at = ?, deleted_at = ?
		WHERE id = ?`,
		epochPtr(item.ArticleDate), item.Title, item.Summary, item.LLMHeadline, item.LLMSummary,
		tags, item.Domain, item.SiteName, item.ImageURL, item.URL, item.ArticleID,
		string(item.Status), item.ContentText, time.Now().Unix(), epochPtr(item.DeletedAt),
		item.ID)
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	return nil
}

// SaveArticle inserts or updates a full article.
func (s *SQLiteStore) SaveArticle(ctx context.Context, article *Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	if article.Status == "" {
		article.Status = StatusPending
	}

	if article.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO articles (article_date, title, summary, domain, site_name, url, status,
			                      content_text, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			epochPtr(article.ArticleDate), article.Title, article.Summary, article.Domain,
			article.SiteName, article.URL, string(article.Status), article.ContentText,
			article.CreatedAt.Unix(), epochPtr(article.DeletedAt))
		if err != nil {
			return errors.StorageUnavailable(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.StorageUnavailable(err)
		}
		article.ID = id
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE articles SET article_date = ?, title = ?, summary = ?, domain = ?, site_name = ?,
		                    url = ?, status = ?, content_text = ?, deleted_at = ?
		WHERE id = ?`,
		epochPtr(article.ArticleDate), article.Title, article.Summary, article.Domain,
		article.SiteName, article.URL, string(article.Status), article.ContentText,
		epochPtr(article.DeletedAt), article.ID)
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	return nil
}

// GetNewsByIDs returns eligible news items in the order of ids.
func (s *SQLiteStore) GetNewsByIDs(ctx context.Context, ids []int64) ([]*NewsItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, article_date, title, summary, llm_headline, llm_summary, llm_tags,
		       domain, site_name, image_url, url, article_id, status, content_text,
		       created_at, updated_at, deleted_at
		FROM news
		WHERE id IN (%s) AND deleted_at IS NULL AND status = ?`,
		strings.Join(placeholders, ","))
	args = append(args, string(StatusPublished))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]*NewsItem, len(ids))
	for rows.Next() {
		item, err := scanNewsItem(rows)
		if err != nil {
			return nil, errors.StorageUnavailable(err)
		}
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageUnavailable(err)
	}

	items := make([]*NewsItem, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// SearchLexical runs a weighted full-text search over digests and articles.
// A digest and its linked article score as one result with the combined
// weighted score; soft-deleted articles stop contributing. Scores get a
// freshness multiplier when the recency boost is enabled.
func (s *SQLiteStore) SearchLexical(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	match := buildMatchQuery(query)
	if match == "" {
		return []LexicalHit{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	boost := 0.0
	if s.config.RecencyBoostDays > 0 {
		boost = recencyBoostFactor
	}

	// bm25() returns negative values where lower is better; negate so
	// higher is better before weighting. The freshness multiplier applies
	// only to items younger than the configured window.
	sqlQuery := `
		SELECT n.id,
		       (COALESCE(nf.score, 0) * ? + COALESCE(af.score, 0) * ?) *
		       (1.0 + CASE
		           WHEN (strftime('%s','now') - COALESCE(n.article_date, n.created_at)) / 86400.0 <= ?
		           THEN ? / (1.0 + (strftime('%s','now') - COALESCE(n.article_date, n.created_at)) / 86400.0)
		           ELSE 0.0
		       END) AS combined
		FROM news n
		LEFT JOIN articles a ON a.id = n.article_id AND a.deleted_at IS NULL
		LEFT JOIN (SELECT rowid AS id, -bm25(news_fts) AS score FROM news_fts WHERE news_fts MATCH ?) nf ON nf.id = n.id
		LEFT JOIN (SELECT rowid AS id, -bm25(articles_fts) AS score FROM articles_fts WHERE articles_fts MATCH ?) af ON af.id = a.id
		WHERE n.deleted_at IS NULL AND n.status = ?
		  AND (COALESCE(nf.score, 0) > 0 OR COALESCE(af.score, 0) > 0)
		ORDER BY combined DESC, COALESCE(n.article_date, n.created_at) DESC, n.id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, sqlQuery,
		s.config.NewsWeight, s.config.ArticleWeight,
		float64(s.config.RecencyBoostDays), boost,
		match, match, string(StatusPublished), limit)
	if err != nil {
		// FTS5 rejects some inputs as syntax errors even after
		// sanitization; fall back to a plain substring scan.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return s.fallbackSearch(ctx, query, limit)
		}
		return nil, errors.StorageUnavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var hits []LexicalHit
	for rows.Next() {
		var hit LexicalHit
		if err := rows.Scan(&hit.NewsID, &hit.Score); err != nil {
			return nil, errors.StorageUnavailable(err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	return hits, nil
}

// fallbackSearch is a substring scan ordered by recency, used when the FTS
// query cannot be executed.
func (s *SQLiteStore) fallbackSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM news
		WHERE deleted_at IS NULL AND status = ?
		  AND (title LIKE ? OR summary LIKE ? OR llm_headline LIKE ? OR llm_summary LIKE ? OR content_text LIKE ?)
		ORDER BY COALESCE(article_date, created_at) DESC, id ASC
		LIMIT ?`,
		string(StatusPublished), pattern, pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var hits []LexicalHit
	rank := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.StorageUnavailable(err)
		}
		rank++
		hits = append(hits, LexicalHit{NewsID: id, Score: 1.0 / float64(rank)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	return hits, nil
}

// SaveEmbedding stores the precomputed vector for a news item.
func (s *SQLiteStore) SaveEmbedding(ctx context.Context, newsID int64, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE news SET embedding = ? WHERE id = ?`,
		vectorToBlob(vector), newsID)
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	if n == 0 {
		return fmt.Errorf("news item %d not found", newsID)
	}
	return nil
}

// SaveArticleEmbedding stores the precomputed vector for an article's full
// text.
func (s *SQLiteStore) SaveArticleEmbedding(ctx context.Context, articleID int64, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET embedding = ? WHERE id = ?`,
		vectorToBlob(vector), articleID)
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	if n == 0 {
		return fmt.Errorf("article %d not found", articleID)
	}
	return nil
}

// EligibleEmbeddings returns the vectors of all searchable news items:
// each item's own digest vector plus its linked article's vector, both
// attributed to the news ID.
func (s *SQLiteStore) EligibleEmbeddings(ctx context.Context) ([]StoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.embedding, ? FROM news n
		WHERE n.deleted_at IS NULL AND n.status = ? AND n.embedding IS NOT NULL
		UNION ALL
		SELECT n.id, a.embedding, ? FROM news n
		JOIN articles a ON a.id = n.article_id AND a.deleted_at IS NULL
		WHERE n.deleted_at IS NULL AND n.status = ? AND a.embedding IS NOT NULL`,
		string(SourceNews), string(StatusPublished),
		string(SourceArticle), string(StatusPublished))
	if err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings []StoredEmbedding
	for rows.Next() {
		var id int64
		var blob []byte
		var source string
		if err := rows.Scan(&id, &blob, &source); err != nil {
			return nil, errors.StorageUnavailable(err)
		}
		embeddings = append(embeddings, StoredEmbedding{
			NewsID: id,
			Source: EmbeddingSource(source),
			Vector: blobToVector(blob),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageUnavailable(err)
	}
	return embeddings, nil
}

// SoftDeleteNews marks a news item deleted.
func (s *SQLiteStore) SoftDeleteNews(ctx context.Context, id int64) error {
	return s.softDelete(ctx, "news", id)
}

// SoftDeleteArticle marks an article deleted.
func (s *SQLiteStore) SoftDeleteArticle(ctx context.Context, id int64) error {
	return s.softDelete(ctx, "articles", id)
}

func (s *SQLiteStore) softDelete(ctx context.Context, table string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, table),
		time.Now().Unix(), id)
	if err != nil {
		return errors.StorageUnavailable(err)
	}
	return nil
}

// CountEligible returns the number of searchable news items.
func (s *SQLiteStore) CountEligible(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE deleted_at IS NULL AND status = ?`,
		string(StatusPublished)).Scan(&n)
	if err != nil {
		return 0, errors.StorageUnavailable(err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// scanNewsItem reads one news row.
func scanNewsItem(rows *sql.Rows) (*NewsItem, error) {
	var (
		item        NewsItem
		articleDate sql.NullInt64
		title       sql.NullString
		summary     sql.NullString
		llmHeadline sql.NullString
		llmSummary  sql.NullString
		llmTags     sql.NullString
		domain      sql.NullString
		siteName    sql.NullString
		imageURL    sql.NullString
		url         sql.NullString
		articleID   sql.NullInt64
		status      string
		contentText sql.NullString
		createdAt   int64
		updatedAt   sql.NullInt64
		deletedAt   sql.NullInt64
	)

	err := rows.Scan(&item.ID, &articleDate, &title, &summary, &llmHeadline, &llmSummary, &llmTags,
		&domain, &siteName, &imageURL, &url, &articleID, &status, &contentText,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	item.ArticleDate = timePtr(articleDate)
	item.Title = title.String
	item.Summary = summary.String
	item.LLMHeadline = llmHeadline.String
	item.LLMSummary = llmSummary.String
	item.Domain = domain.String
	item.SiteName = siteName.String
	item.ImageURL = imageURL.String
	item.URL = url.String
	item.Status = Status(status)
	item.ContentText = contentText.String
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = timePtr(updatedAt)
	item.DeletedAt = timePtr(deletedAt)

	if articleID.Valid {
		id := articleID.Int64
		item.ArticleID = &id
	}
	if llmTags.Valid && llmTags.String != "" {
		if err := json.Unmarshal([]byte(llmTags.String), &item.LLMTags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for news %d: %w", item.ID, err)
		}
	}

	return &item, nil
}

// marshalTags serializes tags as JSON, nil for none.
func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// epochPtr converts an optional time to epoch seconds, nil for unset.
func epochPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// timePtr converts a nullable epoch to *time.Time.
func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

// vectorToBlob encodes a vector as little-endian float32 bytes.
func vectorToBlob(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(x))
	}
	return blob
}

// blobToVector decodes little-endian float32 bytes.
func blobToVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
