package dict

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/syncx"
)

// ECDICT "stardict" lookups.
const (
	sqliteQuery   = "SELECT word, phonetic, definition, translation FROM stardict WHERE word = ?"
	postgresQuery = "SELECT word, phonetic, definition, translation FROM stardict WHERE word = $1"
)

// SQLitePrefix marks a DICT_STORE value naming a sqlite file.
const SQLitePrefix = "sqlite:"

// Row is one stardict record. Nullable columns are nil when NULL.
type Row struct {
	Word        string
	Phonetic    *string
	Definition  *string
	Translation *string
}

// Entry maps the row into the canonical shape. Definition and translation
// blocks become one item per line; the phonetic becomes the single
// pronunciation, with no audio.
func (r Row) Entry() Entry {
	var ipa *string
	if r.Phonetic != nil && *r.Phonetic != "" {
		ipa = r.Phonetic
	}
	return Entry{
		Headword:       r.Word,
		Definitions:    splitLines(r.Definition),
		Translations:   splitLines(r.Translation),
		Pronunciations: []Pronunciation{{IPA: ipa}},
	}
}

// Store is the local dictionary tier.
type Store interface {
	Lookup(ctx context.Context, word string) (Row, error)
	Close() error
}

// OpenStore opens the store named by dsn: "sqlite:<path>" or a
// postgres:// URL. An empty dsn means no local tier and returns nil.
func OpenStore(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, SQLitePrefix):
		s, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, SQLitePrefix))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New(errors.ConfigInvalid, "unsupported dictionary store").WithMetadata("dsn", dsn)
	}
}

// SQLiteStore reads a bundled stardict.db through a single connection.
type SQLiteStore struct {
	db *syncx.Mutex[*sql.DB]
}

// OpenSQLite opens the database at path and checks that it answers.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	slog.Info("opening local dictionary", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.LocalLookupFailed, "open sqlite").WithMetadata("path", path)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.LocalLookupFailed, "ping sqlite").WithMetadata("path", path)
	}
	return &SQLiteStore{db: syncx.NewMutex(db)}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, word string) (Row, error) {
	return syncx.Locked(s.db, func(db *sql.DB) (Row, error) {
		var r Row
		err := db.QueryRowContext(ctx, sqliteQuery, word).Scan(&r.Word, &r.Phonetic, &r.Definition, &r.Translation)
		if stderrors.Is(err, sql.ErrNoRows) {
			return Row{}, errors.Wrap(err, errors.LocalLookupFailed, "word not in local dictionary").WithMetadata("word", word)
		}
		if err != nil {
			return Row{}, errors.Wrap(err, errors.LocalLookupFailed, "query local dictionary").WithMetadata("word", word)
		}
		return r, nil
	})
}

func (s *SQLiteStore) Close() error {
	return s.db.With(func(db *sql.DB) error { return db.Close() })
}

// PostgresStore reads a stardict table hosted on a shared server.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a small pool to dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	slog.Info("opening local dictionary", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigInvalid, "parse postgres dsn")
	}
	pc.MaxConns = 4
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "wordlens"

	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, errors.Wrap(err, errors.LocalLookupFailed, "connect postgres")
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.LocalLookupFailed, "ping postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, word string) (Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx, postgresQuery, word).Scan(&r.Word, &r.Phonetic, &r.Definition, &r.Translation)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return Row{}, errors.Wrap(err, errors.LocalLookupFailed, "word not in local dictionary").WithMetadata("word", word)
	}
	if err != nil {
		return Row{}, errors.Wrap(err, errors.LocalLookupFailed, "query local dictionary").WithMetadata("word", word)
	}
	return r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
