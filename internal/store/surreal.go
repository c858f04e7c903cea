package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/reportloom/reportloom/internal/report"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// Surreal is the SurrealDB-backed Store, connected over an
// auto-reconnecting WebSocket.
type Surreal struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    Config
	logger logger.Logger
}

// reportRecord pairs the aggregate with its SurrealDB record id for reads.
type reportRecord struct {
	ID surrealmodels.RecordID `json:"id"`
	report.Report
}

// NewSurreal connects, authenticates, and selects the namespace/database.
func NewSurreal(ctx context.Context, cfg Config, log *slog.Logger) (*Surreal, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB's custom CBOR tags.
	codec := surrealcbor.New()

	// gorillaws expects the base URL without the /rpc suffix; it appends it.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	sdkLogger.Info("authenticating", "user", cfg.Username, "auth_level", cfg.AuthLevel)
	if cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			Username:  cfg.Username,
			Password:  cfg.Password,
		})
	} else {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established")
	return &Surreal{conn: conn, db: db, cfg: cfg, logger: sdkLogger}, nil
}

// Close closes the SurrealDB connection.
func (s *Surreal) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

// InitSchema initializes the report table schema.
func (s *Surreal) InitSchema(ctx context.Context) error {
	s.logger.Info("initializing database schema")
	if _, err := surrealdb.Query[any](ctx, s.db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Get returns the report for the session, or ErrNotFound.
func (s *Surreal) Get(ctx context.Context, sessionID string) (*report.Report, error) {
	results, err := surrealdb.Query[[]reportRecord](ctx, s.db, `
		SELECT * FROM type::record("report", $id)
	`, map[string]any{"id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("get report: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	r := (*results)[0].Result[0].Report
	return &r, nil
}

// Put writes the report with the version guard: creates refuse existing
// records, updates refuse stale versions.
func (s *Surreal) Put(ctx context.Context, r *report.Report) error {
	doc := r.Clone()
	expected := doc.Version
	doc.Version = expected + 1
	doc.UpdatedAt = time.Now().UTC()

	if expected == 0 {
		_, err := surrealdb.Query[[]reportRecord](ctx, s.db, `
			CREATE type::record("report", $id) CONTENT $doc
		`, map[string]any{"id": doc.SessionID, "doc": doc})
		if err != nil {
			return fmt.Errorf("create report: %w", wrapQueryError(err))
		}
	} else {
		results, err := surrealdb.Query[[]reportRecord](ctx, s.db, `
			UPDATE type::record("report", $id) CONTENT $doc WHERE version = $expected RETURN AFTER
		`, map[string]any{"id": doc.SessionID, "doc": doc, "expected": expected})
		if err != nil {
			return fmt.Errorf("update report: %w", wrapQueryError(err))
		}
		if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
			return fmt.Errorf("%w: expected version %d for %s", ErrVersionConflict, expected, doc.SessionID)
		}
	}

	r.Version = doc.Version
	r.UpdatedAt = doc.UpdatedAt
	return nil
}

// Sessions lists the session ids of every stored report.
func (s *Surreal) Sessions(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]string](ctx, s.db, `
		SELECT VALUE session_id FROM report
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	return (*results)[0].Result, nil
}

// wrapQueryError maps SurrealDB query errors onto store sentinels. Both
// "already exists" and transaction conflicts mean the caller lost a write
// race and should reload.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrVersionConflict, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrVersionConflict, msg)
		}
	}

	return err
}
