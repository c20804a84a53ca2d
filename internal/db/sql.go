// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/warden/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// UserModel maps the users table.
type UserModel struct {
	bun.BaseModel `bun:"table:users"`
	Username      string         `bun:"username,pk"`
	Password      sql.NullString `bun:"password"`
}

// PermissionModel maps user_permissions. Position keeps grant order stable.
type PermissionModel struct {
	bun.BaseModel `bun:"table:user_permissions"`
	Username      string `bun:"username,pk"`
	Permission    string `bun:"permission,pk"`
	Position      int    `bun:"position"`
}

// SQLBackend stores users through Bun on sqlite, postgres or mysql.
type SQLBackend struct {
	kind string
	bun  *bun.DB
}

// driverFor maps a backend kind to its registered database/sql driver.
// The pgx stdlib registers driver name "pgx".
func driverFor(kind string) string {
	if kind == KindPostgres {
		return "pgx"
	}
	return kind
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func isMemorySQLite(kind, dsn string) bool {
	return kind == KindSQLite && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory"))
}

// NewSQLBackend opens dsn, runs migrations and returns a Bun-backed store.
func NewSQLBackend(kind, dsn string) (*SQLBackend, error) {
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverFor(kind), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 300
	)
	maxOpen := envInt("WARDEN_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("WARDEN_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	connMax := time.Duration(envInt("WARDEN_DB_CONN_MAX_LIFETIME_SECONDS", defaultConnMaxLifetime)) * time.Second

	// Each sqlite connection to an in-memory database sees its own copy, so
	// pin to one connection.
	if isMemorySQLite(kind, dsn) {
		maxOpen = 1
		maxIdle = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	dbLogf("db: opened %s driver in %s (conn max open=%d, maxLifetime=%s)", driverFor(kind), time.Since(start), maxOpen, connMax)

	if err := RunMigrations(sqlDB, kind); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLBackend{kind: kind, bun: createBunDB(sqlDB, kind)}, nil
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and kind.
func createBunDB(sqlDB *sql.DB, kind string) *bun.DB {
	switch kind {
	case KindPostgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case KindMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// Kind returns the backend kind.
func (s *SQLBackend) Kind() string { return s.kind }

// Load reads every user and its permissions.
func (s *SQLBackend) Load(ctx context.Context) (map[string]model.User, error) {
	var um []UserModel
	if err := s.bun.NewSelect().Model(&um).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	var pm []PermissionModel
	if err := s.bun.NewSelect().Model(&pm).OrderExpr("username, position").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	users := make(map[string]model.User, len(um))
	for _, u := range um {
		users[u.Username] = model.User{
			Username:    u.Username,
			Password:    u.Password.String,
			Permissions: []string{},
		}
	}
	for _, p := range pm {
		u, ok := users[p.Username]
		if !ok {
			// orphaned permission row; the user row is authoritative
			continue
		}
		u.Permissions = append(u.Permissions, p.Permission)
		users[p.Username] = u
	}
	return users, nil
}

// Save replaces both tables inside one transaction.
func (s *SQLBackend) Save(ctx context.Context, users map[string]model.User) error {
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	um := make([]UserModel, 0, len(names))
	var pm []PermissionModel
	for _, name := range names {
		u := users[name]
		um = append(um, UserModel{
			Username: name,
			Password: sql.NullString{String: u.Password, Valid: u.Password != ""},
		})
		for i, p := range u.Permissions {
			pm = append(pm, PermissionModel{Username: name, Permission: p, Position: i})
		}
	}

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Bun refuses Delete without WHERE, so clear the tables with raw SQL.
	if _, err := ExecRaw(ctx, tx, "DELETE FROM user_permissions"); err != nil {
		return fmt.Errorf("failed to clear permissions: %w", err)
	}
	if _, err := ExecRaw(ctx, tx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	if len(um) > 0 {
		if _, err := tx.NewInsert().Model(&um).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert users: %w", MapDBError(err))
		}
	}
	if len(pm) > 0 {
		if _, err := tx.NewInsert().Model(&pm).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert permissions: %w", MapDBError(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	dbLogf("db: saved %d users (%d permissions) to %s", len(um), len(pm), s.kind)
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLBackend) Close() error { return s.bun.Close() }
