package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const (
	MySQLTimeFormat = "2006-01-02 15:04:05"

	DefaultMySQLTable = "exchange_rates"
)

var ErrNotEnoughBytesInGenerator = errors.New("id generator must produce at least 16 bytes")

type (
	IDGenerator interface {
		Generate() []byte
	}

	UUIDGenerator struct{}

	mysqlStorage struct {
		db          *sql.DB
		idGenerator IDGenerator
		tableName   string
	}
)

func (UUIDGenerator) Generate() []byte {
	id := uuid.New()
	return id[:]
}

// NewSQLStorage wraps an open database handle. A nil generator falls back to
// random uuids.
func NewSQLStorage(ctx context.Context, db *sql.DB, idGenerator IDGenerator, tableName string, migrate bool) (currency.Storage, error) {
	if tableName == "" {
		tableName = DefaultMySQLTable
	}

	if !identifier.MatchString(tableName) {
		return nil, fmt.Errorf("%w: invalid table name %q", currency.ErrConfiguration, tableName)
	}

	if idGenerator == nil {
		idGenerator = UUIDGenerator{}
	}

	st := mysqlStorage{
		db:          db,
		idGenerator: idGenerator,
		tableName:   tableName,
	}

	if migrate {
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	return st, nil
}

func NewMySQLStorage(ctx context.Context, config MySQLConfig) (currency.Storage, error) {
	driverConfig, err := mysql.ParseDSN(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing mysql dsn: %v", currency.ErrConfiguration, err)
	}

	driverConfig.ParseTime = true
	driverConfig.Loc = time.UTC

	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: mysql connector: %v", currency.ErrConfiguration, err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to mysql %s: %w", driverConfig.Addr, err)
	}

	st, err := NewSQLStorage(ctx, db, config.IDGenerator, config.TableName, config.Migrate)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return st, nil
}

func (m mysqlStorage) Store(ctx context.Context, records []currency.RateRecord) ([]currency.RateRecord, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s(id, base, quote, provider, rate, as_of, created_at) VALUES (?,?,?,?,?,?,?);", m.tableName))
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	defer stmt.Close()

	stored := make([]currency.RateRecord, 0, len(records))

	for _, record := range records {
		id, err := uuid.FromBytes(m.generateID())
		if err != nil {
			_ = tx.Rollback()
			return nil, ErrNotEnoughBytesInGenerator
		}

		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}

		_, err = stmt.ExecContext(ctx,
			id[:],
			record.Base,
			record.Quote,
			record.Provider.String(),
			record.Rate,
			record.AsOf.Format(currency.DateLayout),
			record.CreatedAt.UTC().Format(MySQLTimeFormat),
		)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("inserting %s/%s: %w", record.Base, record.Quote, err)
		}

		record.ID = id
		stored = append(stored, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stored, nil
}

func (m mysqlStorage) generateID() []byte {
	id := m.idGenerator.Generate()
	if len(id) < 16 {
		return id
	}

	return id[:16]
}

// Get returns archived rates for the pair, newest first.
func (m mysqlStorage) Get(ctx context.Context, base, quote string, page, perPage int64) ([]currency.RateRecord, error) {
	if err := validatePage(page, perPage); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, base, quote, provider, rate, as_of, created_at FROM %s WHERE base = ? AND quote = ? ORDER BY created_at DESC, as_of DESC LIMIT ? OFFSET ?;",
		m.tableName,
	)

	rows, err := m.db.QueryContext(ctx, query, base, quote, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.tableName, err)
	}

	defer rows.Close()

	records := make([]currency.RateRecord, 0, perPage)

	for rows.Next() {
		var (
			id       []byte
			provider string
			record   currency.RateRecord
		)

		if err := rows.Scan(&id, &record.Base, &record.Quote, &provider, &record.Rate, &record.AsOf, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", m.tableName, err)
		}

		parsed, err := uuid.FromBytes(id)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %s: %w", m.tableName, err)
		}

		record.ID = parsed
		record.Provider = currency.ProviderName(provider)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.tableName, err)
	}

	return records, nil
}

func (m mysqlStorage) GetStorageProviderName() string {
	return string(MySQL)
}

func (m mysqlStorage) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
	id BINARY(16) NOT NULL PRIMARY KEY,
	base CHAR(3) NOT NULL,
	quote CHAR(3) NOT NULL,
	provider VARCHAR(50) NOT NULL,
	rate DECIMAL(30,12) NOT NULL,
	as_of DATE NOT NULL,
	created_at DATETIME NOT NULL,
	INDEX %s_pair_idx(base, quote, created_at)
);`, m.tableName, m.tableName)

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrating %s: %w", m.tableName, err)
	}

	return nil
}

func (m mysqlStorage) Drop(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", m.tableName)); err != nil {
		return fmt.Errorf("dropping %s: %w", m.tableName, err)
	}

	return nil
}

func (m mysqlStorage) Close() error {
	return m.db.Close()
}
