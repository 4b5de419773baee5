package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

const (
	DefaultMongoDatabase   = "currency"
	DefaultMongoCollection = "exchange_rates"
)

type (
	mongoStorage struct {
		client     *mongo.Client
		collection *mongo.Collection
	}

	rateDocument struct {
		ID        string               `bson:"_id"`
		Base      string               `bson:"base"`
		Quote     string               `bson:"quote"`
		Provider  string               `bson:"provider"`
		Rate      primitive.Decimal128 `bson:"rate"`
		AsOf      time.Time            `bson:"asOf"`
		CreatedAt time.Time            `bson:"createdAt"`
	}
)

// NewMongoStorage uses an existing collection; Close leaves its client
// connected.
func NewMongoStorage(collection *mongo.Collection) currency.Storage {
	return mongoStorage{collection: collection}
}

func NewMongoDBStorage(ctx context.Context, config MongoDBConfig) (currency.Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("%w: mongodb uri is required", currency.ErrConfiguration)
	}

	if config.Database == "" {
		config.Database = DefaultMongoDatabase
	}

	if config.Collection == "" {
		config.Collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.ConnectionString))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	st := mongoStorage{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}

	if config.Migrate {
		if err := st.Migrate(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	return st, nil
}

func (m mongoStorage) Store(ctx context.Context, records []currency.RateRecord) ([]currency.RateRecord, error) {
	if len(records) == 0 {
		return []currency.RateRecord{}, nil
	}

	documents := make([]interface{}, 0, len(records))
	stored := make([]currency.RateRecord, 0, len(records))

	for _, record := range records {
		rate, err := primitive.ParseDecimal128(record.Rate.String())
		if err != nil {
			return nil, fmt.Errorf("converting rate %s/%s: %w", record.Base, record.Quote, err)
		}

		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}

		record.ID = uuid.NewString()
		documents = append(documents, rateDocument{
			ID:        record.ID.(string),
			Base:      record.Base,
			Quote:     record.Quote,
			Provider:  record.Provider.String(),
			Rate:      rate,
			AsOf:      record.AsOf,
			CreatedAt: record.CreatedAt,
		})
		stored = append(stored, record)
	}

	if _, err := m.collection.InsertMany(ctx, documents); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", m.collection.Name(), err)
	}

	return stored, nil
}

func (m mongoStorage) Get(ctx context.Context, base, quote string, page, perPage int64) ([]currency.RateRecord, error) {
	if err := validatePage(page, perPage); err != nil {
		return nil, err
	}

	filter := bson.M{
		"base":  base,
		"quote": quote,
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "asOf", Value: -1}}).
		SetSkip((page - 1) * perPage).
		SetLimit(perPage)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", m.collection.Name(), err)
	}

	defer cursor.Close(ctx)

	records := make([]currency.RateRecord, 0, perPage)

	for cursor.Next(ctx) {
		var document rateDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", m.collection.Name(), err)
		}

		rate, err := decimal.NewFromString(document.Rate.String())
		if err != nil {
			return nil, fmt.Errorf("invalid rate in %s: %w", m.collection.Name(), err)
		}

		records = append(records, currency.RateRecord{
			ID:        document.ID,
			Base:      document.Base,
			Quote:     document.Quote,
			Provider:  currency.ProviderName(document.Provider),
			Rate:      rate,
			AsOf:      document.AsOf.UTC(),
			CreatedAt: document.CreatedAt.UTC(),
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", m.collection.Name(), err)
	}

	return records, nil
}

func (m mongoStorage) GetStorageProviderName() string {
	return string(MongoDB)
}

func (m mongoStorage) Migrate(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "base", Value: 1}, {Key: "quote", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating index on %s: %w", m.collection.Name(), err)
	}

	return nil
}

func (m mongoStorage) Drop(ctx context.Context) error {
	if err := m.collection.Drop(ctx); err != nil {
		return fmt.Errorf("dropping %s: %w", m.collection.Name(), err)
	}

	return nil
}

func (m mongoStorage) Close() error {
	if m.client == nil {
		return nil
	}

	return m.client.Disconnect(context.Background())
}
