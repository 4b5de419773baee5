package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	currency "github.com/sunijk/sunij-currencyconversionapi"
	"github.com/sunijk/sunij-currencyconversionapi/storage"
)

func decimal128(t *testing.T, value string) primitive.Decimal128 {
	t.Helper()
	d, err := primitive.ParseDecimal128(value)
	require.Nil(t, err)

	return d
}

func TestMongoStorage(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("Store", func(mt *mtest.T) {
		asserts := require.New(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		st := storage.NewMongoStorage(mt.Coll)

		stored, err := st.Store(ctx, records())

		asserts.Nil(err)
		asserts.Len(stored, 2)
		for _, record := range stored {
			id, ok := record.ID.(string)
			asserts.True(ok)
			_, err := uuid.Parse(id)
			asserts.Nil(err)
		}
		asserts.Equal("mongodb", st.GetStorageProviderName())
	})

	mt.Run("StoreNothing", func(mt *mtest.T) {
		asserts := require.New(mt)
		st := storage.NewMongoStorage(mt.Coll)

		stored, err := st.Store(ctx, nil)

		asserts.Nil(err)
		asserts.Empty(stored)
	})

	mt.Run("StoreWriteError", func(mt *mtest.T) {
		asserts := require.New(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		st := storage.NewMongoStorage(mt.Coll)

		stored, err := st.Store(ctx, records())

		asserts.Nil(stored)
		asserts.NotNil(err)
		asserts.Contains(err.Error(), "duplicate key error")
	})

	mt.Run("Get", func(mt *mtest.T) {
		asserts := require.New(mt)
		asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		namespace := mt.DB.Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "0b6b2f7e-5a53-4b8e-9d1a-51a1e4c4c001"},
				{Key: "base", Value: "EUR"},
				{Key: "quote", Value: "USD"},
				{Key: "provider", Value: "Frankfurter"},
				{Key: "rate", Value: decimal128(mt.T, "1.0812")},
				{Key: "asOf", Value: asOf},
				{Key: "createdAt", Value: createdAt},
			},
			bson.D{
				{Key: "_id", Value: "0b6b2f7e-5a53-4b8e-9d1a-51a1e4c4c002"},
				{Key: "base", Value: "EUR"},
				{Key: "quote", Value: "USD"},
				{Key: "provider", Value: "Frankfurter"},
				{Key: "rate", Value: decimal128(mt.T, "1.0799")},
				{Key: "asOf", Value: asOf.AddDate(0, 0, -1)},
				{Key: "createdAt", Value: createdAt.Add(-24 * time.Hour)},
			},
		))
		st := storage.NewMongoStorage(mt.Coll)

		result, err := st.Get(ctx, "EUR", "USD", 1, 10)

		asserts.Nil(err)
		asserts.Len(result, 2)
		asserts.Equal("0b6b2f7e-5a53-4b8e-9d1a-51a1e4c4c001", result[0].ID)
		asserts.Equal(currency.FrankfurterProvider, result[0].Provider)
		asserts.Equal("1.0812", result[0].Rate.String())
		asserts.Equal(asOf, result[0].AsOf)
		asserts.Equal("1.0799", result[1].Rate.String())
	})

	mt.Run("GetInvalidPage", func(mt *mtest.T) {
		asserts := require.New(mt)
		st := storage.NewMongoStorage(mt.Coll)

		_, err := st.Get(ctx, "EUR", "USD", 1, 0)

		asserts.ErrorIs(err, currency.ErrValidation)
	})

	mt.Run("GetCommandError", func(mt *mtest.T) {
		asserts := require.New(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
			Name:    "BadValue",
		}))
		st := storage.NewMongoStorage(mt.Coll)

		_, err := st.Get(ctx, "EUR", "USD", 1, 10)

		asserts.NotNil(err)
		asserts.Contains(err.Error(), "bad query")
	})

	mt.Run("MigrateDropClose", func(mt *mtest.T) {
		asserts := require.New(mt)
		st := storage.NewMongoStorage(mt.Coll)

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		asserts.Nil(st.Migrate(ctx))

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		asserts.Nil(st.Drop(ctx))

		asserts.Nil(st.Close())
	})
}

func TestNewMongoDBStorage_MissingURI(t *testing.T) {
	t.Parallel()
	asserts := require.New(t)

	_, err := storage.NewMongoDBStorage(context.Background(), storage.MongoDBConfig{})

	asserts.ErrorIs(err, currency.ErrConfiguration)
}
