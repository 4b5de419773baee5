package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	currency "github.com/sunijk/sunij-currencyconversionapi"
)

var ErrNoStorageProvided = errors.New("no storage provided")

// ArchiveService persists the latest snapshots of the configured base
// currencies into every storage.
type ArchiveService struct {
	Provider     currency.Provider
	Storage      []currency.Storage
	ProviderName currency.ProviderName
	Now          func() time.Time
}

func (s ArchiveService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now().UTC()
}

func (s ArchiveService) fetch(ctx context.Context, bases []string) ([]currency.RateRecord, error) {
	createdAt := s.now()
	records := make([]currency.RateRecord, 0, len(bases)*32)

	for _, base := range bases {
		snapshot, err := s.Provider.GetLatestExchangeRates(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("fetching rates for %s: %w", base, err)
		}

		records = append(records, currency.RecordsFromSnapshot(snapshot, s.ProviderName, createdAt)...)
	}

	return records, nil
}

// Save returns the stored records keyed by storage name. The first storage
// failure cancels the remaining writes.
func (s ArchiveService) Save(ctx context.Context, bases []string) (map[string][]currency.RateRecord, error) {
	if len(s.Storage) == 0 {
		return nil, ErrNoStorageProvided
	}

	records, err := s.fetch(ctx, bases)
	if err != nil {
		return nil, err
	}

	var mutex sync.Mutex
	data := make(map[string][]currency.RateRecord, len(s.Storage))
	group, ctx := errgroup.WithContext(ctx)

	for _, storage := range s.Storage {
		storage := storage
		group.Go(func() error {
			batch := make([]currency.RateRecord, len(records))
			copy(batch, records)

			stored, err := storage.Store(ctx, batch)
			if err != nil {
				return fmt.Errorf("storing rates in %s: %w", storage.GetStorageProviderName(), err)
			}

			mutex.Lock()
			data[storage.GetStorageProviderName()] = stored
			mutex.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return data, nil
}
