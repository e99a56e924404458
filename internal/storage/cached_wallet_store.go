package storage

import (
	"context"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/types"
)

// SnapshotStore is the durable snapshot store behind the cache
type SnapshotStore interface {
	FindByAddress(ctx context.Context, address string) (*models.WalletSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.WalletSnapshot) (*models.WalletSnapshot, error)
	List(ctx context.Context, q models.LeaderboardQuery) ([]*models.WalletSnapshot, error)
}

// CachedWalletStore is a read-through Redis cache in front of a SnapshotStore.
// Cache errors are logged and bypassed; the backing store stays authoritative.
type CachedWalletStore struct {
	store SnapshotStore
	cache *CacheService
}

// NewCachedWalletStore creates a cached store
func NewCachedWalletStore(store SnapshotStore, cache *CacheService) *CachedWalletStore {
	return &CachedWalletStore{store: store, cache: cache}
}

// FindByAddress returns the snapshot for address, consulting Redis first
func (s *CachedWalletStore) FindByAddress(ctx context.Context, address string) (*models.WalletSnapshot, error) {
	address = types.NormalizeAddress(address)
	key := s.cache.SnapshotKey(address)
	log := logging.FromContext(ctx).WithField("address", address)

	var cached models.WalletSnapshot
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Snapshot cache read failed")
	}
	if found {
		return &cached, nil
	}

	snapshot, err := s.store.FindByAddress(ctx, address)
	if err != nil || snapshot == nil {
		return snapshot, err
	}

	if err := s.cache.Set(ctx, key, snapshot); err != nil {
		log.WithError(err).Warn("Snapshot cache write failed")
	}
	return snapshot, nil
}

// Upsert writes through to the backing store, then replaces the cached
// snapshot and drops every cached leaderboard page
func (s *CachedWalletStore) Upsert(ctx context.Context, snapshot *models.WalletSnapshot) (*models.WalletSnapshot, error) {
	stored, err := s.store.Upsert(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).WithField("address", stored.Address)
	if err := s.cache.Set(ctx, s.cache.SnapshotKey(stored.Address), stored); err != nil {
		log.WithError(err).Warn("Snapshot cache write failed")
		// A stale entry must not outlive the write
		if err := s.cache.Invalidate(ctx, s.cache.SnapshotKey(stored.Address)); err != nil {
			log.WithError(err).Warn("Snapshot cache invalidation failed")
		}
	}
	if err := s.cache.InvalidateLeaderboards(ctx); err != nil {
		log.WithError(err).Warn("Leaderboard cache invalidation failed")
	}

	return stored, nil
}

// List returns a leaderboard page, cached for the configured TTL
func (s *CachedWalletStore) List(ctx context.Context, q models.LeaderboardQuery) ([]*models.WalletSnapshot, error) {
	key := s.cache.LeaderboardKey(string(q.SortBy), string(q.Order), q.Limit)
	log := logging.FromContext(ctx).WithField("key", key)

	var cached []*models.WalletSnapshot
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Leaderboard cache read failed")
	}
	if found {
		return cached, nil
	}

	snapshots, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetLeaderboard(ctx, key, snapshots); err != nil {
		log.WithError(err).Warn("Leaderboard cache write failed")
	}
	return snapshots, nil
}
