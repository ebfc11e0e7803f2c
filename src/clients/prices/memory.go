package prices

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
)

type observation struct {
	day   time.Time
	price decimal.Decimal
}

// MemoryPriceStore keeps price history in process. Lookups carry the most
// recent observation on or before the requested day forward.
type MemoryPriceStore struct {
	mu      sync.RWMutex
	history map[string][]observation
}

func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{history: make(map[string][]observation)}
}

// SetPrice records the observed price of an asset on a day, replacing any
// earlier observation for that day.
func (s *MemoryPriceStore) SetPrice(ctx context.Context, assetID string, date time.Time, price decimal.Decimal) error {
	if date.IsZero() {
		return fmt.Errorf("%w: empty price date", utils.ErrInvalidDate)
	}
	day := utils.Day(date)

	s.mu.Lock()
	defer s.mu.Unlock()
	obs := s.history[assetID]
	i := sort.Search(len(obs), func(i int) bool { return !obs[i].day.Before(day) })
	if i < len(obs) && obs[i].day.Equal(day) {
		obs[i].price = price
		return nil
	}
	obs = append(obs, observation{})
	copy(obs[i+1:], obs[i:])
	obs[i] = observation{day: day, price: price}
	s.history[assetID] = obs
	return nil
}

func (s *MemoryPriceStore) GetPriceAtDate(ctx context.Context, assetID string, date time.Time) (models.PriceQuote, error) {
	day := utils.Day(date)

	s.mu.RLock()
	defer s.mu.RUnlock()
	obs := s.history[assetID]
	i := sort.Search(len(obs), func(i int) bool { return obs[i].day.After(day) })
	if i == 0 {
		return models.PriceQuote{}, fmt.Errorf("%w: %s on %s", models.ErrPriceUnavailable, assetID, day.Format(utils.ShortDashDateLayout))
	}
	found := obs[i-1]
	return models.PriceQuote{
		AssetID:        assetID,
		Date:           day,
		Price:          found.price,
		IsInterpolated: !found.day.Equal(day),
	}, nil
}
