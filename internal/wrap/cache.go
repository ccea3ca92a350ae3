package wrap

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"mapsect/internal/crs"
)

var (
	cacheOnce sync.Once
	checkers  *ristretto.Cache[string, *Checker]
)

func checkerCache() *ristretto.Cache[string, *Checker] {
	cacheOnce.Do(func() {
		c, err := ristretto.NewCache(&ristretto.Config[string, *Checker]{
			NumCounters: 1 << 12,
			MaxCost:     1 << 8,
			BufferItems: 64,
		})
		if err != nil {
			logger.Warn("checker cache disabled", zap.Error(err))
			return
		}
		checkers = c
	})
	return checkers
}

// CheckerFor returns the Checker for c, probing the CRS only the first time
// it is seen. Probing is deterministic so a cache miss only costs time.
func CheckerFor(c crs.CRS) *Checker {
	cache := checkerCache()
	if cache == nil {
		return NewChecker(c)
	}
	id := c.ID()
	if w, ok := cache.Get(id); ok {
		return w
	}
	w := NewChecker(c)
	cache.Set(id, w, 1)
	return w
}
