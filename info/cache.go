package info

import (
	"context"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/mpfront/mpfront/filesystem"
	"github.com/mpfront/mpfront/key"
	"github.com/mpfront/mpfront/log"
	"github.com/mpfront/mpfront/where"
	"github.com/spf13/viper"
)

const defaultLifetime = 24 * time.Hour

var cacher = sync.OnceValue(func() *gache.Cache[map[string]*Report] {
	lifetime := time.Duration(viper.GetInt(key.InfoCacheHours)) * time.Hour
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}

	return gache.New[map[string]*Report](&gache.Options{
		Path:       where.Info(),
		Lifetime:   lifetime,
		FileSystem: &filesystem.GacheFs{},
	})
})

// Get returns the cached report for src, collecting a new one when the cache
// is missing, expired or refresh is set.
func Get(ctx context.Context, src Source, refresh bool) (*Report, error) {
	cached, expired, err := cacher().Get()
	if err != nil {
		log.Warnf("info cache: %v", err)
	}
	if err != nil || expired || cached == nil {
		cached = make(map[string]*Report)
	}

	if report, ok := cached[src.key()]; ok && !refresh {
		log.Debugf("info: cache hit for %s", src.key())
		return report, nil
	}

	report, err := Collect(ctx, src)
	if err != nil {
		return nil, err
	}

	cached[src.key()] = report
	if err := cacher().Set(cached); err != nil {
		log.Warnf("info cache: %v", err)
	}

	return report, nil
}
