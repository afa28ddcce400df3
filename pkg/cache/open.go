package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendTiered = "tiered"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is one of none, file, redis, mongo or tiered. Tiered puts
	// the file cache in front of Redis when RedisAddr is set, else MongoDB.
	Backend string

	Dir   string
	TTL   time.Duration
	Redis RedisOptions
	Mongo MongoOptions
}

// Open creates the configured backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		return orNil(NewFileCache(opts.Dir))
	case BackendRedis:
		return orNil(NewRedisCache(ctx, opts.Redis))
	case BackendMongo:
		return orNil(NewMongoCache(ctx, opts.Mongo))
	case BackendTiered:
		local, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		var remote Cache
		if opts.Redis.Addr != "" {
			remote, err = orNil(NewRedisCache(ctx, opts.Redis))
		} else {
			remote, err = orNil(NewMongoCache(ctx, opts.Mongo))
		}
		if err != nil {
			return nil, err
		}
		t := NewTiered(local, remote)
		if opts.TTL > 0 {
			t.BackfillTTL = opts.TTL
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// orNil keeps a failed constructor from returning a typed nil Cache.
func orNil[C Cache](c C, err error) (Cache, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
