package cache

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("cache: key not found")

// client is the shared redis client backing every Set. It is populated once
// during app bootstrap, before any cache is constructed.
var client *redis.Client

func Init(c *redis.Client) {
	client = c
}
