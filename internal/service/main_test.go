package service

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"

	"github.com/chartloop/backend/internal/infra"
	modelcache "github.com/chartloop/backend/internal/model/cache"
)

// testRedsync is backed by the shared miniredis instance started in TestMain.
var testRedsync *redsync.Redsync

func TestMain(m *testing.M) {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	modelcache.Initialize(client)
	testRedsync = infra.RedSync(client)

	code := m.Run()
	mr.Close()
	os.Exit(code)
}
