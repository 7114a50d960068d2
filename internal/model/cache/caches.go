package cache

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/chartloop/backend/internal/model"
	"github.com/chartloop/backend/internal/pkg/cache"
)

type Flusher func() error

var (
	GroupByID *cache.Set[model.Group]

	Groups *cache.Singular[[]*model.Group]

	Chart *cache.Set[[]*model.ChartEntry]

	MajorDriver *cache.Set[model.EntryAttribution]

	GroupRecords *cache.Set[model.GroupRecords]

	// Properties is populated once at startup and read-only afterwards.
	Properties map[string]string

	once sync.Once

	SetMap             map[string]Flusher
	SingularFlusherMap map[string]Flusher
)

func Initialize(client *redis.Client) {
	once.Do(func() {
		cache.Init(client)
		initializeCaches()
	})
}

func initializeCaches() {
	SetMap = make(map[string]Flusher)
	SingularFlusherMap = make(map[string]Flusher)

	// group
	GroupByID = cache.NewSet[model.Group]("group#groupId")
	Groups = cache.NewSingular[[]*model.Group]("groups")

	SetMap["group#groupId"] = GroupByID.Flush
	SingularFlusherMap["groups"] = Groups.Delete

	// chart
	Chart = cache.NewSet[[]*model.ChartEntry]("chart#groupId|weekStart|entryType")

	SetMap["chart#groupId|weekStart|entryType"] = Chart.Flush

	// attribution
	MajorDriver = cache.NewSet[model.EntryAttribution]("majorDriver#groupId|entryType|entryKey")

	SetMap["majorDriver#groupId|entryType|entryKey"] = MajorDriver.Flush

	// records
	GroupRecords = cache.NewSet[model.GroupRecords]("groupRecords#groupId")

	SetMap["groupRecords#groupId"] = GroupRecords.Flush
}

// PopulateProperties loads the runtime-tunable settings. Called once during
// startup, before anything reads Properties.
func PopulateProperties(properties []*model.Property) {
	Properties = make(map[string]string, len(properties))
	for _, property := range properties {
		Properties[property.Key] = property.Value
	}
}

func Delete(name string) error {
	if flush, ok := SetMap[name]; ok {
		if err := flush(); err != nil {
			return err
		}
	}
	if flush, ok := SingularFlusherMap[name]; ok {
		if err := flush(); err != nil {
			return err
		}
	}
	return nil
}
