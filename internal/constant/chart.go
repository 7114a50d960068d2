package constant

const (
	// Chart modes decide how a member's weekly playcounts translate into
	// per-entry contribution values.
	ChartModePlaysOnly  = "plays_only"
	ChartModeVibe       = "vs"
	ChartModeVibeWeight = "vs_weighted"

	EntryTypeArtist = "artist"
	EntryTypeTrack  = "track"
	EntryTypeAlbum  = "album"

	// Entry lifecycle within a weekly chart.
	LifecycleNew        = "new"
	LifecycleReEntry    = "re-entry"
	LifecycleContinuing = "continuing"

	// Records calculation status.
	RecordsStatusCalculating = "calculating"
	RecordsStatusCompleted   = "completed"
	RecordsStatusFailed      = "failed"

	// Generation progress stages, observable through the status endpoint.
	StageFetching = "fetching"
	StageCharting = "charting"
	StageRecords  = "records"

	// Property keys for product-owned tunables.
	PropertyVibeRankExponent = "vibe_rank_exponent"
)

var (
	EntryTypes = []string{EntryTypeArtist, EntryTypeTrack, EntryTypeAlbum}

	ChartSizes = []int{10, 20, 50, 100}
)
