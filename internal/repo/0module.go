package repo

import (
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("repo", fx.Provide(
		NewGroup,
		NewProperty,
		NewGroupMember,
		NewChartEntry,
		NewGroupRecords,
		NewEntryAttribution,
		NewMemberWeeklyStats,
		NewMemberEntryContribution,
	))
}
