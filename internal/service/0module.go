package service

import (
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("service", fx.Provide(
		NewGroup,
		NewChart,
		NewScorer,
		NewArchive,
		NewRecords,
		NewGeneration,
		NewAttribution,
		NewGroupMember,
		NewMemberStats,
		NewHealth,
	))
}
