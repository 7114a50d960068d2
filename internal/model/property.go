package model

import (
	"github.com/uptrace/bun"
)

// Property is a runtime-tunable setting. Product-owned constants such as the
// vibe score curve parameters live here instead of in code.
type Property struct {
	bun.BaseModel `bun:"properties"`

	PropertyID int64  `bun:",pk" json:"id"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}
