package model

import (
	"time"

	"github.com/samber/mo"
)

type Article struct {
	ID       string
	Title    string
	URL      string
	Category mo.Option[string]
	AddedAt  time.Time
	Selected bool
}
