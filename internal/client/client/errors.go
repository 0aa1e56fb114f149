package client

import "github.com/dmitrijs2005/migrainelog/internal/common"

var (
	ErrUnavailable  = common.ErrorUnavailable
	ErrUnauthorized = common.ErrorUnauthorized
)
