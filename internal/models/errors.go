package models

import (
	"errors"
)

// Common retention-etl errors
var (
	// Dataset errors
	ErrMalformedRecord = errors.New("malformed activity record")
	ErrUnknownRegion   = errors.New("unknown region")

	// Acquisition errors
	ErrSourceQuery = errors.New("source query failed")

	// Persistence errors
	ErrNoPrimaryKey  = errors.New("destination table declares no primary key")
	ErrUnknownColumn = errors.New("row column not present in destination table")
	ErrUpsertFailed  = errors.New("upsert failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
