package parsers

import "github.com/google/uuid"

func newPatternID() string { return uuid.New().String() }
