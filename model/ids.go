// Package model holds the data types shared across every engine component:
// the entities of spec.md §3 and the internal Instance shape computed by
// the generator.
package model

import "github.com/google/uuid"

// SeriesId is an opaque 128-bit identifier rendered as hyphenated hex.
type SeriesId string

// CompletionId is an opaque 128-bit identifier rendered as hyphenated hex.
type CompletionId string

// LinkId is an opaque 128-bit identifier rendered as hyphenated hex.
type LinkId string

// NewSeriesId generates a fresh random SeriesId.
func NewSeriesId() SeriesId { return SeriesId(uuid.NewString()) }

// NewCompletionId generates a fresh random CompletionId.
func NewCompletionId() CompletionId { return CompletionId(uuid.NewString()) }

// NewLinkId generates a fresh random LinkId.
func NewLinkId() LinkId { return LinkId(uuid.NewString()) }
