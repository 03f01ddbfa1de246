package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// UpdateCommand asks for a partial update of a book. IfMatch, when set,
// overrides the version read from the server.
type UpdateCommand struct {
	ID      int
	Patch   Patch
	Token   string
	IfMatch string
}

// Updater applies partial patches with optimistic concurrency: it reads
// the current book, merges the patch onto its writable fields and sends
// a PUT conditioned on the version it read. Lost races are reported by
// the server and surface as ErrConflict.
type Updater struct {
	logger *zap.Logger
	books  BookReadWriter
}

// NewUpdater provides an Updater working through the given book client.
func NewUpdater(logger *zap.Logger, books BookReadWriter) *Updater {
	return &Updater{logger: logger, books: books}
}

// Update runs fetch, merge and conditional write in sequence and returns
// the raw write response.
func (u *Updater) Update(ctx context.Context, cmd UpdateCommand) (*http.Response, error) {
	baseline, err := u.books.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("update book %d: fetch baseline: %w", cmd.ID, err)
	}

	ifMatch := cmd.IfMatch
	if ifMatch == "" {
		if baseline.Version == nil {
			return nil, fmt.Errorf("update book %d: %w", cmd.ID, ErrVersionUnknown)
		}
		ifMatch = strconv.Itoa(*baseline.Version)
	}

	merged := cmd.Patch.Apply(baseline.UpdateRequest())
	u.logger.Debug("updating book",
		zap.Int("book.id", cmd.ID),
		zap.String("book.if_match", QuoteETag(ifMatch)),
		zap.Bool("book.patch_empty", cmd.Patch.IsEmpty()),
	)
	return u.books.Put(ctx, cmd.ID, merged, ifMatch, cmd.Token)
}
