package main

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FindAll walks every page of the result set. The first page is read to
// learn the page count, the rest are fetched concurrently with at most
// maxParallel requests in flight. Books are returned in page order and
// the first failure cancels the remaining fetches.
func (bc *BookClient) FindAll(ctx context.Context, c Criteria, size int) ([]Book, error) {
	first, err := bc.FindByCriteria(ctx, c, Pagination{Page: 0, Size: size})
	if err != nil {
		return nil, err
	}
	if first.Meta.Size > 0 {
		size = first.Meta.Size
	}

	total := first.Meta.TotalPages
	if total < 1 {
		total = 1
	}
	pages := make([][]Book, total)
	pages[0] = first.Content

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(bc.maxParallel)
	for n := 1; n < total; n++ {
		n := n
		g.Go(func() error {
			page, err := bc.FindByCriteria(gCtx, c, Pagination{Page: n, Size: size})
			if err != nil {
				return err
			}
			pages[n] = page.Content
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	count := 0
	for _, content := range pages {
		count += len(content)
	}
	books := make([]Book, 0, count)
	for _, content := range pages {
		books = append(books, content...)
	}
	bc.logger.Debug("fetched all pages", zap.Int("pages", total), zap.Int("books", len(books)))
	return books, nil
}
