package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func floatPtr(f float64) *float64 { return &f }

// Ensure a patch goes through with the fresh version and that replaying
// the same precondition after a write is rejected.
func TestUpdater_FreshThenStale(t *testing.T) {
	fc := newFakeCatalog(t)
	books, _ := newTestClients(t, fc)
	updater := NewUpdater(zap.NewNop(), books)

	resp, err := books.Create(context.Background(), sampleCreateRequest(), fakeToken)
	require.NoError(t, err)
	id, err := CreatedID(resp)
	require.NoError(t, err)

	resp, err = updater.Update(context.Background(), UpdateCommand{ID: id, Patch: Patch{Discount: floatPtr(0.1)}, Token: fakeToken})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, _ := fc.stored(id)
	assert.Equal(t, 0.1, stored.Discount)
	assert.Equal(t, 29.99, stored.Price)
	assert.Equal(t, 5, stored.Rating)
	assert.Equal(t, KindHardcover, stored.Kind)
	assert.Equal(t, []string{"JAVASCRIPT", "TYPESCRIPT"}, stored.Keywords)
	assert.Equal(t, 1, *stored.Version)

	// version 0 was consumed by the first update.
	_, err = updater.Update(context.Background(), UpdateCommand{ID: id, Patch: Patch{Discount: floatPtr(0.2)}, Token: fakeToken, IfMatch: "0"})
	assert.ErrorIs(t, err, ErrConflict)
	stored, _ = fc.stored(id)
	assert.Equal(t, 0.1, stored.Discount)
}

func TestUpdater_VersionFromETag(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.etagOnly = true
	books, _ := newTestClients(t, fc)
	id := fc.seed(sampleCreateRequest())

	_, err := NewUpdater(zap.NewNop(), books).Update(context.Background(), UpdateCommand{ID: id, Patch: Patch{Price: floatPtr(10)}, Token: fakeToken})
	require.NoError(t, err)
	assert.Equal(t, `"0"`, fc.headers().Get("If-Match"))
}

func TestUpdater_NotFound(t *testing.T) {
	fc := newFakeCatalog(t)
	books, _ := newTestClients(t, fc)

	_, err := NewUpdater(zap.NewNop(), books).Update(context.Background(), UpdateCommand{ID: 404, Token: fakeToken})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, fc.headers().Get("If-Match"), "no write must follow a failed read")
}

func TestUpdater_Unauthorized(t *testing.T) {
	fc := newFakeCatalog(t)
	books, _ := newTestClients(t, fc)
	id := fc.seed(sampleCreateRequest())

	_, err := NewUpdater(zap.NewNop(), books).Update(context.Background(), UpdateCommand{ID: id, Token: "expired"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdater_Mocked(t *testing.T) {
	version := 4
	baseline := Book{ID: 1, ISBN: "1234567890", Rating: 2, Kind: KindEpub, Price: 5, Version: &version}

	t.Run("uses baseline version", func(t *testing.T) {
		var gotBody UpdateRequest
		var gotIfMatch, gotToken string
		mock := &MockBookReadWriter{
			FindByIDFunc: func(_ context.Context, id int) (Book, error) { return baseline, nil },
			PutFunc: func(_ context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
				gotBody, gotIfMatch, gotToken = body, ifMatch, token
				return &http.Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
			},
		}
		rating := 5
		_, err := NewUpdater(zap.NewNop(), mock).Update(context.Background(), UpdateCommand{ID: 1, Patch: Patch{Rating: &rating}, Token: "tk"})
		require.NoError(t, err)
		assert.Equal(t, "4", gotIfMatch)
		assert.Equal(t, "tk", gotToken)
		assert.Equal(t, 5, gotBody.Rating)
		assert.Equal(t, 5.0, gotBody.Price)
	})

	t.Run("explicit if-match wins", func(t *testing.T) {
		var gotIfMatch string
		mock := &MockBookReadWriter{
			FindByIDFunc: func(_ context.Context, id int) (Book, error) { return baseline, nil },
			PutFunc: func(_ context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
				gotIfMatch = ifMatch
				return &http.Response{StatusCode: http.StatusNoContent}, nil
			},
		}
		_, err := NewUpdater(zap.NewNop(), mock).Update(context.Background(), UpdateCommand{ID: 1, IfMatch: "2"})
		require.NoError(t, err)
		assert.Equal(t, "2", gotIfMatch)
	})

	t.Run("unknown version", func(t *testing.T) {
		putCalled := false
		mock := &MockBookReadWriter{
			FindByIDFunc: func(_ context.Context, id int) (Book, error) { return Book{ID: 1, ISBN: "x"}, nil },
			PutFunc: func(_ context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
				putCalled = true
				return nil, nil
			},
		}
		_, err := NewUpdater(zap.NewNop(), mock).Update(context.Background(), UpdateCommand{ID: 1})
		assert.ErrorIs(t, err, ErrVersionUnknown)
		assert.False(t, putCalled)
	})

	t.Run("read failure", func(t *testing.T) {
		readErr := errors.New("network down")
		mock := &MockBookReadWriter{
			FindByIDFunc: func(_ context.Context, id int) (Book, error) { return Book{}, readErr },
		}
		_, err := NewUpdater(zap.NewNop(), mock).Update(context.Background(), UpdateCommand{ID: 1})
		assert.ErrorIs(t, err, readErr)
	})

	t.Run("conflict passes through", func(t *testing.T) {
		mock := &MockBookReadWriter{
			FindByIDFunc: func(_ context.Context, id int) (Book, error) { return baseline, nil },
			PutFunc: func(_ context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
				return nil, newHTTPError("update book", http.StatusPreconditionFailed, id)
			},
		}
		_, err := NewUpdater(zap.NewNop(), mock).Update(context.Background(), UpdateCommand{ID: 1})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, http.StatusPreconditionFailed, StatusOf(err))
	})
}
