package main

import (
	"context"
	"net/http"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockBookReadWriter mocks the book client as seen by the update coordinator.
type MockBookReadWriter struct {
	FindByIDFunc func(ctx context.Context, id int) (Book, error)
	PutFunc      func(ctx context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error)
}

// FindByID mocks the behavior of reading a book.
func (m *MockBookReadWriter) FindByID(ctx context.Context, id int) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

// Put mocks the behavior of the conditional write.
func (m *MockBookReadWriter) Put(ctx context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
	return m.PutFunc(ctx, id, body, ifMatch, token)
}

// MockTokenStore keeps the session in memory.
type MockTokenStore struct {
	Session *Session
	SaveErr error
	LoadErr error
	Closed  bool
}

func (m *MockTokenStore) Save(_ context.Context, s Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Session = &s
	return nil
}

func (m *MockTokenStore) Load(_ context.Context) (Session, error) {
	if m.LoadErr != nil {
		return Session{}, m.LoadErr
	}
	if m.Session == nil {
		return Session{}, ErrNoSession
	}
	return *m.Session, nil
}

func (m *MockTokenStore) Clear(_ context.Context) error {
	m.Session = nil
	return nil
}

func (m *MockTokenStore) Close() error {
	m.Closed = true
	return nil
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2024, 0o6, 15, 10, 0o0, 0o0, 0, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `2024-06-15 10:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}
