package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// BookReader reads single books.
type BookReader interface {
	FindByID(ctx context.Context, id int) (Book, error)
}

// BookReadWriter is what the update coordinator needs from the book client.
type BookReadWriter interface {
	BookReader
	Put(ctx context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error)
}

var _ BookReadWriter = (*BookClient)(nil)

// BookClient performs the CRUD calls against the book endpoint.
// It keeps no state between calls, every read hits the server.
type BookClient struct {
	logger      *zap.Logger
	transport   *Transport
	validate    *validator.Validate
	baseURL     string
	maxParallel int
}

// NewBookClient provides a client for the configured book endpoint.
func NewBookClient(logger *zap.Logger, config *CatalogConfig, transport *Transport) (*BookClient, error) {
	if err := checkAbsoluteURL(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base url: %w", err)
	}
	maxParallel := config.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &BookClient{
		logger:      logger,
		transport:   transport,
		validate:    validator.New(),
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		maxParallel: maxParallel,
	}, nil
}

func (bc *BookClient) bookURL(id int) string {
	return bc.baseURL + "/" + strconv.Itoa(id)
}

// FindByID loads a book. When the body has no version the ETag header
// is used instead.
func (bc *BookClient) FindByID(ctx context.Context, id int) (Book, error) {
	var book Book
	resp, err := bc.transport.Do(ctx, request{method: http.MethodGet, url: bc.bookURL(id)})
	if err != nil {
		return book, fmt.Errorf("find book %d: %w", id, err)
	}
	defer resp.Body.Close()

	if err = check(resp, "find book", id); err != nil {
		return book, err
	}
	if err = json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return book, fmt.Errorf("find book %d: decode response: %w", id, err)
	}
	if book.Version == nil {
		if v, ok := ParseETag(resp.Header.Get("ETag")); ok {
			book.Version = &v
		}
	}
	return book, nil
}

// Find loads a page of books matching the filters.
func (bc *BookClient) Find(ctx context.Context, filters map[string]string, p Pagination) (Page, error) {
	var page Page
	u := bc.baseURL
	if q := BuildQuery(filters, p); len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := bc.transport.Do(ctx, request{method: http.MethodGet, url: u})
	if err != nil {
		return page, fmt.Errorf("find books: %w", err)
	}
	defer resp.Body.Close()

	if err = check(resp, "find books", 0); err != nil {
		return page, err
	}
	if err = json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return page, fmt.Errorf("find books: decode response: %w", err)
	}
	return page, nil
}

// FindByCriteria is Find with typed filters.
func (bc *BookClient) FindByCriteria(ctx context.Context, c Criteria, p Pagination) (Page, error) {
	return bc.Find(ctx, c.Filters(), p)
}

// Create posts a new book. The returned response has its body buffered,
// the new id can be read with CreatedID.
func (bc *BookClient) Create(ctx context.Context, body CreateRequest, token string) (*http.Response, error) {
	if err := bc.validate.Struct(body); err != nil {
		return nil, fmt.Errorf("create book: %w: %s", ErrInvalidRequest, describeValidation(err))
	}
	resp, err := bc.transport.Do(ctx, request{method: http.MethodPost, url: bc.baseURL, body: body, token: token})
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	if err = check(resp, "create book", 0); err != nil {
		return nil, err
	}
	bc.logger.Debug("book created", zap.String("book.location", resp.Header.Get("Location")))
	return buffer(resp)
}

// Delete removes a book.
func (bc *BookClient) Delete(ctx context.Context, id int, token string) (*http.Response, error) {
	resp, err := bc.transport.Do(ctx, request{method: http.MethodDelete, url: bc.bookURL(id), token: token})
	if err != nil {
		return nil, fmt.Errorf("delete book %d: %w", id, err)
	}
	if err = check(resp, "delete book", id); err != nil {
		return nil, err
	}
	return buffer(resp)
}

// Put replaces the writable fields of a book under the If-Match precondition.
// A rejected precondition yields ErrConflict.
func (bc *BookClient) Put(ctx context.Context, id int, body UpdateRequest, ifMatch, token string) (*http.Response, error) {
	r := request{method: http.MethodPut, url: bc.bookURL(id), body: body, token: token}
	if ifMatch != "" {
		r.ifMatch = QuoteETag(ifMatch)
	}
	resp, err := bc.transport.Do(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	if err = check(resp, "update book", id); err != nil {
		return nil, err
	}
	return buffer(resp)
}

// describeValidation flattens validator errors into a short message.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, missingFieldError(fe.Field()).Error())
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, ", ")
}
