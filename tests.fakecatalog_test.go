package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// This file contains an in-memory catalog service used by the client tests.
// It follows the server protocol: bearer auth on writes, versions exposed
// as ETag, If-Match checked on PUT and 0-based pagination.

const (
	fakeUsername = "admin"
	fakePassword = "p"
	fakeToken    = "fake-token"
)

type fakeCatalog struct {
	mu          sync.Mutex
	books       map[int]Book
	nextID      int
	pageSize    int
	etagOnly    bool
	lastHeaders http.Header
	server      *httptest.Server
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{books: map[int]Book{}, nextID: 1, pageSize: 5}
	router := httprouter.New()
	router.GET("/rest", fc.list)
	router.POST("/rest", requireBearer(fc.create))
	router.GET("/rest/:id", fc.get)
	router.PUT("/rest/:id", requireBearer(fc.put))
	router.DELETE("/rest/:id", requireBearer(fc.remove))
	router.POST("/auth/token", fc.issueToken)
	fc.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.lastHeaders = r.Header.Clone()
		fc.mu.Unlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(fc.server.Close)
	return fc
}

// headers returns the headers of the last received request.
func (fc *fakeCatalog) headers() http.Header {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lastHeaders
}

// seed stores a book as if it was created through the api.
func (fc *fakeCatalog) seed(req CreateRequest) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.insert(req)
}

// stored returns the server side copy of a book.
func (fc *fakeCatalog) stored(id int) (Book, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	b, ok := fc.books[id]
	return b, ok
}

func (fc *fakeCatalog) insert(req CreateRequest) int {
	id := fc.nextID
	fc.nextID++
	version := 0
	images := make([]Image, 0, len(req.Images))
	for i, img := range req.Images {
		images = append(images, Image{ID: id*100 + i, Caption: img.Caption, ContentType: img.ContentType})
	}
	u := req.UpdateRequest
	fc.books[id] = Book{
		ID: id, ISBN: u.ISBN, Rating: u.Rating, Kind: u.Kind, Price: u.Price, Discount: u.Discount,
		Available: u.Available, Date: u.Date, Homepage: u.Homepage, Keywords: u.Keywords,
		Version: &version,
		Title:   Title{ID: id, Title: req.Title.Title, Subtitle: req.Title.Subtitle},
		Images:  images,
	}
	return id
}

// requireBearer rejects requests without the issued token with 401.
func requireBearer(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.Header.Get("Authorization") != "Bearer "+fakeToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r, ps)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fc *fakeCatalog) get(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, _ := strconv.Atoi(ps.ByName("id"))
	fc.mu.Lock()
	defer fc.mu.Unlock()
	book, ok := fc.books[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("ETag", QuoteETag(strconv.Itoa(*book.Version)))
	if fc.etagOnly {
		book.Version = nil
	}
	writeJSON(w, http.StatusOK, book)
}

func (fc *fakeCatalog) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	fc.mu.Lock()
	defer fc.mu.Unlock()

	matches := []Book{}
	for _, b := range fc.books {
		if v := q.Get(FilterTitle); v != "" && !strings.Contains(strings.ToLower(b.Title.Title), strings.ToLower(v)) {
			continue
		}
		if v := q.Get(FilterISBN); v != "" && strings.ReplaceAll(b.ISBN, "-", "") != strings.ReplaceAll(v, "-", "") {
			continue
		}
		if v := q.Get(FilterKind); v != "" && string(b.Kind) != v {
			continue
		}
		if q.Get(FilterAvailable) == "true" && !b.Available {
			continue
		}
		if v, err := strconv.Atoi(q.Get(FilterRating)); err == nil && b.Rating < v {
			continue
		}
		if v, err := strconv.ParseFloat(q.Get(FilterPrice), 64); err == nil && b.Price > v {
			continue
		}
		matches = append(matches, b)
	}
	if len(matches) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	size := fc.pageSize
	if v, err := strconv.Atoi(q.Get("size")); err == nil && v > 0 {
		size = v
	}
	number, _ := strconv.Atoi(q.Get("page"))
	totalPages := (len(matches) + size - 1) / size
	start, end := number*size, number*size+size
	if start > len(matches) {
		start = len(matches)
	}
	if end > len(matches) {
		end = len(matches)
	}
	writeJSON(w, http.StatusOK, Page{
		Content: matches[start:end],
		Meta:    PageMeta{Size: size, Number: number, TotalElements: len(matches), TotalPages: totalPages},
	})
}

func (fc *fakeCatalog) create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	fc.mu.Lock()
	id := fc.insert(req)
	fc.mu.Unlock()
	w.Header().Set("Location", fc.server.URL+"/rest/"+strconv.Itoa(id))
	w.WriteHeader(http.StatusCreated)
}

func (fc *fakeCatalog) put(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, _ := strconv.Atoi(ps.ByName("id"))
	fc.mu.Lock()
	defer fc.mu.Unlock()
	book, ok := fc.books[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" {
		w.WriteHeader(http.StatusPreconditionRequired)
		return
	}
	if ifMatch != QuoteETag(strconv.Itoa(*book.Version)) {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	var u UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	version := *book.Version + 1
	book.ISBN, book.Rating, book.Kind = u.ISBN, u.Rating, u.Kind
	book.Price, book.Discount, book.Available = u.Price, u.Discount, u.Available
	book.Date, book.Homepage, book.Keywords = u.Date, u.Homepage, u.Keywords
	book.Version = &version
	fc.books[id] = book
	w.Header().Set("ETag", QuoteETag(strconv.Itoa(version)))
	w.WriteHeader(http.StatusNoContent)
}

func (fc *fakeCatalog) remove(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id, _ := strconv.Atoi(ps.ByName("id"))
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.books[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(fc.books, id)
	w.WriteHeader(http.StatusNoContent)
}

func (fc *fakeCatalog) issueToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if creds.Username != fakeUsername || creds.Password != fakePassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": fakeToken, "expires_in": 3600})
}

// newTestConfig returns a valid configuration pointing at baseURL.
func newTestConfig(baseURL string) *Config {
	config := &Config{
		Catalog: CatalogConfig{BaseURL: baseURL + "/rest", AuthURL: baseURL + "/auth/token", MaxParallel: 2},
	}
	_ = InitConfig(config, "", "", "")
	return config
}

// newTestClients builds the book client and the token provider against fc.
func newTestClients(t *testing.T, fc *fakeCatalog) (*BookClient, *TokenProvider) {
	t.Helper()
	config := newTestConfig(fc.server.URL)
	transport := NewTransport(zap.NewNop(), &config.Catalog, NewMockUIDHandler("test"))
	books, err := NewBookClient(zap.NewNop(), &config.Catalog, transport)
	require.NoError(t, err)
	tokens, err := NewTokenProvider(zap.NewNop(), &config.Catalog, transport)
	require.NoError(t, err)
	return books, tokens
}

// sampleCreateRequest is a valid book creation payload.
func sampleCreateRequest() CreateRequest {
	return CreateRequest{
		UpdateRequest: UpdateRequest{
			ISBN:      "1234567890",
			Rating:    5,
			Kind:      KindHardcover,
			Price:     29.99,
			Discount:  0.05,
			Available: true,
			Date:      NewDate(2024, 6, 15),
			Homepage:  "https://example.com/buch",
			Keywords:  []string{"JAVASCRIPT", "TYPESCRIPT"},
		},
		Title:  TitleCreate{Title: "Alpha", Subtitle: "null"},
		Images: []ImageCreate{{Caption: "Abb. 1", ContentType: "image/png"}},
	}
}
