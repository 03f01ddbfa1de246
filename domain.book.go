package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the format of a book. The server only knows the three values below.
type Kind string

const (
	KindEpub      Kind = "EPUB"
	KindHardcover Kind = "HARDCOVER"
	KindPaperback Kind = "PAPERBACK"
)

// IsValid reports whether k is one of the known book kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindEpub, KindHardcover, KindPaperback:
		return true
	}
	return false
}

// ParseKind converts a raw value into a Kind and fails on unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown book kind %q", s)
	}
	return k, nil
}

// UnmarshalJSON rejects unknown kinds. A null or empty kind decodes to
// the zero Kind so a book without format still loads.
func (k *Kind) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*k = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*k = ""
		return nil
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DateLayout is the wire format of the publication date.
const DateLayout = "2006-01-02"

// Date is a calendar day. It is sent as `YYYY-MM-DD` and accepts
// full RFC 3339 timestamps on decoding.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", raw, err)
	}
	d.Time = t.UTC()
	return nil
}

// Title is the embedded title of a book. The server may send the literal
// string "null" as subtitle, it is kept untouched here.
type Title struct {
	ID       int    `json:"id"`
	Title    string `json:"titel"`
	Subtitle string `json:"untertitel"`
}

// Image is an illustration (cover etc.) attached to a book.
type Image struct {
	ID          int    `json:"id"`
	Caption     string `json:"beschriftung"`
	ContentType string `json:"contentType"`
}

// Book represents a book entity as delivered by the catalog service.
type Book struct {
	ID        int      `json:"id"`
	ISBN      string   `json:"isbn"`
	Rating    int      `json:"rating"`
	Kind      Kind     `json:"art"`
	Price     float64  `json:"preis"`
	Discount  float64  `json:"rabatt"`
	Available bool     `json:"lieferbar"`
	Date      Date     `json:"datum"`
	Homepage  string   `json:"homepage,omitempty"`
	Keywords  []string `json:"schlagwoerter"`
	Version   *int     `json:"version,omitempty"`
	Title     Title    `json:"titel"`
	Images    []Image  `json:"abbildungen"`
}

// UpdateRequest projects the book onto its writable scalar fields.
func (b Book) UpdateRequest() UpdateRequest {
	var keywords []string
	if b.Keywords != nil {
		keywords = append([]string{}, b.Keywords...)
	}
	return UpdateRequest{
		ISBN:      b.ISBN,
		Rating:    b.Rating,
		Kind:      b.Kind,
		Price:     b.Price,
		Discount:  b.Discount,
		Available: b.Available,
		Date:      b.Date,
		Homepage:  b.Homepage,
		Keywords:  keywords,
	}
}

// PageMeta describes the position of a page within the whole result set.
type PageMeta struct {
	Size          int `json:"size"`
	Number        int `json:"number"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// HasNext reports whether a page follows this one.
func (m PageMeta) HasNext() bool {
	return m.Number+1 < m.TotalPages
}

// Page is a bounded slice of books plus its pagination metadata.
type Page struct {
	Content []Book   `json:"content"`
	Meta    PageMeta `json:"page"`
}

// UpdateRequest is the body of a PUT: only scalar book fields are writable.
type UpdateRequest struct {
	ISBN      string   `json:"isbn" validate:"required"`
	Rating    int      `json:"rating" validate:"min=0,max=5"`
	Kind      Kind     `json:"art" validate:"oneof=EPUB HARDCOVER PAPERBACK"`
	Price     float64  `json:"preis" validate:"gte=0"`
	Discount  float64  `json:"rabatt" validate:"gte=0,lte=1"`
	Available bool     `json:"lieferbar"`
	Date      Date     `json:"datum"`
	Homepage  string   `json:"homepage,omitempty" validate:"omitempty,url"`
	Keywords  []string `json:"schlagwoerter"`
}

// TitleCreate is the creatable shape of a Title.
type TitleCreate struct {
	Title    string `json:"titel" validate:"required"`
	Subtitle string `json:"untertitel,omitempty"`
}

// ImageCreate is the creatable shape of an Image.
type ImageCreate struct {
	Caption     string `json:"beschriftung"`
	ContentType string `json:"contentType"`
}

// CreateRequest is the body of a POST. It is an UpdateRequest plus the
// embedded title and images, all without server assigned ids.
type CreateRequest struct {
	UpdateRequest
	Title  TitleCreate   `json:"titel"`
	Images []ImageCreate `json:"abbildungen"`
}

// Patch is a partial UpdateRequest. Nil fields keep the baseline value.
// Keywords are replaced as a whole when non-nil, an empty non-nil slice
// clears them.
type Patch struct {
	ISBN      *string  `json:"isbn,omitempty"`
	Rating    *int     `json:"rating,omitempty"`
	Kind      *Kind    `json:"art,omitempty"`
	Price     *float64 `json:"preis,omitempty"`
	Discount  *float64 `json:"rabatt,omitempty"`
	Available *bool    `json:"lieferbar,omitempty"`
	Date      *Date    `json:"datum,omitempty"`
	Homepage  *string  `json:"homepage,omitempty"`
	Keywords  []string `json:"schlagwoerter,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ISBN == nil && p.Rating == nil && p.Kind == nil && p.Price == nil &&
		p.Discount == nil && p.Available == nil && p.Date == nil &&
		p.Homepage == nil && p.Keywords == nil
}

// Apply overlays the patch on base field by field and returns the result.
// base is left untouched.
func (p Patch) Apply(base UpdateRequest) UpdateRequest {
	merged := base
	if base.Keywords != nil {
		merged.Keywords = append([]string{}, base.Keywords...)
	}
	if p.ISBN != nil {
		merged.ISBN = *p.ISBN
	}
	if p.Rating != nil {
		merged.Rating = *p.Rating
	}
	if p.Kind != nil {
		merged.Kind = *p.Kind
	}
	if p.Price != nil {
		merged.Price = *p.Price
	}
	if p.Discount != nil {
		merged.Discount = *p.Discount
	}
	if p.Available != nil {
		merged.Available = *p.Available
	}
	if p.Date != nil {
		merged.Date = *p.Date
	}
	if p.Homepage != nil {
		merged.Homepage = *p.Homepage
	}
	if p.Keywords != nil {
		merged.Keywords = append([]string{}, p.Keywords...)
	}
	return merged
}
