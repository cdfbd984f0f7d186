package models

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// FallbackActor is recorded in createdBy/updatedBy when no identity is signed in.
const FallbackActor = "admin"

// Image is either a local pending file (URI set) or a persisted object (URL set).
// Only the persisted fields are written to the catalog document.
type Image struct {
	URI         string `json:"uri,omitempty" firestore:"-"`
	Name        string `json:"name,omitempty" firestore:"-"`
	URL         string `json:"url,omitempty" firestore:"url"`
	StoragePath string `json:"storagePath,omitempty" firestore:"storagePath"`
	Alt         string `json:"alt,omitempty" firestore:"alt"`
}

// Persisted reports whether the image already has a remote URL.
// A persisted image is never uploaded again.
func (i Image) Persisted() bool {
	return i.URL != ""
}

type Dimensions struct {
	Length *float64 `json:"length" firestore:"length"`
	Width  *float64 `json:"width" firestore:"width"`
	Height *float64 `json:"height" firestore:"height"`
}

// Product is the catalog document. Prices are nullable on read so that a
// document without a price for a currency can be told apart from a zero price.
type Product struct {
	ID          string `json:"id,omitempty" firestore:"-"`
	Title       string `json:"title" firestore:"title"`
	Subtitle    string `json:"subtitle" firestore:"subtitle"`
	Description string `json:"description" firestore:"description"`
	Category    string `json:"category" firestore:"category"`

	Tags   []string `json:"tags" firestore:"tags"`
	Labels []string `json:"labels" firestore:"labels"`

	PriceZAR          *float64 `json:"priceZAR" firestore:"priceZAR"`
	PriceEUR          *float64 `json:"priceEUR" firestore:"priceEUR"`
	CompareAtPriceZAR *float64 `json:"compareAtPriceZAR" firestore:"compareAtPriceZAR"`
	CompareAtPriceEUR *float64 `json:"compareAtPriceEUR" firestore:"compareAtPriceEUR"`

	SKU     string `json:"sku" firestore:"sku"`
	Barcode string `json:"barcode" firestore:"barcode"`
	Stock   int    `json:"stock" firestore:"-"` // decoded with StockFromValue

	Weight     *float64   `json:"weight" firestore:"weight"`
	Dimensions Dimensions `json:"dimensions" firestore:"dimensions"`

	Materials        string `json:"materials" firestore:"materials"`
	CareInstructions string `json:"careInstructions" firestore:"careInstructions"`
	FitNotes         string `json:"fitNotes" firestore:"fitNotes"`
	SizeGuideURL     string `json:"sizeGuideUrl" firestore:"sizeGuideUrl"`
	WebURL           string `json:"webUrl" firestore:"webUrl"`

	Status Status  `json:"status" firestore:"status"`
	Images []Image `json:"images" firestore:"images"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty" firestore:"createdBy"`
	UpdatedBy string    `json:"updatedBy,omitempty" firestore:"updatedBy"`
}

func (p Product) Published() bool {
	return p.Status == StatusPublished
}

func (p Product) HasLabel(label string) bool {
	for _, l := range p.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Product) Clone() Product {
	c := p
	c.Tags = append([]string(nil), p.Tags...)
	c.Labels = append([]string(nil), p.Labels...)
	c.Images = append([]Image(nil), p.Images...)
	c.PriceZAR = cloneFloat(p.PriceZAR)
	c.PriceEUR = cloneFloat(p.PriceEUR)
	c.CompareAtPriceZAR = cloneFloat(p.CompareAtPriceZAR)
	c.CompareAtPriceEUR = cloneFloat(p.CompareAtPriceEUR)
	c.Weight = cloneFloat(p.Weight)
	c.Dimensions = Dimensions{
		Length: cloneFloat(p.Dimensions.Length),
		Width:  cloneFloat(p.Dimensions.Width),
		Height: cloneFloat(p.Dimensions.Height),
	}
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// SplitTags turns comma separated input into tags: entries are trimmed and
// empty ones dropped. Duplicates are kept.
func SplitTags(text string) []string {
	tags := []string{}
	for _, t := range strings.Split(text, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
