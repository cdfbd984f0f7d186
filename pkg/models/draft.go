package models

import (
	"context"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

type DraftDimensions struct {
	Length string `json:"length" validate:"nonnegnum"`
	Width  string `json:"width" validate:"nonnegnum"`
	Height string `json:"height" validate:"nonnegnum"`
}

// Draft is the editable, text backed shape of a product. Numbers stay as the
// admin typed them until Coerce.
type Draft struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Category    string `json:"category"`
	TagsText    string `json:"tagsText"`

	Labels []string `json:"labels" validate:"dive,stdlabel"`

	PriceZAR          string `json:"priceZAR" validate:"nonnegnum"`
	PriceEUR          string `json:"priceEUR" validate:"nonnegnum"`
	CompareAtPriceZAR string `json:"compareAtPriceZAR" validate:"nonnegnum"`
	CompareAtPriceEUR string `json:"compareAtPriceEUR" validate:"nonnegnum"`

	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
	Stock   string `json:"stock" validate:"nonnegnum,stock"`

	Weight     string          `json:"weight" validate:"nonnegnum"`
	Dimensions DraftDimensions `json:"dimensions"`

	Materials        string `json:"materials"`
	CareInstructions string `json:"careInstructions"`
	FitNotes         string `json:"fitNotes"`
	SizeGuideURL     string `json:"sizeGuideUrl"`
	WebURL           string `json:"webUrl"`

	Status Status  `json:"status" validate:"oneof=draft published"`
	Images []Image `json:"images"`
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	c := d
	c.Labels = append([]string{}, d.Labels...)
	c.Images = append([]Image{}, d.Images...)
	return c
}

// MaxStock is the largest stock count a product can carry.
const MaxStock = math.MaxInt32

var validate = newValidator()

type vocabularyKey struct{}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Text that does not parse is accepted here; Coerce maps it to 0 or nil.
	_ = v.RegisterValidation("nonnegnum", func(fl validator.FieldLevel) bool {
		n, ok := parseNumber(fl.Field().String())
		return !ok || n >= 0
	})
	_ = v.RegisterValidation("stock", func(fl validator.FieldLevel) bool {
		n, ok := parseNumber(fl.Field().String())
		return !ok || n <= MaxStock
	})
	_ = v.RegisterValidationCtx("stdlabel", func(ctx context.Context, fl validator.FieldLevel) bool {
		vocabulary, _ := ctx.Value(vocabularyKey{}).([]string)
		if len(vocabulary) == 0 {
			return true
		}
		label := fl.Field().String()
		for _, l := range vocabulary {
			if l == label {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks the draft before any I/O happens. When standardLabels is
// not empty every label must be one of them.
func (d Draft) Validate(standardLabels ...string) error {
	ctx := context.WithValue(context.Background(), vocabularyKey{}, standardLabels)
	err := validate.StructCtx(ctx, d)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Draft.")
		switch fe.Tag() {
		case "required":
			out.Fields = append(out.Fields, FieldError{Field: field, Reason: ReasonRequired})
		case "nonnegnum":
			out.Fields = append(out.Fields, FieldError{Field: field, Reason: ReasonNegative})
		case "stock":
			out.Fields = append(out.Fields, FieldError{Field: field, Reason: ReasonTooLarge})
		case "stdlabel":
			out.Fields = append(out.Fields, FieldError{Field: field, Reason: ReasonUnknownLabel})
		default:
			out.Fields = append(out.Fields, FieldError{Field: field, Reason: ReasonInvalid})
		}
	}
	return out
}

// Coerce converts the draft into a product payload. Required numbers fall back
// to 0 and optional numbers to nil when the text is empty or not a number.
// Optional numbers equal to zero are also stored as nil.
func (d Draft) Coerce() Product {
	p := Product{
		ID:          d.ID,
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Description: d.Description,
		Category:    d.Category,
		Tags:        SplitTags(d.TagsText),
		Labels:      append([]string{}, d.Labels...),

		PriceZAR:          requiredNumber(d.PriceZAR),
		PriceEUR:          requiredNumber(d.PriceEUR),
		CompareAtPriceZAR: optionalNumber(d.CompareAtPriceZAR),
		CompareAtPriceEUR: optionalNumber(d.CompareAtPriceEUR),

		SKU:     d.SKU,
		Barcode: d.Barcode,
		Stock:   stockCount(d.Stock),

		Weight: optionalNumber(d.Weight),
		Dimensions: Dimensions{
			Length: optionalNumber(d.Dimensions.Length),
			Width:  optionalNumber(d.Dimensions.Width),
			Height: optionalNumber(d.Dimensions.Height),
		},

		Materials:        d.Materials,
		CareInstructions: d.CareInstructions,
		FitNotes:         d.FitNotes,
		SizeGuideURL:     d.SizeGuideURL,
		WebURL:           d.WebURL,

		Status: d.Status,
		Images: append([]Image{}, d.Images...),
	}
	return p
}

// DraftFrom renders a stored product back into editable text.
func DraftFrom(p Product) Draft {
	return Draft{
		ID:          p.ID,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Description: p.Description,
		Category:    p.Category,
		TagsText:    strings.Join(p.Tags, ", "),
		Labels:      append([]string{}, p.Labels...),

		PriceZAR:          formatNumber(p.PriceZAR),
		PriceEUR:          formatNumber(p.PriceEUR),
		CompareAtPriceZAR: formatNumber(p.CompareAtPriceZAR),
		CompareAtPriceEUR: formatNumber(p.CompareAtPriceEUR),

		SKU:     p.SKU,
		Barcode: p.Barcode,
		Stock:   strconv.Itoa(p.Stock),

		Weight: formatNumber(p.Weight),
		Dimensions: DraftDimensions{
			Length: formatNumber(p.Dimensions.Length),
			Width:  formatNumber(p.Dimensions.Width),
			Height: formatNumber(p.Dimensions.Height),
		},

		Materials:        p.Materials,
		CareInstructions: p.CareInstructions,
		FitNotes:         p.FitNotes,
		SizeGuideURL:     p.SizeGuideURL,
		WebURL:           p.WebURL,

		Status: p.Status,
		Images: append([]Image{}, p.Images...),
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func requiredNumber(s string) *float64 {
	n, ok := parseNumber(s)
	if !ok {
		n = 0
	}
	return &n
}

// StockFromValue reads a stored stock field. Older documents may hold a
// fractional or out of range number.
func StockFromValue(v interface{}) int {
	n, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(n) {
		return 0
	}
	return clampStock(n)
}

// stockCount truncates toward zero and clamps to [0, MaxStock].
func stockCount(s string) int {
	n, _ := parseNumber(s)
	return clampStock(n)
}

func clampStock(n float64) int {
	switch {
	case n <= 0:
		return 0
	case n >= MaxStock:
		return MaxStock
	}
	return int(n)
}

func optionalNumber(s string) *float64 {
	n, ok := parseNumber(s)
	if !ok || n == 0 {
		return nil
	}
	return &n
}

func formatNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
