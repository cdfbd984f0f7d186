package models

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"  ,  , ", []string{}},
		{"caps, patches ,retro", []string{"caps", "patches", "retro"}},
		{"a,a, a", []string{"a", "a", "a"}},
		{"\tdenim\n,", []string{"denim"}},
	}
	for _, tc := range cases {
		got := SplitTags(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("SplitTags(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitTags(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
			if got[i] == "" || strings.TrimSpace(got[i]) != got[i] {
				t.Fatalf("SplitTags(%q) produced untrimmed tag %q", tc.in, got[i])
			}
		}
	}
}

func TestDraftValidate_MissingTitle(t *testing.T) {
	d := Draft{Status: StatusDraft}
	err := d.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !verr.Missing("title") {
		t.Fatalf("expected title to be reported missing, got %+v", verr.Fields)
	}
	if verr.Error() != "missing required field: title" {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestDraftValidate_NegativeNumbers(t *testing.T) {
	d := Draft{Title: "Cap", Status: StatusDraft, PriceZAR: "-1", Dimensions: DraftDimensions{Height: "-2"}}
	err := d.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Reason
	}
	if fields["priceZAR"] != ReasonNegative || fields["dimensions.height"] != ReasonNegative {
		t.Fatalf("unexpected field errors %+v", verr.Fields)
	}
}

func TestDraftValidate_StockOutOfRange(t *testing.T) {
	cases := []struct {
		stock  string
		reason string
	}{
		{"1e20", ReasonTooLarge},
		{"2147483648", ReasonTooLarge},
		{"-3", ReasonNegative},
		{"2147483647", ""},
		{"12", ""},
	}
	for _, tc := range cases {
		err := Draft{Title: "Cap", Status: StatusDraft, Stock: tc.stock}.Validate()
		if tc.reason == "" {
			if err != nil {
				t.Fatalf("stock %q: unexpected error %v", tc.stock, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("stock %q: expected ValidationError, got %v", tc.stock, err)
		}
		if len(verr.Fields) != 1 || verr.Fields[0].Field != "stock" || verr.Fields[0].Reason != tc.reason {
			t.Fatalf("stock %q: unexpected field errors %+v", tc.stock, verr.Fields)
		}
	}
}

func TestDraftValidate_StandardLabels(t *testing.T) {
	vocabulary := []string{"New", "Sale"}
	d := Draft{Title: "Cap", Status: StatusDraft, Labels: []string{"New", "Totally-Made-Up"}}

	err := d.Validate(vocabulary...)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "labels[1]" || verr.Fields[0].Reason != ReasonUnknownLabel {
		t.Fatalf("unexpected field errors %+v", verr.Fields)
	}

	d.Labels = []string{"Sale", "New"}
	if err := d.Validate(vocabulary...); err != nil {
		t.Fatalf("standard labels rejected: %v", err)
	}
}

func TestStockFromValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{int64(5), 5},
		{3.7, 3},
		{-2.0, 0},
		{1e20, MaxStock},
		{nil, 0},
		{"n/a", 0},
	}
	for _, tc := range cases {
		if got := StockFromValue(tc.in); got != tc.want {
			t.Fatalf("StockFromValue(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDraftValidate_GarbageNumbersAreAccepted(t *testing.T) {
	d := Draft{Title: "Cap", Status: StatusPublished, PriceZAR: "abc", Weight: "n/a"}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDraftValidate_BadStatus(t *testing.T) {
	d := Draft{Title: "Cap", Status: "archived"}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected status to be rejected")
	}
}

func TestDraftCoerce_NumericAsymmetry(t *testing.T) {
	d := Draft{
		Title:             "Retro Patch Cap",
		PriceZAR:          "250",
		PriceEUR:          "",
		CompareAtPriceZAR: "",
		CompareAtPriceEUR: "oops",
		Stock:             "3.9",
		Weight:            "0",
		Dimensions:        DraftDimensions{Length: "12.5", Width: " 8 ", Height: "x"},
		TagsText:          "caps, retro,,",
		Labels:            []string{"New"},
		Status:            StatusDraft,
	}
	p := d.Coerce()

	if p.PriceZAR == nil || *p.PriceZAR != 250 {
		t.Fatalf("priceZAR = %v, want 250", p.PriceZAR)
	}
	if p.PriceEUR == nil || *p.PriceEUR != 0 {
		t.Fatalf("priceEUR = %v, want 0", p.PriceEUR)
	}
	if p.CompareAtPriceZAR != nil || p.CompareAtPriceEUR != nil {
		t.Fatalf("compare-at prices should be nil, got %v %v", p.CompareAtPriceZAR, p.CompareAtPriceEUR)
	}
	if p.Stock != 3 {
		t.Fatalf("stock = %d, want 3", p.Stock)
	}
	if got := (Draft{Stock: "1e20"}).Coerce().Stock; got != MaxStock {
		t.Fatalf("huge stock coerced to %d, want %d", got, MaxStock)
	}
	if p.Weight != nil {
		t.Fatalf("zero weight should coerce to nil, got %v", *p.Weight)
	}
	if p.Dimensions.Length == nil || *p.Dimensions.Length != 12.5 {
		t.Fatalf("length = %v, want 12.5", p.Dimensions.Length)
	}
	if p.Dimensions.Width == nil || *p.Dimensions.Width != 8 {
		t.Fatalf("width = %v, want 8", p.Dimensions.Width)
	}
	if p.Dimensions.Height != nil {
		t.Fatalf("height should be nil")
	}
	if len(p.Tags) != 2 || p.Tags[0] != "caps" || p.Tags[1] != "retro" {
		t.Fatalf("tags = %v", p.Tags)
	}
}

func TestDraftFrom_RoundTripsEditableText(t *testing.T) {
	price := 199.5
	p := Product{
		ID:       "abc",
		Title:    "Patch",
		Tags:     []string{"iron-on", "retro"},
		PriceZAR: &price,
		Stock:    7,
		Images:   []Image{{URL: "https://cdn/x.png", StoragePath: "products/x.png", Alt: "Patch"}},
		Status:   StatusPublished,
	}
	d := DraftFrom(p)
	if d.TagsText != "iron-on, retro" {
		t.Fatalf("tagsText = %q", d.TagsText)
	}
	if d.PriceZAR != "199.5" || d.PriceEUR != "" || d.Stock != "7" {
		t.Fatalf("unexpected numeric text %q %q %q", d.PriceZAR, d.PriceEUR, d.Stock)
	}
	if len(d.Images) != 1 || d.Images[0] != p.Images[0] {
		t.Fatalf("images not carried over: %+v", d.Images)
	}
	d.Images[0].Alt = "changed"
	if p.Images[0].Alt != "Patch" {
		t.Fatalf("draft shares image storage with product")
	}
}
