package search

import (
	"errors"
	"testing"

	"tenderscan/internal/domain"
)

func TestNormalizeDefaults(t *testing.T) {
	f := &Filters{}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.PageStart != 1 || f.PageEnd != 1 {
		t.Errorf("expected page range [1,1], got [%d,%d]", f.PageStart, f.PageEnd)
	}
	if len(f.TerminationGrounds) != 3 {
		t.Errorf("expected default grounds [1 2 3], got %v", f.TerminationGrounds)
	}
	if f.SortBy != SortUpdateDate {
		t.Errorf("expected default sortBy %d, got %d", SortUpdateDate, f.SortBy)
	}
}

func TestNormalizeMirrorsSinglePageBound(t *testing.T) {
	f := &Filters{PageStart: 4}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if f.PageEnd != 4 {
		t.Errorf("expected pageEnd mirrored to 4, got %d", f.PageEnd)
	}
}

func TestNormalizePageSpan(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"single page", 1, 1, false},
		{"full span of ten", 1, 10, false},
		{"eleven pages", 1, 11, true},
		{"start after end", 5, 2, true},
		{"offset span of ten", 7, 16, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Filters{PageStart: tt.start, PageEnd: tt.end}
			err := f.Normalize()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
		})
	}
}

func TestNormalizeRejectsUnknownGround(t *testing.T) {
	f := &Filters{TerminationGrounds: []int{1, 4}}
	if err := f.Normalize(); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNormalizeRejectsUnknownSortKey(t *testing.T) {
	f := &Filters{SortBy: 9}
	if err := f.Normalize(); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestNormalizeDateRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Filters)
		wantErr bool
	}{
		{"valid pair", func(f *Filters) {
			f.ContractDateFrom = "01.02.2024"
			f.ContractDateTo = "28.02.2024"
		}, false},
		{"inverted pair", func(f *Filters) {
			f.PublishDateFrom = "10.03.2024"
			f.PublishDateTo = "01.03.2024"
		}, true},
		{"garbage date", func(f *Filters) {
			f.UpdateDateFrom = "2024-03-01"
		}, true},
		{"open-ended pair", func(f *Filters) {
			f.ExecutionDateStart = "01.01.2024"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Filters{}
			tt.mutate(f)
			err := f.Normalize()
			if tt.wantErr && !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Normalize: %v", err)
			}
		})
	}
}

func TestNormalizeRejectsInvertedPriceRange(t *testing.T) {
	f := &Filters{PriceFrom: 100, PriceTo: 10}
	if err := f.Normalize(); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
