package viewstate

import (
	"testing"
)

func TestTabSelectorSelect(t *testing.T) {
	tests := []struct {
		name        string
		tab         Tab
		wantRefetch bool
		wantErr     bool
	}{
		{"switch to users", TabUsers, true, false},
		{"switch to analytics", TabAnalytics, true, false},
		{"reselect current tab", TabViolations, false, false},
		{"unknown tab rejected", Tab("settings"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTabSelector() // starts on violations
			refetch, err := s.Select(tt.tab)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select(%s) error = %v, wantErr %v", tt.tab, err, tt.wantErr)
			}
			if refetch != tt.wantRefetch {
				t.Errorf("Select(%s) refetch = %v, want %v", tt.tab, refetch, tt.wantRefetch)
			}
			if tt.wantErr && s.Current() != TabViolations {
				t.Errorf("rejected Select moved the tab to %s", s.Current())
			}
		})
	}
}

func TestTabSelectorSwitchResetsPage(t *testing.T) {
	s := NewTabSelector()
	s.SetTotal(100)
	s.GoToPage(4)

	if _, err := s.Select(TabUsers); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := s.Pagination().Page; got != 1 {
		t.Errorf("page after tab switch = %d, want 1", got)
	}
}

func TestPaginationClamping(t *testing.T) {
	tests := []struct {
		name         string
		totalRecords int
		request      int
		wantPage     int
		wantTotal    int
	}{
		{"45 records is 3 pages", 45, 2, 2, 3},
		{"page past the end clamps to last", 45, 4, 3, 3},
		{"page below 1 clamps to first", 45, 0, 1, 3},
		{"negative page clamps to first", 45, -5, 1, 3},
		{"exact multiple", 40, 2, 2, 2},
		{"empty set keeps page 1", 0, 7, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTabSelector()
			s.SetTotal(tt.totalRecords)
			if got := s.GoToPage(tt.request); got != tt.wantPage {
				t.Errorf("GoToPage(%d) = %d, want %d", tt.request, got, tt.wantPage)
			}
			if got := s.Pagination().TotalPages; got != tt.wantTotal {
				t.Errorf("TotalPages = %d, want %d", got, tt.wantTotal)
			}
		})
	}
}

func TestPaginationNextPrev(t *testing.T) {
	s := NewTabSelector()
	s.SetTotal(45)

	if got := s.NextPage(); got != 2 {
		t.Errorf("NextPage() = %d, want 2", got)
	}
	s.GoToPage(3)
	if got := s.NextPage(); got != 3 {
		t.Errorf("NextPage() past the end = %d, want 3", got)
	}
	s.GoToPage(1)
	if got := s.PrevPage(); got != 1 {
		t.Errorf("PrevPage() below 1 = %d, want 1", got)
	}
}

func TestSetTotalClampsCurrentPage(t *testing.T) {
	s := NewTabSelector()
	s.SetTotal(100)
	s.GoToPage(5)

	// The data set shrank server-side; the page must follow.
	s.SetTotal(45)
	if got := s.Pagination().Page; got != 3 {
		t.Errorf("page after shrink = %d, want 3", got)
	}
}
