package series

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateOccurrenceDatesWeekly(t *testing.T) {
	start := date(2024, 6, 17) // Monday
	count := 10
	dates := GenerateOccurrenceDates(start, Weekly, int(time.Monday), nil, &count)
	if len(dates) != 10 {
		t.Fatalf("expected 10 occurrences, got %d", len(dates))
	}
	want := []string{
		"2024-06-17", "2024-06-24", "2024-07-01", "2024-07-08", "2024-07-15",
	}
	for i, w := range want {
		if dates[i].Format("2006-01-02") != w {
			t.Errorf("date[%d] = %s, want %s", i, dates[i].Format("2006-01-02"), w)
		}
	}
}

func TestGenerateOccurrenceDatesMonthlyNthWeekday(t *testing.T) {
	start := date(2024, 6, 11) // 2nd Tuesday of June
	count := 3
	dates := GenerateOccurrenceDates(start, Monthly, int(time.Tuesday), nil, &count)
	want := []string{"2024-06-11", "2024-07-09", "2024-08-13"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(dates), dates)
	}
	for i, w := range want {
		if dates[i].Format("2006-01-02") != w {
			t.Errorf("date[%d] = %s, want %s", i, dates[i].Format("2006-01-02"), w)
		}
	}
}

func TestGenerateOccurrenceDatesBiWeekly(t *testing.T) {
	start := date(2024, 6, 17)
	count := 3
	dates := GenerateOccurrenceDates(start, BiWeekly, int(time.Monday), nil, &count)
	want := []string{"2024-06-17", "2024-07-01", "2024-07-15"}
	for i, w := range want {
		if dates[i].Format("2006-01-02") != w {
			t.Errorf("date[%d] = %s, want %s", i, dates[i].Format("2006-01-02"), w)
		}
	}
}

func TestGenerateOccurrenceDatesAdvancesToWeekday(t *testing.T) {
	start := date(2024, 6, 12) // Wednesday
	count := 1
	dates := GenerateOccurrenceDates(start, Weekly, int(time.Friday), nil, &count)
	if len(dates) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(dates))
	}
	if dates[0].Format("2006-01-02") != "2024-06-14" {
		t.Fatalf("expected first Friday 2024-06-14, got %s", dates[0].Format("2006-01-02"))
	}
}

func TestGenerateOccurrenceDatesRespectsEndDate(t *testing.T) {
	start := date(2024, 6, 17)
	end := date(2024, 7, 1)
	dates := GenerateOccurrenceDates(start, Weekly, int(time.Monday), &end, nil)
	want := []string{"2024-06-17", "2024-06-24", "2024-07-01"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
}

func TestGenerateOccurrenceDatesDefaultLimit52(t *testing.T) {
	start := date(2024, 1, 1)
	dates := GenerateOccurrenceDates(start, Weekly, int(start.Weekday()), nil, nil)
	if len(dates) != 52 {
		t.Fatalf("expected default limit of 52 occurrences, got %d", len(dates))
	}
}
