package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"valid date", "2024-03-15", Date{2024, time.March, 15}, false},
		{"leap day", "2024-02-29", Date{2024, time.February, 29}, false},
		{"non-leap feb 29", "2023-02-29", Date{}, true},
		{"empty", "", Date{}, true},
		{"garbage", "not-a-date", Date{}, true},
		{"wrong separator", "2024/03/15", Date{}, true},
		{"month out of range", "2024-13-01", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateString(t *testing.T) {
	d := Date{2024, time.March, 5}
	if got := d.String(); got != "2024-03-05" {
		t.Errorf("String() = %q, want %q", got, "2024-03-05")
	}
}

func TestDateValidate(t *testing.T) {
	tests := []struct {
		name    string
		date    Date
		wantErr bool
	}{
		{"valid", Date{2024, time.March, 15}, false},
		{"zero", Date{}, true},
		{"day zero", Date{2024, time.March, 0}, true},
		{"day overflow", Date{2024, time.April, 31}, true},
		{"leap day ok", Date{2024, time.February, 29}, false},
		{"leap day bad year", Date{2023, time.February, 29}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.date.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"morning", "09:00", 9 * 60, false},
		{"midnight", "00:00", 0, false},
		{"last minute", "23:59", 23*60 + 59, false},
		{"hour out of range", "24:00", 0, true},
		{"minute out of range", "12:60", 0, true},
		{"missing colon", "0900", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Minutes != tt.want {
				t.Errorf("ParseClock(%q) = %d minutes, want %d", tt.input, got.Minutes, tt.want)
			}
		})
	}
}

func TestClockString(t *testing.T) {
	c := Clock{Minutes: 9*60 + 5}
	if got := c.String(); got != "09:05" {
		t.Errorf("String() = %q, want %q", got, "09:05")
	}
}

func TestDuration(t *testing.T) {
	mustClock := func(s string) Clock {
		c, err := ParseClock(s)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", s, err)
		}
		return c
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  float64
	}{
		{"standard working day", "09:00", "18:00", 9.0},
		{"overnight wrap", "22:00", "02:00", 4.0},
		{"half hour", "10:00", "10:30", 0.5},
		{"same time", "08:00", "08:00", 0.0},
		{"just before wrap", "00:01", "00:00", 23.983333333333334},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duration(mustClock(tt.start), mustClock(tt.end))
			if got != tt.want {
				t.Errorf("Duration(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
			if got < 0 || got >= 24 {
				t.Errorf("Duration(%s, %s) = %v, out of [0, 24)", tt.start, tt.end, got)
			}
		})
	}
}
