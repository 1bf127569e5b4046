package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Date  string `json:"date" validate:"required,booking_date"`
	Start string `json:"start_time" validate:"required,time_of_day"`
	Slot  string `json:"slot_id" validate:"required,slot_id"`
}

func TestCustomRules(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name      string
		input     sample
		wantField string
	}{
		{"valid", sample{"2026-05-01", "06:00", "06:00-07:00"}, ""},
		{"impossible date", sample{"2026-02-30", "06:00", "a"}, "sample.date"},
		{"wrong date layout", sample{"01/05/2026", "06:00", "a"}, "sample.date"},
		{"hour out of range", sample{"2026-05-01", "24:00", "a"}, "sample.start_time"},
		{"slot with spaces", sample{"2026-05-01", "06:00", "slot one"}, "sample.slot_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T (%v)", err, err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.wantField {
				t.Errorf("expected single error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidationErrors_Details(t *testing.T) {
	errs := ValidationErrors{{Field: "date", Message: "date is required"}}

	details := errs.Details()
	fields, ok := details["fields"].([]map[string]string)
	if !ok || len(fields) != 1 || fields[0]["field"] != "date" {
		t.Errorf("unexpected details %v", details)
	}
	if !strings.Contains(errs.Error(), "1 error(s)") {
		t.Errorf("unexpected message %q", errs.Error())
	}
}
