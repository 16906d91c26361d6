package api

import (
	"reflect"
	"testing"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		input any
		want  FieldErrors
	}{
		{
			name:  "valid registration",
			input: registerInput{Name: "Ada", Email: "ada@example.com", Password: "password123", PasswordConfirmation: "password123"},
			want:  FieldErrors{},
		},
		{
			name:  "empty registration",
			input: registerInput{},
			want: FieldErrors{
				"name":     {"The name field is required."},
				"email":    {"The email field is required."},
				"password": {"The password field is required."},
			},
		},
		{
			name:  "unknown status",
			input: createTaskInput{Title: "T", Status: "done"},
			want:  FieldErrors{"status": {"The selected status is invalid."}},
		},
		{
			name:  "per page out of range",
			input: listTasksQuery{PerPage: 101},
			want:  FieldErrors{"per_page": {"The per page field must not be greater than 100."}},
		},
		{
			name:  "empty status filter is ignored",
			input: listTasksQuery{PerPage: 15},
			want:  FieldErrors{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Struct(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Struct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidator_PartialOnlyChecksNamedFields(t *testing.T) {
	v := NewValidator()
	in := updateTaskInput{Status: "completed"}

	if got := v.Partial(in, "Status"); len(got) != 0 {
		t.Errorf("Partial(Status) = %v, want no errors", got)
	}
	if got := v.Partial(in); len(got) != 0 {
		t.Errorf("Partial() = %v, want no errors", got)
	}
	got := v.Partial(in, "Title", "Status")
	if !reflect.DeepEqual(got, FieldErrors{"title": {"The title field is required."}}) {
		t.Errorf("Partial(Title, Status) = %v", got)
	}
}

func TestFieldErrors_Merge(t *testing.T) {
	fields := FieldErrors{"name": {"The name field must be a string."}}
	fields.Merge(FieldErrors{
		"name":  {"The name field is required."},
		"email": {"The email field is required."},
	})

	want := FieldErrors{
		"name":  {"The name field must be a string."},
		"email": {"The email field is required."},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("Merge() = %v, want %v", fields, want)
	}
}

func TestBlankToNil(t *testing.T) {
	s := func(v string) *string { return &v }

	if got := blankToNil(nil); got != nil {
		t.Errorf("blankToNil(nil) = %v", *got)
	}
	if got := blankToNil(s("   ")); got != nil {
		t.Errorf("blankToNil(blank) = %q, want nil", *got)
	}
	if got := blankToNil(s("  notes ")); got == nil || *got != "notes" {
		t.Errorf("blankToNil(notes) = %v, want notes", got)
	}
}
