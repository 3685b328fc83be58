package app

import (
	"errors"
	"testing"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{
			name:       "with parameters",
			operation:  "hash-save",
			parameters: "/logs/mpd/mpd_library.csv",
		},
		{
			name:       "empty parameters",
			operation:  "aw",
			parameters: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != StatusRunning {
				t.Errorf("Status = %q, want %q", op.Status, StatusRunning)
			}
			if op.ID != 0 {
				t.Errorf("ID = %d, want 0", op.ID)
			}
		})
	}
}

func TestOperation_Persisted(t *testing.T) {
	op := NewOperation("sleep", "")
	if op.Persisted() {
		t.Error("new operation should not be persisted")
	}

	op.ID = 42
	if !op.Persisted() {
		t.Error("operation with ID should be persisted")
	}
}

func TestOperation_Finish(t *testing.T) {
	op := NewOperation("mpd", "")
	op.Finish(nil)
	if op.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
	}

	op.Finish(errors.New("boom"))
	if op.Status != StatusError {
		t.Errorf("Status = %q, want %q", op.Status, StatusError)
	}
}
