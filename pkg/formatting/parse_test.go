package formatting_test

import (
	"errors"
	"testing"

	"github.com/contador-app/contador/pkg/formatting"
)

type payload struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    payload
		wantErr bool
	}{
		{
			name:    "direct json",
			content: `{"type":"INVOICE","amount":125000}`,
			want:    payload{Type: "INVOICE", Amount: 125000},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"type\":\"INVOICE\",\"amount\":125000}\n```",
			want:    payload{Type: "INVOICE", Amount: 125000},
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"type\":\"OTHER\"}\n```",
			want:    payload{Type: "OTHER"},
		},
		{
			name:    "embedded in prose",
			content: `Here is the result: {"type":"INVOICE","amount":125000} Thanks!`,
			want:    payload{Type: "INVOICE", Amount: 125000},
		},
		{
			name:    "embedded with braces inside strings",
			content: `Sure. {"type":"OTHER","amount":0} trailing { noise`,
			want:    payload{Type: "OTHER"},
		},
		{
			name:    "no json at all",
			content: "no structured content here",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			content: `prefix {"type":"INVOICE"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[payload](tt.content)

			if tt.wantErr {
				if !errors.Is(err, formatting.ErrParseFailed) {
					t.Fatalf("expected ErrParseFailed, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"50MB", 50 * 1024 * 1024},
		{"1 GB", 1024 * 1024 * 1024},
		{"512", 512},
		{"2kb", 2048},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := formatting.ParseBytes("fifty megs"); err == nil {
		t.Error("expected error for invalid input")
	}
}
