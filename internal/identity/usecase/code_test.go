package usecase

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRandomCode_Generate(t *testing.T) {
	tests := []struct {
		name    string
		source  io.Reader
		want    string
		wantErr bool
	}{
		{
			name:   "zero draw is padded",
			source: bytes.NewReader(make([]byte, 64)),
			want:   "000000",
		},
		{
			name:    "source failure",
			source:  failingReader{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			g := &RandomCode{source: tt.source}

			// Act
			got, err := g.Generate()

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}
}
