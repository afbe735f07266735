package uid

import (
	"testing"

	"github.com/google/uuid"
)

func TestSnowflake_Unique(t *testing.T) {
	gen, err := NewSnowflakeWithNode(7)
	if err != nil {
		t.Fatalf("NewSnowflakeWithNode() error = %v", err)
	}

	seen := make(map[int64]struct{}, 1000)
	for range 1000 {
		id := gen.Generate()
		if id <= 0 {
			t.Fatalf("Generate() = %d, want positive", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestSnowflake_InvalidNode(t *testing.T) {
	if _, err := NewSnowflakeWithNode(maxSnowflakeNode + 1); err == nil {
		t.Fatal("expected error for node out of range")
	}
}

func TestUUID_Version7(t *testing.T) {
	id, err := uuid.Parse(NewUUID().Generate())
	if err != nil {
		t.Fatalf("uuid.Parse() error = %v", err)
	}
	if id.Version() != 7 {
		t.Fatalf("Version() = %d, want 7", id.Version())
	}
}
