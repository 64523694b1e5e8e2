package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewPaging(t *testing.T) {
	tests := []struct {
		name                       string
		page, perPage              int
		wantPage, wantPer, wantOff int
	}{
		{"defaults", 0, 0, 1, 20, 0},
		{"second page", 2, 10, 2, 10, 10},
		{"clamped", 3, 500, 3, 100, 200},
		{"negative page", -4, 5, 1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaging(tt.page, tt.perPage, 20, 100)
			if p.Page != tt.wantPage || p.PerPage != tt.wantPer || p.Offset != tt.wantOff {
				t.Fatalf("got %+v", p)
			}
		})
	}
}

func TestPagingMeta(t *testing.T) {
	meta := NewPaging(2, 10, 20, 100).Meta(25)
	if meta.TotalPages != 3 || !meta.HasNext || !meta.HasPrev {
		t.Fatalf("unexpected meta %+v", meta)
	}
	last := NewPaging(3, 10, 20, 100).Meta(25)
	if last.HasNext {
		t.Fatal("last page should not have next")
	}
}

func TestPaymentReference(t *testing.T) {
	id := uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000")
	a := PaymentReference("BK", id)
	b := PaymentReference("BK", id)
	if !strings.HasPrefix(a, "BK-3F2A9C1E-") {
		t.Fatalf("unexpected reference %s", a)
	}
	if len(a) != len("BK-3F2A9C1E-")+5 {
		t.Fatalf("unexpected length %d", len(a))
	}
	if a == b {
		t.Fatal("references should differ between attempts")
	}
}
