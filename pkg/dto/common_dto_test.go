package dto

import "testing"

func TestPageQueryNormalize(t *testing.T) {
	q := PageQuery{}.Normalize(20)
	if q.Page != 1 || q.Limit != 20 || q.Offset() != 0 {
		t.Fatalf("unexpected %+v", q)
	}
	q = PageQuery{Page: 3, Limit: 10}.Normalize(20)
	if q.Offset() != 20 {
		t.Fatalf("offset=%d", q.Offset())
	}
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(PageQuery{Page: 2, Limit: 10}, 21)
	if meta.TotalPages != 3 || meta.CurrentPage != 2 || meta.TotalItems != 21 {
		t.Fatalf("unexpected %+v", meta)
	}
	if NewPaginationMeta(PageQuery{Page: 1, Limit: 10}, 0).TotalPages != 0 {
		t.Fatalf("empty should have zero pages")
	}
}
