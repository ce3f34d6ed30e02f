package search

import (
	"testing"

	"job-board/internal/model"
)

func TestPageRequestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"zero gets defaults", PageRequest{}, PageRequest{Page: 1, PerPage: DefaultPerPage}},
		{"negative page clamps", PageRequest{Page: -3, PerPage: 5}, PageRequest{Page: 1, PerPage: 5}},
		{"per_page capped", PageRequest{Page: 2, PerPage: 500}, PageRequest{Page: 2, PerPage: MaxPerPage}},
		{"valid untouched", PageRequest{Page: 3, PerPage: 25}, PageRequest{Page: 3, PerPage: 25}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("Normalize = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNewResult(t *testing.T) {
	t.Parallel()

	res := NewResult(nil, PageRequest{Page: 1, PerPage: 10}, 0)
	if res.Data == nil || len(res.Data) != 0 {
		t.Fatalf("Data must be an empty slice, got %v", res.Data)
	}
	if res.Meta.LastPage != 1 {
		t.Fatalf("LastPage minimum is 1, got %d", res.Meta.LastPage)
	}

	res = NewResult([]model.Job{{ID: 1}}, PageRequest{Page: 2, PerPage: 10}, 13)
	if res.Meta.LastPage != 2 || res.Meta.Total != 13 || res.Meta.CurrentPage != 2 || res.Meta.PerPage != 10 {
		t.Fatalf("unexpected meta: %+v", res.Meta)
	}

	res = NewResult(nil, PageRequest{Page: 1, PerPage: 10}, 20)
	if res.Meta.LastPage != 2 {
		t.Fatalf("exact multiple should not round up, got %d", res.Meta.LastPage)
	}
}

func TestScoreExpr(t *testing.T) {
	t.Parallel()

	expr, args := ScoreExpr(nil)
	if expr != "" || args != nil {
		t.Fatalf("no keywords should yield empty expression")
	}

	expr, args = ScoreExpr([]string{"Go", " ", "backend"})
	if expr == "" {
		t.Fatalf("expected expression for keywords")
	}
	// 每个有效关键词绑定标题、描述、地点三个参数，空白词被跳过。
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	if args[0] != "%go%" {
		t.Fatalf("keywords should be lowercased, got %v", args[0])
	}
}
