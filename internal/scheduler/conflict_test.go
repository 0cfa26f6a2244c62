package scheduler

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		s1, e1 time.Time
		s2, e2 time.Time
		want   bool
	}{
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"partial", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"touching end to start", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"touching start to end", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	existing := []Booking{
		{InterviewID: "iv-1", CandidateID: 1, PanelistIDs: []int64{5}, Start: at(10, 0), End: at(11, 0)},
		{InterviewID: "iv-2", CandidateID: 2, PanelistIDs: []int64{11, 7}, Start: at(13, 0), End: at(14, 0)},
	}

	t.Run("candidate overlap produces candidate conflict", func(t *testing.T) {
		t.Parallel()
		conflict := Validate(existing, Proposal{CandidateID: 1, PanelistIDs: []int64{9}, Start: at(10, 30), End: at(11, 30)})
		if conflict == nil {
			t.Fatalf("expected conflict")
		}
		if conflict.Actor != ActorCandidate || conflict.ActorID != 1 || conflict.WithInterviewID != "iv-1" {
			t.Fatalf("unexpected conflict: %#v", conflict)
		}
	})

	t.Run("candidate is reported before panelists", func(t *testing.T) {
		t.Parallel()
		conflict := Validate(existing, Proposal{CandidateID: 1, PanelistIDs: []int64{5}, Start: at(10, 0), End: at(11, 0)})
		if conflict == nil || conflict.Actor != ActorCandidate {
			t.Fatalf("expected candidate conflict, got %#v", conflict)
		}
	})

	t.Run("guard band catches adjacent booking", func(t *testing.T) {
		t.Parallel()
		conflict := Validate(existing, Proposal{CandidateID: 1, PanelistIDs: []int64{9}, Start: at(11, 0), End: at(12, 0)})
		if conflict == nil || conflict.Actor != ActorCandidate {
			t.Fatalf("expected guard band conflict, got %#v", conflict)
		}
	})

	t.Run("outside guard band is admissible", func(t *testing.T) {
		t.Parallel()
		if conflict := Validate(existing, Proposal{CandidateID: 1, PanelistIDs: []int64{9}, Start: at(11, 1), End: at(12, 0)}); conflict != nil {
			t.Fatalf("expected no conflict, got %#v", conflict)
		}
	})

	t.Run("first conflicting panelist in caller order", func(t *testing.T) {
		t.Parallel()
		conflict := Validate(existing, Proposal{CandidateID: 3, PanelistIDs: []int64{4, 7, 11}, Start: at(13, 30), End: at(14, 30)})
		if conflict == nil {
			t.Fatalf("expected conflict")
		}
		if conflict.Actor != ActorPanelist || conflict.ActorID != 7 {
			t.Fatalf("expected panelist 7, got %#v", conflict)
		}
	})

	t.Run("panelist membership is exact", func(t *testing.T) {
		t.Parallel()
		if conflict := Validate(existing, Proposal{CandidateID: 3, PanelistIDs: []int64{1}, Start: at(13, 0), End: at(14, 0)}); conflict != nil {
			t.Fatalf("panelist 1 must not match panelist 11, got %#v", conflict)
		}
	})

	t.Run("excluded interview is ignored", func(t *testing.T) {
		t.Parallel()
		proposal := Proposal{CandidateID: 1, PanelistIDs: []int64{5}, Start: at(10, 15), End: at(11, 15), ExcludeInterviewID: "iv-1"}
		if conflict := Validate(existing, proposal); conflict != nil {
			t.Fatalf("expected no conflict, got %#v", conflict)
		}
	})
}
