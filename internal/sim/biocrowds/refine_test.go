package biocrowds

import (
	"math"
	"testing"
)

func TestOwnerVote_Beats(t *testing.T) {
	none := ownerVote{id: Unassigned, n: 2, bestD: math.Inf(1)}
	cases := []struct {
		name string
		a, b ownerVote
		want bool
	}{
		{"more votes win", ownerVote{id: 3, n: 3, bestD: 1.5}, ownerVote{id: 1, n: 2, bestD: 0.1}, true},
		{"fewer votes lose", ownerVote{id: 1, n: 2, bestD: 0.1}, ownerVote{id: 3, n: 3, bestD: 1.5}, false},
		{"agent beats none on equal votes", ownerVote{id: 5, n: 2, bestD: 1.9}, none, true},
		{"none loses to agent on equal votes", none, ownerVote{id: 5, n: 2, bestD: 1.9}, false},
		{"closer sample wins", ownerVote{id: 4, n: 2, bestD: 0.5}, ownerVote{id: 1, n: 2, bestD: 0.6}, true},
		{"farther sample loses", ownerVote{id: 1, n: 2, bestD: 0.6}, ownerVote{id: 4, n: 2, bestD: 0.5}, false},
		{"lower id wins full tie", ownerVote{id: 0, n: 2, bestD: 0.5}, ownerVote{id: 1, n: 2, bestD: 0.5}, true},
		{"higher id loses full tie", ownerVote{id: 1, n: 2, bestD: 0.5}, ownerVote{id: 0, n: 2, bestD: 0.5}, false},
	}
	for _, tc := range cases {
		if got := tc.a.beats(tc.b); got != tc.want {
			t.Fatalf("%s: beats=%v want=%v", tc.name, got, tc.want)
		}
	}
}
