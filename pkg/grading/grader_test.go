package grading

import (
	"reflect"
	"testing"
)

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"O3: Paris", []string{"paris"}},
		{"A: Paris", []string{"paris"}},
		{"b:Berlin", []string{"berlin"}},
		{"  The  Eiffel Tower ", []string{"the", "eiffel", "tower"}},
		{"O12: ", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := NormalizeAnswer(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("NormalizeAnswer(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		selected, correct string
		want              bool
	}{
		{"O3: Paris", "paris", true},
		{"Paris France", "France Paris", true},
		{"Paris", "Paris France", false},
		{"Paris France Italy", "France Paris", false},
		{"", "", true},
		{"O1: ", "A: ", true},
		{"London", "Paris", false},
		{"PARIS", "paris", true},
	}
	for _, tc := range cases {
		if got := Grade(tc.selected, tc.correct); got != tc.want {
			t.Fatalf("Grade(%q, %q) = %v, want %v", tc.selected, tc.correct, got, tc.want)
		}
	}
}
