package jobmodel

import (
	"errors"
	"testing"
)

func TestErrorsUnwrapToSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"JobNotFound", NewJobNotFound("a"), ErrJobNotFound},
		{"JobAlreadyExists", NewJobAlreadyExists("a"), ErrJobAlreadyExists},
		{"InvalidJobData", NewInvalidJobData("a", map[string]string{"x": "bad"}), ErrInvalidJobData},
		{"JobPersistenceError", NewJobPersistenceError("a", errors.New("boom")), ErrJobPersistence},
		{"JobFieldsRequirePersistence", NewJobFieldsRequirePersistence("a", []string{"taskCount"}), ErrJobFieldsRequirePersistence},
		{"ImmutableJobFields", NewImmutableJobFields("a", []string{"id"}), ErrImmutableJobFields},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Errorf("%v does not unwrap to %v", tc.err, tc.want)
			}
		})
	}
}
