package adapters

import (
	"errors"

	"topstories/services/frontend/models"
)

var errUnknownFailure = errors.New("unknown fetch failure")

// Result is the outcome of one fetch. Exactly one of stories or err is set;
// build it with Success or Failure.
type Result struct {
	stories []models.Story
	err     error
}

// Success wraps a filtered story list. A nil list is stored as empty.
func Success(stories []models.Story) Result {
	if stories == nil {
		stories = []models.Story{}
	}
	return Result{stories: stories}
}

// Failure wraps an error and discards any partial data.
func Failure(err error) Result {
	if err == nil {
		err = errUnknownFailure
	}
	return Result{err: err}
}

// Stories returns the story list, nil for a failed result.
func (r Result) Stories() []models.Story { return r.stories }

// Err returns the failure, nil for a successful result.
func (r Result) Err() error { return r.err }

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.err == nil }

// Unpack returns the result as a conventional Go pair.
func (r Result) Unpack() ([]models.Story, error) { return r.stories, r.err }
