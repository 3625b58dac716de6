package service

import (
	"context"
	"errors"
	"strings"

	"semaphore/roster/internal/repository"
)

type ClassResolver struct {
	classes ClassLookup
}

func NewClassResolver(classes ClassLookup) *ClassResolver {
	return &ClassResolver{classes: classes}
}

// Resolve maps a grade/section pair to the id of the matching active class.
// No match, or an incomplete pair, yields nil without an error.
func (r *ClassResolver) Resolve(ctx context.Context, grade, section string) (*int64, error) {
	grade = strings.TrimSpace(grade)
	section = strings.TrimSpace(section)
	if grade == "" || section == "" {
		return nil, nil
	}
	id, err := r.classes.FindActiveClassID(ctx, grade, section)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}
