package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authservice/internal/common"
)

// internalErr marks a collaborator fault as common.ErrInternal while
// keeping the cause for logs.
func internalErr(op string, err error) error {
	if errors.Is(err, common.ErrInternal) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrInternal, err)
}

// passThrough returns err unchanged when it is one of kinds, otherwise
// wraps it as internal.
func passThrough(op string, err error, kinds ...error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return internalErr(op, err)
}
