package application

import (
	"errors"
	"fmt"

	"github.com/chinoiserie/catalog/internal/domains/catalog/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid catalog input")
	// ErrCollaboratorFailure marks a mutation the remote collection rejected; local state was reloaded.
	ErrCollaboratorFailure = errors.New("collection service failure")
	// ErrMutationInFlight is returned by the in-flight guard when an id is still committing.
	ErrMutationInFlight = errors.New("mutation already in flight")
	// ErrClosed is returned once the owning view has been torn down.
	ErrClosed = errors.New("catalog view closed")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyName) ||
		errors.Is(err, domain.ErrEmptyArticle) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrEmptyCategoryID) ||
		errors.Is(err, domain.ErrSentinelCategory) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
