package gitlab

import (
	"fmt"
	"net/http"
	"strings"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/randalmurphal/repoback/internal/hosting"
)

// mapError wraps a client error with the matching hosting sentinel.
// GitLab reports uniqueness violations as 409, or 400 with "already" in the message.
func mapError(err error, resp *gogitlab.Response) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", hosting.ErrAlreadyExists, err)
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(err.Error()), "already") {
			return fmt.Errorf("%w: %w", hosting.ErrAlreadyExists, err)
		}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", hosting.ErrAuthFailed, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", hosting.ErrNotFound, err)
	}
	return err
}
