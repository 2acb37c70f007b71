package errors

import (
	"fmt"
	"net/http"
)

// WrapRemoteError classifies a failed call to the release target by its HTTP status
func WrapRemoteError(err error, statusCode int, operation string) error {
	if err == nil {
		return nil
	}

	details := operation
	if statusCode > 0 {
		details = fmt.Sprintf("%s failed with status %d", operation, statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return NewAuthenticationError(err, details,
			"Check the release token (release.token, XREL_RELEASE_TOKEN or GITHUB_TOKEN)")
	case http.StatusForbidden:
		return NewPermissionDeniedError(err, details,
			"The token needs write access to repository contents to publish releases")
	case http.StatusNotFound:
		return NewPublishError(err, details,
			"Verify release.repository is set to owner/name and the token can see it")
	default:
		return NewPublishError(err, details)
	}
}
