package common

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/moogar0880/problems"
)

type ProblemError struct {
	problems.DefaultProblem
}

func (o *ProblemError) Error() string {
	return fmt.Sprintf("%d %s: %s", o.ProblemStatus(), o.ProblemTitle(), o.Detail)
}

// CheckResponse returns a *ProblemError when a non-2xx response carries an
// RFC 7807 problem document, as returned by reverse proxies fronting the
// appliance.  Anything else is left to the envelope decoder.
func CheckResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	ct, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil || ct != problems.ProblemMediaType {
		return nil
	}

	var prob ProblemError

	if err := DecodeJSONBody(res, &prob.DefaultProblem); err != nil {
		return fmt.Errorf(
			"could not decode problem response (status %d): %w",
			res.StatusCode,
			err,
		)
	}

	return &prob
}
