package retry

import (
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests according to RetryOn, waiting between attempts
// as RetryStrategy says. Requests with a body are replayed through GetBody.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	for n := uint(0); ; n++ {
		attempt := request
		if n > 0 && request.Body != nil && request.Body != http.NoBody {
			if request.GetBody == nil {
				return nil, xerrors.New("cannot retry request without GetBody")
			}
			body, err := request.GetBody()
			if err != nil {
				return nil, xerrors.Errorf("failed to rewind request body: %w", err)
			}
			attempt = request.Clone(ctx)
			attempt.Body = body
		}

		sleep, exceeded := t.retryStrategy().Sleep(n)
		response, err := t.base().RoundTrip(attempt)

		var retry bool
		if err != nil {
			retry = t.RetryOn != nil && t.RetryOn.CheckError(err)
		} else {
			retry = t.RetryOn != nil && t.RetryOn.CheckResponse(response)
		}
		if exceeded || !retry {
			return response, err
		}
		if response != nil {
			response.Body.Close()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
