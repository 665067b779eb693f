package dispatch

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/argus-ai/argus/pkg/provider"
)

// Classify maps a provider error to its failure kind. It is total: every
// error maps to exactly one kind, and anything unrecognized is permanent
// so a misbehaving provider can never cause unbounded retries.
func Classify(err error) Kind {
	var pe *provider.Error
	if errors.As(err, &pe) {
		switch {
		case pe.Status == 429:
			return KindTransient
		case pe.Status >= 500:
			return KindTransient
		default:
			// 4xx: bad request, auth failure, unsupported input.
			return KindPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTransient
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		// Connection refused, reset, DNS hiccups: worth retrying.
		return KindTransient
	}

	return KindPermanent
}
