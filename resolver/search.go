package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/network"
	"golang.org/x/time/rate"
)

// HTTPSearcher queries the search endpoint of the directory service.
// Fuzzy title and duration matching happens server side.
type HTTPSearcher struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[string]
}

// NewHTTPSearcher returns a searcher for the service at base, allowing perSecond searches per second.
func NewHTTPSearcher(base string, perSecond float64, client *http.Client) *HTTPSearcher {
	if client == nil {
		client = network.Client
	}
	if perSecond <= 0 {
		perSecond = 1
	}

	return &HTTPSearcher{
		base:    strings.TrimRight(base, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		cb: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "track-search",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A request that found nothing is a healthy service.
			IsSuccessful: func(err error) bool {
				return err == nil || network.IsStatus(err, http.StatusNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnf("resolver: circuit %s %s -> %s", name, from, to)
			},
		}),
	}
}

// Search asks the service for the best match of track.
func (s *HTTPSearcher) Search(ctx context.Context, track eventlog.Track) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	q := url.Values{
		"q":        {strings.TrimSpace(track.Title + " " + track.Artist)},
		"duration": {strconv.FormatInt(track.DurationMs, 10)},
	}
	target := s.base + "/youtube-search?" + q.Encode()

	id, err := s.cb.Execute(func() (string, error) {
		var resp struct {
			BestMatchVideoID string `json:"bestMatchVideoId"`
		}
		if err := network.GetJSON(ctx, s.client, target, &resp); err != nil {
			return "", err
		}
		return resp.BestMatchVideoID, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("track search unavailable: %w", err)
	}
	if network.IsStatus(err, http.StatusNotFound) {
		return "", nil
	}
	return id, err
}
