// Package calendar wraps the Google Calendar API for the one thing this tool
// needs it for: proving that an issued credential actually works.
package calendar

import (
	"context"
	"fmt"
	"net/http"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/bnema/gcal-token/internal/logger"
)

// Service is a thin wrapper over the Calendar API client
type Service struct {
	service *gcal.Service
}

// NewService creates a calendar service backed by an authenticated HTTP client
func NewService(ctx context.Context, httpClient *http.Client) (*Service, error) {
	service, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Service{service: service}, nil
}

// VerifyAccess makes a minimal API call to confirm the credential is accepted
func (s *Service) VerifyAccess(ctx context.Context) error {
	_, err := s.service.CalendarList.List().MaxResults(1).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar API rejected the credential: %w", err)
	}

	logger.Debug("credential verified against calendar API")
	return nil
}

// ListCalendars retrieves all calendars accessible with the credential
func (s *Service) ListCalendars(ctx context.Context) ([]*gcal.CalendarListEntry, error) {
	var entries []*gcal.CalendarListEntry

	call := s.service.CalendarList.List().Context(ctx)
	err := call.Pages(ctx, func(page *gcal.CalendarList) error {
		entries = append(entries, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	logger.Debug("listed calendars", "count", len(entries))
	return entries, nil
}
