package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of Provider plus the scheduling extension
// interfaces, shared by the server tests.
type MockProvider struct {
	mock.Mock
}

var (
	_ Provider         = (*MockProvider)(nil)
	_ FreeBusyProvider = (*MockProvider)(nil)
	_ SchedulingSender = (*MockProvider)(nil)
	_ SchedulingInbox  = (*MockProvider)(nil)
)

func (m *MockProvider) GetPrincipal(ctx context.Context, principalID string) (*Principal, error) {
	args := m.Called(ctx, principalID)
	p, _ := args.Get(0).(*Principal)
	return p, args.Error(1)
}

func (m *MockProvider) GetCalendar(ctx context.Context, principalID, calendarID string) (*Calendar, error) {
	args := m.Called(ctx, principalID, calendarID)
	c, _ := args.Get(0).(*Calendar)
	return c, args.Error(1)
}

func (m *MockProvider) GetCalendarsForPrincipal(ctx context.Context, principalID string) ([]*Calendar, error) {
	args := m.Called(ctx, principalID)
	c, _ := args.Get(0).([]*Calendar)
	return c, args.Error(1)
}

func (m *MockProvider) CreateCalendar(ctx context.Context, principalID string, calendar *Calendar) (*Calendar, error) {
	args := m.Called(ctx, principalID, calendar)
	c, _ := args.Get(0).(*Calendar)
	return c, args.Error(1)
}

func (m *MockProvider) UpdateCalendar(ctx context.Context, principalID, calendarID string, updates *CalendarUpdate) (*Calendar, error) {
	args := m.Called(ctx, principalID, calendarID, updates)
	c, _ := args.Get(0).(*Calendar)
	return c, args.Error(1)
}

func (m *MockProvider) DeleteCalendar(ctx context.Context, principalID, calendarID string) error {
	args := m.Called(ctx, principalID, calendarID)
	return args.Error(0)
}

func (m *MockProvider) GetEventsForCalendar(ctx context.Context, principalID, calendarID string, fullData bool) ([]*Event, error) {
	args := m.Called(ctx, principalID, calendarID, fullData)
	e, _ := args.Get(0).([]*Event)
	return e, args.Error(1)
}

func (m *MockProvider) GetEventsByDate(ctx context.Context, principalID, calendarID string, start, end *time.Time, fullData bool) ([]*Event, error) {
	args := m.Called(ctx, principalID, calendarID, start, end, fullData)
	e, _ := args.Get(0).([]*Event)
	return e, args.Error(1)
}

func (m *MockProvider) GetEvent(ctx context.Context, principalID, calendarID, eventID string, fullData bool) (*Event, error) {
	args := m.Called(ctx, principalID, calendarID, eventID, fullData)
	e, _ := args.Get(0).(*Event)
	return e, args.Error(1)
}

func (m *MockProvider) CreateEvent(ctx context.Context, principalID, calendarID string, event *Event) (*Event, error) {
	args := m.Called(ctx, principalID, calendarID, event)
	e, _ := args.Get(0).(*Event)
	return e, args.Error(1)
}

func (m *MockProvider) UpdateEvent(ctx context.Context, principalID, calendarID string, event *Event) (*Event, error) {
	args := m.Called(ctx, principalID, calendarID, event)
	e, _ := args.Get(0).(*Event)
	return e, args.Error(1)
}

func (m *MockProvider) DeleteEvent(ctx context.Context, principalID, calendarID, eventID string) error {
	args := m.Called(ctx, principalID, calendarID, eventID)
	return args.Error(0)
}

func (m *MockProvider) GetETag(ctx context.Context, event *Event) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) GetFreeBusy(ctx context.Context, attendee string) (string, error) {
	args := m.Called(ctx, attendee)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) SendSchedulingMessage(ctx context.Context, principalID string, msg OutboundMessage) error {
	args := m.Called(ctx, principalID, msg)
	return args.Error(0)
}

func (m *MockProvider) GetSchedulingMessages(ctx context.Context, principalID string) ([]*SchedulingMessage, error) {
	args := m.Called(ctx, principalID)
	msgs, _ := args.Get(0).([]*SchedulingMessage)
	return msgs, args.Error(1)
}
