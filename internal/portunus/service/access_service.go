package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

// Decision reasons reported to devices and written to the access log.
const (
	ReasonAllowAll        = "allow_all"
	ReasonCardAllowed     = "card_allowed"
	ReasonCardNotAssigned = "card_not_assigned"
	ReasonCardRevoked     = "card_revoked"
	ReasonUserInactive    = "user_inactive"
	ReasonUnknownDevice   = "unknown_device"
)

type AccessPolicy struct {
	// AllowAll grants every card at a known device. Cards are still
	// enrolled and logged.
	AllowAll bool
}

type AccessService struct {
	registry *DeviceRegistry
	cards    store.CardStore
	users    store.UserStore
	logs     store.AccessLogStore
	policy   AccessPolicy
	pub      Publisher
	logger   zerolog.Logger
}

type AccessDeps struct {
	Registry  *DeviceRegistry
	Cards     store.CardStore
	Users     store.UserStore
	Logs      store.AccessLogStore
	Policy    AccessPolicy
	Publisher Publisher
	Logger    zerolog.Logger
}

func NewAccessService(d AccessDeps) *AccessService {
	return &AccessService{
		registry: d.Registry,
		cards:    d.Cards,
		users:    d.Users,
		logs:     d.Logs,
		policy:   d.Policy,
		pub:      publisherOrNop(d.Publisher),
		logger:   d.Logger.With().Str("component", "access").Logger(),
	}
}

func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	now := time.Now().UTC()

	deviceID := strings.TrimSpace(req.DeviceID)
	cardUID := strings.ToUpper(strings.TrimSpace(req.CardUID))

	if deviceID == "" {
		return types.AccessResponse{}, ErrInvalidDeviceID
	}
	if cardUID == "" {
		return types.AccessResponse{}, ErrInvalidCardID
	}

	entry := types.AccessLogEntry{
		ID:        ksuid.New().String(),
		CardUID:   cardUID,
		DeviceID:  deviceID,
		Action:    req.Action,
		Result:    types.ResultDenied,
		Timestamp: types.NewTimestamp(now),
	}
	if entry.Action == "" {
		entry.Action = types.ActionEntry
	}
	if t := parseOptionalTimestamp(req.RequestedAt); t != nil {
		entry.Timestamp = types.NewTimestamp(*t)
	}

	known, err := s.registry.IsKnown(ctx, deviceID)
	if err != nil {
		return types.AccessResponse{}, err
	}

	if !known {
		entry.Reason = ReasonUnknownDevice
		s.record(ctx, entry)

		return types.AccessResponse{
			OK:         false,
			Known:      false,
			Granted:    false,
			Reason:     ReasonUnknownDevice,
			DeviceID:   deviceID,
			ServerTime: now.Format(time.RFC3339Nano),
		}, nil
	}

	if dev, err := s.registry.Get(ctx, deviceID); err == nil {
		entry.DoorID = dev.DoorID
	}

	card, err := s.cardFor(ctx, cardUID, now)
	if err != nil {
		return types.AccessResponse{}, err
	}

	var user *types.User
	if card.UserID != "" {
		u, err := s.users.GetUser(ctx, card.UserID)
		switch {
		case err == nil:
			user = &u
			entry.UserID, entry.UserName = u.ID, u.Name
		case !errors.Is(err, store.ErrNotFound):
			return types.AccessResponse{}, err
		}
	}

	granted, reason := s.evaluate(card, user)
	if granted {
		entry.Result = types.ResultGranted
	}
	entry.Reason = reason
	s.record(ctx, entry)

	return types.AccessResponse{
		OK:         true,
		Known:      true,
		Granted:    granted,
		Reason:     reason,
		DeviceID:   deviceID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

func (s *AccessService) evaluate(card types.Card, user *types.User) (bool, string) {
	if s.policy.AllowAll {
		return true, ReasonAllowAll
	}
	switch {
	case card.Status == types.CardRevoked:
		return false, ReasonCardRevoked
	case user == nil:
		return false, ReasonCardNotAssigned
	case !user.IsActive:
		return false, ReasonUserInactive
	}
	return true, ReasonCardAllowed
}

// cardFor returns the card with uid, enrolling it as pending on first sight.
func (s *AccessService) cardFor(ctx context.Context, uid string, now time.Time) (types.Card, error) {
	card, err := s.cards.CardByUID(ctx, uid)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Card{}, err
	}

	card = types.Card{
		CardID:     uuid.NewString(),
		CardUID:    uid,
		Status:     types.CardActive,
		EnrollMode: true,
		CreatedAt:  types.NewTimestamp(now),
		UpdatedAt:  types.NewTimestamp(now),
	}
	if err := s.cards.PutCard(ctx, card); err != nil {
		return types.Card{}, err
	}
	s.logger.Info().Str("card_uid", uid).Str("card_id", card.CardID).Msg("enrolled pending card")
	return card, nil
}

// record persists the decision and publishes it. A failed write is logged
// and does not change the decision returned to the device.
func (s *AccessService) record(ctx context.Context, e types.AccessLogEntry) {
	if err := s.logs.RecordEntry(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("device_id", e.DeviceID).Msg("record access log")
	}
	s.pub.Publish(types.EventAccessLog, e)
}

// Recent returns the newest limit entries.
func (s *AccessService) Recent(ctx context.Context, limit int) ([]types.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.logs.ListEntries(ctx, 1, limit)
}

func (s *AccessService) Logs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLogEntry, error) {
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.logs.ListEntries(ctx, page, limit)
}

// Stats counts decisions in period: "today" (since local midnight), "week"
// (7 days) or "month" (30 days).
func (s *AccessService) Stats(ctx context.Context, period string, now time.Time) (types.AccessStats, error) {
	var since time.Time
	switch period {
	case "", "today":
		period = "today"
		y, m, d := now.Date()
		since = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, 0, -30)
	default:
		return types.AccessStats{}, ErrInvalidInput
	}

	c, err := s.logs.CountSince(ctx, since)
	if err != nil {
		return types.AccessStats{}, err
	}
	return types.AccessStats{
		Period:      period,
		Granted:     c.Granted,
		Denied:      c.Denied,
		TotalAccess: c.Granted + c.Denied,
	}, nil
}

// parseOptionalTimestamp attempts to parse a device-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
