package resource

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type CardsAPI interface {
	ListCards(ctx context.Context) ([]types.Card, error)
	UpdateCard(ctx context.Context, id string, u types.CardUpdate) (types.Card, error)
	AssignCard(ctx context.Context, id string, r types.AssignCardRequest) (types.Card, error)
	RevokeCard(ctx context.Context, id, reason string) (types.Card, error)
	ReactivateCard(ctx context.Context, id string) (types.Card, error)
	DeleteCard(ctx context.Context, id string) error
}

// Cards is the synchronized card list. It has no realtime event; it is
// kept current by refetch and local patches.
type Cards struct {
	state
	api   CardsAPI
	cards []types.Card
}

func NewCards(api CardsAPI, opts Options) *Cards {
	c := &Cards{api: api}
	c.logger = opts.Logger.With().Str("component", "cards").Logger()
	return c
}

func (c *Cards) Cards() []types.Card {
	return c.filter(func(types.Card) bool { return true })
}

// Pending lists cards a reader has seen that are not assigned to anyone.
func (c *Cards) Pending() []types.Card {
	return c.filter(types.Card.Pending)
}

func (c *Cards) Active() []types.Card {
	return c.filter(func(x types.Card) bool { return x.Status == types.CardActive && !x.EnrollMode })
}

func (c *Cards) Revoked() []types.Card {
	return c.filter(func(x types.Card) bool { return x.Status == types.CardRevoked })
}

func (c *Cards) Get(id string) (types.Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, x := range c.cards {
		if x.CardID == id {
			return copyCard(x), true
		}
	}
	return types.Card{}, false
}

func (c *Cards) filter(keep func(types.Card) bool) []types.Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Card, 0, len(c.cards))
	for _, x := range c.cards {
		if keep(x) {
			out = append(out, copyCard(x))
		}
	}
	return out
}

func (c *Cards) FetchAll(ctx context.Context) error {
	defer c.begin()()

	cards, err := c.api.ListCards(ctx)
	if err != nil {
		return c.fail("fetch cards", err)
	}
	c.mu.Lock()
	c.cards = cards
	c.clearErrLocked()
	c.mu.Unlock()
	return nil
}

func (c *Cards) Update(ctx context.Context, id string, u types.CardUpdate) (types.Card, error) {
	card, err := c.api.UpdateCard(ctx, id, u)
	if err != nil {
		return types.Card{}, c.fail("update card", err)
	}
	c.replace(card)
	return card, nil
}

// AssignUser binds the card to userID under policy. The local record
// becomes an active, non-enrolling card for that user.
func (c *Cards) AssignUser(ctx context.Context, id, userID string, policy types.CardPolicy) (types.Card, error) {
	card, err := c.api.AssignCard(ctx, id, types.AssignCardRequest{UserID: userID, Policy: policy})
	if err != nil {
		return types.Card{}, c.fail("assign card", err)
	}
	card = c.patch(id, card, func(x *types.Card) {
		x.UserID = userID
		x.EnrollMode = false
		x.Status = types.CardActive
		p := policy
		x.Policy = &p
	})
	return card, nil
}

func (c *Cards) Revoke(ctx context.Context, id, reason string) (types.Card, error) {
	card, err := c.api.RevokeCard(ctx, id, reason)
	if err != nil {
		return types.Card{}, c.fail("revoke card", err)
	}
	card = c.patch(id, card, func(x *types.Card) {
		x.Status = types.CardRevoked
		x.RevokedReason = reason
	})
	return card, nil
}

func (c *Cards) Reactivate(ctx context.Context, id string) (types.Card, error) {
	card, err := c.api.ReactivateCard(ctx, id)
	if err != nil {
		return types.Card{}, c.fail("reactivate card", err)
	}
	card = c.patch(id, card, func(x *types.Card) {
		x.Status = types.CardActive
		x.RevokedReason = ""
	})
	return card, nil
}

func (c *Cards) Delete(ctx context.Context, id string) error {
	if err := c.api.DeleteCard(ctx, id); err != nil {
		return c.fail("delete card", err)
	}
	c.mu.Lock()
	out := c.cards[:0:0]
	for _, x := range c.cards {
		if x.CardID != id {
			out = append(out, x)
		}
	}
	c.cards = out
	c.clearErrLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Cards) replace(card types.Card) {
	c.mu.Lock()
	found := false
	for i := range c.cards {
		if c.cards[i].CardID == card.CardID {
			c.cards[i] = card
			found = true
			break
		}
	}
	if !found {
		c.cards = append(c.cards, card)
	}
	c.clearErrLocked()
	c.mu.Unlock()
	c.notify()
}

// patch stores the record the server returned for id, or the cached one
// when the response is empty, with fn applied on top. A card not yet cached
// is added.
func (c *Cards) patch(id string, server types.Card, fn func(*types.Card)) types.Card {
	c.mu.Lock()
	idx := -1
	for i := range c.cards {
		if c.cards[i].CardID == id {
			idx = i
			break
		}
	}

	var x types.Card
	switch {
	case server.CardID != "":
		x = copyCard(server)
	case idx >= 0:
		x = copyCard(c.cards[idx])
	default:
		x = types.Card{CardID: id}
	}
	fn(&x)

	if idx >= 0 {
		c.cards[idx] = x
	} else {
		c.cards = append(c.cards, x)
	}
	c.clearErrLocked()
	c.mu.Unlock()
	c.notify()
	return copyCard(x)
}

func copyCard(x types.Card) types.Card {
	if x.Policy != nil {
		p := *x.Policy
		x.Policy = &p
	}
	return x
}
