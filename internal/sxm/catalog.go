package sxm

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Catalog fetches and caches the channel listing (C3). The listing is
// fetched at most once per process lifetime (Invariant 4) via sync.Once;
// resolution against the cached slice is a pure read afterward (Testable
// Property 1).
type Catalog struct {
	client  *Client
	session *SessionManager

	once     sync.Once
	fetchErr error
	channels []Channel
}

// NewCatalog wires a channel catalog around the shared client and session.
func NewCatalog(client *Client, session *SessionManager) *Catalog {
	return &Catalog{client: client, session: session}
}

func (c *Catalog) load(ctx context.Context) {
	c.once.Do(func() {
		if err := c.session.EnsureAuthenticated(ctx); err != nil {
			c.fetchErr = err
			return
		}

		body := newChannelListingBody()
		resp, status, err := c.client.restPost(ctx, "get", body)
		if err != nil {
			c.fetchErr = err
			return
		}
		if status != http.StatusOK || resp == nil {
			c.fetchErr = &UpstreamError{Code: status, Message: "channel listing fetch failed"}
			return
		}

		modules := resp.ModuleListResponse.ModuleList.Modules
		if len(modules) == 0 {
			c.fetchErr = ErrParse
			return
		}
		c.channels = modules[0].ModuleResponse.ContentData.ChannelListing.Channels
		log.Info().Int("count", len(c.channels)).Msg("sxm: channel catalog loaded")
	})
}

// Channels returns the full catalog, fetching it on first call.
func (c *Catalog) Channels(ctx context.Context) ([]Channel, error) {
	c.load(ctx)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.channels, nil
}

// Resolve looks up a user-supplied channel key against channelId, name, or
// siriusChannelNumber (in that order), case-insensitively. Returns ok=false
// on no match, mirroring the (nil, nil) miss contract from spec.md §4.3.
func (c *Catalog) Resolve(ctx context.Context, userKey string) (guid, channelID string, ok bool) {
	channels, err := c.Channels(ctx)
	if err != nil {
		return "", "", false
	}

	key := strings.ToLower(userKey)
	for _, ch := range channels {
		if strings.ToLower(ch.ChannelID) == key ||
			strings.ToLower(ch.Name) == key ||
			strings.ToLower(ch.SiriusChannelNumber) == key {
			return ch.ChannelGUID, ch.ChannelID, true
		}
	}
	return "", "", false
}
