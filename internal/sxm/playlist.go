package sxm

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/laurikarhu/sxmproxy/internal/metrics"
)

// maxSessionAttempts bounds the number of now-playing → reauth round trips
// a single playlist resolution may take before giving up. An explicit
// integer budget replaces the original implementation's unbounded
// recursion on a hostile or permanently-expired session (§9).
const maxSessionAttempts = 5

// nowPlayingCode is the ModuleListResponse message code meaning "tuned in
// successfully, live channel data attached".
const nowPlayingCode = 100

// PlaylistResolver implements C4 and C5: resolving a user-facing channel key
// down to a rewritten variant playlist, with the variant URL cached per
// channel (Invariant 5) and per-channel fetches coalesced via singleflight
// so a burst of listeners on the same channel triggers one upstream fetch
// (Testable Property 2).
type PlaylistResolver struct {
	client  *Client
	session *SessionManager
	catalog *Catalog
	sink    Sink
	stats   *metrics.Collector

	cache  sync.Map // channelID -> variant URL (string)
	flight singleflight.Group
}

// NewPlaylistResolver wires C4/C5 around the shared client, session,
// catalog, and telemetry sink. stats may be nil.
func NewPlaylistResolver(client *Client, session *SessionManager, catalog *Catalog, sink Sink, stats *metrics.Collector) *PlaylistResolver {
	if sink == nil {
		sink = NoopSink{}
	}
	return &PlaylistResolver{client: client, session: session, catalog: catalog, sink: sink, stats: stats}
}

// GetPlaylist resolves userKey to a rewritten variant playlist body, per the
// resolve → now-playing → master → variant → rewrite flow of spec.md §4.4.
func (p *PlaylistResolver) GetPlaylist(ctx context.Context, userKey string, useCache bool) (string, error) {
	if p.stats != nil {
		p.stats.IncPlaylistRequest()
	}
	guid, channelID, ok := p.catalog.Resolve(ctx, userKey)
	if !ok {
		return "", ErrUnknownChannel
	}
	out, err := p.resolve(ctx, guid, channelID, useCache, maxSessionAttempts)
	if err != nil && p.stats != nil {
		p.stats.IncUpstreamError()
	}
	return out, err
}

func (p *PlaylistResolver) resolve(ctx context.Context, guid, channelID string, useCache bool, attemptsLeft int) (string, error) {
	variantURL, ok := "", false
	if useCache {
		if v, loaded := p.cache.Load(channelID); loaded {
			variantURL, ok = v.(string), true
		}
	}

	if !ok {
		v, err, _ := p.flight.Do(channelID, func() (any, error) {
			masterURL, err := p.resolveMaster(ctx, guid, channelID, attemptsLeft)
			if err != nil {
				return nil, err
			}
			variant, err := p.fetchVariantURL(ctx, masterURL)
			if err != nil {
				return nil, err
			}
			p.cache.Store(channelID, variant)
			return variant, nil
		})
		if err != nil {
			return "", err
		}
		variantURL = v.(string)
	}

	resp, err := p.client.fetchText(ctx, variantURL, p.session.tokenParams())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 403 {
		p.cache.Delete(channelID)
		if attemptsLeft <= 0 {
			return "", ErrSessionRetryExhausted
		}
		log.Warn().Str("channel", channelID).Msg("sxm: variant fetch returned 403, re-resolving")
		return p.resolve(ctx, guid, channelID, false, attemptsLeft-1)
	}
	if resp.StatusCode != 200 {
		return "", &UpstreamError{Code: resp.StatusCode, Message: "variant playlist fetch failed"}
	}

	body, err := readAll(resp.Body)
	if err != nil {
		return "", err
	}
	return rewritePlaylist(body, variantURL)
}

// resolveMaster issues the now-playing call and, on success, returns the
// LARGE HLS master URL. A 201/208 message code means the session has
// expired server-side; it forces a fresh login/resume and retries within
// the attempt budget rather than recursing unboundedly.
func (p *PlaylistResolver) resolveMaster(ctx context.Context, guid, channelID string, attemptsLeft int) (string, error) {
	if err := p.session.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}

	for {
		now := time.Now().UTC()
		params := map[string]string{
			"assetGUID":       guid,
			"ccRequestType":   "AUDIO_VIDEO",
			"channelId":       channelID,
			"hls_output_mode": "custom",
			"marker_mode":     "all_separate_cue_points",
			"result-template": "web",
			"time":            strconv.FormatInt(now.UnixMilli(), 10),
			"timestamp":       now.Format("2006-01-02T15:04:05") + "Z",
		}
		for k, v := range p.session.tokenParams() {
			params[k] = v
		}

		resp, err := p.client.restGet(ctx, "tune/now-playing-live", params)
		if err != nil {
			return "", err
		}
		if len(resp.ModuleListResponse.Messages) == 0 {
			return "", ErrParse
		}
		msg := resp.ModuleListResponse.Messages[0]

		switch msg.Code {
		case nowPlayingCode:
			modules := resp.ModuleListResponse.ModuleList.Modules
			if len(modules) == 0 {
				return "", ErrParse
			}
			infos := modules[0].ModuleResponse.LiveChannelData.HLSAudioInfos
			for _, info := range infos {
				if info.Size == "LARGE" {
					master := strings.Replace(info.URL, "%Live_Primary_HLS%", p.client.cdnRoot, 1)
					go func() {
						if err := p.sink.Publish(context.Background(), NowPlaying{ChannelID: channelID, GUID: guid}); err != nil {
							log.Warn().Err(err).Str("channel", channelID).Msg("sxm: telemetry publish failed")
						}
					}()
					return master, nil
				}
			}
			return "", ErrParse

		case 201, 208:
			if attemptsLeft <= 0 {
				return "", ErrSessionRetryExhausted
			}
			log.Warn().Int("code", msg.Code).Str("channel", channelID).Msg("sxm: now-playing reports expired session, re-authenticating")
			if err := p.session.ForceReauthenticate(ctx); err != nil {
				return "", err
			}
			attemptsLeft--
			continue

		default:
			return "", &UpstreamError{Code: msg.Code, Message: msg.Message}
		}
	}
}

// fetchVariantURL GETs the master playlist and picks the first .m3u8 line,
// per the heuristic in spec.md §4.4 step 6. The line is joined as a sibling
// of the master URL (same directory), matching the original implementation's
// '{}/{}'.format(url.rsplit('/', 1)[0], x.rstrip()).
func (p *PlaylistResolver) fetchVariantURL(ctx context.Context, masterURL string) (string, error) {
	resp, err := p.client.fetchText(ctx, masterURL, p.session.tokenParams())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", &UpstreamError{Code: resp.StatusCode, Message: "master playlist fetch failed"}
	}

	body, err := readAll(resp.Body)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, ".m3u8") {
			masterDir := masterURL[:strings.LastIndex(masterURL, "/")]
			return masterDir + "/" + line, nil
		}
	}
	return "", ErrParse
}
