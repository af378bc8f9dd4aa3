package sxm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// playlistFixture wires a fake SiriusXM REST+CDN host (a single httptest
// server plays both roles, matching how restBase and cdnRoot can point at
// the same origin in tests) serving one channel's full now-playing -> master
// -> variant chain.
type playlistFixture struct {
	srv            *httptest.Server
	nowPlayingCode atomic.Int32
	masterHits     atomic.Int32
}

func newPlaylistFixture(t *testing.T) *playlistFixture {
	t.Helper()
	f := &playlistFixture{}
	f.nowPlayingCode.Store(nowPlayingCode)

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v2/experience/modules/modify/authentication", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SXMAUTHNEW", Value: "1"})
		writeModuleStatus(w, 1)
	})
	mux.HandleFunc("/rest/v2/experience/modules/resume", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "AWSALB", Value: "1"})
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "1"})
		writeModuleStatus(w, 1)
	})
	mux.HandleFunc("/rest/v2/experience/modules/get", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ModuleListResponse": map[string]any{
				"status": 1,
				"moduleList": map[string]any{
					"modules": []map[string]any{
						{
							"moduleResponse": map[string]any{
								"contentData": map[string]any{
									"channelListing": map[string]any{
										"channels": []Channel{},
									},
								},
							},
						},
					},
				},
			},
		})
	})
	mux.HandleFunc("/rest/v2/experience/modules/tune/now-playing-live", func(w http.ResponseWriter, r *http.Request) {
		code := int(f.nowPlayingCode.Load())
		w.Header().Set("Content-Type", "application/json")
		if code != nowPlayingCode {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ModuleListResponse": map[string]any{
					"status":   1,
					"messages": []map[string]any{{"code": code, "message": "session expired"}},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ModuleListResponse": map[string]any{
				"status":   1,
				"messages": []map[string]any{{"code": nowPlayingCode, "message": "ok"}},
				"moduleList": map[string]any{
					"modules": []map[string]any{
						{
							"moduleResponse": map[string]any{
								"liveChannelData": map[string]any{
									"hlsAudioInfos": []map[string]any{
										{"size": "SMALL", "url": "%Live_Primary_HLS%/ch/99/hls/1/low/master.m3u8"},
										{"size": "LARGE", "url": "%Live_Primary_HLS%/ch/99/hls/1/high/master.m3u8"},
									},
								},
							},
						},
					},
				},
			},
		})
	})
	mux.HandleFunc("/ch/99/hls/1/high/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		f.masterHits.Add(1)
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=128000\nvariant.m3u8\n")
	})
	mux.HandleFunc("/ch/99/hls/1/high/variant.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:10.0,\nsegment0.aac\n#EXT-X-ENDLIST")
	})
	mux.HandleFunc("/ch/99/hls/1/high/segment0.aac", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fake-audio-bytes")
	})

	f.srv = httptest.NewServer(mux)
	return f
}

func (f *playlistFixture) newResolver(t *testing.T) *PlaylistResolver {
	t.Helper()
	client, err := newTestClient(f.srv.URL+"/rest/v2/experience/modules/%s", f.srv.URL)
	if err != nil {
		t.Fatalf("newTestClient: %v", err)
	}
	session := NewSessionManager(client, "u", "p", nil)
	catalog := NewCatalog(client, session)
	return NewPlaylistResolver(client, session, catalog, nil, nil)
}

func TestFetchVariantURLJoinsAsSiblingOfMaster(t *testing.T) {
	f := newPlaylistFixture(t)
	defer f.srv.Close()

	resolver := f.newResolver(t)
	masterURL := f.srv.URL + "/ch/99/hls/1/high/master.m3u8"
	variantURL, err := resolver.fetchVariantURL(t.Context(), masterURL)
	if err != nil {
		t.Fatalf("fetchVariantURL: %v", err)
	}
	want := f.srv.URL + "/ch/99/hls/1/high/variant.m3u8"
	if variantURL != want {
		t.Errorf("fetchVariantURL() = %q, want %q", variantURL, want)
	}
}

func TestGetPlaylistRewritesSegmentLines(t *testing.T) {
	f := newPlaylistFixture(t)
	defer f.srv.Close()

	resolver := f.newResolver(t)
	body, err := resolver.resolve(t.Context(), "guid-99", "99", true, maxSessionAttempts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "#EXTM3U\n#EXTINF:10.0,\nch/99/hls/1/high/segment0.aac\n#EXT-X-ENDLIST"
	if body != want {
		t.Errorf("resolve() body:\n got:  %q\n want: %q", body, want)
	}
}

func TestGetPlaylistCachesVariantURL(t *testing.T) {
	f := newPlaylistFixture(t)
	defer f.srv.Close()

	resolver := f.newResolver(t)
	if _, err := resolver.resolve(t.Context(), "guid-99", "99", true, maxSessionAttempts); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.resolve(t.Context(), "guid-99", "99", true, maxSessionAttempts); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got := f.masterHits.Load(); got != 1 {
		t.Errorf("expected master playlist to be fetched once with caching enabled, got %d hits", got)
	}
}

func TestGetPlaylistForcesReauthOnExpiredSessionCode(t *testing.T) {
	f := newPlaylistFixture(t)
	defer f.srv.Close()
	f.nowPlayingCode.Store(201)

	resolver := f.newResolver(t)
	_, err := resolver.resolve(t.Context(), "guid-99", "99", false, 1)
	if err == nil {
		t.Fatal("expected an error since the now-playing endpoint never reports success")
	}
	if err != ErrSessionRetryExhausted {
		t.Errorf("expected ErrSessionRetryExhausted, got %v", err)
	}
}

func TestGetPlaylistUnknownChannel(t *testing.T) {
	f := newPlaylistFixture(t)
	defer f.srv.Close()

	resolver := f.newResolver(t)
	if _, err := resolver.GetPlaylist(t.Context(), "does-not-exist", true); err != ErrUnknownChannel {
		t.Errorf("GetPlaylist with unknown key: got %v, want ErrUnknownChannel", err)
	}
}
