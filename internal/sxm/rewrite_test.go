package sxm

import "testing"

func TestBasePath(t *testing.T) {
	cases := []struct {
		name    string
		variant string
		want    string
		wantErr bool
	}{
		{
			name:    "typical variant URL",
			variant: "https://siriusxm-priprodlive.akamaized.net/ch/99/hls/1/high/variant.m3u8",
			want:    "ch/99/hls/1/high",
		},
		{
			name:    "http scheme",
			variant: "http://cdn.example.com/a/b/variant.m3u8",
			want:    "a/b",
		},
		{
			name:    "no directory, host only",
			variant: "https://cdn.example.com/variant.m3u8",
			want:    "",
		},
		{
			name:    "no slash at all",
			variant: "variant.m3u8",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := basePath(tc.variant)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("basePath(%q): expected error, got nil", tc.variant)
				}
				return
			}
			if err != nil {
				t.Fatalf("basePath(%q): unexpected error: %v", tc.variant, err)
			}
			if got != tc.want {
				t.Errorf("basePath(%q) = %q, want %q", tc.variant, got, tc.want)
			}
		})
	}
}

func TestRewritePlaylist(t *testing.T) {
	variant := "https://siriusxm-priprodlive.akamaized.net/ch/99/hls/1/high/variant.m3u8"
	body := "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:10.0,\nsegment0.aac\n#EXTINF:10.0,\nsegment1.aac\n#EXT-X-ENDLIST"

	got, err := rewritePlaylist(body, variant)
	if err != nil {
		t.Fatalf("rewritePlaylist: unexpected error: %v", err)
	}

	want := "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:10.0,\nch/99/hls/1/high/segment0.aac\n#EXTINF:10.0,\nch/99/hls/1/high/segment1.aac\n#EXT-X-ENDLIST"
	if got != want {
		t.Errorf("rewritePlaylist:\n got:  %q\n want: %q", got, want)
	}
}

func TestRewritePlaylistCRLF(t *testing.T) {
	variant := "https://cdn.example.com/a/b/variant.m3u8"
	body := "#EXTM3U\r\nsegment0.aac\r\n"

	got, err := rewritePlaylist(body, variant)
	if err != nil {
		t.Fatalf("rewritePlaylist: unexpected error: %v", err)
	}
	if want := "#EXTM3U\na/b/segment0.aac\n"; got != want {
		t.Errorf("rewritePlaylist with CRLF input:\n got:  %q\n want: %q", got, want)
	}
}

func TestRewritePlaylistBadVariant(t *testing.T) {
	if _, err := rewritePlaylist("#EXTM3U\nsegment0.aac\n", "not-a-url"); err == nil {
		t.Error("expected error for unparseable variant URL")
	}
}
