package streams

import "testing"

func TestNormalizeHLS(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "plain manifest gets rendition path",
			in:   "https://cdn.example.com/tracks/42.m3u8",
			want: "https://cdn.example.com/tracks/42/HLS/128_v4.m3u8",
			ok:   true,
		},
		{
			name: "query string preserved",
			in:   "https://cdn.example.com/tracks/42.m3u8?token=abc",
			want: "https://cdn.example.com/tracks/42/HLS/128_v4.m3u8?token=abc",
			ok:   true,
		},
		{
			name: "canonical form unchanged",
			in:   "https://cdn.example.com/tracks/42/HLS/128_v4.m3u8",
			want: "https://cdn.example.com/tracks/42/HLS/128_v4.m3u8",
			ok:   true,
		},
		{
			name: "canonical form without version suffix unchanged",
			in:   "https://cdn.example.com/tracks/42/HLS/320.m3u8",
			want: "https://cdn.example.com/tracks/42/HLS/320.m3u8",
			ok:   true,
		},
		{
			name: "wrong extension rejected",
			in:   "https://cdn.example.com/tracks/42.mp4",
			ok:   false,
		},
		{
			name: "mpd rejected",
			in:   "https://cdn.example.com/tracks/42.mpd",
			ok:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeHLS(tt.in)
			if ok != tt.ok {
				t.Fatalf("NormalizeHLS(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeHLS(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeHLS_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"https://cdn.example.com/tracks/42.m3u8",
		"https://cdn.example.com/tracks/42.m3u8?sig=x",
		"https://cdn.example.com/a/HLS/96_v2.m3u8",
	}
	for _, in := range inputs {
		once, ok := NormalizeHLS(in)
		if !ok {
			t.Fatalf("NormalizeHLS(%q) unexpectedly rejected", in)
		}
		twice, ok := NormalizeHLS(once)
		if !ok {
			t.Fatalf("NormalizeHLS(%q) rejected its own output %q", in, once)
		}
		if twice != once {
			t.Errorf("NormalizeHLS not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeDASH(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "trailing segment replaced",
			in:   "https://cdn.example.com/tracks/42/manifest.mpd",
			want: "https://cdn.example.com/tracks/42/DASH.mpd",
			ok:   true,
		},
		{
			name: "query string preserved",
			in:   "https://cdn.example.com/tracks/42/manifest.mpd?token=abc",
			want: "https://cdn.example.com/tracks/42/DASH.mpd?token=abc",
			ok:   true,
		},
		{
			name: "canonical form unchanged",
			in:   "https://cdn.example.com/tracks/42/DASH.mpd",
			want: "https://cdn.example.com/tracks/42/DASH.mpd",
			ok:   true,
		},
		{
			name: "wrong extension rejected",
			in:   "https://x/a.mp4",
			ok:   false,
		},
		{
			name: "m3u8 rejected",
			in:   "https://x/a.m3u8",
			ok:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeDASH(tt.in)
			if ok != tt.ok {
				t.Fatalf("NormalizeDASH(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeDASH(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDASH_Idempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"https://cdn.example.com/tracks/42/manifest.mpd",
		"https://cdn.example.com/tracks/42/manifest.mpd?sig=y",
		"https://cdn.example.com/tracks/42/DASH.mpd",
	}
	for _, in := range inputs {
		once, ok := NormalizeDASH(in)
		if !ok {
			t.Fatalf("NormalizeDASH(%q) unexpectedly rejected", in)
		}
		twice, ok := NormalizeDASH(once)
		if !ok {
			t.Fatalf("NormalizeDASH(%q) rejected its own output %q", in, once)
		}
		if twice != once {
			t.Errorf("NormalizeDASH not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
