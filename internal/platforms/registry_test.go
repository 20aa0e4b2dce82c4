package platforms

import (
	"sort"
	"testing"

	config "github.com/maheshrc27/socialflow/configs"
)

func fullTestConfig() config.Config {
	creds := config.PlatformCredentials{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "https://api.example.com/auth/callback",
	}
	return config.Config{
		Twitter:         creds,
		Facebook:        creds,
		Instagram:       creds,
		LinkedIn:        creds,
		Threads:         creds,
		Pinterest:       creds,
		Tiktok:          creds,
		Google:          creds,
		CallbackBaseURL: "https://api.example.com",
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(fullTestConfig(), nil)

	platforms := []string{
		PlatformTwitter, PlatformFacebook, PlatformInstagram, PlatformLinkedIn,
		PlatformThreads, PlatformPinterest, PlatformTiktok, PlatformYoutube,
		PlatformBluesky, PlatformMastodon,
	}

	for _, p := range platforms {
		t.Run(p, func(t *testing.T) {
			a, ok := r.Adapter(p)
			if !ok {
				t.Fatalf("Adapter(%q) missing", p)
			}
			if a.Config().Platform != p {
				t.Errorf("adapter platform = %q, want %q", a.Config().Platform, p)
			}
		})
	}

	if _, ok := r.Adapter("myspace"); ok {
		t.Error("unknown platform should not resolve")
	}
}

func TestListConfigured(t *testing.T) {
	t.Run("all configured", func(t *testing.T) {
		r := NewRegistry(fullTestConfig(), nil)
		got := r.ListConfigured()
		if len(got) != 10 {
			t.Fatalf("ListConfigured() returned %d platforms, want 10", len(got))
		}
		if !sort.StringsAreSorted(got) {
			t.Error("ListConfigured() should be sorted")
		}
	})

	t.Run("unconfigured oauth platforms excluded", func(t *testing.T) {
		r := NewRegistry(config.Config{}, nil)
		got := r.ListConfigured()

		// Bluesky and Mastodon need no static client and are always usable.
		want := []string{PlatformBluesky, PlatformMastodon}
		if len(got) != len(want) {
			t.Fatalf("ListConfigured() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ListConfigured()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestLookup(t *testing.T) {
	r := NewRegistry(fullTestConfig(), nil)

	cfg, ok := r.Lookup(PlatformTwitter)
	if !ok {
		t.Fatal("Lookup(twitter) missing")
	}
	if cfg.AuthType != AuthTypeOAuth2PKCE {
		t.Errorf("twitter auth type = %q, want %q", cfg.AuthType, AuthTypeOAuth2PKCE)
	}

	cfg, ok = r.Lookup(PlatformMastodon)
	if !ok {
		t.Fatal("Lookup(mastodon) missing")
	}
	if cfg.AuthType != AuthTypeDynamicRegistration {
		t.Errorf("mastodon auth type = %q, want %q", cfg.AuthType, AuthTypeDynamicRegistration)
	}

	if _, ok := r.Lookup("orkut"); ok {
		t.Error("unknown platform should not resolve")
	}
}
