package platforms

import (
	"sort"

	config "github.com/maheshrc27/socialflow/configs"
)

// Registry holds one adapter per supported platform. It is the only place
// platform identifiers map to behavior; components hold a *Registry and
// dispatch through it.
type Registry struct {
	adapters map[string]Adapter
}

// New builds a registry from explicit adapters.
func New(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Config().Platform] = a
	}
	return r
}

// NewRegistry builds the full production registry covering every supported
// platform.
func NewRegistry(cfg config.Config, apps MastodonAppStore) *Registry {
	return New(
		NewTwitterAdapter(cfg.Twitter),
		NewFacebookAdapter(cfg.Facebook),
		NewInstagramAdapter(cfg.Instagram),
		NewLinkedInAdapter(cfg.LinkedIn),
		NewThreadsAdapter(cfg.Threads),
		NewPinterestAdapter(cfg.Pinterest),
		NewTiktokAdapter(cfg.Tiktok),
		NewYoutubeAdapter(cfg.Google),
		NewBlueskyAdapter(),
		NewMastodonAdapter(cfg.CallbackBaseURL, apps),
	)
}

func (r *Registry) Adapter(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

// Lookup returns the static descriptor for platform, or false if the
// platform is unknown.
func (r *Registry) Lookup(platform string) (*PlatformConfig, bool) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, false
	}
	return a.Config(), true
}

// ListConfigured returns the platforms that currently have usable
// credentials, sorted for stable output.
func (r *Registry) ListConfigured() []string {
	var out []string
	for name, a := range r.adapters {
		if a.Config().Configured() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
