package engines

import (
	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/fts"
)

// BuildRegistry registers the built-in engine set, applies config
// overrides, and freezes the registry. A nil index skips the local
// engine.
func BuildRegistry(cfg config.EnginesConfig, index fts.Driver) (*Registry, error) {
	r := NewRegistry()

	all := []Engine{
		NewGoogle(),
		NewBing(),
		NewGoogleVideos(),
		NewBingVideos(),
		NewYouTube(""),
		NewVimeo(),
		NewDailymotion(),
		NewPeerTube(""),
		NewDuckDuckGo(),
		NewJina(""),
	}
	if index != nil {
		all = append(all, NewLocalIndex(index))
	}
	for _, e := range all {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}

	r.ApplyOverrides(cfg)
	r.Freeze()
	return r, nil
}
