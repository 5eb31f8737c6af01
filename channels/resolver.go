package channels

import (
	"fmt"
	"sync"

	"github.com/rcmckee/bigcases2/core"
)

// ClientResolver maps channel records onto service clients. The service
// set is closed: adding a service means adding a client type here, not
// registering one at runtime.
type ClientResolver struct {
	twitter  TwitterConfig
	mastodon MastodonConfig

	mu    sync.Mutex
	cache map[core.ChannelService]core.PostClient
}

func NewClientResolver(twitter TwitterConfig, mastodon MastodonConfig) *ClientResolver {
	return &ClientResolver{
		twitter:  twitter,
		mastodon: mastodon,
		cache:    map[core.ChannelService]core.PostClient{},
	}
}

func (r *ClientResolver) ClientFor(channel core.Channel) (core.PostClient, error) {
	if err := channel.Service.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.cache[channel.Service]; ok {
		return client, nil
	}

	var (
		client core.PostClient
		err    error
	)
	switch channel.Service {
	case core.ChannelServiceTwitter:
		client, err = NewTwitterClient(r.twitter)
	case core.ChannelServiceMastodon:
		client, err = NewMastodonClient(r.mastodon)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidChannelService, string(channel.Service))
	}
	if err != nil {
		return nil, err
	}
	r.cache[channel.Service] = client
	return client, nil
}

var _ core.ChannelClientResolver = (*ClientResolver)(nil)
