package testutil

import (
	"context"
	"sync"

	"sqrt-go/internal/model"
	"sqrt-go/internal/sqrt"
)

// StubVideoCatalog serves videos from memory and counts the lookups.
type StubVideoCatalog struct {
	mu      sync.Mutex
	Videos  map[string]*model.YoutubeVideo
	Err     error // returned by Video when set
	Lookups int
}

// NewStubVideoCatalog creates a catalog holding the given videos, each on a
// channel named after its ChannelID.
func NewStubVideoCatalog(videos ...*model.YoutubeVideo) *StubVideoCatalog {
	c := &StubVideoCatalog{Videos: make(map[string]*model.YoutubeVideo)}
	for _, v := range videos {
		c.Videos[v.ID] = v
	}
	return c
}

func (c *StubVideoCatalog) Video(ctx context.Context, id string) (*model.YoutubeVideo, *model.YoutubeChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Lookups++
	if c.Err != nil {
		return nil, nil, c.Err
	}
	v, ok := c.Videos[id]
	if !ok {
		return nil, nil, nil
	}
	return v, &model.YoutubeChannel{ID: v.ChannelID, URL: "https://youtube.com/c/" + v.ChannelID, Name: v.ChannelID}, nil
}

var _ sqrt.VideoCatalog = (*StubVideoCatalog)(nil)
