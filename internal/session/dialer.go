package session

import (
	"context"
	"time"

	"github.com/meetingsense/console/internal/push"
)

// ChannelDialer opens push channels against a single server base URL.
// It satisfies FeedDialer.
type ChannelDialer struct {
	BaseURL           string
	ReconnectBackoff  time.Duration
	HeartbeatInterval time.Duration
}

// DialAttendance opens the attendance channel. This is the only channel
// that speaks the ping/pong protocol.
func (d ChannelDialer) DialAttendance(ctx context.Context) (Feed, error) {
	wsURL, err := push.URL(d.BaseURL, "/ws")
	if err != nil {
		return nil, err
	}
	return push.Dial(ctx, wsURL, push.Options{
		ReconnectBackoff:  d.ReconnectBackoff,
		HeartbeatInterval: d.HeartbeatInterval,
	})
}

// DialLiveFeed opens the recording preview channel at the path announced by
// the video start response.
func (d ChannelDialer) DialLiveFeed(ctx context.Context, path string) (Feed, error) {
	if path == "" {
		path = "/ws_live_feed"
	}
	wsURL, err := push.URL(d.BaseURL, path)
	if err != nil {
		return nil, err
	}
	return push.Dial(ctx, wsURL, push.Options{
		ReconnectBackoff: d.ReconnectBackoff,
	})
}
