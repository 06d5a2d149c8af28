package dockhand

import (
	"context"
	"fmt"
	"net/url"

	"github.com/moby/moby/api/types/events"
	"github.com/ryanmoran/dockhand/stream"
)

// EventsOptions narrows the engine event feed.
type EventsOptions struct {
	Since   string
	Until   string
	Filters map[string][]string
}

func (o *EventsOptions) values() url.Values {
	values := url.Values{}
	if o == nil {
		return values
	}
	if o.Since != "" {
		values.Set("since", o.Since)
	}
	if o.Until != "" {
		values.Set("until", o.Until)
	}
	encodeFilters(values, o.Filters)
	return values
}

// Events streams engine events as JSON values. Without an until bound the
// sequence does not end until the stream is closed; decode individual values
// with NextEvent or stream.JSON.Decode.
func (d *Docker) Events(ctx context.Context, options *EventsOptions) (*stream.JSON, error) {
	chunks, err := d.streamGet(ctx, withQuery("/events", options.values()))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine event feed: %w", err)
	}
	return stream.NewJSON(chunks), nil
}

// NextEvent decodes the next event from a feed opened with Events.
func NextEvent(feed *stream.JSON) (events.Message, error) {
	var message events.Message
	err := feed.Decode(&message)
	if err != nil {
		return events.Message{}, err
	}
	return message, nil
}
