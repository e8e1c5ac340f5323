package tools

import (
	"context"

	"github.com/mkrab/famulus/internal/news"
)

// NewsTool fetches headlines. Provider failures degrade to an empty story
// list; the formatter tells the user nothing was found.
type NewsTool struct {
	client *news.Client
}

func NewNewsTool(c *news.Client) *NewsTool {
	return &NewsTool{client: c}
}

func (t *NewsTool) Name() string { return NameNews }

func (t *NewsTool) Run(ctx context.Context, p Payload, dryRun bool) Result {
	action := canonicalAction(p)
	if action == "list" {
		action = "find"
	}

	topic := stringField(p, "topic")
	if topic == "" {
		topic = stringField(p, "query")
	}
	if topic == "" {
		topic = "top stories"
	}
	language := stringField(p, "language")
	if language == "" {
		language = "en"
	}
	limit, _ := intField(p, "limit")

	stories := t.client.Search(ctx, topic, language, limit)
	if stories == nil {
		stories = []news.Story{}
	}

	r := baseResult(NameNews, "news", action)
	r["topic"] = topic
	r["language"] = language
	r["stories"] = stories
	r["count"] = len(stories)
	return r
}
