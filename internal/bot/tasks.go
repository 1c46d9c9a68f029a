package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"windfarm/internal/eventbus"
	"windfarm/internal/generator"
	"windfarm/internal/platform"
	"windfarm/internal/scheduler"
	"windfarm/internal/state"
	logx "windfarm/pkg/logx"
)

// fire wraps a task run: it tags the run, marks the task running and
// reschedules it afterwards with the current settings.
func (c *Controller) fire(name string, gen uint64) scheduler.Callback {
	return func(ctx context.Context) {
		c.mu.Lock()
		ts := c.tasks[name]
		if c.stopping || ts.gen != gen || ts.running {
			c.mu.Unlock()
			return
		}
		ts.running = true
		set := c.settings
		identity := c.identity
		c.mu.Unlock()

		runID := uuid.NewString()
		log := c.log.With(logx.String("task", name), logx.String("run_id", runID))
		start := c.now()
		c.publish(eventbus.TaskStarted, name, runID)

		switch name {
		case TaskTweets:
			c.postTweet(ctx, log, set)
		case TaskMentions:
			c.checkMentions(ctx, log, set)
		case TaskSearch:
			c.searchAndReply(ctx, log, set, identity)
		}

		log.Debug("task finished", logx.Duration("took", c.now().Sub(start)))
		c.publish(eventbus.TaskFinished, name, runID)

		c.mu.Lock()
		defer c.mu.Unlock()
		ts.running = false
		if t := c.settings.Tasks[name]; t.Enabled {
			c.scheduleLocked(t)
		}
	}
}

func (c *Controller) publish(typ, task string, data any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{Type: typ, Time: c.now(), Task: task, Data: data})
}

// postTweet posts one generated utterance. The time cursor advances even
// when the post fails; the next attempt waits a full period.
func (c *Controller) postTweet(ctx context.Context, log logx.Logger, set *Settings) {
	log.Info("random tweeting")
	text, err := set.Generator.Generate(generator.Options{})
	if err != nil {
		log.Error("generate failed", logx.Err(err))
	} else if st, err := c.client.PostUpdate(ctx, text, 0); err != nil {
		log.Error("post failed", logx.String("text", text), logx.Err(err))
	} else {
		log.Info("posted", logx.Int64("id", st.ID), logx.String("text", text))
	}

	c.cursors.SetTime(state.LastTweetTime, c.now())
	_ = c.cursors.Flush(ctx)
}

// checkMentions replies to every mention newer than the mention cursor,
// oldest first.
func (c *Controller) checkMentions(ctx context.Context, log logx.Logger, set *Settings) {
	log.Info("checking mentions")
	task := set.Tasks[TaskMentions]
	since := c.cursors.Get(state.LastMentionID)

	ms, err := c.client.Mentions(ctx, task.Count, since)
	if err != nil {
		log.Error("fetch mentions failed", logx.Int64("since_id", since), logx.Err(err))
	} else {
		log.Debug("mentions fetched", logx.Int("count", len(ms)), logx.Int64("since_id", since))
		for _, st := range platform.Oldest(ms) {
			c.reply(ctx, log, set, TaskMentions, st, state.LastMentionID, generator.Options{})
		}
	}

	c.cursors.SetTime(state.LastMentionTime, c.now())
	_ = c.cursors.Flush(ctx)
}

// searchAndReply searches for one random effect and replies to every result
// newer than the search cursor, blaming a random cause for that effect.
// The bot's own posts advance the cursor but get no reply.
func (c *Controller) searchAndReply(ctx context.Context, log logx.Logger, set *Settings, self platform.Identity) {
	task := set.Tasks[TaskSearch]
	effect := set.Generator.RandomEffect()
	since := c.cursors.Get(state.LastSearchID)
	log = log.With(logx.String("term", effect))
	log.Info("performing search")

	res, err := c.client.Search(ctx, effect, task.Count, since)
	if err != nil {
		log.Error("search failed", logx.Int64("since_id", since), logx.Err(err))
	} else {
		log.Debug("search results", logx.Int("count", len(res)), logx.Int64("since_id", since))
		for _, st := range platform.Oldest(res) {
			if self.ScreenName != "" && strings.EqualFold(st.ScreenName, self.ScreenName) {
				c.advance(state.LastSearchID, st.ID)
				log.Debug("skipping own status", logx.Int64("id", st.ID))
				continue
			}
			c.reply(ctx, log, set, TaskSearch, st, state.LastSearchID, generator.Options{Effect: effect})
		}
	}

	c.cursors.SetTime(state.LastSearchTime, c.now())
	_ = c.cursors.Flush(ctx)
}

// reply answers st. The id cursor moves before the post so a failed reply
// is skipped, not retried.
func (c *Controller) reply(ctx context.Context, log logx.Logger, set *Settings, task string, st platform.Status, cursor string, opts generator.Options) {
	c.advance(cursor, st.ID)
	log = log.With(logx.Int64("status_id", st.ID), logx.String("user", st.ScreenName))

	text, err := set.Generator.Generate(opts)
	if err != nil {
		log.Error("generate failed", logx.Err(err))
		c.publish(eventbus.ReplyFailed, task, st.ID)
		return
	}
	body := fmt.Sprintf("@%s %s", st.ScreenName, text)
	log.Info("replying", logx.String("text", body))

	if _, err := c.client.PostUpdate(ctx, body, st.ID); err != nil {
		log.Error("reply failed", logx.Err(err))
		c.publish(eventbus.ReplyFailed, task, st.ID)
		return
	}
	c.publish(eventbus.ReplyPosted, task, st.ID)
}

func (c *Controller) advance(cursor string, id int64) {
	if id > c.cursors.Get(cursor) {
		c.cursors.Set(cursor, id)
	}
}

// Clear deletes every status on the bot's own timeline. A failed deletion
// is logged and skipped; the returned error joins every failure.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	authed := c.authed
	c.mu.Unlock()
	if !authed {
		return ErrNotAuthenticated
	}

	timeline, err := c.client.UserTimeline(ctx)
	if err != nil {
		return fmt.Errorf("fetch timeline: %w", err)
	}
	c.log.Info("clearing timeline", logx.Int("count", len(timeline)))

	var errs []error
	deleted := 0
	for _, st := range timeline {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		c.log.Info("deleting status", logx.Int64("id", st.ID))
		if err := c.client.DestroyStatus(ctx, st.ID); err != nil {
			c.log.Error("delete failed", logx.Int64("id", st.ID), logx.Err(err))
			errs = append(errs, fmt.Errorf("delete %d: %w", st.ID, err))
			continue
		}
		deleted++
	}
	c.log.Info("timeline cleared", logx.Int("deleted", deleted), logx.Int("failed", len(errs)))
	return errors.Join(errs...)
}
