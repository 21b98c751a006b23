package notification

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	queueKey = "notifications:queue"
	retryKey = "notifications:retry"
)

// retryBackoff holds the delay before each redelivery attempt.
// Three retries: 60s, 300s, 900s.
var retryBackoff = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

// Notifier is what the lifecycle service sees: fire-and-forget dispatch of a
// committed status change.
type Notifier interface {
	Notify(event Event)
}

// Sender delivers a single notification attempt.
type Sender interface {
	Send(event Event) error
}

// LogSender writes the notification to the application log. Production
// deployments swap in a real mail sender.
type LogSender struct{}

func (LogSender) Send(event Event) error {
	if event.RequesterEmail == "" {
		log.Printf("notification: no requester email for %s, skipping", event.RequestNumber)
		return nil
	}
	log.Printf("EMAIL_NOTIFICATION to=%s subject=%q body=%q", event.RequesterEmail, event.Subject(), event.Body())
	return nil
}

// Broadcaster pushes an event to connected websocket clients.
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// envelope wraps an event with its delivery attempt counter on the queue.
type envelope struct {
	Event   Event `json:"event"`
	Attempt int   `json:"attempt"`
}

// Dispatcher queues status-change events on redis and delivers them from a
// background worker with bounded retries. Queue failures are logged and
// dropped; the transition that produced the event is already committed and
// is never rolled back or re-opened.
type Dispatcher struct {
	rdb       *redis.Client
	sender    Sender
	broadcast Broadcaster
}

func NewDispatcher(rdb *redis.Client, sender Sender, broadcast Broadcaster) *Dispatcher {
	return &Dispatcher{rdb: rdb, sender: sender, broadcast: broadcast}
}

// Notify enqueues the event for asynchronous delivery and mirrors it to
// websocket clients. Never blocks the caller on delivery.
func (d *Dispatcher) Notify(event Event) {
	if d.broadcast != nil {
		d.broadcast.BroadcastJSON(event)
	}

	payload, err := json.Marshal(envelope{Event: event})
	if err != nil {
		log.Printf("notification: marshal failed: %v", err)
		return
	}
	if d.rdb == nil {
		// No queue configured: deliver inline, still off the request path.
		go d.deliver(envelope{Event: event})
		return
	}
	if err := d.rdb.LPush(context.Background(), queueKey, payload).Err(); err != nil {
		log.Printf("notification: enqueue failed for %s: %v", event.RequestNumber, err)
	}
}

// Run consumes the queue until ctx is cancelled. Call from a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.rdb == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := d.rdb.BRPop(ctx, 5*time.Second, queueKey).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("notification: queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			log.Printf("notification: bad payload dropped: %v", err)
			continue
		}
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	if err := d.sender.Send(env.Event); err != nil {
		d.scheduleRetry(env, err)
	}
}

func (d *Dispatcher) scheduleRetry(env envelope, cause error) {
	if env.Attempt >= len(retryBackoff) {
		log.Printf("notification: giving up on %s after %d attempts: %v",
			env.Event.RequestNumber, env.Attempt, cause)
		return
	}

	delay := retryBackoff[env.Attempt]
	env.Attempt++
	log.Printf("notification: delivery failed for %s (attempt %d, retry in %s): %v",
		env.Event.RequestNumber, env.Attempt, delay, cause)

	if d.rdb == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("notification: marshal failed: %v", err)
		return
	}
	due := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(context.Background(), retryKey, &redis.Z{Score: due, Member: payload}).Err(); err != nil {
		log.Printf("notification: retry scheduling failed: %v", err)
	}
}

// PromoteDueRetries moves retries whose backoff has elapsed back onto the
// delivery queue. Wired to a cron schedule in main.
func (d *Dispatcher) PromoteDueRetries(ctx context.Context) {
	if d.rdb == nil {
		return
	}
	now := time.Now().Unix()
	members, err := d.rdb.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		log.Printf("notification: retry scan failed: %v", err)
		return
	}
	for _, m := range members {
		if err := d.rdb.LPush(ctx, queueKey, m).Err(); err != nil {
			log.Printf("notification: retry promote failed: %v", err)
			continue
		}
		d.rdb.ZRem(ctx, retryKey, m)
	}
}
