package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis carries frames over Redis pub/sub: one channel per node address
// plus one broadcast channel standing in for the multicast group. The
// wire payload wraps the frame with the sender's own channel so the
// receiver can address replies.
type Redis struct {
	client    *redis.Client
	addr      Address
	broadcast string

	ctx    context.Context
	cancel context.CancelFunc
	pubsub *redis.PubSub
}

type redisFrame struct {
	From string `json:"from"`
	Data []byte `json:"data"`
}

// NewRedis connects to the broker and claims channel prefix+name for
// this node. All nodes sharing a prefix form one radio domain.
func NewRedis(brokerAddr, password, prefix, name string) (*Redis, error) {
	if prefix == "" {
		prefix = "mesh."
	}
	client := redis.NewClient(&redis.Options{
		Addr:     brokerAddr,
		Password: password,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Ping(ctx).Err(); err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", brokerAddr, err)
	}
	return &Redis{
		client:    client,
		addr:      Address(prefix + name),
		broadcast: prefix + "broadcast",
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (r *Redis) Addr() Address { return r.addr }

func (r *Redis) Start(h Handler) error {
	if r.pubsub != nil {
		return fmt.Errorf("redis transport already started")
	}
	r.pubsub = r.client.Subscribe(r.ctx, string(r.addr), r.broadcast)
	ch := r.pubsub.Channel()
	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var frame redisFrame
				if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
					continue
				}
				if Address(frame.From) == r.addr {
					continue // our own broadcast echoed back
				}
				h(frame.Data, Address(frame.From))
			case <-r.ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (r *Redis) publish(channel string, payload []byte) error {
	body, err := json.Marshal(redisFrame{From: string(r.addr), Data: payload})
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, body).Err()
}

func (r *Redis) SendUnicast(payload []byte, to Address) error {
	return r.publish(string(to), payload)
}

func (r *Redis) SendMulticast(payload []byte) error {
	return r.publish(r.broadcast, payload)
}

func (r *Redis) Close() error {
	r.cancel()
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	return r.client.Close()
}
