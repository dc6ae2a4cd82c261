package portal

import (
	"context"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"github.com/lumicore/lumid/errors"
	"github.com/lumicore/lumid/event"
	"go.uber.org/zap"
)

// mqttRouter is the part of paho.Router the router needs.
type mqttRouter interface {
	RegisterHandler(topic string, handler paho.MessageHandler)
	UnregisterHandler(topic string)
}

// subscriber couples the forward channel with the lifetime that bounds it.
type subscriber struct {
	lifetime context.Context
	forward  chan<- event.Event[any]
}

// router fans incoming MQTT messages out to all subscribers of a topic. The
// underlying paho registration is kept in sync with the subscriber lists: the
// first subscriber of a topic registers the handler, the last one leaving
// unregisters it.
type router struct {
	logger *zap.Logger
	// mqtt performs the actual topic matching.
	mqtt mqttRouter
	// m locks subscribersByTopic.
	m sync.Mutex
	// subscribersByTopic holds the active subscribers per subscribed topic.
	subscribersByTopic map[Topic][]*subscriber
}

func newRouter(logger *zap.Logger, mqtt mqttRouter) *router {
	return &router{
		logger:             logger,
		mqtt:               mqtt,
		subscribersByTopic: make(map[Topic][]*subscriber),
	}
}

// subscribe for the given Topic and forward messages to the given channel
// until the context.Context is done.
func (r *router) subscribe(lifetime context.Context, topic Topic, forward chan<- event.Event[any]) {
	r.m.Lock()
	defer r.m.Unlock()
	if _, ok := r.subscribersByTopic[topic]; !ok {
		r.mqtt.RegisterHandler(string(topic), r.handlerFor(topic))
		r.logger.Debug("subscribed to topic", zap.Any("topic", topic))
	}
	sub := &subscriber{
		lifetime: lifetime,
		forward:  forward,
	}
	r.subscribersByTopic[topic] = append(r.subscribersByTopic[topic], sub)
	go func() {
		<-lifetime.Done()
		r.unsubscribe(topic, sub)
	}()
}

// handlerFor builds the paho.MessageHandler for the given Topic. The handler
// delivers to a snapshot of the current subscribers and returns once every
// subscriber took the message or ran out of lifetime.
func (r *router) handlerFor(topic Topic) paho.MessageHandler {
	return func(publish *paho.Publish) {
		r.m.Lock()
		subs := make([]*subscriber, len(r.subscribersByTopic[topic]))
		copy(subs, r.subscribersByTopic[topic])
		r.m.Unlock()
		var delivered sync.WaitGroup
		delivered.Add(len(subs))
		for _, sub := range subs {
			go func(sub *subscriber) {
				defer delivered.Done()
				select {
				case <-sub.lifetime.Done():
				case sub.forward <- event.Event[any]{Publish: publish}:
				}
			}(sub)
		}
		delivered.Wait()
	}
}

// unsubscribe drops the given subscriber for the Topic, unregistering the
// paho handler when it was the last one.
func (r *router) unsubscribe(topic Topic, sub *subscriber) {
	r.m.Lock()
	defer r.m.Unlock()
	subs := r.subscribersByTopic[topic]
	at := -1
	for i, known := range subs {
		if known == sub {
			at = i
			break
		}
	}
	if at == -1 {
		errors.Log(r.logger, errors.NewInternalError("unsubscribe for unknown subscriber",
			errors.Details{"topic": topic}))
		return
	}
	subs = append(subs[:at], subs[at+1:]...)
	if len(subs) == 0 {
		delete(r.subscribersByTopic, topic)
		r.mqtt.UnregisterHandler(string(topic))
		return
	}
	r.subscribersByTopic[topic] = subs
}
