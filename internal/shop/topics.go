package shop

import "sort"

// Webhook topics stored in the events table.
var trackedTopics = map[string]bool{
	"checkouts/create": true,
	"checkouts/update": true,
	"carts/update":     true,
	"orders/create":    true,
	"orders/paid":      true,
	"orders/cancelled": true,
	"customers/create": true,
	"customers/update": true,
	"products/create":  true,
	"products/update":  true,
	"products/delete":  true,
}

// Webhook topics that are also mapped into a resource table.
var topicKinds = map[string]Kind{
	"customers/create": KindCustomers,
	"customers/update": KindCustomers,
	"orders/create":    KindOrders,
	"orders/paid":      KindOrders,
	"orders/cancelled": KindOrders,
	"products/create":  KindProducts,
	"products/update":  KindProducts,
	"products/delete":  KindProducts,
}

func IsTrackedTopic(topic string) bool { return trackedTopics[topic] }

// TrackedTopics lists the stored topics in a stable order.
func TrackedTopics() []string {
	out := make([]string, 0, len(trackedTopics))
	for t := range trackedTopics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TopicKind returns the resource kind a webhook topic maps to, if any.
func TopicKind(topic string) (Kind, bool) {
	k, ok := topicKinds[topic]
	return k, ok
}

// Relay topics on the event bus.
const (
	RelayTopicWebhooks = "shop.webhooks"
	RelayTopicSync     = "shop.sync"
)
