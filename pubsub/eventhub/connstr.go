package eventhub

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// kafkaPort is the port Event Hubs exposes its Kafka endpoint on.
const kafkaPort = "9093"

// withEntityPath scopes a namespace connection string to a single event hub.
// Connection strings that already name an entity are returned unchanged.
func withEntityPath(connStr, entityPath string) string {
	if _, ok := connStrValue(connStr, "EntityPath"); ok {
		return connStr
	}
	return strings.TrimSuffix(connStr, ";") + ";EntityPath=" + entityPath
}

// brokerHost derives the Kafka bootstrap address from the connection
// string's Endpoint, e.g. "sb://ns.servicebus.windows.net/" becomes
// "ns.servicebus.windows.net:9093".
func brokerHost(connStr string) (string, error) {
	endpoint, ok := connStrValue(connStr, "Endpoint")
	if !ok || endpoint == "" {
		return "", errors.New("connection string has no Endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "invalid connection string Endpoint")
	}
	if u.Host == "" {
		return "", errors.Errorf("connection string Endpoint %q has no host", endpoint)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	return net.JoinHostPort(u.Hostname(), kafkaPort), nil
}

func connStrValue(connStr, key string) (string, bool) {
	for _, part := range strings.Split(connStr, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), key) {
			return strings.TrimSpace(kv[1]), true
		}
	}
	return "", false
}
