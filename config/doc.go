/*
Package config contains the structs for configuring a hubstream service:

  - the event hub partition to listen to (eventhub.Config)
  - the event hub to publish to (eventhub.SinkConfig)
  - the HTTP server that exposes the stream
  - logging and metrics (see the metrics subpackage)

The composite Config type holds all of the above.

This package also contains functions to load these config structs from JSON files, JSON blobs in Consul k/v or environment variables.
*/
package config // import "github.com/NYTimes/hubstream/config"
