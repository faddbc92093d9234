// Error definitions for the pubsub package.
package pubsub

import "errors"

// ErrMissingNATSURL is returned when an upstream is requested without
// a server URL.
var ErrMissingNATSURL = errors.New("pubsub: nats url required")
