package client

import "time"

// Option configures a Client at construction time.
type Option func(*options)

type options struct {
	dialTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		dialTimeout: 5 * time.Second,
	}
}

// WithDialTimeout bounds how long New waits to establish the TCP
// connection before giving up.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}
