package fetch

import "time"

const (
	DefaultTimeout   = time.Minute
	DefaultUserAgent = "Mozilla/5.0 (compatible; digestd/1.0; +https://github.com/sysjosh/digestd)"

	maxBodySize = 10 * 1024 * 1024
)

type Option func(o *options)

type options struct {
	timeout   time.Duration
	userAgent string
}

func Timeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func UserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

func getOptions(opts []Option) options {
	options := options{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
