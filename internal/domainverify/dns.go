package domainverify

import (
	"context"
	"net"
	"time"
)

// TXTLookuper resolves TXT records. The lookup is the only blocking network
// call in the core, so implementations must honor the context deadline.
type TXTLookuper interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NetLookuper is a TXTLookuper over net.Resolver with a bounded per-lookup
// timeout.
type NetLookuper struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewNetLookuper returns a lookuper using the default resolver.
func NewNetLookuper(timeout time.Duration) *NetLookuper {
	return &NetLookuper{resolver: net.DefaultResolver, timeout: timeout}
}

// LookupTXT resolves the TXT records of name within the timeout.
func (l *NetLookuper) LookupTXT(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.resolver.LookupTXT(ctx, name)
}
