package resolver

import (
	"context"
	"net"
	"sort"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"github.com/tcfw/siop/pkg/did"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

const (
	didDNSPrefix    = "_did."
	defaultMaxDepth = 3
	resolvConf      = "/etc/resolv.conf"
)

type depthKey struct{}

// DNSResolver resolves did:dns identifiers by following URI records:
// did:dns:example.com reads _did.example.com and did:dns:example.com#key1
// reads _key1._did.example.com. The record target is another DID which is
// resolved through Next.
type DNSResolver struct {
	// Server is the host:port of the DNS server to query. Defaults to the
	// first nameserver in /etc/resolv.conf.
	Server string
	Next   did.Resolver

	MaxDepth int

	client *dns.Client
}

func NewDNSResolver(server string, next did.Resolver) *DNSResolver {
	return &DNSResolver{Server: server, Next: next, MaxDepth: defaultMaxDepth, client: &dns.Client{}}
}

func (r *DNSResolver) Resolve(ctx context.Context, id w3cdid.URL) (*w3cdid.Document, error) {
	if id.DID().Method() != "dns" {
		return nil, errors.Wrapf(ErrUnknownMethod, "not a did:dns: %s", id)
	}

	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= r.maxDepth() {
		return nil, errors.Errorf("did:dns delegation deeper than %d", r.maxDepth())
	}

	name := didDNSPrefix + id.DID().Id()
	if frag := id.Fragment(); frag != "" {
		name = "_" + frag + "." + name
	}

	target, err := r.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if r.Next == nil {
		return nil, errors.Wrap(ErrUnknownMethod, target.Method())
	}

	doc, err := r.Next.Resolve(context.WithValue(ctx, depthKey{}, depth+1), target)
	if err != nil {
		return nil, err
	}

	out := *doc
	out.AlsoKnownAs = append(append([]string{}, doc.AlsoKnownAs...), string(id))

	return &out, nil
}

func (r *DNSResolver) lookup(ctx context.Context, name string) (w3cdid.URL, error) {
	server, err := r.server()
	if err != nil {
		return "", err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeURI)

	c := r.client
	if c == nil {
		c = &dns.Client{}
	}

	in, _, err := c.ExchangeContext(ctx, msg, server)
	if err != nil {
		return "", errors.Wrap(err, "querying dns")
	}

	if in.Rcode == dns.RcodeNameError {
		return "", ErrNotFound
	}

	var uris []*dns.URI
	for _, rr := range in.Answer {
		if u, ok := rr.(*dns.URI); ok {
			uris = append(uris, u)
		}
	}

	if len(uris) == 0 {
		return "", ErrNotFound
	}

	sort.SliceStable(uris, func(i, j int) bool {
		if uris[i].Priority == uris[j].Priority {
			return uris[i].Weight > uris[j].Weight
		}
		return uris[i].Priority < uris[j].Priority
	})

	target := w3cdid.URL(uris[0].Target)
	if err := target.Validate(); err != nil {
		return "", err
	}

	return target, nil
}

func (r *DNSResolver) server() (string, error) {
	if r.Server != "" {
		return r.Server, nil
	}

	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return "", errors.Wrap(err, "reading resolver config")
	}
	if len(cfg.Servers) == 0 {
		return "", errors.New("no nameservers configured")
	}

	return net.JoinHostPort(cfg.Servers[0], cfg.Port), nil
}

func (r *DNSResolver) maxDepth() int {
	if r.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return r.MaxDepth
}
