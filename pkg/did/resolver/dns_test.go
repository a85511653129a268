package resolver

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/tcfw/siop/pkg/did/w3cdid"
)

func testDNSServer(t *testing.T, records map[string]string) string {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})

	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)

			q := r.Question[0]
			if target, ok := records[q.Name]; ok && q.Qtype == dns.TypeURI {
				m.Answer = append(m.Answer, &dns.URI{
					Hdr:      dns.RR_Header{Name: q.Name, Rrtype: dns.TypeURI, Class: dns.ClassINET, Ttl: 60},
					Priority: 1,
					Weight:   1,
					Target:   target,
				})
			} else {
				m.Rcode = dns.RcodeNameError
			}

			w.WriteMsg(m)
		}),
	}

	go srv.ActivateAndServe()
	<-started

	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	keyDID := testKeyDID(t)

	server := testDNSServer(t, map[string]string{
		"_key1._did.example.com.": string(keyDID),
		"_did.example.com.":       string(keyDID),
		"_did.loop.example.com.":  "did:dns:loop.example.com",
	})

	reg, err := NewRegistry(WithMethod("key", KeyResolver{}))
	if err != nil {
		t.Fatal(err)
	}

	r := NewDNSResolver(server, reg)
	if err := WithMethod("dns", r)(reg); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	doc, err := reg.Resolve(ctx, "did:dns:example.com#key1")
	if assert.NoError(t, err) {
		assert.Equal(t, string(keyDID), doc.ID)
		assert.Contains(t, doc.AlsoKnownAs, "did:dns:example.com#key1")
	}

	doc, err = reg.Resolve(ctx, "did:dns:example.com")
	if assert.NoError(t, err) {
		assert.Equal(t, string(keyDID), doc.ID)
	}

	_, err = reg.Resolve(ctx, "did:dns:missing.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.Resolve(ctx, "did:dns:loop.example.com")
	assert.Error(t, err)
}

func TestDNSResolverUnknownTarget(t *testing.T) {
	server := testDNSServer(t, map[string]string{
		"_did.example.com.": "did:other:123",
	})

	r := NewDNSResolver(server, nil)

	_, err := r.Resolve(context.Background(), w3cdid.URL("did:dns:example.com"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
