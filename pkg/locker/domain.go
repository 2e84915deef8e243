package locker

import (
	"context"
	"math/rand"

	"github.com/bwmarrin/snowflake"
)

// Domain is the identity used to correlate reentrant acquisitions.
// Domains are compared by pointer: two domains are equal only if they
// are the same instance.
type Domain struct {
	id snowflake.ID
}

var domainNode = newDomainNode()

func newDomainNode() *snowflake.Node {
	node, err := snowflake.NewNode(int64(rand.Intn(1023)))
	if err != nil {
		panic("locker: failed to create snowflake node: " + err.Error())
	}
	return node
}

// NewDomain returns a fresh Domain.
func NewDomain() *Domain {
	return &Domain{id: domainNode.Generate()}
}

// ID returns the token identifying d in logs.
func (d *Domain) ID() snowflake.ID { return d.id }

func (d *Domain) String() string {
	if d == nil {
		return "domain(nil)"
	}
	return "domain(" + d.id.String() + ")"
}

// WithDomain runs fn with a fresh Domain whose scope is the call.
func WithDomain(fn func(d *Domain) error) error {
	return fn(NewDomain())
}

type domainKey struct{}

// NewContext returns a copy of ctx carrying d.
func NewContext(ctx context.Context, d *Domain) context.Context {
	return context.WithValue(ctx, domainKey{}, d)
}

// FromContext returns the Domain carried by ctx, if any.
func FromContext(ctx context.Context) (*Domain, bool) {
	d, ok := ctx.Value(domainKey{}).(*Domain)
	return d, ok && d != nil
}
