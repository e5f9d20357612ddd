package testutil

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lllypuk/collabfront/internal/domain/record"
)

// DomainFixture returns a domain record with a unique access key.
func DomainFixture(name string) record.Domain {
	return record.New(name, name+".collab.test", uuid.NewString())
}

// WithHost overrides the host of a fixture.
func WithHost(host string) func(*record.Domain) {
	return func(d *record.Domain) {
		d.Host = host
	}
}

// WithAccessKey overrides the access key of a fixture.
func WithAccessKey(key string) func(*record.Domain) {
	return func(d *record.Domain) {
		d.AccessKey = key
	}
}

// WithField sets an opaque field on a fixture. It panics on a typed key.
func WithField(key string, value any) func(*record.Domain) {
	return func(d *record.Domain) {
		if err := d.SetField(key, value); err != nil {
			panic(fmt.Sprintf("WithField: %v", err))
		}
	}
}

// BuildDomain creates a fixture and applies modifiers in order.
func BuildDomain(name string, modifiers ...func(*record.Domain)) record.Domain {
	d := DomainFixture(name)
	for _, m := range modifiers {
		m(&d)
	}
	return d
}

// DomainList creates one fixture per name, in order.
func DomainList(names ...string) []record.Domain {
	out := make([]record.Domain, 0, len(names))
	for _, n := range names {
		out = append(out, DomainFixture(n))
	}
	return out
}
