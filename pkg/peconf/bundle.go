// Package peconf composes the per-role pe.conf bundles handed to the
// installer.
//
// A Bundle keeps the keys pexm knows about as typed fields and everything
// else a user supplies in Extra, so arbitrary tuning data passes through
// untouched while the fields pexm relies on stay checked.
package peconf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Role names a pe.conf flavour.
type Role string

const (
	RoleMaster                  Role = "master"
	RolePuppetDBDatabase        Role = "puppetdb-database"
	RolePuppetDBDatabaseReplica Role = "puppetdb-database-replica"
)

// Known pe.conf keys.
const (
	KeyConsoleAdminPassword     = "console_admin_password"
	KeyPuppetMasterHost         = "puppet_enterprise::puppet_master_host"
	KeyDNSAltNames              = "pe_install::puppet_master_dnsaltnames"
	KeyDatabaseHost             = "puppet_enterprise::database_host"
	KeyPuppetDBDatabaseHost     = "puppet_enterprise::profile::puppetdb::database_host"
	KeyCodeManagerAutoConfigure = "puppet_enterprise::profile::master::code_manager_auto_configure"
	KeyR10kRemote               = "puppet_enterprise::profile::master::r10k_remote"
	KeyR10kPrivateKey           = "puppet_enterprise::profile::master::r10k_private_key"
)

// Bundle is one composed pe.conf. Nil typed fields are unset.
type Bundle struct {
	Role Role

	ConsoleAdminPassword     *string
	PuppetMasterHost         *string
	DNSAltNames              []string
	DatabaseHost             *string
	PuppetDBDatabaseHost     *string
	CodeManagerAutoConfigure *bool
	R10kRemote               *string
	R10kPrivateKey           *string

	// Extra holds keys without a typed field, and known keys whose value
	// did not fit the field's type.
	Extra map[string]interface{}
}

type field struct {
	key   string
	get   func(b *Bundle) (interface{}, bool)
	set   func(b *Bundle, v interface{}) bool
	clear func(b *Bundle)
}

func stringField(key string, ptr func(b *Bundle) **string) field {
	return field{
		key: key,
		get: func(b *Bundle) (interface{}, bool) {
			p := *ptr(b)
			if p == nil {
				return nil, false
			}
			return *p, true
		},
		set: func(b *Bundle, v interface{}) bool {
			s, ok := v.(string)
			if ok {
				*ptr(b) = &s
			}
			return ok
		},
		clear: func(b *Bundle) { *ptr(b) = nil },
	}
}

// fields is the render order of typed keys.
var fields = []field{
	stringField(KeyConsoleAdminPassword, func(b *Bundle) **string { return &b.ConsoleAdminPassword }),
	stringField(KeyPuppetMasterHost, func(b *Bundle) **string { return &b.PuppetMasterHost }),
	{
		key: KeyDNSAltNames,
		get: func(b *Bundle) (interface{}, bool) { return b.DNSAltNames, b.DNSAltNames != nil },
		set: func(b *Bundle, v interface{}) bool {
			names, ok := toStrings(v)
			if ok {
				b.DNSAltNames = names
			}
			return ok
		},
		clear: func(b *Bundle) { b.DNSAltNames = nil },
	},
	stringField(KeyDatabaseHost, func(b *Bundle) **string { return &b.DatabaseHost }),
	stringField(KeyPuppetDBDatabaseHost, func(b *Bundle) **string { return &b.PuppetDBDatabaseHost }),
	{
		key: KeyCodeManagerAutoConfigure,
		get: func(b *Bundle) (interface{}, bool) {
			if b.CodeManagerAutoConfigure == nil {
				return nil, false
			}
			return *b.CodeManagerAutoConfigure, true
		},
		set: func(b *Bundle, v interface{}) bool {
			x, ok := v.(bool)
			if ok {
				b.CodeManagerAutoConfigure = &x
			}
			return ok
		},
		clear: func(b *Bundle) { b.CodeManagerAutoConfigure = nil },
	},
	stringField(KeyR10kRemote, func(b *Bundle) **string { return &b.R10kRemote }),
	stringField(KeyR10kPrivateKey, func(b *Bundle) **string { return &b.R10kPrivateKey }),
}

var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

func toStrings(v interface{}) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out, true
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Set assigns key. A known key with a value of the field's type goes to
// the typed field; anything else goes to Extra. Either way the previous
// value of key is replaced.
func (b *Bundle) Set(key string, value interface{}) {
	if f, ok := fieldsByKey[key]; ok {
		if f.set(b, value) {
			delete(b.Extra, key)
			return
		}
		f.clear(b)
	}
	if b.Extra == nil {
		b.Extra = make(map[string]interface{})
	}
	b.Extra[key] = value
}

// Get returns the value stored for key.
func (b *Bundle) Get(key string) (interface{}, bool) {
	if v, ok := b.Extra[key]; ok {
		return v, true
	}
	if f, ok := fieldsByKey[key]; ok {
		return f.get(b)
	}
	return nil, false
}

// Map flattens the bundle into a plain key/value mapping.
func (b *Bundle) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+len(b.Extra))
	for _, f := range fields {
		if v, ok := f.get(b); ok {
			out[f.key] = v
		}
	}
	for k, v := range b.Extra {
		out[k] = v
	}
	return out
}

// Render produces the pe.conf text. JSON is valid HOCON, which is what the
// installer reads. Typed keys come first in a fixed order, extra keys
// follow sorted, so equal bundles render byte-identically.
func (b *Bundle) Render() ([]byte, error) {
	doc := []byte("{}")
	var err error
	for _, f := range fields {
		v, ok := f.get(b)
		if !ok {
			continue
		}
		if doc, err = sjson.SetBytes(doc, escapeKey(f.key), v); err != nil {
			return nil, fmt.Errorf("failed to render pe.conf key %s: %w", f.key, err)
		}
	}

	extra := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if doc, err = sjson.SetBytes(doc, escapeKey(k), b.Extra[k]); err != nil {
			return nil, fmt.Errorf("failed to render pe.conf key %s: %w", k, err)
		}
	}
	return pretty.Pretty(doc), nil
}

// escapeKey makes a pe.conf key usable as a single sjson path component.
func escapeKey(key string) string {
	var sb strings.Builder
	allDigits := key != ""
	for _, r := range key {
		if r < '0' || r > '9' {
			allDigits = false
		}
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	if allDigits || strings.HasPrefix(key, ":") {
		return ":" + sb.String()
	}
	return sb.String()
}
