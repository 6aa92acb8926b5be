package edgegrid

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"edgemcp/internal/domain"
)

const (
	keyHost         = "host"
	keyClientToken  = "client_token"
	keyClientSecret = "client_secret"
	keyAccessToken  = "access_token"
	keyAccountKey   = "account_key"
)

// Store is an immutable snapshot of the credential file. Resolution is
// a plain map read; no locking is needed after construction.
type Store struct {
	sections       map[string]domain.CustomerContext
	defaultSection string
	names          []string
}

// LoadStore parses the credential file at path. Every section must
// carry a host and the three auth tokens; the file is rejected as a
// whole otherwise.
func LoadStore(path, defaultSection string) (*Store, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, domain.E(domain.CodeFailedPrecond, "edgegrid.load", fmt.Sprintf("read credential file %s", path), err)
	}
	return buildStore(cfg, defaultSection)
}

// ParseStore parses credential file contents held in memory.
func ParseStore(data []byte, defaultSection string) (*Store, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, domain.E(domain.CodeFailedPrecond, "edgegrid.load", "parse credential data", err)
	}
	return buildStore(cfg, defaultSection)
}

func buildStore(cfg *ini.File, defaultSection string) (*Store, error) {
	const op = "edgegrid.load"
	if defaultSection == "" {
		defaultSection = domain.DefaultSection
	}

	sections := make(map[string]domain.CustomerContext)
	var problems []string
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		ctx, errs := sectionContext(sec)
		if len(errs) > 0 {
			for _, msg := range errs {
				problems = append(problems, fmt.Sprintf("section %q: %s", sec.Name(), msg))
			}
			continue
		}
		sections[sec.Name()] = ctx
	}
	if len(problems) > 0 {
		return nil, domain.E(domain.CodeFailedPrecond, op, strings.Join(problems, "; "), nil)
	}
	if len(sections) == 0 {
		return nil, domain.E(domain.CodeFailedPrecond, op, "no credential sections found", nil)
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Store{
		sections:       sections,
		defaultSection: defaultSection,
		names:          names,
	}, nil
}

func sectionContext(sec *ini.Section) (domain.CustomerContext, []string) {
	var missing []string
	read := func(key string) string {
		value := strings.TrimSpace(sec.Key(key).String())
		if value == "" {
			missing = append(missing, "missing "+key)
		}
		return value
	}

	creds := domain.Credentials{
		Host:         normalizeHost(read(keyHost)),
		ClientToken:  read(keyClientToken),
		ClientSecret: read(keyClientSecret),
		AccessToken:  read(keyAccessToken),
	}
	if len(missing) > 0 {
		return domain.CustomerContext{}, missing
	}
	return domain.CustomerContext{
		Section:          sec.Name(),
		Credentials:      creds,
		AccountSwitchKey: strings.TrimSpace(sec.Key(keyAccountKey).String()),
	}, nil
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return host
}

// Resolve returns the context for section, or for the configured
// default section when section is empty.
func (s *Store) Resolve(section string) (domain.CustomerContext, error) {
	if section == "" {
		section = s.defaultSection
	}
	ctx, ok := s.sections[section]
	if !ok {
		return domain.CustomerContext{}, domain.E(domain.CodeNotFound, "edgegrid.resolve",
			fmt.Sprintf("customer section %q", section), domain.ErrCustomerNotFound)
	}
	return ctx, nil
}

// Sections returns the configured section names in sorted order.
func (s *Store) Sections() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

var _ domain.CredentialResolver = (*Store)(nil)
