package networking

import (
	"strings"
	"sync"

	"github.com/miekg/dns"

	"github.com/rafabd1/Tendril/internal/utils"
)

var defaultDNSServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// MXVerifier checks whether a mail domain can actually receive mail by
// looking up its MX records. Results are cached per domain, since harvested
// addresses cluster heavily on a handful of domains.
type MXVerifier struct {
	client  *dns.Client
	servers []string
	logger  utils.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// NewMXVerifier creates a verifier querying the default public resolvers.
func NewMXVerifier(logger utils.Logger) *MXVerifier {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &MXVerifier{
		client:  new(dns.Client),
		servers: defaultDNSServers,
		logger:  logger,
		cache:   make(map[string]bool),
	}
}

// HasMX reports whether the domain publishes at least one MX record.
func (v *MXVerifier) HasMX(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	v.mu.Lock()
	if cached, ok := v.cache[domain]; ok {
		v.mu.Unlock()
		return cached
	}
	v.mu.Unlock()

	result := v.lookup(domain)

	v.mu.Lock()
	v.cache[domain] = result
	v.mu.Unlock()
	return result
}

func (v *MXVerifier) lookup(domain string) bool {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	for _, server := range v.servers {
		resp, _, err := v.client.Exchange(msg, server)
		if err != nil {
			v.logger.Debugf("MX lookup for %s via %s failed: %v", domain, server, err)
			continue
		}
		if resp != nil && resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0 {
			return true
		}
	}
	return false
}

// VerifyAddress reports whether the domain part of a mail address has MX
// records. Malformed addresses verify as false.
func (v *MXVerifier) VerifyAddress(mail string) bool {
	parts := strings.Split(mail, "@")
	if len(parts) != 2 {
		return false
	}
	return v.HasMX(parts[1])
}
