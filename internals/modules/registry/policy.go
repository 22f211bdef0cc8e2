package registry

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"keepalive/pkg/apperror"
)

const maxURLLength = 2048

// Policy holds the rules a url must pass before it is registered.
type Policy struct {
	AllowedDomains []string
	MaxPerUser     int
}

func NewPolicy(allowedDomains []string, maxPerUser int) *Policy {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		domains = append(domains, strings.ToLower(strings.TrimPrefix(d, ".")))
	}
	return &Policy{AllowedDomains: domains, MaxPerUser: maxPerUser}
}

// Normalize trims the input, assumes https when no scheme is given,
// lower-cases the host and drops a trailing slash.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return strings.TrimSuffix(s, "/")
	}
	u.Host = strings.ToLower(u.Host)

	return strings.TrimSuffix(u.String(), "/")
}

// Validate checks an already normalized url.
func (p *Policy) Validate(raw string) error {
	err := validation.Validate(raw,
		validation.Required.Error("url is required"),
		validation.Length(1, maxURLLength).Error(fmt.Sprintf("url must be at most %d characters", maxURLLength)),
		validation.By(p.checkURL),
	)
	if err != nil {
		return apperror.Newf(apperror.InvalidURL, "registry.policy.validate", "%s", err.Error())
	}
	return nil
}

func (p *Policy) checkURL(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return validation.NewError("validation_invalid_url", "url is not valid")
	}
	if u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "url must use https")
	}
	if u.User != nil {
		return validation.NewError("validation_userinfo", "url must not contain credentials")
	}

	host := u.Hostname()
	if err := is.DNSName.Validate(host); err != nil {
		return validation.NewError("validation_invalid_host", "url host is not valid")
	}
	if !p.allowedHost(host) {
		return validation.NewError("validation_domain_not_allowed",
			fmt.Sprintf("domain not allowed, use a subdomain of %s", strings.Join(p.AllowedDomains, ", ")))
	}
	return nil
}

// allowedHost requires a proper subdomain: the bare platform domain is not
// a deployable service.
func (p *Policy) allowedHost(host string) bool {
	for _, d := range p.AllowedDomains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
