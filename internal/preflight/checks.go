package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sys/unix"

	"mmunblock/internal/config"
	"mmunblock/internal/console"
	"mmunblock/internal/form"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDNS resolves host against each server in turn and passes on the first
// A or AAAA answer. An empty server list falls back to /etc/resolv.conf.
func CheckDNS(ctx context.Context, host string, servers []string, timeout time.Duration) Result {
	name := "DNS " + host
	if len(servers) == 0 {
		sys, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("read resolv.conf: %v", err)}
		}
		for _, server := range sys.Servers {
			servers = append(servers, net.JoinHostPort(server, sys.Port))
		}
	}
	if len(servers) == 0 {
		return Result{Name: name, Detail: "no resolvers configured"}
	}

	client := &dns.Client{Timeout: timeout}
	var lastErr error
	for _, server := range servers {
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			addrs, err := query(ctx, client, server, host, qtype)
			if err != nil {
				lastErr = err
				continue
			}
			if len(addrs) > 0 {
				return Result{Name: name, Passed: true, Detail: strings.Join(addrs, ", ")}
			}
		}
	}
	if lastErr != nil {
		return Result{Name: name, Detail: summarizeDNSError(lastErr)}
	}
	return Result{Name: name, Detail: "no address records"}
}

var errNXDomain = errors.New("no such host")

func query(ctx context.Context, client *dns.Client, server, host string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("%s via %s: %w", dns.TypeToString[qtype], server, err)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, errNXDomain
	default:
		return nil, fmt.Errorf("%s via %s: rcode %s", dns.TypeToString[qtype], server, dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			addrs = append(addrs, rec.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rec.AAAA.String())
		}
	}
	return addrs, nil
}

func summarizeDNSError(err error) string {
	if errors.Is(err, errNXDomain) {
		return "host does not resolve (NXDOMAIN)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "lookup timed out"
	}
	return err.Error()
}

// resolvableHost returns the console host when it is a name worth resolving.
func resolvableHost(baseURL string) (string, bool) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	host := parsed.Hostname()
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return "", false
	}
	return host, true
}

// CheckConsole probes the list admin page without sending the credential.
func CheckConsole(ctx context.Context, cfg *config.Config) Result {
	const name = "Admin console"

	session, err := console.NewSession(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	resp, fetchErr := session.Get(ctx, session.AdminURL())
	if resp == nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", fetchErr)}
	}
	rejected := func() Result {
		var statusErr *console.FetchError
		if errors.As(fetchErr, &statusErr) && statusErr.Status != 0 {
			return Result{Name: name, Detail: fmt.Sprintf("admin page returned %d", statusErr.Status)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", fetchErr)}
	}
	model, err := form.Parse(resp.Body, session.Convention())
	if err != nil {
		if fetchErr != nil {
			return rejected()
		}
		return Result{Name: name, Detail: fmt.Sprintf("unreadable admin page (%v)", err)}
	}
	for _, f := range model.Forms {
		for _, field := range f.Fields {
			if field.Name == cfg.Conventions.PasswordField && field.Type == "password" {
				detail := "reachable (login form shown)"
				if fetchErr != nil {
					detail = fmt.Sprintf("reachable (login form shown with status %d)", resp.Status)
				}
				return Result{Name: name, Passed: true, Detail: detail}
			}
		}
	}
	if fetchErr != nil {
		return rejected()
	}
	if model.Member >= 0 {
		return Result{Name: name, Passed: true, Detail: "reachable (member form shown)"}
	}
	return Result{Name: name, Detail: "reachable but neither a login nor a member form was found"}
}
