package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
	"github.com/nerrad567/aerion-control/internal/infrastructure/netif"
	"github.com/nerrad567/aerion-control/internal/slmp"
)

// Handshake constants.
const (
	// RobotRequest opens a session with a robot controller.
	RobotRequest = "1;1;OPEN=ROBOT"

	// robotAckPrefix is matched case-insensitively.
	robotAckPrefix = "qok"

	// readBufferSize bounds a single answer read.
	readBufferSize = 240

	defaultTimeout = 2 * time.Second
)

// Config holds prober settings.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Policy picks which resolved address is dialled.
	Policy netif.Policy

	// StrictShutdown turns a shutdown error into ReasonShutdownFailed
	// when the handshake itself succeeded.
	StrictShutdown bool
}

// DefaultConfig returns the 2 s timeouts with any-family address selection.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: defaultTimeout,
		ReadTimeout:    defaultTimeout,
		WriteTimeout:   defaultTimeout,
		Policy:         netif.Policy{Family: netif.FamilyAny, Fallback: true},
	}
}

// ConfigFrom converts the probe section of the application configuration.
func ConfigFrom(c config.ProbeConfig) (Config, error) {
	family, err := netif.ParseFamily(c.AddressFamily)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return Config{
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		Policy:         netif.Policy{Family: family, Fallback: c.AddressFallback},
		StrictShutdown: c.StrictShutdown,
	}, nil
}

// Resolver looks up the addresses of a host name.
// *net.Resolver satisfies this interface.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Dialer opens the TCP connection to a device. *net.Dialer satisfies
// this interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober performs device handshakes. It holds no per-probe state and is
// safe for concurrent use.
type Prober struct {
	cfg      Config
	resolver Resolver
	dialer   Dialer
}

// NewProber creates a prober using the system resolver.
func NewProber(cfg Config) *Prober {
	return &Prober{
		cfg:      cfg,
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: cfg.ConnectTimeout},
	}
}

// SetResolver replaces the resolver used for host names.
func (p *Prober) SetResolver(r Resolver) {
	p.resolver = r
}

// SetDialer replaces the dialer. ConnectTimeout still bounds every dial.
func (p *Prober) SetDialer(d Dialer) {
	p.dialer = d
}

// Config returns the prober settings.
func (p *Prober) Config() Config {
	return p.cfg
}

// Probe checks one device. It never panics and never returns an error:
// every failure is described by the Outcome. The worst-case blocking
// time is roughly the connect, write and read timeouts added together.
func (p *Prober) Probe(ctx context.Context, rec device.Record) Outcome {
	var exchange func(net.Conn) Outcome
	switch rec.Type {
	case device.TypeRobot:
		exchange = p.robotExchange
	case device.TypePLC:
		exchange = p.plcExchange
	default:
		return fail(ReasonUnsupportedDeviceType, fmt.Errorf("device type %q", rec.Type))
	}

	target, err := p.resolve(ctx, rec.IP, rec.Port)
	if err != nil {
		return fail(ReasonAddressError, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	conn, err := p.dialer.DialContext(dialCtx, "tcp", target.String())
	cancel()
	if err != nil {
		return fail(ReasonConnectionFailed, err)
	}

	outcome := p.handshake(ctx, conn, exchange)

	if err := shutdown(conn); err != nil {
		outcome.ShutdownFailed = true
		if outcome.OK() && p.cfg.StrictShutdown {
			outcome = Outcome{Reason: ReasonShutdownFailed, Detail: err.Error(), ShutdownFailed: true}
		}
	}
	return outcome
}

func (p *Prober) handshake(ctx context.Context, conn net.Conn, exchange func(net.Conn) Outcome) Outcome {
	now := time.Now()
	if err := conn.SetWriteDeadline(now.Add(p.cfg.WriteTimeout)); err != nil {
		return fail(ReasonTimeoutConfigFailed, err)
	}
	if err := conn.SetReadDeadline(now.Add(p.cfg.WriteTimeout + p.cfg.ReadTimeout)); err != nil {
		return fail(ReasonTimeoutConfigFailed, err)
	}

	// A cancelled context expires the deadlines so a pending read returns.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	return exchange(conn)
}

// resolve returns the address to dial for host and port.
func (p *Prober) resolve(ctx context.Context, host string, port int) (netip.AddrPort, error) {
	if port < 1 || port > 65535 {
		return netip.AddrPort{}, fmt.Errorf("port %d out of range", port)
	}

	var addrs []netip.Addr
	if a, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{a}
	} else {
		if host == "" {
			return netip.AddrPort{}, errors.New("host is empty")
		}
		addrs, err = p.resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("resolving %s: %w", host, err)
		}
	}

	i, err := p.cfg.Policy.Select(addrs)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(addrs[i].Unmap(), uint16(port)), nil
}

func (p *Prober) robotExchange(conn net.Conn) Outcome {
	if _, err := io.WriteString(conn, RobotRequest); err != nil {
		return fail(ReasonSendFailed, err)
	}

	answer, err := readAnswer(conn)
	if err != nil {
		return fail(ReasonReceiveFailed, err)
	}

	if !utf8.Valid(answer) {
		return fail(ReasonInvalidResponse, errors.New("answer is not valid UTF-8"))
	}
	if !strings.HasPrefix(strings.ToLower(string(answer)), robotAckPrefix) {
		return fail(ReasonInvalidResponse, fmt.Errorf("unexpected answer %q", answer))
	}
	return Outcome{}
}

func (p *Prober) plcExchange(conn net.Conn) Outcome {
	sent := slmp.DefaultLoopbackData
	if _, err := conn.Write(slmp.NewLoopbackRequest(sent).Encode()); err != nil {
		return fail(ReasonSendFailed, err)
	}

	answer, err := readAnswer(conn)
	if err != nil {
		return fail(ReasonReceiveFailed, err)
	}

	resp, err := slmp.ParseLoopbackResponse(answer)
	if err != nil {
		return fail(ReasonInvalidResponseLength, err)
	}

	err = resp.Validate(sent)
	switch {
	case err == nil:
		return Outcome{}
	case errors.Is(err, slmp.ErrNonZeroEndCode):
		return fail(ReasonNonZeroEndCode, err)
	case errors.Is(err, slmp.ErrInvalidDataLength):
		return fail(ReasonInvalidDataLength, err)
	case errors.Is(err, slmp.ErrEchoMismatch):
		return fail(ReasonEchoMismatch, err)
	default:
		return fail(ReasonInvalidResponse, err)
	}
}

// readAnswer performs a single read. End of stream is an empty answer,
// not an error.
func readAnswer(conn net.Conn) ([]byte, error) {
	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// shutdown closes both directions and then the socket, reporting every error.
func shutdown(conn net.Conn) error {
	var errs []error
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			errs = append(errs, err)
		}
		if err := tc.CloseRead(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
