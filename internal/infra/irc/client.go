// Package irc is a minimal IRC client: registration, channel joins, PING
// replies, inbound PRIVMSG delivery and flood-controlled outbound PRIVMSG.
package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/observability/metrics"
)

// ErrNotConnected is returned by Send before registration completes.
var ErrNotConnected = errors.New("irc: not connected")

// Config holds connection settings.
type Config struct {
	Addr          string
	UseTLS        bool
	TLSSkipVerify bool
	Nickname      string
	Realname      string
	// HomeChannel is joined on registration ahead of JoinChannels.
	HomeChannel string
	SendRate    float64
	SendBurst   int
	DialTimeout time.Duration
}

// Client is one IRC connection. Send is safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// JoinChannels returns extra channels to join once registered.
	JoinChannels func() []string
	// OnRegistered runs after the welcome reply and joins.
	OnRegistered func()

	dial    func(ctx context.Context) (net.Conn, error)
	limiter *rate.Limiter
	inbound chan entity.InboundMessage

	mu         sync.Mutex
	conn       net.Conn
	w          *bufio.Writer
	nick       string
	registered atomic.Bool
}

// New creates a client. Call Run to connect.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nickname
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = 2
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 1
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	c := &Client{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		inbound: make(chan entity.InboundMessage, 64),
		nick:    cfg.Nickname,
	}
	c.dial = c.dialNetwork
	return c
}

func (c *Client) dialNetwork(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: c.cfg.DialTimeout}
	if !c.cfg.UseTLS {
		return d.DialContext(ctx, "tcp", c.cfg.Addr)
	}
	host, _, err := net.SplitHostPort(c.cfg.Addr)
	if err != nil {
		return nil, err
	}
	td := &tls.Dialer{
		NetDialer: d,
		Config: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
			// #nosec G402 -- opt-in via IRC_TLS_SKIP_VERIFY for self-signed test networks
			InsecureSkipVerify: c.cfg.TLSSkipVerify,
		},
	}
	return td.DialContext(ctx, "tcp", c.cfg.Addr)
}

// Messages returns the inbound PRIVMSG stream. It is closed when Run returns.
func (c *Client) Messages() <-chan entity.InboundMessage {
	return c.inbound
}

// Registered reports whether the server has accepted the connection.
func (c *Client) Registered() bool {
	return c.registered.Load()
}

// Nick returns the nickname currently in use.
func (c *Client) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// Run connects, registers and reads until the connection ends or ctx is
// canceled. A lost connection is reported as entity.ErrTransportDisconnect.
// Run may be called once per Client.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.inbound)

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", entity.ErrTransportDisconnect, c.cfg.Addr, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.w = bufio.NewWriter(conn)
	c.mu.Unlock()
	c.logger.Info("connected to IRC server", slog.String("addr", c.cfg.Addr), slog.Bool("tls", c.cfg.UseTLS))

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.quit("Shutting down")
		_ = conn.Close()
	})
	defer stop()
	defer c.teardown()

	if err := c.register(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: register: %w", entity.ErrTransportDisconnect, err)
	}

	err = c.readLoop(ctx, conn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %w", entity.ErrTransportDisconnect, err)
}

func (c *Client) teardown() {
	c.registered.Store(false)
	metrics.SetIRCConnected(false)
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn, c.w = nil, nil
	c.mu.Unlock()
}

func (c *Client) register() error {
	if err := c.writeLine("NICK " + c.cfg.Nickname); err != nil {
		return err
	}
	return c.writeLine(fmt.Sprintf("USER %s 0 * :%s", c.cfg.Nickname, c.cfg.Realname))
}

func (c *Client) quit(reason string) {
	_ = c.writeLine("QUIT :" + reason)
}

func (c *Client) readLoop(ctx context.Context, conn net.Conn) error {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		metrics.RecordIRCLine("in")
		msg, err := ParseLine(sc.Text())
		if err != nil {
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errors.New("connection closed by server")
}

func (c *Client) handle(ctx context.Context, m Message) error {
	switch m.Command {
	case "PING":
		return c.writeLine("PONG :" + m.Param(0))
	case "001":
		c.mu.Lock()
		if nick := m.Param(0); nick != "" {
			c.nick = nick
		}
		c.mu.Unlock()
		c.registered.Store(true)
		metrics.SetIRCConnected(true)
		c.logger.Info("registered with IRC server", slog.String("nick", c.Nick()))
		if err := c.joinAll(); err != nil {
			return err
		}
		if c.OnRegistered != nil {
			c.OnRegistered()
		}
	case "433":
		if c.Registered() {
			return nil
		}
		c.mu.Lock()
		c.nick += "_"
		nick := c.nick
		c.mu.Unlock()
		c.logger.Warn("nickname in use, retrying", slog.String("nick", nick))
		return c.writeLine("NICK " + nick)
	case "PRIVMSG":
		if len(m.Params) < 2 {
			return nil
		}
		in := entity.InboundMessage{Target: m.Params[0], Sender: m.Nick(), Text: m.Params[1]}
		select {
		case c.inbound <- in:
		case <-ctx.Done():
		}
	case "ERROR":
		return fmt.Errorf("server error: %s", m.Param(0))
	}
	return nil
}

func (c *Client) joinAll() error {
	seen := make(map[string]struct{})
	var channels []string
	add := func(ch string) {
		key := strings.ToLower(ch)
		if _, ok := seen[key]; ok || ch == "" {
			return
		}
		seen[key] = struct{}{}
		channels = append(channels, ch)
	}
	add(c.cfg.HomeChannel)
	if c.JoinChannels != nil {
		for _, ch := range c.JoinChannels() {
			add(ch)
		}
	}
	for _, ch := range channels {
		if err := c.writeLine("JOIN " + ch); err != nil {
			return err
		}
	}
	return nil
}

// Join joins channels on a registered connection.
func (c *Client) Join(ctx context.Context, channels ...string) error {
	if !c.Registered() {
		return ErrNotConnected
	}
	for _, ch := range channels {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.writeLine("JOIN " + sanitize(ch)); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers text to target as a PRIVMSG. Newlines are flattened so a
// message can never inject extra protocol lines. Send waits for the flood
// limiter and returns early if ctx is done.
func (c *Client) Send(ctx context.Context, target, text string) error {
	if !c.Registered() {
		return ErrNotConnected
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.writeLine(fmt.Sprintf("PRIVMSG %s :%s", sanitize(target), sanitize(text)))
}

func (c *Client) writeLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return ErrNotConnected
	}
	if _, err := c.w.WriteString(line + "\r\n"); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	metrics.RecordIRCLine("out")
	c.logger.Debug("irc send", slog.String("line", line))
	return nil
}
