package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// conn is the subset of an FTP session the publisher uses.
type conn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (conn, error)

func ftpDial(ctx context.Context, addr string, timeout time.Duration) (conn, error) {
	return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
}

// Publisher uploads files to the configured FTP server.
type Publisher struct {
	addr      string
	username  string
	password  string
	remoteDir string
	timeout   time.Duration
	policy    services.RetryPolicy
	dial      dialFunc
	logger    *slog.Logger
}

// NewPublisher builds a publisher from the remote configuration.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		addr:      net.JoinHostPort(cfg.Remote.Host, strconv.Itoa(cfg.Remote.Port)),
		username:  cfg.Remote.Username,
		password:  cfg.Remote.Password,
		remoteDir: cfg.Remote.RemoteDirectory,
		timeout:   cfg.RemoteTimeout(),
		policy:    services.RetryPolicy{MaxRetries: cfg.Remote.MaxRetries},
		dial:      ftpDial,
		logger:    logging.NewComponentLogger(logger, "publish"),
	}
}

// Publish uploads the file at localPath as remoteName, retrying
// transient failures. Each attempt uses a fresh FTP session.
func (p *Publisher) Publish(ctx context.Context, localPath, remoteName string) error {
	err := services.Retry(ctx, p.policy, func(attempt int) error {
		if err := p.uploadOnce(ctx, localPath, remoteName); err != nil {
			p.logger.Warn("upload attempt failed",
				logging.String("local_path", localPath),
				logging.String("remote_name", remoteName),
				logging.Int("attempt", attempt+1),
				logging.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Info("uploaded file",
		logging.String("local_path", localPath),
		logging.String("remote_name", remoteName),
		logging.String("remote_dir", p.remoteDir))
	return nil
}

func (p *Publisher) uploadOnce(ctx context.Context, localPath, remoteName string) error {
	c, err := p.dial(ctx, p.addr, p.timeout)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "dial",
			fmt.Sprintf("connect to %s", p.addr), err)
	}
	defer c.Quit()

	if err := c.Login(p.username, p.password); err != nil {
		return services.Wrap(services.ErrTransient, "publish", "login", "authenticate ftp session", err)
	}

	if err := p.ensureRemoteDir(c); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "publish", "store",
			fmt.Sprintf("open %s", localPath), err)
	}
	defer f.Close()

	if err := c.Stor(remoteName, f); err != nil {
		return services.Wrap(services.ErrTransient, "publish", "store",
			fmt.Sprintf("store %s", remoteName), err)
	}

	return nil
}

// ensureRemoteDir changes into the configured remote directory,
// creating missing path segments when the direct change fails. MakeDir
// errors on individual segments are tolerated since another session may
// have created them concurrently.
func (p *Publisher) ensureRemoteDir(c conn) error {
	if p.remoteDir == "" || p.remoteDir == "/" {
		return nil
	}

	if err := c.ChangeDir(p.remoteDir); err == nil {
		return nil
	}

	current := ""
	for _, segment := range strings.Split(strings.Trim(p.remoteDir, "/"), "/") {
		if segment == "" {
			continue
		}
		current += "/" + segment
		if err := c.ChangeDir(current); err == nil {
			continue
		}
		c.MakeDir(current)
		if err := c.ChangeDir(current); err != nil {
			return services.Wrap(services.ErrTransient, "publish", "mkdir",
				fmt.Sprintf("enter remote directory %s", current), err)
		}
	}
	return nil
}
