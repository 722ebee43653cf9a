package filesystem

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Exported constants.
const (
	DefaultSFTPPort = 22
	SFTPScheme      = "sftp://"
)

// Exported variables.
var (
	ErrInvalidSFTPURL = errors.New("invalid SFTP URL")
)

// ParsedPath represents either a local path or an SFTP URL.
type ParsedPath struct {
	IsRemote bool

	// For local paths
	LocalPath string

	// For SFTP paths
	Host string
	Port int
	User string
	Path string // Remote path
}

// String renders the path back into the form ParsePath accepts.
func (p *ParsedPath) String() string {
	if !p.IsRemote {
		return p.LocalPath
	}

	// Absolute remote paths already carry their slash, giving "//".
	remote := "/" + p.Path
	if p.Path == "." {
		remote = ""
	}

	if p.Port == DefaultSFTPPort {
		return fmt.Sprintf("%s%s@%s%s", SFTPScheme, p.User, p.Host, remote)
	}

	return fmt.Sprintf("%s%s@%s:%d%s", SFTPScheme, p.User, p.Host, p.Port, remote)
}

// IsRemotePath reports whether path uses the sftp:// scheme.
func IsRemotePath(path string) bool {
	return strings.HasPrefix(path, SFTPScheme)
}

// ParsePath parses a path string, detecting whether it's a local path or SFTP URL.
// SFTP URLs have the format: sftp://user@host:port/path/to/dir
// Port is optional (defaults to 22)
// Examples:
//   - sftp://joe@myserver.com/home/joe/data   (relative to the remote home)
//   - sftp://joe@myserver.com:2222//backups   (absolute /backups)
//   - /local/path/to/files                    (local path)
func ParsePath(path string) (*ParsedPath, error) {
	if IsRemotePath(path) {
		return parseSFTPURL(path)
	}

	return &ParsedPath{
		IsRemote:  false,
		LocalPath: path,
	}, nil
}

// parseSFTPURL parses an SFTP URL into its components.
func parseSFTPURL(sftpURL string) (*ParsedPath, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSFTPURL, err)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: must include username (sftp://user@host/path)", ErrInvalidSFTPURL)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: must include host", ErrInvalidSFTPURL)
	}

	port := DefaultSFTPPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("%w: invalid port number %q", ErrInvalidSFTPURL, portStr)
		}
		port = p
	}

	// sftp://user@host/path  → relative to home directory
	// sftp://user@host//path → absolute path /path
	// sftp://user@host       → home directory
	remotePath := u.Path
	switch {
	case remotePath == "" || remotePath == "/":
		remotePath = "."
	case strings.HasPrefix(remotePath, "//"):
		remotePath = remotePath[1:]
	default:
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return &ParsedPath{
		IsRemote: true,
		Host:     host,
		Port:     port,
		User:     u.User.Username(),
		Path:     remotePath,
	}, nil
}
