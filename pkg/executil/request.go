package executil

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// UseDefault marks a Request field that should be resolved from the runner's
// Defaults at execution time.
const UseDefault = -1

// Request describes a single command invocation. Build one with NewRequest;
// the zero value is not a valid request.
type Request struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
	Timeout time.Duration // 0 = runner default
	Retries int           // UseDefault = runner default
}

// Option configures a Request.
type Option func(*requestBuilder)

type requestBuilder struct {
	req      Request
	envFiles []string
	errs     []error
}

// WithTimeout bounds each attempt. Zero keeps the runner default.
func WithTimeout(d time.Duration) Option {
	return func(b *requestBuilder) {
		if d < 0 {
			b.errs = append(b.errs, fmt.Errorf("timeout must not be negative, got %s", d))
			return
		}
		b.req.Timeout = d
	}
}

// WithRetries sets the number of retries after the first attempt. Zero means
// a single attempt.
func WithRetries(n int) Option {
	return func(b *requestBuilder) {
		if n < 0 {
			b.errs = append(b.errs, fmt.Errorf("retries must not be negative, got %d", n))
			return
		}
		b.req.Retries = n
	}
}

// WithDir sets the working directory of the child process.
func WithDir(dir string) Option {
	return func(b *requestBuilder) { b.req.Dir = dir }
}

// WithEnv overlays the given variables on the inherited environment.
func WithEnv(env map[string]string) Option {
	return func(b *requestBuilder) {
		for k, v := range env {
			b.setEnv(k, v)
		}
	}
}

// WithEnvVar overlays a single variable on the inherited environment.
func WithEnvVar(key, value string) Option {
	return func(b *requestBuilder) { b.setEnv(key, value) }
}

// WithEnvFile loads variables from a dotenv file. Variables set explicitly with
// WithEnv or WithEnvVar take precedence regardless of option order.
func WithEnvFile(path string) Option {
	return func(b *requestBuilder) { b.envFiles = append(b.envFiles, path) }
}

func (b *requestBuilder) setEnv(key, value string) {
	if key == "" || strings.ContainsAny(key, "=\x00") {
		b.errs = append(b.errs, fmt.Errorf("invalid environment variable name %q", key))
		return
	}
	if b.req.Env == nil {
		b.req.Env = make(map[string]string)
	}
	b.req.Env[key] = value
}

// NewRequest validates and builds a Request. Arguments are passed to the
// program as discrete tokens and are never interpreted by a shell.
func NewRequest(command string, args []string, opts ...Option) (Request, error) {
	b := &requestBuilder{
		req: Request{
			Command: command,
			Args:    slices.Clone(args),
			Retries: UseDefault,
		},
	}

	if strings.TrimSpace(command) == "" {
		b.errs = append(b.errs, errors.New("command is required"))
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.envFiles) > 0 {
		fileEnv, err := godotenv.Read(b.envFiles...)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("read env file: %w", err))
		} else {
			for k, v := range fileEnv {
				if _, set := b.req.Env[k]; !set {
					b.setEnv(k, v)
				}
			}
		}
	}

	if err := errors.Join(b.errs...); err != nil {
		return Request{}, fmt.Errorf("invalid request for %q: %w", command, err)
	}

	return b.req, nil
}

// environ returns the child environment: the parent's environment with the
// request overlay applied in a stable order.
func (r Request) environ() []string {
	if len(r.Env) == 0 {
		return nil // inherit
	}

	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(r.Env)) {
		env = append(env, k+"="+r.Env[k])
	}
	return env
}

// String renders the request as a readable command line for logs.
func (r Request) String() string {
	if len(r.Args) == 0 {
		return r.Command
	}
	return r.Command + " " + strings.Join(r.Args, " ")
}
