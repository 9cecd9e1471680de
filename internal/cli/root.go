// Package cli implements the centra command, a curl-like front end to the
// centra client.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frankli0324/go-centra"
)

var version = "dev"

type options struct {
	method    string
	headers   []string
	queries   []string
	options   []string
	data      string
	json      bool
	form      bool
	timeout   time.Duration
	maxBuffer int64
	follow    int
	compress  bool
	stream    bool
	include   bool
	get       string
	fail      bool
	proxy     string
	insecure  bool
	config    string
	noColor   bool
	verbose   bool
}

// NewRootCmd builds the centra command.
func NewRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "centra [flags] <url>",
		Short: "Send one HTTP request and print the response",
		Long: `centra sends a single HTTP/1.1 request and writes the response body
to stdout.

Examples:
  centra https://example.com
  centra -X POST --json -d '{"hey":"hi"}' https://example.com/api
  centra --form -d 'a=1&b=2' https://example.com/submit
  centra --stream --timeout 30s https://example.com/events
  centra --get 'items.#.name' https://example.com/items.json
  centra -o servername=example.com -o rejectUnauthorized=false https://10.0.0.1`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, o, args[0])
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.StringVarP(&o.method, "request", "X", "", "Request method (default GET, POST when data is given)")
	f.StringArrayVarP(&o.headers, "header", "H", nil, `Request header "Name: value", repeatable`)
	f.StringArrayVarP(&o.queries, "query", "q", nil, `Query parameter "name=value", repeatable`)
	f.StringArrayVarP(&o.options, "option", "o", nil, `Transport option "name=value", repeatable`)
	f.StringVarP(&o.data, "data", "d", "", "Request body, @file reads a file and @- reads stdin")
	f.BoolVar(&o.json, "json", false, "Send the body as JSON")
	f.BoolVar(&o.form, "form", false, "Send the body as a urlencoded form")
	f.DurationVar(&o.timeout, "timeout", getEnvDuration("CENTRA_TIMEOUT", 0), "Timeout for the whole request, 0 means none (env: CENTRA_TIMEOUT)")
	f.Int64Var(&o.maxBuffer, "max-buffer", 0, "Maximum number of body bytes to accept, 0 means no limit")
	f.IntVarP(&o.follow, "follow", "L", 0, "Follow up to this many redirects")
	f.BoolVar(&o.compress, "compress", false, "Request a compressed response and decode it")
	f.BoolVar(&o.stream, "stream", false, "Write the body as it arrives")
	f.BoolVarP(&o.include, "include", "i", false, "Print the status line and headers")
	f.StringVar(&o.get, "get", "", "Print the value at this JSON path instead of the body")
	f.BoolVar(&o.fail, "fail", false, "Exit with an error on 4xx and 5xx responses")
	f.StringVar(&o.proxy, "proxy", getEnvString("CENTRA_PROXY", ""), "http, https, socks5 or socks5h proxy URL (env: CENTRA_PROXY)")
	f.BoolVarP(&o.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	f.StringVar(&o.config, "config", getEnvString("CENTRA_CONFIG", ""), "Path to config file (env: CENTRA_CONFIG)")
	f.BoolVar(&o.noColor, "no-color", getEnvBool("CENTRA_NO_COLOR", false), "Disable colored output (env: CENTRA_NO_COLOR)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log connection details to stderr")
	return cmd
}

// Execute runs the centra command and returns the process exit code.
func Execute(v string) int {
	version = v
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("error:"), err)
	}
	return exitCode(err)
}

func run(cmd *cobra.Command, o *options, rawURL string) error {
	cfg, err := LoadConfig(o.config)
	if err != nil {
		return usageError{err}
	}
	o.applyConfig(cmd.Flags().Changed, cfg)
	if o.noColor {
		color.NoColor = true
	}

	client := newClient(o, cfg, cmd.ErrOrStderr())
	req, err := o.buildRequest(client, rawURL, cmd.InOrStdin())
	if err != nil {
		return usageError{err}
	}
	resp, err := req.Send(cmd.Context())
	if err != nil {
		return err
	}
	return o.printResponse(cmd.OutOrStdout(), resp)
}

// applyConfig fills every option the command line left alone from cfg.
func (o *options) applyConfig(changed func(string) bool, cfg *Config) {
	if !changed("timeout") && cfg.Timeout > 0 {
		o.timeout = cfg.Timeout
	}
	if !changed("follow") && cfg.FollowRedirects > 0 {
		o.follow = cfg.FollowRedirects
	}
	if !changed("max-buffer") && cfg.MaxBuffer > 0 {
		o.maxBuffer = cfg.MaxBuffer
	}
	if !changed("compress") {
		o.compress = getBool(cfg.Compress, o.compress)
	}
	if !changed("proxy") && cfg.Proxy != "" {
		o.proxy = cfg.Proxy
	}
	if !changed("insecure") {
		o.insecure = getBool(cfg.Insecure, o.insecure)
	}
	if !changed("no-color") {
		o.noColor = getBool(cfg.NoColor, o.noColor)
	}
	// config headers go first so that -H overrides them
	if len(cfg.Headers) > 0 {
		headers := make([]string, 0, len(cfg.Headers)+len(o.headers))
		for k, v := range cfg.Headers {
			headers = append(headers, k+": "+v)
		}
		o.headers = append(headers, o.headers...)
	}
}

func newClient(o *options, cfg *Config, stderr io.Writer) *centra.Client {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	c := &centra.Client{
		Logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
	if rc := cfg.DNS.resolveConfig(); rc != nil {
		c.UseCoreDialer(func(cd *centra.CoreDialer) centra.Dialer {
			cd.ResolveConfig = rc
			return cd
		})
	}
	if o.proxy != "" {
		c.UseProxy(o.proxy)
	}
	if o.insecure {
		c.InsecureSkipVerify()
	}
	return c
}

func (o *options) buildRequest(c *centra.Client, rawURL string, stdin io.Reader) (*centra.Request, error) {
	method := strings.ToUpper(o.method)
	if method == "" {
		method = "GET"
		if o.data != "" {
			method = "POST"
		}
	}
	req := c.New(rawURL, method)

	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		req.Header(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, q := range o.queries {
		name, value, ok := strings.Cut(q, "=")
		if !ok {
			return nil, fmt.Errorf("invalid query %q, want name=value", q)
		}
		req.Query(name, value)
	}
	for _, opt := range o.options {
		name, value, ok := strings.Cut(opt, "=")
		if !ok {
			return nil, fmt.Errorf("invalid option %q, want name=value", opt)
		}
		req.Option(name, optionValue(value))
	}

	if o.data != "" {
		body, err := readData(o.data, stdin)
		if err != nil {
			return nil, err
		}
		switch {
		case o.json && o.form:
			return nil, errors.New("--json and --form are mutually exclusive")
		case o.json:
			req.Body(json.RawMessage(body), centra.EncodingJSON)
		case o.form:
			req.Body(body, centra.EncodingForm)
		default:
			req.Body(body)
		}
	}

	req.Timeout(o.timeout).MaxBuffer(o.maxBuffer).FollowRedirects(o.follow)
	if o.compress {
		req.Compress()
	}
	if o.stream {
		req.Stream()
	}
	return req, nil
}

// readData resolves the @file and @- forms of --data.
func readData(data string, stdin io.Reader) (string, error) {
	if !strings.HasPrefix(data, "@") {
		return data, nil
	}
	var (
		b   []byte
		err error
	)
	if data == "@-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(data[1:])
	}
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// optionValue turns a command line option value into the type
// Request.Option expects for it.
func optionValue(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
