package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amimof/huego"
)

const (
	// DefaultPort is the bridge API port
	DefaultPort = 80

	// DefaultUser is sent as the API user; the controller accepts any name
	DefaultUser = "smartrelay-cfg"

	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// Switch is one virtual switch as reported by the controller
type Switch struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	On       bool   `json:"on"`
	Bri      uint8  `json:"bri"`
	UniqueID string `json:"unique_id"`
}

// Client talks to a controller's bridge API
type Client struct {
	// Address is host:port of the controller
	Address string

	// Timeout bounds each attempt
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// HTTPClient is used for the non-Hue /status endpoint
	HTTPClient *http.Client

	bridge *huego.Bridge
}

// NewClient creates a client for address ("host" or "host:port")
func NewClient(address string) *Client {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(DefaultPort))
	}
	return &Client{
		Address:       address,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		bridge:        huego.New(address, DefaultUser),
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// retry runs op until it succeeds, fails with a non-retryable error or the
// attempts run out.
func (c *Client) retry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ClassifyError(ctx.Err(), c.Address)
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = ClassifyError(err, c.Address)
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Pair registers a user on the controller and returns its name. The
// controller accepts every pairing request.
func (c *Client) Pair(ctx context.Context, deviceType string) (string, error) {
	var user string
	err := c.retry(ctx, func(ctx context.Context) error {
		var err error
		// Pairing posts to /api itself, so no user may be set.
		user, err = huego.New(c.Address, "").CreateUserContext(ctx, deviceType)
		return err
	})
	return user, err
}

// Switches lists the controller's switches ordered by ID
func (c *Client) Switches(ctx context.Context) ([]Switch, error) {
	var lights []huego.Light
	err := c.retry(ctx, func(ctx context.Context) error {
		var err error
		lights, err = c.bridge.GetLightsContext(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	switches := make([]Switch, 0, len(lights))
	for _, l := range lights {
		s := Switch{ID: l.ID, Name: l.Name, UniqueID: l.UniqueID}
		if l.State != nil {
			s.On = l.State.On
			s.Bri = l.State.Bri
		}
		switches = append(switches, s)
	}
	sort.Slice(switches, func(i, j int) bool { return switches[i].ID < switches[j].ID })
	return switches, nil
}

// Find returns the switch with the given name or numeric ID
func (c *Client) Find(ctx context.Context, nameOrID string) (Switch, error) {
	switches, err := c.Switches(ctx)
	if err != nil {
		return Switch{}, err
	}

	id, idErr := strconv.Atoi(nameOrID)
	names := make([]string, 0, len(switches))
	for _, s := range switches {
		if s.Name == nameOrID || (idErr == nil && s.ID == id) {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return Switch{}, NewValidationError(fmt.Sprintf("unknown switch %q (available: %s)", nameOrID, strings.Join(names, ", ")))
}

// Set switches the named switch on or off. The controller applies the
// command on its next main-loop iteration.
func (c *Client) Set(ctx context.Context, nameOrID string, on bool) (Switch, error) {
	s, err := c.Find(ctx, nameOrID)
	if err != nil {
		return Switch{}, err
	}

	err = c.retry(ctx, func(ctx context.Context) error {
		_, err := c.bridge.SetLightStateContext(ctx, s.ID, huego.State{On: on})
		return err
	})
	if err != nil {
		return Switch{}, err
	}
	s.On = on
	return s, nil
}

// Status is the subset of the controller's /status report the CLI shows
type Status struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Profile         string `json:"profile"`
	State           string `json:"state"`
	UnknownCommands int    `json:"unknown_commands"`
	UpdatesEnabled  bool   `json:"updates_enabled"`
	Update          struct {
		Phase     string `json:"phase"`
		Percent   int    `json:"percent"`
		Attempts  int    `json:"attempts"`
		Failures  int    `json:"failures"`
		LastError string `json:"last_error"`
	} `json:"update"`
}

// Status fetches the controller's status report
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	err := c.retry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.Address+"/status", nil)
		if err != nil {
			return NewValidationError(err.Error())
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&st)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}
