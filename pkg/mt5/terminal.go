package mt5

import (
	"context"

	"mt5bridge/pkg/apperror"
	"mt5bridge/pkg/mt5gen"
)

// Initialize starts the terminal at an optional installation path.
func (c *Client) Initialize(ctx context.Context, path string) (bool, error) {
	v, err := c.resilientCall(ctx, "initialize", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().Initialize(ctx, &mt5gen.InitRequest{Path: path})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp.Result, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Login authenticates against a trade account.
func (c *Client) Login(ctx context.Context, login int64, password, server string) (bool, error) {
	v, err := c.resilientCall(ctx, "login", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().Login(ctx, &mt5gen.LoginRequest{Login: login, Password: password, Server: server})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp.Result, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Shutdown stops the terminal.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.resilientCall(ctx, "shutdown", func(ctx context.Context) (any, error) {
		_, err := c.rpc().Shutdown(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return nil, nil
	})
	return err
}

// Version returns the terminal's build version.
func (c *Client) Version(ctx context.Context) (*mt5gen.MT5Version, error) {
	v, err := c.resilientCall(ctx, "version", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().Version(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mt5gen.MT5Version), nil
}

// LastError returns the terminal's most recent error code and message.
func (c *Client) LastError(ctx context.Context) (*mt5gen.ErrorInfo, error) {
	v, err := c.resilientCall(ctx, "last_error", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().LastError(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mt5gen.ErrorInfo), nil
}

// TerminalInfo returns the terminal's connection/environment info as a
// decoded JSON object.
func (c *Client) TerminalInfo(ctx context.Context) (map[string]any, error) {
	v, err := c.resilientCall(ctx, "terminal_info", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().TerminalInfo(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeJSONObject(resp.JSONData)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// AccountInfo returns the logged-in account's state as a decoded JSON
// object (balance, equity, margin, leverage, ...).
func (c *Client) AccountInfo(ctx context.Context) (map[string]any, error) {
	v, err := c.resilientCall(ctx, "account_info", func(ctx context.Context) (any, error) {
		resp, err := c.rpc().AccountInfo(ctx, &mt5gen.Empty{})
		if err != nil {
			return nil, apperror.FromGRPC(err)
		}
		return decodeJSONObject(resp.JSONData)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// HealthCheck reports the terminal's current health snapshot. Unlike the
// other wrappers this bypasses the queue/retry/breaker stack: it is the
// signal the breaker and health monitor are built on top of, and must
// never itself be gated by them.
func (c *Client) HealthCheck(ctx context.Context) (*mt5gen.HealthStatus, error) {
	return c.rpc().HealthCheck(ctx, &mt5gen.Empty{})
}
