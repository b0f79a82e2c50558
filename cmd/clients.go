package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/gateway"
)

func newGatewayClient(cfg *config.Config) (*gateway.Client, error) {
	gc, err := gateway.NewClient(cfg.Gateway.URL, constants.BackendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_URL: %w", err)
	}
	return gc, nil
}

func newBackendClient(cfg *config.Config) (*backend.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, errors.New("BACKEND_URL environment variable is required")
	}
	bc, err := backend.NewClient(cfg.Backend.URL, constants.BackendTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_URL: %w", err)
	}
	return bc, nil
}
