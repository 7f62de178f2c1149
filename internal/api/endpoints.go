package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tikitihub/tikiti-go/internal/domain"
)

func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = make([]domain.Event, 0)
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, id int) (*domain.Event, error) {
	var event domain.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.do(ctx, http.MethodGet, "/events/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]string, error) {
	var locations []string
	if err := c.do(ctx, http.MethodGet, "/events/locations", nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (c *Client) PurchaseTicket(ctx context.Context, req domain.PurchaseRequest) (*domain.TicketConfirmation, error) {
	var conf domain.TicketConfirmation
	if err := c.do(ctx, http.MethodPost, "/ticket/purchase", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.RegisterResponse, error) {
	var resp domain.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req domain.ProfileUpdate) (*domain.ProfileResponse, error) {
	var resp domain.ProfileResponse
	if err := c.do(ctx, http.MethodPut, "/auth/profile", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var resp domain.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
