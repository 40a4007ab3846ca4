// Package roomprovider 向第三方視訊房間服務申請入場 token。
// 服務之間以 OAuth2 client credentials 認證。
package roomprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/config"
	"freelance-hub/backend/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const requestTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
}

// New ctx 只用於取得 OAuth2 token 的 HTTP 請求
func New(ctx context.Context, cfg config.RoomProviderConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{"rooms:join"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = requestTimeout
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: httpClient}
}

type tokenRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueJoinToken 替使用者申請進入 roomID 的 token
func (c *Client) IssueJoinToken(ctx context.Context, roomID string, identity models.Identity) (*models.JoinTokenResponse, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, apperror.Validation("roomId is required")
	}

	body, err := json.Marshal(tokenRequest{UserID: identity.ID, Role: string(identity.Role)})
	if err != nil {
		return nil, apperror.Internal(err, "failed to encode token request")
	}
	endpoint := fmt.Sprintf("%s/rooms/%s/tokens", c.baseURL, url.PathEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Internal(err, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Internal(err, "room provider is unavailable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("room not found")
	case resp.StatusCode >= 300:
		log.WithFields(log.Fields{"roomId": roomID, "status": resp.StatusCode}).Error("Room provider rejected token request")
		return nil, apperror.Internal(fmt.Errorf("room provider returned status %d", resp.StatusCode), "failed to issue join token")
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.Internal(err, "invalid room provider response")
	}
	if out.Token == "" {
		return nil, apperror.Internal(nil, "room provider returned an empty token")
	}
	return &models.JoinTokenResponse{Token: out.Token, RoomID: roomID, ExpiresAt: out.ExpiresAt}, nil
}
