package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"snorq/config"
	"snorq/internal/domain/connection"
	"snorq/internal/platform"
)

// graphTimeLayout is the timestamp format the Graph API returns,
// e.g. "2023-11-14T12:00:00+0000".
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// Client talks to the Meta Graph API. Every request is bounded by the
// configured timeout; Graph error payloads come back as *platform.GraphError.
type Client struct {
	http     *http.Client
	baseURL  string
	version  string
	maxPages int
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:     &http.Client{Timeout: time.Duration(cfg.GraphTimeoutSec) * time.Second},
		baseURL:  cfg.GraphAPIBaseURL,
		version:  cfg.GraphAPIVersion,
		maxPages: cfg.SyncMaxPages,
	}
}

type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type sendMessageRequest struct {
	Recipient     idRef       `json:"recipient"`
	MessagingType string      `json:"messaging_type"`
	Message       textPayload `json:"message"`
}

type idRef struct {
	ID string `json:"id"`
}

type textPayload struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type pagingBody struct {
	Next string `json:"next"`
}

type conversationListResponse struct {
	Data []struct {
		ID           string `json:"id"`
		UpdatedTime  string `json:"updated_time"`
		Participants struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		} `json:"participants"`
	} `json:"data"`
	Paging pagingBody `json:"paging"`
}

type messageListResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		From    struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"from"`
		CreatedTime string `json:"created_time"`
	} `json:"data"`
	Paging pagingBody `json:"paging"`
}

type accountsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AccessToken string `json:"access_token"`
	} `json:"data"`
	Paging pagingBody `json:"paging"`
}

func (c *Client) SendMessage(ctx context.Context, conn connection.PlatformConnection, recipientID, text string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/me/messages?access_token=%s",
		c.baseURL, c.version, url.QueryEscape(conn.AccessToken))

	body, err := json.Marshal(sendMessageRequest{
		Recipient:     idRef{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       textPayload{Text: text},
	})
	if err != nil {
		return "", err
	}

	var resp sendMessageResponse
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *Client) ListConversations(ctx context.Context, conn connection.PlatformConnection) ([]platform.RemoteThread, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/conversations?fields=participants,updated_time&access_token=%s",
		c.baseURL, c.version, url.PathEscape(conn.PlatformUserID), url.QueryEscape(conn.AccessToken))

	var threads []platform.RemoteThread
	for page := 0; endpoint != "" && page < c.maxPages; page++ {
		var resp conversationListResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return threads, err
		}
		for _, item := range resp.Data {
			thread := platform.RemoteThread{ID: item.ID}
			if t, err := time.Parse(graphTimeLayout, item.UpdatedTime); err == nil {
				thread.UpdatedTime = t
			}
			for _, p := range item.Participants.Data {
				thread.Participants = append(thread.Participants, platform.RemoteParticipant{
					ID:   p.ID,
					Name: p.Name,
				})
			}
			threads = append(threads, thread)
		}
		endpoint = resp.Paging.Next
	}
	return threads, nil
}

func (c *Client) GetMessageHistory(ctx context.Context, conn connection.PlatformConnection, threadID string) ([]platform.RemoteMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/messages?fields=message,from,created_time&access_token=%s",
		c.baseURL, c.version, url.PathEscape(threadID), url.QueryEscape(conn.AccessToken))

	var messages []platform.RemoteMessage
	for page := 0; endpoint != "" && page < c.maxPages; page++ {
		var resp messageListResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return messages, err
		}
		for _, item := range resp.Data {
			msg := platform.RemoteMessage{
				ID:     item.ID,
				Text:   item.Message,
				FromID: item.From.ID,
			}
			if t, err := time.Parse(graphTimeLayout, item.CreatedTime); err == nil {
				msg.CreatedTime = t
			}
			messages = append(messages, msg)
		}
		endpoint = resp.Paging.Next
	}
	return messages, nil
}

func (c *Client) ListPages(ctx context.Context, userAccessToken string) ([]platform.RemotePage, error) {
	endpoint := fmt.Sprintf("%s/%s/me/accounts?access_token=%s",
		c.baseURL, c.version, url.QueryEscape(userAccessToken))

	var pages []platform.RemotePage
	for page := 0; endpoint != "" && page < c.maxPages; page++ {
		var resp accountsResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Data {
			pages = append(pages, platform.RemotePage{
				ID:          item.ID,
				Name:        item.Name,
				AccessToken: item.AccessToken,
			})
		}
		endpoint = resp.Paging.Next
	}
	return pages, nil
}

func (c *Client) SubscribePage(ctx context.Context, conn connection.PlatformConnection) error {
	endpoint := fmt.Sprintf("%s/%s/%s/subscribed_apps?subscribed_fields=messages&access_token=%s",
		c.baseURL, c.version, url.PathEscape(conn.PlatformUserID), url.QueryEscape(conn.AccessToken))

	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &platform.GraphError{Message: "page subscription was not accepted"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("graph api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var graphErr graphErrorBody
		if err := json.Unmarshal(data, &graphErr); err == nil && graphErr.Error.Message != "" {
			return &platform.GraphError{
				Message:    graphErr.Error.Message,
				Type:       graphErr.Error.Type,
				Code:       graphErr.Error.Code,
				HTTPStatus: resp.StatusCode,
			}
		}
		return &platform.GraphError{HTTPStatus: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &platform.GraphError{
			Message:    "malformed response body",
			HTTPStatus: resp.StatusCode,
		}
	}
	return nil
}
