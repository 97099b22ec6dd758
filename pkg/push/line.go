package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
)

// LINE sends messages through the LINE Messaging API.
type LINE struct {
	api    *messaging_api.MessagingApiAPI
	userID string
	logger *slog.Logger
}

// NewLINE creates a sender from the channel settings. An empty endpoint uses
// the public API.
func NewLINE(cfg config.LINE, httpClient *http.Client, logger *slog.Logger) (*LINE, error) {
	if cfg.ChannelAccessToken == "" {
		return nil, fmt.Errorf("line.channel_access_token is not set: %w", apperr.ErrPermission)
	}
	if logger == nil {
		logger = slog.Default()
	}
	var opts []messaging_api.MessagingApiAPIOption
	if cfg.Endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	if httpClient != nil {
		opts = append(opts, messaging_api.WithHTTPClient(httpClient))
	}
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create line client: %w", err)
	}
	return &LINE{api: api, userID: cfg.UserID, logger: logger}, nil
}

func (l *LINE) Send(ctx context.Context, m Message, broadcast bool) error {
	msg, err := toLINE(m)
	if err != nil {
		return err
	}
	msgs := []messaging_api.MessageInterface{msg}
	api := l.api.WithContext(ctx)

	var res *http.Response
	if broadcast {
		res, _, err = api.BroadcastWithHttpInfo(&messaging_api.BroadcastRequest{Messages: msgs}, "")
	} else {
		if l.userID == "" {
			return fmt.Errorf("line.user_id is not set: %w", apperr.ErrInvalidValue)
		}
		res, _, err = api.PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{To: l.userID, Messages: msgs}, "")
	}
	if err != nil {
		return classify(res, err)
	}
	l.logger.Debug("line message sent", "kind", m.Kind, "broadcast", broadcast, "status", res.StatusCode)
	return nil
}

func toLINE(m Message) (messaging_api.MessageInterface, error) {
	switch m.Kind {
	case Text:
		return messaging_api.TextMessage{Text: m.Text}, nil
	case Sticker:
		return messaging_api.StickerMessage{PackageId: m.PackageID, StickerId: m.StickerID}, nil
	default:
		return nil, fmt.Errorf("message kind %v: %w", m.Kind, apperr.ErrInvalidValue)
	}
}

// classify maps an API failure to an error kind.
func classify(res *http.Response, err error) error {
	if res == nil {
		return fmt.Errorf("line api: %w: %w", apperr.ErrConnectivity, err)
	}
	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("line api rejected the access token: %w: %w", apperr.ErrPermission, err)
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("line api: %w: %w", apperr.ErrConnectivity, err)
	default:
		return fmt.Errorf("line api: %w", err)
	}
}
