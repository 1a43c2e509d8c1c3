package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/resvsync/internal/model"
)

// ErrNotFound は指定した相関タグの予約がリモートに存在しないことを表します
var ErrNotFound = errors.New("remote reservation not found")

// Api はリモート予約サービスのCRUDクライアントの抽象です
// 実装: HTTP REST API。認証・セッション層はホスト側の責務です
type Api interface {
	// FindReservation は部屋内の予約を相関タグで検索します
	// 存在しない場合はErrNotFoundを返します
	FindReservation(ctx context.Context, roomID int64, extTag string) (*Reservation, error)

	// AddReservation は予約をリモートに新規作成します
	AddReservation(ctx context.Context, payload *ReservationPayload) (*Reservation, error)

	// EditReservation は予約を上書き更新します
	// reservationIDには相関タグ(ext/...)またはリモート側IDのどちらも指定できます
	EditReservation(ctx context.Context, roomID int64, reservationID string, payload *ReservationPayload) error

	// DeleteReservation は予約をリモートから削除します
	DeleteReservation(ctx context.Context, roomID int64, reservationID string) error

	// RoomList は部屋の一覧を返します
	RoomList(ctx context.Context) ([]Room, error)
}

// Reservation はリモート側の予約レコードです
type Reservation struct {
	ID     string  `json:"reservationid"`
	RoomID int64   `json:"roomid"`
	Date   string  `json:"date"`
	Hour   string  `json:"hour"`
	People int     `json:"people"`
	Price  float64 `json:"price"`
	Status bool    `json:"status"`
	ExtID  string  `json:"extid"`
}

// Room はリモート側の予約可能リソース(部屋)です
type Room struct {
	RoomID     int64  `json:"roomid"`
	Name       string `json:"room"`
	Department string `json:"department"`
}

// ReservationPayload は送信用の予約フィールドです
// ポインタのStatusと omitempty により部分更新(extidの刻印など)にも使えます
type ReservationPayload struct {
	RoomID  int64   `json:"roomid,omitempty"`
	Date    string  `json:"date,omitempty"`
	Hour    string  `json:"hour,omitempty"`
	Name    string  `json:"name,omitempty"`
	Surname string  `json:"surname,omitempty"`
	Email   string  `json:"email,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	People  int     `json:"people,omitempty"`
	Price   float64 `json:"price,omitempty"`
	Status  *bool   `json:"status,omitempty"`
	ExtID   string  `json:"extid,omitempty"`
	Pricer  string  `json:"pricer,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// PayloadFrom はReservationDataから送信ペイロードを組み立てます
func PayloadFrom(d *model.ReservationData) *ReservationPayload {
	status := d.Status
	return &ReservationPayload{
		RoomID:  d.RoomID,
		Date:    d.Date,
		Hour:    d.Hour,
		Name:    d.Name,
		Surname: d.Surname,
		Email:   d.Email,
		Phone:   d.Phone,
		People:  d.People,
		Price:   d.Price,
		Status:  &status,
		ExtID:   d.ExtID,
		Pricer:  d.Pricer,
		Source:  d.Source,
	}
}

// Client はApiのHTTP実装です
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxRetries int
}

// NewClient は新しいリモートAPIクライアントを作成します
// tracedが有効な場合、HTTPクライアントをX-Rayで計装します
func NewClient(baseURL, token string, traced bool) *Client {
	hc := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    10,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Timeout: 30 * time.Second,
	}
	if traced {
		hc = xray.Client(hc)
	}
	return &Client{
		httpClient: hc,
		baseURL:    baseURL,
		token:      token,
		maxRetries: 3,
	}
}

// FindReservation は部屋内の予約を相関タグで検索します
func (c *Client) FindReservation(ctx context.Context, roomID int64, extTag string) (*Reservation, error) {
	u := fmt.Sprintf("%s/rooms/%d/reservations/%s", c.baseURL, roomID, url.PathEscape(extTag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var reservation Reservation
	if err := json.NewDecoder(resp.Body).Decode(&reservation); err != nil {
		return nil, fmt.Errorf("failed to decode reservation: %w", err)
	}
	return &reservation, nil
}

// AddReservation は予約をリモートに新規作成します
func (c *Client) AddReservation(ctx context.Context, payload *ReservationPayload) (*Reservation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reservation: %w", err)
	}

	u := fmt.Sprintf("%s/reservations", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to add reservation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp)
	}

	var reservation Reservation
	if err := json.NewDecoder(resp.Body).Decode(&reservation); err != nil {
		return nil, fmt.Errorf("failed to decode reservation: %w", err)
	}
	return &reservation, nil
}

// EditReservation は予約を上書き更新します
func (c *Client) EditReservation(ctx context.Context, roomID int64, reservationID string, payload *ReservationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}

	u := fmt.Sprintf("%s/rooms/%d/reservations/%s", c.baseURL, roomID, url.PathEscape(reservationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to edit reservation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

// DeleteReservation は予約をリモートから削除します
func (c *Client) DeleteReservation(ctx context.Context, roomID int64, reservationID string) error {
	u := fmt.Sprintf("%s/rooms/%d/reservations/%s", c.baseURL, roomID, url.PathEscape(reservationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

// RoomList は部屋の一覧を返します
func (c *Client) RoomList(ctx context.Context) ([]Room, error) {
	u := fmt.Sprintf("%s/rooms", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var rooms []Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("failed to decode room list: %w", err)
	}
	return rooms, nil
}

func statusError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("remote service returned status %d: %s", resp.StatusCode, string(bodyBytes))
}

// doWithRetry は指数バックオフ付きでHTTPリクエストを実行します
// 5xx系のみリトライ対象とします
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := 1 * time.Second
	maxBackoff := 16 * time.Second

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// リトライ時にボディを再利用できるよう先に読み切る
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body.Close()
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode < 500 {
				return resp, nil
			}
			resp.Body.Close()
		}

		if attempt == c.maxRetries {
			if err != nil {
				return nil, fmt.Errorf("max retries exceeded: %w", err)
			}
			return resp, nil
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("max retries exceeded")
}
