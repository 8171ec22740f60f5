// Package carrier implements the shipping carrier tracking integration.
package carrier

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/erp/channelsync/internal/infrastructure/remote"
	"go.uber.org/zap"
)

// Config holds the client settings shared by all carriers.
type Config struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

type jsonTrackingResponse struct {
	TrackingNumber string `json:"tracking_number"`
	StatusCode     string `json:"status_code"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	OccurredAt     string `json:"occurred_at"`
}

type xmlTrackingResponse struct {
	XMLName  xml.Name `xml:"TrackingResponse"`
	Shipment struct {
		TrackingNumber    string `xml:"TrackingNumber"`
		StatusCode        string `xml:"StatusCode"`
		StatusDescription string `xml:"StatusDescription"`
		Location          string `xml:"Location"`
		EventTime         string `xml:"EventTime"`
	} `xml:"Shipment"`
	Error string `xml:"Error"`
}

// TrackingAdapter implements integration.CarrierTracker. Each carrier
// record carries its own base URL and credentials, so a client is kept per
// carrier.
type TrackingAdapter struct {
	config  Config
	logger  *zap.Logger
	opts    []remote.Option
	mu      sync.RWMutex
	clients map[string]*remote.Client
}

// NewTrackingAdapter creates a tracking adapter.
func NewTrackingAdapter(cfg Config, logger *zap.Logger, opts ...remote.Option) *TrackingAdapter {
	logger = logger.Named("carrier")
	return &TrackingAdapter{
		config:  cfg,
		logger:  logger,
		opts:    append([]remote.Option{remote.WithLogger(logger)}, opts...),
		clients: make(map[string]*remote.Client),
	}
}

// Track implements integration.CarrierTracker
func (a *TrackingAdapter) Track(ctx context.Context, carrier *shipping.ShippingCarrier, trackingNumber string) (*integration.TrackingStatus, error) {
	client, err := a.clientFor(carrier)
	if err != nil {
		return nil, err
	}

	req := remote.Request{
		Method: http.MethodGet,
		Path:   "/tracking/" + url.PathEscape(trackingNumber),
		Token:  carrier.APIKey,
	}
	if carrier.AccountNumber != "" {
		req.Headers = map[string]string{"X-Account-Number": carrier.AccountNumber}
	}
	if carrier.ResponseFormat == shipping.FormatXML {
		req.Headers = withHeader(req.Headers, "Accept", "application/xml")
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var status *integration.TrackingStatus
	switch carrier.ResponseFormat {
	case shipping.FormatXML:
		status, err = parseXML(resp.Body)
	default:
		status, err = parseJSON(resp.Body)
	}
	if err != nil {
		return nil, err
	}
	if status.TrackingNumber == "" {
		status.TrackingNumber = trackingNumber
	}
	return status, nil
}

func (a *TrackingAdapter) clientFor(carrier *shipping.ShippingCarrier) (*remote.Client, error) {
	if carrier == nil || carrier.APIBaseURL == "" {
		return nil, fmt.Errorf("%w: missing API base URL", integration.ErrCarrierNotSupported)
	}
	key := carrier.ID.String()

	a.mu.RLock()
	client, ok := a.clients[key]
	a.mu.RUnlock()
	if ok {
		return client, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if client, ok := a.clients[key]; ok {
		return client, nil
	}
	client, err := remote.NewClient(remote.Config{
		BaseURL:       carrier.APIBaseURL,
		Timeout:       a.config.Timeout,
		MaxRetries:    a.config.MaxRetries,
		RetryInterval: a.config.RetryInterval,
	}, a.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrCarrierNotSupported, err)
	}
	a.clients[key] = client
	return client, nil
}

func parseJSON(body []byte) (*integration.TrackingStatus, error) {
	var r jsonTrackingResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
	}
	if r.StatusCode == "" {
		return nil, fmt.Errorf("%w: missing status_code", integration.ErrRemoteInvalidResponse)
	}
	return &integration.TrackingStatus{
		TrackingNumber: r.TrackingNumber,
		Code:           r.StatusCode,
		Description:    r.Description,
		Location:       r.Location,
		OccurredAt:     parseEventTime(r.OccurredAt),
	}, nil
}

func parseXML(body []byte) (*integration.TrackingStatus, error) {
	var r xmlTrackingResponse
	if err := xml.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRemoteInvalidResponse, err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("%w: %s", integration.ErrRemoteRejected, r.Error)
	}
	if r.Shipment.StatusCode == "" {
		return nil, fmt.Errorf("%w: missing StatusCode", integration.ErrRemoteInvalidResponse)
	}
	return &integration.TrackingStatus{
		TrackingNumber: strings.TrimSpace(r.Shipment.TrackingNumber),
		Code:           strings.TrimSpace(r.Shipment.StatusCode),
		Description:    strings.TrimSpace(r.Shipment.StatusDescription),
		Location:       strings.TrimSpace(r.Shipment.Location),
		OccurredAt:     parseEventTime(r.Shipment.EventTime),
	}, nil
}

var eventTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// parseEventTime returns the zero time for missing or unparsable values; the
// caller then stamps the observation time.
func parseEventTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func withHeader(h map[string]string, k, v string) map[string]string {
	if h == nil {
		h = map[string]string{}
	}
	h[k] = v
	return h
}

var _ integration.CarrierTracker = (*TrackingAdapter)(nil)
