package network

import (
	"context"
	"fmt"
	"log/slog"
	stdSync "sync"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
)

// Response is the tagged outcome of a simulated API call. Failures are
// captured here, never thrown past the network boundary.
type Response struct {
	Data      interface{} `json:"data,omitempty"`
	Err       string      `json:"error,omitempty"`
	Success   bool        `json:"success"`
	Timestamp time.Time   `json:"timestamp"`
}

// CallOptions tunes a single API call. Zero values take the defaults.
type CallOptions struct {
	// Timeout bounds the whole call including retries.
	Timeout time.Duration

	// Retries is the maximum number of attempts.
	Retries int

	// RequireConnection fails the call immediately when the last known
	// state is disconnected.
	RequireConnection bool
}

// DefaultCallOptions returns the standard per-call settings.
func DefaultCallOptions() CallOptions {
	return CallOptions{
		Timeout:           10 * time.Second,
		Retries:           3,
		RequireConnection: true,
	}
}

// BatchItem is one request in a batch.
type BatchItem struct {
	Endpoint string
	Method   string
	Payload  interface{}
}

// APICall runs a simulated request with bounded retries. The timeout is
// enforced through the context; after retry exhaustion the last error is
// classified and returned inside the Response.
func (s *Service) APICall(ctx context.Context, endpoint, method string, payload interface{}, opts *CallOptions) Response {
	config := DefaultCallOptions()
	if opts != nil {
		if opts.Timeout > 0 {
			config.Timeout = opts.Timeout
		}
		if opts.Retries > 0 {
			config.Retries = opts.Retries
		}
		config.RequireConnection = opts.RequireConnection
	}

	if config.RequireConnection && !s.State().IsConnected {
		err := apperrors.NewNetworkError(apperrors.OpAPICall,
			fmt.Errorf("no network connection"))
		s.recorder.Record(err)
		return Response{
			Success:   false,
			Err:       apperrors.UserMessage(err),
			Timestamp: time.Now(),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	retry := s.config.Retry
	retry.MaxAttempts = config.Retries

	var data interface{}
	err := doWithRetry(callCtx, retry, func() error {
		result, err := s.simulateCall(callCtx, endpoint)
		if err != nil {
			return err
		}
		data = result
		return nil
	})

	if err != nil {
		appErr := apperrors.NewNetworkError(apperrors.OpAPICall, err)
		s.recorder.Record(appErr)
		s.logger.LogError(ctx, appErr, "api call failed",
			slog.String("endpoint", endpoint),
			slog.String("method", method),
		)
		return Response{
			Success:   false,
			Err:       apperrors.UserMessage(appErr),
			Timestamp: time.Now(),
		}
	}

	return Response{
		Data:      data,
		Success:   true,
		Timestamp: time.Now(),
	}
}

// simulateCall waits the configured latency and rolls the failure rate.
func (s *Service) simulateCall(ctx context.Context, endpoint string) (interface{}, error) {
	if s.config.CallLatency > 0 {
		timer := time.NewTimer(s.config.CallLatency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if s.roll() < s.config.CallFailureRate {
		return nil, apperrors.NewRetryable(apperrors.OpAPICall,
			fmt.Errorf("simulated failure for %s", endpoint))
	}

	return map[string]interface{}{
		"message": fmt.Sprintf("API call to %s successful", endpoint),
	}, nil
}

// UploadImage simulates an image upload and returns the hosted URL.
func (s *Service) UploadImage(ctx context.Context, imageURI string) Response {
	if !s.State().IsConnected {
		return Response{
			Success:   false,
			Err:       "ネットワーク接続がありません",
			Timestamp: time.Now(),
		}
	}

	resp := s.APICall(ctx, "/images", "POST", imageURI, &CallOptions{RequireConnection: false})
	if !resp.Success {
		return resp
	}

	resp.Data = map[string]interface{}{
		"url": fmt.Sprintf("https://example.com/images/%d.jpg", time.Now().UnixMilli()),
	}
	return resp
}

// BatchRequest runs all items concurrently with no concurrency cap. One
// call's failure never aborts its siblings; the aggregate succeeds if at
// least one call did, and the error string reports the failure count.
func (s *Service) BatchRequest(ctx context.Context, items []BatchItem) Response {
	if !s.State().IsConnected {
		return Response{
			Success:   false,
			Err:       "ネットワーク接続がありません",
			Timestamp: time.Now(),
		}
	}

	results := make([]Response, len(items))
	var wg stdSync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			results[i] = s.APICall(ctx, item.Endpoint, item.Method, item.Payload,
				&CallOptions{RequireConnection: false})
		}(i, item)
	}
	wg.Wait()

	var data []interface{}
	for _, r := range results {
		if r.Success {
			data = append(data, r.Data)
		}
	}

	failed := len(items) - len(data)
	resp := Response{
		Data:      data,
		Success:   len(data) > 0,
		Timestamp: time.Now(),
	}
	if failed > 0 {
		resp.Err = fmt.Sprintf("%d件のリクエストが失敗しました", failed)
		s.logger.Warn("batch requests partially failed",
			slog.Int("failed", failed),
			slog.Int("total", len(items)),
		)
	}
	return resp
}
