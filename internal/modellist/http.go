package modellist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"switchboard/internal/async"
	"switchboard/internal/catalog"
	"switchboard/internal/httpclient"
	"switchboard/internal/logging"
)

// maxListingBytes bounds a model listing body; anything bigger is a broken
// or hostile endpoint.
const maxListingBytes = 1 << 20

// KeySource supplies the API key used to authenticate a listing request.
type KeySource interface {
	Key(ctx context.Context, platformID string) (string, bool)
}

// HTTPChannel answers model-list requests by querying each platform's
// /models endpoint. Platforms without a BaseURL answer from the catalog, so
// one channel serves mixed fleets. Each platform gets its own circuit
// breaker: one flapping endpoint must not block the others.
type HTTPChannel struct {
	catalog *catalog.Cache
	keys    KeySource
	base    *http.Client
	logger  logging.Logger
	out     chan Response

	mu      sync.Mutex
	clients map[string]*http.Client
}

var _ Channel = (*HTTPChannel)(nil)

// NewHTTPChannel builds the channel. keys may be nil for key-less fleets;
// client nil uses the default outbound client.
func NewHTTPChannel(cat *catalog.Cache, keys KeySource, client *http.Client, logger logging.Logger) *HTTPChannel {
	if client == nil {
		client = httpclient.New(0)
	}
	return &HTTPChannel{
		catalog: cat,
		keys:    keys,
		base:    client,
		logger:  logging.OrNop(logger),
		out:     make(chan Response, 8),
		clients: make(map[string]*http.Client),
	}
}

func (h *HTTPChannel) Send(ctx context.Context, req Request) error {
	async.Go(h.logger, "modellist-http", func() {
		resp := h.fetch(ctx, req)
		select {
		case h.out <- resp:
		case <-ctx.Done():
		}
	})
	return nil
}

func (h *HTTPChannel) Responses() <-chan Response {
	return h.out
}

func (h *HTTPChannel) fetch(ctx context.Context, req Request) Response {
	fail := func(err error) Response {
		h.logger.Warn("model list fetch for %s failed: %v", req.PlatformID, err)
		return Response{ID: req.ID, PlatformID: req.PlatformID, Err: err.Error()}
	}

	platform, ok, err := h.catalog.Platform(ctx, req.PlatformID)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(fmt.Errorf("unknown platform %q", req.PlatformID))
	}
	if platform.BaseURL == "" {
		// No listable endpoint; the catalog is authoritative.
		return Response{ID: req.ID, PlatformID: req.PlatformID, Success: true, Models: platform.ModelIDs()}
	}

	endpoint := strings.TrimRight(platform.BaseURL, "/") + "/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(err)
	}
	if h.keys != nil {
		if key, ok := h.keys.Key(ctx, req.PlatformID); ok {
			httpReq.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := h.clientFor(req.PlatformID).Do(httpReq)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := httpclient.ReadBody(resp.Body, maxListingBytes)
	if err != nil {
		return fail(err)
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode))
	}
	models, err := parseModelIDs(body)
	if err != nil {
		return fail(err)
	}
	return Response{ID: req.ID, PlatformID: req.PlatformID, Success: true, Models: models}
}

// clientFor returns the platform's breaker-guarded client, creating it on
// first use.
func (h *HTTPChannel) clientFor(platformID string) *http.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[platformID]; ok {
		return client
	}
	breaker := httpclient.NewBreaker("modellist-"+platformID, httpclient.DefaultBreakerConfig(), h.logger)
	client := &http.Client{
		Timeout:   h.base.Timeout,
		Transport: httpclient.WrapTransport(h.base.Transport, breaker),
	}
	h.clients[platformID] = client
	return client
}

// parseModelIDs accepts the listing shapes in the wild: an OpenAI-style
// {"data":[{"id":...}]}, an Ollama-style {"models":[{"name":...}]} (or id
// objects, or bare strings), or a plain JSON array of ids.
func parseModelIDs(body []byte) ([]string, error) {
	var envelope struct {
		Data *[]struct {
			ID string `json:"id"`
		} `json:"data"`
		Models *[]json.RawMessage `json:"models"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Data != nil:
			ids := make([]string, 0, len(*envelope.Data))
			for _, entry := range *envelope.Data {
				if entry.ID != "" {
					ids = append(ids, entry.ID)
				}
			}
			return ids, nil
		case envelope.Models != nil:
			return parseModelEntries(*envelope.Models)
		}
	}

	var plain []string
	if err := json.Unmarshal(body, &plain); err == nil {
		return plain, nil
	}
	return nil, fmt.Errorf("unrecognized model listing shape")
}

func parseModelEntries(raws []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(raws))
	for _, raw := range raws {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if id != "" {
				ids = append(ids, id)
			}
			continue
		}
		var entry struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("unrecognized model entry %s", raw)
		}
		switch {
		case entry.ID != "":
			ids = append(ids, entry.ID)
		case entry.Name != "":
			ids = append(ids, entry.Name)
		}
	}
	return ids, nil
}
